package jwt

import (
	"testing"
	"time"

	"github.com/MrEthical07/marketgate/permission"
)

// FuzzVerify feeds arbitrary strings to the verifier.
// Malformed input must be rejected without panics or partial claims.
func FuzzVerify(f *testing.F) {
	mgr, err := NewManager(Config{Secret: []byte(testSecret), Lifetime: time.Hour})
	if err != nil {
		f.Fatal(err)
	}
	valid, _, err := mgr.Issue("uid1", "fuzz@example.com", permission.Seller)
	if err != nil {
		f.Fatal(err)
	}

	f.Add(valid)
	f.Add("")
	f.Add("not.a.jwt")
	f.Add("eyJhbGciOiJub25lIn0.eyJzdWIiOiJ0ZXN0In0.")

	f.Fuzz(func(t *testing.T, input string) {
		claims, err := mgr.Verify(input)
		if err != nil {
			if claims != (Claims{}) {
				t.Fatalf("partial claims returned with error: %+v", claims)
			}
			return
		}
		if claims.SubjectID == "" || !claims.Role.Valid() {
			t.Fatalf("accepted claims without subject or role: %+v", claims)
		}
	})
}
