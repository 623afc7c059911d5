package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
)

// ErrChainBroken is returned by VerifyChain when an entry was altered,
// removed or reordered.
var ErrChainBroken = errors.New("audit chain broken")

// computeHash hashes e with its Hash field cleared. encoding/json sorts map
// keys, so the digest is stable across a JSON round trip.
func computeHash(e Entry) (string, error) {
	e.Hash = ""
	payload, err := json.Marshal(e)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}

// VerifyChain checks every entry's hash and the linkage between consecutive
// entries. The first entry's prevHash is taken as the anchor, so any
// contiguous slice of a trail (for example a Query result) can be verified.
func VerifyChain(entries []Entry) error {
	for i, e := range entries {
		want, err := computeHash(e)
		if err != nil {
			return fmt.Errorf("%w: entry %s: %v", ErrChainBroken, e.ID, err)
		}
		if e.Hash != want {
			return fmt.Errorf("%w: entry %s hash mismatch", ErrChainBroken, e.ID)
		}
		if i > 0 && e.PrevHash != entries[i-1].Hash {
			return fmt.Errorf("%w: entry %s does not follow %s", ErrChainBroken, e.ID, entries[i-1].ID)
		}
	}
	return nil
}
