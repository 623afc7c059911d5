package memory

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/permission"
)

func TestCreateAndLookup(t *testing.T) {
	s := New()
	ctx := context.Background()

	rec, err := s.CreateIdentity(ctx, marketgate.CreateIdentityInput{Email: "Seller@Example.com", PasswordHash: "h", Role: permission.Seller})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if rec.ID == "" || !rec.Active || rec.Email != "seller@example.com" {
		t.Fatalf("unexpected record: %+v", rec)
	}

	byID, err := s.GetIdentityByID(ctx, rec.ID)
	if err != nil || byID.Email != rec.Email {
		t.Fatalf("by id: %+v %v", byID, err)
	}
	byEmail, err := s.GetIdentityByEmail(ctx, "SELLER@example.com")
	if err != nil || byEmail.ID != rec.ID {
		t.Fatalf("by email: %+v %v", byEmail, err)
	}

	if _, err := s.CreateIdentity(ctx, marketgate.CreateIdentityInput{Email: "seller@example.com", Role: permission.Buyer}); !errors.Is(err, marketgate.ErrEmailTaken) {
		t.Fatalf("expected ErrEmailTaken, got %v", err)
	}
}

func TestMissingRecords(t *testing.T) {
	s := New()
	ctx := context.Background()

	if _, err := s.GetIdentityByID(ctx, "nope"); !errors.Is(err, marketgate.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := s.GetIdentityByEmail(ctx, "nope@example.com"); !errors.Is(err, marketgate.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := s.SetActive(ctx, "nope", false); !errors.Is(err, marketgate.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := s.ProductOwnerID(ctx, "p-1"); !errors.Is(err, marketgate.ErrResourceNotFound) {
		t.Fatalf("expected ErrResourceNotFound, got %v", err)
	}
}

func TestSetActiveAndProducts(t *testing.T) {
	s := New()
	ctx := context.Background()
	s.Put(marketgate.IdentityRecord{Identity: marketgate.Identity{ID: "u1", Email: "a@example.com", Role: permission.Seller, Active: true}})
	s.PutProduct("p1", "u1")

	if err := s.SetActive(ctx, "u1", false); err != nil {
		t.Fatalf("set active: %v", err)
	}
	rec, _ := s.GetIdentityByID(ctx, "u1")
	if rec.Active {
		t.Fatal("expected inactive")
	}
	owner, err := s.ProductOwnerID(ctx, "p1")
	if err != nil || owner != "u1" {
		t.Fatalf("owner = %q, %v", owner, err)
	}
}

func TestCreateRejectsInvalidRole(t *testing.T) {
	s := New()
	_, err := s.CreateIdentity(context.Background(), marketgate.CreateIdentityInput{Email: "x@example.com"})
	if !errors.Is(err, marketgate.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestConcurrentCreateUniqueEmail(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	var mu sync.Mutex
	created := 0
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.CreateIdentity(context.Background(), marketgate.CreateIdentityInput{Email: "same@example.com", Role: permission.Buyer})
			if err == nil {
				mu.Lock()
				created++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if created != 1 || s.Len() != 1 {
		t.Fatalf("created=%d len=%d", created, s.Len())
	}
}
