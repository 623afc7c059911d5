package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/permission"
	"github.com/google/uuid"
)

// Store keeps identities and products in maps guarded by one RWMutex.
type Store struct {
	mu       sync.RWMutex
	byID     map[string]marketgate.IdentityRecord
	byEmail  map[string]string
	products map[string]string
	now      func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		byID:     make(map[string]marketgate.IdentityRecord),
		byEmail:  make(map[string]string),
		products: make(map[string]string),
		now:      time.Now,
	}
}

// GetIdentityByID implements marketgate.IdentityProvider.
func (s *Store) GetIdentityByID(_ context.Context, id string) (marketgate.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.byID[id]
	if !ok {
		return marketgate.IdentityRecord{}, marketgate.ErrUserNotFound
	}
	return rec, nil
}

// GetIdentityByEmail implements marketgate.IdentityProvider. Emails compare
// case-insensitively.
func (s *Store) GetIdentityByEmail(_ context.Context, email string) (marketgate.IdentityRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[strings.ToLower(email)]
	if !ok {
		return marketgate.IdentityRecord{}, marketgate.ErrUserNotFound
	}
	return s.byID[id], nil
}

// CreateIdentity implements marketgate.IdentityProvider.
func (s *Store) CreateIdentity(_ context.Context, in marketgate.CreateIdentityInput) (marketgate.IdentityRecord, error) {
	if !in.Role.Valid() {
		return marketgate.IdentityRecord{}, fmt.Errorf("%w: %v", marketgate.ErrInvalidInput, permission.ErrUnknownRole)
	}
	key := strings.ToLower(in.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, taken := s.byEmail[key]; taken {
		return marketgate.IdentityRecord{}, marketgate.ErrEmailTaken
	}
	rec := marketgate.IdentityRecord{
		Identity: marketgate.Identity{
			ID:     uuid.NewString(),
			Email:  key,
			Role:   in.Role,
			Active: true,
		},
		PasswordHash: in.PasswordHash,
		CreatedAt:    s.now().UTC(),
	}
	s.byID[rec.ID] = rec
	s.byEmail[key] = rec.ID
	return rec, nil
}

// SetActive implements marketgate.IdentityProvider.
func (s *Store) SetActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.byID[id]
	if !ok {
		return marketgate.ErrUserNotFound
	}
	rec.Active = active
	s.byID[id] = rec
	return nil
}

// Put inserts or replaces rec as is. Seeding helper.
func (s *Store) Put(rec marketgate.IdentityRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if old, ok := s.byID[rec.ID]; ok {
		delete(s.byEmail, strings.ToLower(old.Email))
	}
	s.byID[rec.ID] = rec
	s.byEmail[strings.ToLower(rec.Email)] = rec.ID
}

// PutProduct records sellerID as the owner of productID.
func (s *Store) PutProduct(productID, sellerID string) {
	s.mu.Lock()
	s.products[productID] = sellerID
	s.mu.Unlock()
}

// ProductOwnerID implements marketgate.ProductOwnerLookup.
func (s *Store) ProductOwnerID(_ context.Context, productID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, ok := s.products[productID]
	if !ok {
		return "", marketgate.ErrResourceNotFound
	}
	return owner, nil
}

// Len returns the number of identities.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}
