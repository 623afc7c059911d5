package marketgate_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/marketgate"
	"github.com/MrEthical07/marketgate/audit"
	"github.com/MrEthical07/marketgate/password"
	"github.com/MrEthical07/marketgate/permission"
	"github.com/MrEthical07/marketgate/store/memory"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func fastPassword() password.Params {
	p := password.DefaultParams()
	p.MemoryKB = 8 * 1024
	p.Iterations = 1
	p.Threads = 1
	return p
}

func testConfig() marketgate.Config {
	cfg := marketgate.DefaultConfig()
	cfg.Credential.Secret = testSecret
	cfg.Audit.Async = false
	cfg.Password = fastPassword()
	cfg.Metrics.EnableLatencyHistograms = true
	return cfg
}

type harness struct {
	engine *marketgate.Engine
	store  *memory.Store
	sink   *audit.MemorySink
	clock  *fakeClock
}

func newHarness(t *testing.T, mutate func(*marketgate.Config)) *harness {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}
	h := &harness{
		store: memory.New(),
		sink:  audit.NewMemorySink(),
		clock: newFakeClock(),
	}
	engine, err := marketgate.New().
		WithConfig(cfg).
		WithIdentityProvider(h.store).
		WithProductOwnerLookup(h.store).
		WithAuditSink(h.sink).
		WithClock(h.clock.Now).
		Build()
	if err != nil {
		t.Fatalf("build engine: %v", err)
	}
	t.Cleanup(func() { _ = engine.Close(context.Background()) })
	h.engine = engine
	return h
}

func (h *harness) seed(id, email string, role permission.Role, active bool) marketgate.Identity {
	identity := marketgate.Identity{ID: id, Email: email, Role: role, Active: active}
	h.store.Put(marketgate.IdentityRecord{Identity: identity, CreatedAt: h.clock.Now()})
	return identity
}

func (h *harness) token(t *testing.T, identity marketgate.Identity) string {
	t.Helper()
	tok, _, err := h.engine.IssueCredential(identity)
	if err != nil {
		t.Fatalf("issue credential: %v", err)
	}
	return tok
}

// failingProvider reports every lookup as a backend failure.
type failingProvider struct{}

var errBackendDown = errors.New("connection refused")

func (failingProvider) GetIdentityByID(context.Context, string) (marketgate.IdentityRecord, error) {
	return marketgate.IdentityRecord{}, errBackendDown
}

func (failingProvider) GetIdentityByEmail(context.Context, string) (marketgate.IdentityRecord, error) {
	return marketgate.IdentityRecord{}, errBackendDown
}

func (failingProvider) CreateIdentity(context.Context, marketgate.CreateIdentityInput) (marketgate.IdentityRecord, error) {
	return marketgate.IdentityRecord{}, errBackendDown
}

func (failingProvider) SetActive(context.Context, string, bool) error {
	return errBackendDown
}
