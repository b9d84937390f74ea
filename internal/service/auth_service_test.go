package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/luizasposito/sheep-management-system/internal/model"
	"github.com/luizasposito/sheep-management-system/internal/queue"
	"github.com/luizasposito/sheep-management-system/internal/repository"
	"github.com/luizasposito/sheep-management-system/internal/revocation"
	"github.com/luizasposito/sheep-management-system/internal/utils"
)

type fakeStore struct {
	mu       sync.Mutex
	accounts map[model.Role]map[string]*model.Account
	err      error
	delay    time.Duration
	calls    int
}

func newFakeStore() *fakeStore {
	return &fakeStore{accounts: map[model.Role]map[string]*model.Account{}}
}

func (s *fakeStore) add(t *testing.T, id uint64, email, password string, role model.Role, farmID uint64) {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.accounts[role] == nil {
		s.accounts[role] = map[string]*model.Account{}
	}
	farm := farmID
	s.accounts[role][email] = &model.Account{
		Principal:    model.Principal{ID: id, Name: "user", Email: email, Role: role, FarmID: &farm},
		PasswordHash: hash,
	}
}

func (s *fakeStore) FindByEmailAndKind(ctx context.Context, email string, role model.Role) (*model.Account, error) {
	s.mu.Lock()
	s.calls++
	delay, err := s.delay, s.err
	acc := s.accounts[role][email]
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}
	if acc == nil {
		return nil, repository.ErrFarmerNotFound
	}
	cp := *acc
	return &cp, nil
}

type recordingPublisher struct {
	events chan queue.SessionEvent
}

func (p *recordingPublisher) Publish(_ context.Context, _ string, event any) error {
	if ev, ok := event.(queue.SessionEvent); ok {
		p.events <- ev
	}
	return nil
}

func (p *recordingPublisher) next(t *testing.T) queue.SessionEvent {
	t.Helper()
	select {
	case ev := <-p.events:
		return ev
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for event")
		return queue.SessionEvent{}
	}
}

func newTestService(store IdentityStore) (*AuthService, *revocation.MemoryRegistry) {
	reg := revocation.NewMemoryRegistry()
	svc := NewAuthService(store, reg, AuthConfig{
		Tokens:        utils.TokenConfig{Secret: []byte("secret"), Algorithm: "HS256", TTL: time.Hour},
		BcryptCost:    bcrypt.MinCost,
		LookupTimeout: time.Second,
	})
	return svc, reg
}

func TestLoginFarmerThenResolve(t *testing.T) {
	store := newFakeStore()
	store.add(t, 1, "a@x.com", "secret", model.RoleFarmer, 7)
	svc, _ := newTestService(store)
	ctx := context.Background()

	tok, p, err := svc.Login(ctx, "a@x.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if p.Role != model.RoleFarmer || tok.Token == "" {
		t.Fatalf("unexpected login result %+v", p)
	}

	got, err := svc.Resolve(ctx, tok.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if got.ID != 1 || got.Email != "a@x.com" || !got.BelongsTo(7) {
		t.Fatalf("unexpected principal %+v", got)
	}
}

func TestLoginFallsBackToVeterinarian(t *testing.T) {
	store := newFakeStore()
	store.add(t, 4, "vet@x.com", "pw", model.RoleVeterinarian, 7)
	svc, _ := newTestService(store)

	_, p, err := svc.Login(context.Background(), "vet@x.com", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if p.Role != model.RoleVeterinarian || p.ID != 4 {
		t.Fatalf("unexpected principal %+v", p)
	}
}

func TestLoginFailuresAreIndistinguishable(t *testing.T) {
	store := newFakeStore()
	store.add(t, 1, "a@x.com", "secret", model.RoleFarmer, 7)
	svc, _ := newTestService(store)
	ctx := context.Background()

	_, _, errWrong := svc.Login(ctx, "a@x.com", "nope")
	_, _, errUnknown := svc.Login(ctx, "ghost@x.com", "secret")
	if !errors.Is(errWrong, ErrInvalidCredentials) || !errors.Is(errUnknown, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials twice, got %v / %v", errWrong, errUnknown)
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Fatalf("expected identical messages, got %q / %q", errWrong, errUnknown)
	}
}

func TestLoginStoreDown(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("dial tcp: connection refused")
	svc, _ := newTestService(store)

	_, _, err := svc.Login(context.Background(), "a@x.com", "secret")
	if !errors.Is(err, ErrIdentityUnavailable) {
		t.Fatalf("expected ErrIdentityUnavailable, got %v", err)
	}
}

func TestLogoutRevokesOnlyThatToken(t *testing.T) {
	store := newFakeStore()
	store.add(t, 1, "a@x.com", "secret", model.RoleFarmer, 7)
	svc, _ := newTestService(store)
	ctx := context.Background()

	first, _, _ := svc.Login(ctx, "a@x.com", "secret")
	second, _, _ := svc.Login(ctx, "a@x.com", "secret")

	if err := svc.Logout(ctx, first.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if err := svc.Logout(ctx, first.Token); err != nil {
		t.Fatalf("second logout: %v", err)
	}

	_, err := svc.Resolve(ctx, first.Token)
	if !errors.Is(err, utils.ErrInvalidToken) || !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked token, got %v", err)
	}
	if _, err := svc.Resolve(ctx, second.Token); err != nil {
		t.Fatalf("expected other session to stay valid, got %v", err)
	}
}

func TestLogoutOutlivesShorterConfiguredTTL(t *testing.T) {
	store := newFakeStore()
	store.add(t, 1, "a@x.com", "secret", model.RoleFarmer, 7)
	reg := revocation.NewMemoryRegistry()
	withTTL := func(ttl time.Duration) AuthConfig {
		return AuthConfig{
			Tokens:        utils.TokenConfig{Secret: []byte("secret"), Algorithm: "HS256", TTL: ttl},
			BcryptCost:    bcrypt.MinCost,
			LookupTimeout: time.Second,
		}
	}
	issuer := NewAuthService(store, reg, withTTL(300*time.Minute))
	other := NewAuthService(store, reg, withTTL(time.Minute))
	ctx := context.Background()

	tok, _, err := issuer.Login(ctx, "a@x.com", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if err := other.Logout(ctx, tok.Token); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if n := reg.Cleanup(time.Now().Add(2 * time.Minute)); n != 0 {
		t.Fatalf("expected entry to survive the sweep, dropped %d", n)
	}
	if _, err := issuer.Resolve(ctx, tok.Token); !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected revoked token, got %v", err)
	}
}

func TestLogoutGarbageTokenIsAccepted(t *testing.T) {
	svc, reg := newTestService(newFakeStore())
	if err := svc.Logout(context.Background(), "not-a-jwt"); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if ok, _ := reg.IsRevoked(context.Background(), "not-a-jwt"); !ok {
		t.Fatal("expected garbage token to be recorded")
	}
}

func TestResolveExpiredToken(t *testing.T) {
	store := newFakeStore()
	store.add(t, 1, "a@x.com", "secret", model.RoleFarmer, 7)
	svc, _ := newTestService(store)

	expired, _ := utils.IssueToken(utils.TokenConfig{Secret: []byte("secret"), TTL: -time.Minute}, "a@x.com", "farmer")
	_, err := svc.Resolve(context.Background(), expired.Token)
	if !errors.Is(err, utils.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestResolveUnknownRole(t *testing.T) {
	svc, _ := newTestService(newFakeStore())
	tok, _ := utils.IssueToken(utils.TokenConfig{Secret: []byte("secret"), TTL: time.Hour}, "a@x.com", "admin")

	if _, err := svc.Resolve(context.Background(), tok.Token); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}
}

func TestResolveVanishedPrincipal(t *testing.T) {
	store := newFakeStore()
	store.add(t, 1, "a@x.com", "secret", model.RoleFarmer, 7)
	svc, _ := newTestService(store)
	tok, _, _ := svc.Login(context.Background(), "a@x.com", "secret")

	store.mu.Lock()
	delete(store.accounts[model.RoleFarmer], "a@x.com")
	store.mu.Unlock()

	if _, err := svc.Resolve(context.Background(), tok.Token); !errors.Is(err, ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}
}

func TestResolveReadsCurrentRecord(t *testing.T) {
	store := newFakeStore()
	store.add(t, 1, "a@x.com", "secret", model.RoleFarmer, 7)
	svc, _ := newTestService(store)
	tok, _, _ := svc.Login(context.Background(), "a@x.com", "secret")

	store.mu.Lock()
	moved := uint64(9)
	store.accounts[model.RoleFarmer]["a@x.com"].Principal.FarmID = &moved
	store.accounts[model.RoleFarmer]["a@x.com"].Principal.Name = "Renamed"
	store.mu.Unlock()

	p, err := svc.Resolve(context.Background(), tok.Token)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !p.BelongsTo(9) || p.Name != "Renamed" {
		t.Fatalf("expected fresh record, got %+v", p)
	}
}

func TestResolveTimesOut(t *testing.T) {
	store := newFakeStore()
	store.add(t, 1, "a@x.com", "secret", model.RoleFarmer, 7)
	svc, _ := newTestService(store)
	tok, _, _ := svc.Login(context.Background(), "a@x.com", "secret")

	svc.cfg.LookupTimeout = 20 * time.Millisecond
	store.mu.Lock()
	store.delay = time.Second
	store.mu.Unlock()

	start := time.Now()
	_, err := svc.Resolve(context.Background(), tok.Token)
	if !errors.Is(err, ErrIdentityUnavailable) {
		t.Fatalf("expected ErrIdentityUnavailable, got %v", err)
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("resolve did not honour the lookup timeout")
	}
}

type mapCache struct {
	mu sync.Mutex
	m  map[string]model.Principal
}

func (c *mapCache) Get(_ context.Context, role model.Role, email string) (*model.Principal, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if p, ok := c.m[string(role)+email]; ok {
		return &p, nil
	}
	return nil, nil
}

func (c *mapCache) Set(_ context.Context, p model.Principal) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[string(p.Role)+p.Email] = p
	return nil
}

func (c *mapCache) Invalidate(_ context.Context, role model.Role, email string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.m, string(role)+email)
	return nil
}

func TestResolveUsesCache(t *testing.T) {
	store := newFakeStore()
	store.add(t, 1, "a@x.com", "secret", model.RoleFarmer, 7)
	svc, _ := newTestService(store)
	svc.WithCache(&mapCache{m: map[string]model.Principal{}})
	ctx := context.Background()
	tok, _, _ := svc.Login(ctx, "a@x.com", "secret")

	for i := 0; i < 3; i++ {
		if _, err := svc.Resolve(ctx, tok.Token); err != nil {
			t.Fatalf("resolve: %v", err)
		}
	}
	// one lookup for login, one for the first resolve
	if store.calls != 2 {
		t.Fatalf("expected 2 store calls, got %d", store.calls)
	}

	svc.InvalidatePrincipal(ctx, model.RoleFarmer, "a@x.com")
	_, _ = svc.Resolve(ctx, tok.Token)
	if store.calls != 3 {
		t.Fatalf("expected invalidation to force a lookup, got %d calls", store.calls)
	}
}

func TestSessionEventsArePublished(t *testing.T) {
	store := newFakeStore()
	store.add(t, 1, "a@x.com", "secret", model.RoleFarmer, 7)
	svc, _ := newTestService(store)
	pub := &recordingPublisher{events: make(chan queue.SessionEvent, 4)}
	svc.WithEvents(pub)
	ctx := context.Background()

	tok, _, _ := svc.Login(ctx, "a@x.com", "secret")
	if ev := pub.next(t); ev.Type != queue.SessionLogin || ev.Role != "farmer" || ev.ID == "" {
		t.Fatalf("unexpected login event %+v", ev)
	}

	_, _, _ = svc.Login(ctx, "a@x.com", "wrong")
	if ev := pub.next(t); ev.Type != queue.SessionLoginFailed || ev.Role != "" {
		t.Fatalf("unexpected failure event %+v", ev)
	}

	_ = svc.Logout(ctx, tok.Token)
	if ev := pub.next(t); ev.Type != queue.SessionLogout || ev.Email != "a@x.com" {
		t.Fatalf("unexpected logout event %+v", ev)
	}
}
