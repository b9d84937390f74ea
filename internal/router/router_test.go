package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"

	"github.com/luizasposito/sheep-management-system/internal/handler"
	"github.com/luizasposito/sheep-management-system/internal/model"
	"github.com/luizasposito/sheep-management-system/internal/repository"
	"github.com/luizasposito/sheep-management-system/internal/revocation"
	"github.com/luizasposito/sheep-management-system/internal/service"
	"github.com/luizasposito/sheep-management-system/internal/utils"
)

type identities struct {
	accounts map[model.Role]map[string]*model.Account
}

func (s *identities) FindByEmailAndKind(_ context.Context, email string, role model.Role) (*model.Account, error) {
	if acc, ok := s.accounts[role][email]; ok {
		cp := *acc
		return &cp, nil
	}
	return nil, repository.ErrFarmerNotFound
}

type inventory struct {
	mu    sync.Mutex
	items map[uint64]*model.InventoryItem
	next  uint64
}

func (s *inventory) Create(_ context.Context, it *model.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	it.ID = s.next
	cp := *it
	s.items[it.ID] = &cp
	return nil
}

func (s *inventory) GetByID(_ context.Context, id uint64) (*model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.items[id]
	if !ok {
		return nil, repository.ErrInventoryNotFound
	}
	cp := *it
	return &cp, nil
}

func (s *inventory) ListByFarm(_ context.Context, farmID uint64) ([]*model.InventoryItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []*model.InventoryItem{}
	for _, it := range s.items {
		if it.FarmID == farmID {
			cp := *it
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *inventory) Update(_ context.Context, it *model.InventoryItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *it
	s.items[it.ID] = &cp
	return nil
}

func (s *inventory) Delete(_ context.Context, id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return repository.ErrInventoryNotFound
	}
	delete(s.items, id)
	return nil
}

func account(t *testing.T, id uint64, email, password string, role model.Role, farmID uint64) *model.Account {
	t.Helper()
	hash, err := utils.HashPassword(password, bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	farm := farmID
	return &model.Account{
		Principal:    model.Principal{ID: id, Name: email, Email: email, Role: role, FarmID: &farm},
		PasswordHash: hash,
	}
}

// stubStore answers reads with nothing and counts writes.
type stubStore[T any] struct {
	mu     sync.Mutex
	writes int
}

func (s *stubStore[T]) write() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	return nil
}

func (s *stubStore[T]) Create(context.Context, *T) error { return s.write() }
func (s *stubStore[T]) Update(context.Context, *T) error { return s.write() }
func (s *stubStore[T]) Delete(context.Context, uint64) error { return s.write() }
func (s *stubStore[T]) ListByFarm(context.Context, uint64) ([]*T, error) {
	return []*T{}, nil
}
func (s *stubStore[T]) GetByID(context.Context, uint64) (*T, error) {
	return nil, repository.ErrNotFound
}

func newServer(t *testing.T) (*echo.Echo, *inventory) {
	t.Helper()
	inv := &inventory{items: map[uint64]*model.InventoryItem{
		10: {ID: 10, FarmID: 2, ItemName: "hay", Quantity: 5, Unit: "bale"},
	}, next: 10}
	return serve(t, Handlers{Inventory: handler.NewInventoryHandler(inv)}), inv
}

func serve(t *testing.T, h Handlers) *echo.Echo {
	t.Helper()
	store := &identities{accounts: map[model.Role]map[string]*model.Account{
		model.RoleFarmer: {
			"a@x.com": account(t, 1, "a@x.com", "secret", model.RoleFarmer, 1),
			"b@x.com": account(t, 2, "b@x.com", "secret", model.RoleFarmer, 2),
		},
		model.RoleVeterinarian: {
			"vet@x.com": account(t, 1, "vet@x.com", "secret", model.RoleVeterinarian, 1),
		},
	}}
	auth := service.NewAuthService(store, revocation.NewMemoryRegistry(), service.AuthConfig{
		Tokens:     utils.TokenConfig{Secret: []byte("test-secret"), TTL: time.Hour},
		BcryptCost: bcrypt.MinCost,
	})

	e := echo.New()
	e.HTTPErrorHandler = handler.ErrorHandler
	RegisterRoutes(e, nil)
	RegisterAuth(e, handler.NewAuthHandler(auth), auth)
	RegisterResources(e, h, auth)
	return e
}

func do(e *echo.Echo, method, path, token, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if token != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func login(t *testing.T, e *echo.Echo, email string) string {
	t.Helper()
	rec := do(e, http.MethodPost, "/v1/auth/login", "", `{"email":"`+email+`","password":"secret"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("login %s: %d %s", email, rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	i := strings.Index(body, `"access_token":"`)
	if i < 0 || !strings.Contains(body, `"token_type":"bearer"`) {
		t.Fatalf("unexpected login body %s", body)
	}
	rest := body[i+len(`"access_token":"`):]
	return rest[:strings.Index(rest, `"`)]
}

func TestHealth(t *testing.T) {
	e, _ := newServer(t)
	rec := do(e, http.MethodGet, "/healthz", "", "")
	if rec.Code != http.StatusOK || rec.Body.String() != "ok" {
		t.Fatalf("unexpected health response %d %q", rec.Code, rec.Body.String())
	}
}

func TestLoginUseLogout(t *testing.T) {
	e, _ := newServer(t)
	tok := login(t, e, "a@x.com")

	if rec := do(e, http.MethodGet, "/v1/inventory", tok, ""); rec.Code != http.StatusOK {
		t.Fatalf("expected 200 before logout, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/v1/auth/me", tok, ""); rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"role":"farmer"`) {
		t.Fatalf("unexpected me response %d %s", rec.Code, rec.Body.String())
	}

	if rec := do(e, http.MethodPost, "/v1/auth/logout", tok, ""); rec.Code != http.StatusOK {
		t.Fatalf("logout: %d", rec.Code)
	}
	if rec := do(e, http.MethodPost, "/v1/auth/logout", tok, ""); rec.Code != http.StatusOK {
		t.Fatalf("second logout: %d", rec.Code)
	}

	if rec := do(e, http.MethodGet, "/v1/inventory", tok, ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 after logout, got %d", rec.Code)
	}
}

func TestLogoutWithoutHeader(t *testing.T) {
	e, _ := newServer(t)
	rec := do(e, http.MethodPost, "/v1/auth/logout", "", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	garbage := do(e, http.MethodGet, "/v1/inventory", "not-a-token", "")
	if rec.Body.String() != garbage.Body.String() {
		t.Fatalf("expected one unauthenticated body, got %q and %q", rec.Body.String(), garbage.Body.String())
	}
}

func TestVeterinarianCannotCreateInventory(t *testing.T) {
	e, inv := newServer(t)
	tok := login(t, e, "vet@x.com")

	rec := do(e, http.MethodPost, "/v1/inventory", tok, `{"item_name":"feed","quantity":3}`)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d %s", rec.Code, rec.Body.String())
	}
	if len(inv.items) != 1 {
		t.Fatal("inventory must not change")
	}
}

func TestCrossFarmAccessIsForbidden(t *testing.T) {
	e, _ := newServer(t)
	tok := login(t, e, "a@x.com")

	for _, method := range []string{http.MethodGet, http.MethodDelete} {
		if rec := do(e, method, "/v1/inventory/10", tok, ""); rec.Code != http.StatusForbidden {
			t.Fatalf("%s: expected 403, got %d", method, rec.Code)
		}
	}
	if rec := do(e, http.MethodPut, "/v1/inventory/10", tok, `{"quantity":1}`); rec.Code != http.StatusForbidden {
		t.Fatalf("PUT: expected 403, got %d", rec.Code)
	}

	owner := login(t, e, "b@x.com")
	if rec := do(e, http.MethodGet, "/v1/inventory/10", owner, ""); rec.Code != http.StatusOK {
		t.Fatalf("owner: expected 200, got %d", rec.Code)
	}
}

func TestCreatedResourceTakesPrincipalFarm(t *testing.T) {
	e, inv := newServer(t)
	tok := login(t, e, "a@x.com")

	rec := do(e, http.MethodPost, "/v1/inventory", tok, `{"item_name":"feed","quantity":3,"farm_id":2}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	if it := inv.items[11]; it == nil || it.FarmID != 1 {
		t.Fatalf("expected item in farm 1, got %+v", it)
	}
}

func TestMissingResourceIs404(t *testing.T) {
	e, _ := newServer(t)
	tok := login(t, e, "a@x.com")
	if rec := do(e, http.MethodGet, "/v1/inventory/999", tok, ""); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestLoginFailuresShareOneResponse(t *testing.T) {
	e, _ := newServer(t)
	wrong := do(e, http.MethodPost, "/v1/auth/login", "", `{"email":"a@x.com","password":"nope"}`)
	unknown := do(e, http.MethodPost, "/v1/auth/login", "", `{"email":"ghost@x.com","password":"secret"}`)

	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 twice, got %d / %d", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Fatalf("bodies differ: %q vs %q", wrong.Body.String(), unknown.Body.String())
	}
}

func TestGarbageTokenIs401(t *testing.T) {
	e, _ := newServer(t)
	if rec := do(e, http.MethodGet, "/v1/inventory", "not-a-token", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if rec := do(e, http.MethodGet, "/v1/inventory", "", ""); rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without header, got %d", rec.Code)
	}
}

func TestRoleGateOnSensorsAndGroups(t *testing.T) {
	sensors := &stubStore[model.Sensor]{}
	groups := &stubStore[model.SheepGroup]{}
	e := serve(t, Handlers{
		Sensors:     handler.NewSensorHandler(sensors),
		SheepGroups: handler.NewSheepGroupHandler(groups),
	})
	vetTok := login(t, e, "vet@x.com")
	farmerTok := login(t, e, "a@x.com")

	cases := []struct {
		method, path, token, body string
		want                      int
	}{
		{http.MethodGet, "/v1/sensors", vetTok, "", http.StatusForbidden},
		{http.MethodPost, "/v1/sensors", vetTok, `{"name":"t","current_value":1}`, http.StatusForbidden},
		{http.MethodDelete, "/v1/sensors/1", vetTok, "", http.StatusForbidden},
		{http.MethodPost, "/v1/sheep-groups", vetTok, `{"name":"g"}`, http.StatusForbidden},
		{http.MethodPut, "/v1/sheep-groups/1", vetTok, `{"name":"g"}`, http.StatusForbidden},
		{http.MethodDelete, "/v1/sheep-groups/1", vetTok, "", http.StatusForbidden},
		{http.MethodGet, "/v1/sheep-groups", vetTok, "", http.StatusOK},
		{http.MethodGet, "/v1/sensors", farmerTok, "", http.StatusOK},
		{http.MethodGet, "/v1/sensors", "", "", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		if rec := do(e, tc.method, tc.path, tc.token, tc.body); rec.Code != tc.want {
			t.Errorf("%s %s: expected %d, got %d %s", tc.method, tc.path, tc.want, rec.Code, rec.Body.String())
		}
	}
	if sensors.writes != 0 || groups.writes != 0 {
		t.Fatalf("vet requests reached the store: sensors=%d groups=%d", sensors.writes, groups.writes)
	}
}
