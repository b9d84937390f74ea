// Package service holds the authentication logic shared by the HTTP
// middleware and handlers: login, logout and resolving a bearer token to
// the principal it currently stands for.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	glog "github.com/labstack/gommon/log"

	"github.com/luizasposito/sheep-management-system/internal/model"
	"github.com/luizasposito/sheep-management-system/internal/queue"
	"github.com/luizasposito/sheep-management-system/internal/repository"
	"github.com/luizasposito/sheep-management-system/internal/revocation"
	"github.com/luizasposito/sheep-management-system/internal/utils"
)

var (
	// ErrInvalidCredentials is returned by Login for an unknown email and
	// for a wrong password alike.
	ErrInvalidCredentials = errors.New("invalid email or password")

	// ErrTokenRevoked is returned by Resolve for a logged out token.  It
	// wraps utils.ErrInvalidToken so callers answer it like any other bad
	// token.
	ErrTokenRevoked = fmt.Errorf("%w: revoked", utils.ErrInvalidToken)

	// ErrPrincipalNotFound means the token is sound but its subject no
	// longer exists in the identity store, or carries an unknown role.
	ErrPrincipalNotFound = errors.New("principal not found")

	// ErrIdentityUnavailable means the identity store failed or timed out.
	ErrIdentityUnavailable = errors.New("identity store unavailable")

	// ErrRevocationUnavailable means the revocation registry could not be
	// consulted or updated.
	ErrRevocationUnavailable = errors.New("revocation registry unavailable")
)

// IdentityStore looks up an account by email in the table selected by
// role.  A missing account must be reported as repository.ErrNotFound.
type IdentityStore interface {
	FindByEmailAndKind(ctx context.Context, email string, role model.Role) (*model.Account, error)
}

// PrincipalCache is the optional read-through cache in front of the
// identity store.  Get returns nil on a miss.
type PrincipalCache interface {
	Get(ctx context.Context, role model.Role, email string) (*model.Principal, error)
	Set(ctx context.Context, p model.Principal) error
	Invalidate(ctx context.Context, role model.Role, email string) error
}

// AuthConfig carries the settings AuthService needs from config.Config.
type AuthConfig struct {
	Tokens        utils.TokenConfig
	BcryptCost    int
	LookupTimeout time.Duration
}

// AuthService issues, revokes and resolves access tokens.  It is safe for
// concurrent use; its only shared state lives in the revocation registry.
type AuthService struct {
	store    IdentityStore
	registry revocation.Registry
	cfg      AuthConfig
	cache    PrincipalCache
	events   Publisher
	logger   *glog.Logger
}

func NewAuthService(store IdentityStore, registry revocation.Registry, cfg AuthConfig) *AuthService {
	if cfg.LookupTimeout <= 0 {
		cfg.LookupTimeout = 5 * time.Second
	}
	return &AuthService{
		store:    store,
		registry: registry,
		cfg:      cfg,
		logger:   glog.New("auth"),
	}
}

// WithCache puts c in front of the identity store.
func (s *AuthService) WithCache(c PrincipalCache) *AuthService {
	s.cache = c
	return s
}

// WithEvents publishes session events to p.
func (s *AuthService) WithEvents(p Publisher) *AuthService {
	s.events = p
	return s
}

// Logger exposes the service logger so the server can set its level.
func (s *AuthService) Logger() *glog.Logger { return s.logger }

// Login checks email and password against farmers first, then
// veterinarians, and issues a token for the first account found.  An
// unknown email still costs one bcrypt comparison so both failure paths
// take the same time.
func (s *AuthService) Login(ctx context.Context, email, password string) (utils.AccessToken, model.Principal, error) {
	var account *model.Account
	for _, role := range model.Roles {
		acc, err := s.lookup(ctx, email, role)
		if errors.Is(err, ErrPrincipalNotFound) {
			continue
		}
		if err != nil {
			return utils.AccessToken{}, model.Principal{}, err
		}
		account = acc
		break
	}

	if account == nil {
		utils.VerifyPassword(utils.DummyHash(s.cfg.BcryptCost), password)
		s.publishSession(queue.SessionLoginFailed, email, "")
		return utils.AccessToken{}, model.Principal{}, ErrInvalidCredentials
	}
	if !utils.VerifyPassword(account.PasswordHash, password) {
		s.publishSession(queue.SessionLoginFailed, email, "")
		return utils.AccessToken{}, model.Principal{}, ErrInvalidCredentials
	}

	p := account.Principal
	tok, err := utils.IssueToken(s.cfg.Tokens, p.Email, p.Role.String())
	if err != nil {
		return utils.AccessToken{}, model.Principal{}, fmt.Errorf("issue token: %w", err)
	}
	s.publishSession(queue.SessionLogin, p.Email, p.Role.String())
	return tok, p, nil
}

// Logout revokes raw unconditionally.  A token that verifies is kept in
// the registry until its own expiry, whatever TTL this instance runs with.
// A token that does not verify can never resolve; it is kept until the
// expiry it claims, capped at one token lifetime from now.
func (s *AuthService) Logout(ctx context.Context, raw string) error {
	claims, err := utils.DecodeToken(s.cfg.Tokens, raw)
	var exp time.Time
	if err == nil {
		exp = claims.ExpiresAt.Time
	} else {
		limit := time.Now().Add(s.cfg.Tokens.TTL)
		var ok bool
		if exp, ok = utils.TokenExpiry(raw); !ok || exp.After(limit) {
			exp = limit
		}
	}
	if err := s.registry.Revoke(ctx, raw, exp); err != nil {
		return fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	if claims != nil {
		s.publishSession(queue.SessionLogout, claims.Subject, claims.Role)
	}
	return nil
}

// Resolve turns a bearer token into the principal it stands for right
// now.  The revocation registry is consulted first, then the token is
// decoded, then the subject is re-read from the identity store (or the
// cache, when configured) so that role and farm are current.
func (s *AuthService) Resolve(ctx context.Context, raw string) (*model.Principal, error) {
	revoked, err := s.registry.IsRevoked(ctx, raw)
	if err != nil {
		s.logger.Errorf("revocation check failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrRevocationUnavailable, err)
	}
	if revoked {
		s.logger.Debugf("token rejected: revoked")
		return nil, ErrTokenRevoked
	}

	claims, err := utils.DecodeToken(s.cfg.Tokens, raw)
	if err != nil {
		s.logger.Debugf("token rejected: %v", err)
		return nil, err
	}

	role, ok := model.ParseRole(claims.Role)
	if !ok {
		s.logger.Warnf("token for %s carries unknown role %q", claims.Subject, claims.Role)
		return nil, ErrPrincipalNotFound
	}

	if s.cache != nil {
		if p, err := s.cache.Get(ctx, role, claims.Subject); err != nil {
			s.logger.Warnf("principal cache get: %v", err)
		} else if p != nil {
			return p, nil
		}
	}

	acc, err := s.lookup(ctx, claims.Subject, role)
	if err != nil {
		return nil, err
	}
	p := acc.Principal
	if s.cache != nil {
		if err := s.cache.Set(ctx, p); err != nil {
			s.logger.Warnf("principal cache set: %v", err)
		}
	}
	return &p, nil
}

// InvalidatePrincipal drops a cached principal after its record changed.
func (s *AuthService) InvalidatePrincipal(ctx context.Context, role model.Role, email string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, role, email); err != nil {
		s.logger.Warnf("principal cache invalidate: %v", err)
	}
}

// lookup queries the identity store under the configured timeout and
// maps its errors onto the service's taxonomy.
func (s *AuthService) lookup(ctx context.Context, email string, role model.Role) (*model.Account, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.LookupTimeout)
	defer cancel()

	acc, err := s.store.FindByEmailAndKind(ctx, email, role)
	switch {
	case err == nil:
		return acc, nil
	case errors.Is(err, repository.ErrNotFound):
		return nil, ErrPrincipalNotFound
	default:
		s.logger.Errorf("identity lookup %s/%s: %v", role, email, err)
		return nil, fmt.Errorf("%w: %v", ErrIdentityUnavailable, err)
	}
}

func (s *AuthService) publishSession(typ, email, role string) {
	PublishAsync(s.events, queue.SessionQueue, queue.SessionEvent{
		ID:         uuid.NewString(),
		Type:       typ,
		Email:      email,
		Role:       role,
		OccurredAt: time.Now().UTC(),
	})
}
