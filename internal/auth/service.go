package auth

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/samvad-hq/userdesk/internal/domain"
	"github.com/samvad-hq/userdesk/internal/logger"
	"github.com/samvad-hq/userdesk/internal/storage"
	"github.com/samvad-hq/userdesk/internal/users"
	"github.com/samvad-hq/userdesk/pkg/httpclient"
	"github.com/samvad-hq/userdesk/pkg/publishers"
)

var (
	// ErrNotAuthenticated is returned by operations that need a logged-in user.
	ErrNotAuthenticated = errors.New("not logged in")
	// ErrNoToken is returned when a login or registration response carries no token.
	ErrNoToken = errors.New("response carried no session token")
	// ErrSessionExpired is returned when the stored token no longer matches any user.
	ErrSessionExpired = errors.New("session expired")
)

// Directory is the part of the users API the auth service depends on.
type Directory interface {
	Create(ctx context.Context, reg domain.Registration) (domain.User, error)
	FindByToken(ctx context.Context, token string) (domain.User, error)
}

// EventPublisher publishes session activity downstream.
type EventPublisher interface {
	Publish(ctx context.Context, evt publishers.Event) (int, error)
}

// Service owns the auth state of one session: the current user, its persisted token,
// and the identity injected into API requests.
type Service struct {
	client *httpclient.Client
	users  Directory
	store  storage.Store
	events EventPublisher
	log    logger.Logger

	mu      sync.RWMutex
	current *domain.User
}

// NewService wires an auth service. events may be nil.
func NewService(client *httpclient.Client, dir Directory, store storage.Store, events EventPublisher, log logger.Logger) *Service {
	if log == nil {
		log = &logger.NopLogger{}
	}
	return &Service{
		client: client,
		users:  dir,
		store:  store,
		events: events,
		log:    log,
	}
}

// Current returns the logged-in user, if any.
func (s *Service) Current() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.current == nil {
		return domain.User{}, false
	}
	return *s.current, true
}

// RequireUser returns the logged-in user or ErrNotAuthenticated.
func (s *Service) RequireUser() (domain.User, error) {
	u, ok := s.Current()
	if !ok {
		return domain.User{}, ErrNotAuthenticated
	}
	return u, nil
}

// Restore rebuilds auth state from the session store. A stored token without a
// stored user is resolved through Refresh.
func (s *Service) Restore(ctx context.Context) error {
	sess, err := loadSession(s.store)
	if err != nil {
		return err
	}

	switch {
	case sess.Token == "":
		s.setCurrent(nil)
		return nil
	case sess.User != nil:
		u := *sess.User
		u.Token = sess.Token
		s.setCurrent(&u)
		s.log.DebugObj("session restored", "session", map[string]any{"user_id": u.ID})
		return nil
	default:
		return s.refresh(ctx, sess.Token)
	}
}

// Refresh re-resolves the current user from the stored token. The session is
// cleared when the token is unknown or the lookup fails.
func (s *Service) Refresh(ctx context.Context) error {
	sess, err := loadSession(s.store)
	if err != nil {
		return err
	}
	return s.refresh(ctx, sess.Token)
}

func (s *Service) refresh(ctx context.Context, token string) error {
	if token == "" {
		s.setCurrent(nil)
		return nil
	}

	u, err := s.users.FindByToken(ctx, token)
	if err != nil {
		if clearErr := s.clearLocal(); clearErr != nil {
			return clearErr
		}
		if errors.Is(err, users.ErrUserNotFound) {
			s.log.WarnObj("user not found with token, clearing auth state", "session", nil)
			return ErrSessionExpired
		}
		return fmt.Errorf("fetch current user: %w", err)
	}
	return s.establish(u)
}

// Login authenticates against /login and persists the returned session.
func (s *Service) Login(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	if err := creds.Validate(); err != nil {
		return domain.User{}, fmt.Errorf("invalid credentials: %w", err)
	}

	u, err := httpclient.Post[domain.User](ctx, s.client, "/login", creds)
	if err != nil {
		return domain.User{}, err
	}
	if u.Token == "" {
		return domain.User{}, ErrNoToken
	}
	if err := s.establish(u); err != nil {
		return domain.User{}, err
	}
	s.publish(ctx, publishers.EventUserLoggedIn, u)
	return u, nil
}

// Register creates an account and logs in as it.
func (s *Service) Register(ctx context.Context, reg domain.Registration) (domain.User, error) {
	u, err := s.users.Create(ctx, reg)
	if err != nil {
		return domain.User{}, err
	}
	if u.Token == "" {
		return domain.User{}, ErrNoToken
	}
	if err := s.establish(u); err != nil {
		return domain.User{}, err
	}
	s.publish(ctx, publishers.EventUserRegistered, u)
	return u, nil
}

// Logout notifies the server when possible and always clears local state.
func (s *Service) Logout(ctx context.Context) error {
	u, ok := s.Current()
	if ok {
		path := "/logout/" + url.PathEscape(u.ID.String())
		if _, err := httpclient.Post[struct{}](ctx, s.client, path, struct{}{}); err != nil {
			s.log.WarnObj("logout request failed; clearing local session anyway", "logout_error", map[string]any{
				"user_id": u.ID,
				"error":   err.Error(),
			})
		}
	}

	if err := s.clearLocal(); err != nil {
		return err
	}
	if ok {
		s.publish(ctx, publishers.EventUserLoggedOut, u)
	}
	return nil
}

// SyncUser refreshes the cached record when u is the logged-in user.
func (s *Service) SyncUser(u domain.User) error {
	cur, ok := s.Current()
	if !ok || cur.ID != u.ID {
		return nil
	}
	u.Token = cur.Token
	return s.establish(u)
}

// HandleAuthError clears the session when err is a 401/403 and reports whether it did.
func (s *Service) HandleAuthError(err error) bool {
	if !httpclient.IsUnauthorized(err) {
		return false
	}
	s.log.WarnObj("request rejected as unauthorized; clearing session", "auth_error", map[string]any{
		"status": httpclient.StatusOf(err),
	})
	if clearErr := s.clearLocal(); clearErr != nil {
		s.log.ErrorObj("clear session failed", "error", clearErr.Error())
	}
	return true
}

func (s *Service) establish(u domain.User) error {
	u.Password = ""
	if err := saveSession(s.store, u); err != nil {
		return err
	}
	s.setCurrent(&u)
	return nil
}

func (s *Service) clearLocal() error {
	s.setCurrent(nil)
	return clearSession(s.store)
}

// setCurrent swaps the current user and mirrors it into the request identity.
func (s *Service) setCurrent(u *domain.User) {
	s.mu.Lock()
	s.current = u
	s.mu.Unlock()

	if u != nil && u.ID != "" {
		s.client.SetCurrentIdentity(u.ID.String())
		return
	}
	s.client.SetCurrentIdentity("")
}

func (s *Service) publish(ctx context.Context, typ string, u domain.User) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Publish(ctx, publishers.NewEvent(typ, u)); err != nil {
		s.log.WarnObj("activity event not fully delivered", "event_error", map[string]any{
			"event_type": typ,
			"error":      err.Error(),
		})
	}
}
