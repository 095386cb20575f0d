package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/samvad-hq/userdesk/internal/auth"
	"github.com/samvad-hq/userdesk/internal/config"
	"github.com/samvad-hq/userdesk/internal/domain"
	"github.com/samvad-hq/userdesk/internal/logger"
	"github.com/samvad-hq/userdesk/internal/storage"
	"github.com/samvad-hq/userdesk/internal/users"
	"github.com/samvad-hq/userdesk/pkg/httpclient"
	"github.com/samvad-hq/userdesk/pkg/publishers"
)

// ErrSessionCleared wraps a 401/403 after the local session has been dropped.
var ErrSessionCleared = errors.New("session is no longer valid; please log in again")

// ErrForbiddenEdit is returned when the signed-in user targets another profile.
var ErrForbiddenEdit = errors.New("you can only edit your own profile")

// Console represents the userdesk runtime behind the CLI. It owns the session
// store, the API client, the auth state and the activity fan-out.
type Console struct {
	cfg    *config.Config
	store  storage.Store
	client *httpclient.Client
	users  *users.Service
	auth   *auth.Service
	fanout *publishers.Fanout
	log    logger.Logger
}

// NewConsole builds a console runtime from config and restores any persisted session.
func NewConsole(ctx context.Context, cfg *config.Config, log logger.Logger) (*Console, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = &logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}

	fanout, err := buildFanout(ctx, cfg.PublishersFile, log)
	if err != nil {
		return nil, err
	}

	storeOpts := storage.Options{
		EntryTTL:        cfg.StorageTTL,
		CleanupInterval: cfg.StorageCleanupInterval,
	}
	store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storeOpts)
	if err != nil {
		_ = fanout.Close()
		return nil, fmt.Errorf("init storage: %w", err)
	}
	log.DebugObj("storage initialized", "storage_config", map[string]any{
		"type":                     cfg.StorageType,
		"path":                     cfg.BBoltPath,
		"entry_ttl_seconds":        int(cfg.StorageTTL.Seconds()),
		"cleanup_interval_seconds": int(cfg.StorageCleanupInterval.Seconds()),
	})

	client, err := httpclient.New(httpclient.Config{
		BaseURL:        cfg.APIBaseURL,
		IdentityHeader: cfg.IdentityHeader,
	}, nil, httpclient.WithLogger(log))
	if err != nil {
		_ = fanout.Close()
		_ = store.Close()
		return nil, fmt.Errorf("init api client: %w", err)
	}

	userSvc := users.NewService(client)
	c := &Console{
		cfg:    cfg,
		store:  store,
		client: client,
		users:  userSvc,
		auth:   auth.NewService(client, userSvc, store, fanout, log),
		fanout: fanout,
		log:    log,
	}

	if err := c.auth.Restore(ctx); err != nil {
		log.WarnObj("session restore failed; continuing logged out", "error", err.Error())
	}
	return c, nil
}

func buildFanout(ctx context.Context, path string, log logger.Logger) (*publishers.Fanout, error) {
	if path == "" {
		return publishers.NewFanout(nil, log), nil
	}

	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}
	enabled := publisherReg.Enabled()
	pubClients, err := publishers.BuildAll(ctx, publishers.DefaultRegistry(), enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.DebugObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(pubClients, log), nil
}

// Register creates an account and logs in as it.
func (c *Console) Register(ctx context.Context, reg domain.Registration) (domain.User, error) {
	return c.auth.Register(ctx, reg)
}

// Login authenticates and persists the session.
func (c *Console) Login(ctx context.Context, creds domain.Credentials) (domain.User, error) {
	return c.auth.Login(ctx, creds)
}

// Logout ends the session.
func (c *Console) Logout(ctx context.Context) error {
	return c.auth.Logout(ctx)
}

// WhoAmI returns the logged-in user.
func (c *Console) WhoAmI() (domain.User, error) {
	return c.auth.RequireUser()
}

// ListUsers returns every user with tokens redacted.
func (c *Console) ListUsers(ctx context.Context) ([]domain.User, error) {
	if _, err := c.auth.RequireUser(); err != nil {
		return nil, err
	}
	list, err := c.users.List(ctx)
	if err != nil {
		return nil, c.guard(err)
	}
	for i := range list {
		list[i].Token = ""
	}
	return list, nil
}

// GetUser returns a single user profile.
func (c *Console) GetUser(ctx context.Context, id domain.UserID) (domain.User, error) {
	if _, err := c.auth.RequireUser(); err != nil {
		return domain.User{}, err
	}
	u, err := c.users.Get(ctx, id)
	if err != nil {
		return domain.User{}, c.guard(err)
	}
	u.Token = ""
	return u, nil
}

// EditUser updates a profile and returns the stored result. The API only accepts
// edits to the caller's own profile.
func (c *Console) EditUser(ctx context.Context, id domain.UserID, upd domain.ProfileUpdate) (domain.User, error) {
	cur, err := c.auth.RequireUser()
	if err != nil {
		return domain.User{}, err
	}
	if cur.ID != id {
		return domain.User{}, ErrForbiddenEdit
	}
	u, err := c.users.Update(ctx, id, upd)
	if err != nil {
		// A rejected edit keeps the session; only an expired login drops it.
		if httpclient.StatusOf(err) == http.StatusUnauthorized {
			return domain.User{}, c.guard(err)
		}
		return domain.User{}, err
	}
	if err := c.auth.SyncUser(u); err != nil {
		c.log.WarnObj("session refresh after edit failed", "error", err.Error())
	}
	if _, err := c.fanout.Publish(ctx, publishers.NewEvent(publishers.EventUserUpdated, u)); err != nil {
		c.log.WarnObj("activity event not fully delivered", "event_error", map[string]any{
			"event_type": publishers.EventUserUpdated,
			"error":      err.Error(),
		})
	}
	u.Token = ""
	return u, nil
}

// guard drops the session on 401/403 responses.
func (c *Console) guard(err error) error {
	if c.auth.HandleAuthError(err) {
		return fmt.Errorf("%w: %w", ErrSessionCleared, err)
	}
	return err
}

// Close releases publishers and the session store.
func (c *Console) Close() error {
	if c == nil {
		return nil
	}
	var errs []error
	if err := c.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			c.log.ErrorObj("storage close failed", "error", err.Error())
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	return errors.Join(errs...)
}
