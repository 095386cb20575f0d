package users

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/samvad-hq/userdesk/internal/domain"
	"github.com/samvad-hq/userdesk/pkg/httpclient"
)

const usersPath = "/users"

// ErrUserNotFound is returned when no user matches a lookup.
var ErrUserNotFound = errors.New("user not found")

// Service calls the users endpoints of the API.
type Service struct {
	client *httpclient.Client
}

// NewService wires a users service over the shared API client.
func NewService(client *httpclient.Client) *Service {
	return &Service{client: client}
}

// List returns every user.
func (s *Service) List(ctx context.Context) ([]domain.User, error) {
	list, err := httpclient.Get[[]domain.User](ctx, s.client, usersPath)
	if err != nil {
		return nil, err
	}
	return list, nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id domain.UserID) (domain.User, error) {
	path, err := userPath(id)
	if err != nil {
		return domain.User{}, err
	}
	return httpclient.Get[domain.User](ctx, s.client, path)
}

// Create registers a new user. The server responds with the created user and its token.
func (s *Service) Create(ctx context.Context, reg domain.Registration) (domain.User, error) {
	if err := reg.Validate(); err != nil {
		return domain.User{}, fmt.Errorf("invalid registration: %w", err)
	}
	return httpclient.Post[domain.User](ctx, s.client, usersPath, reg)
}

// Update applies a profile change and returns the user as stored afterwards.
func (s *Service) Update(ctx context.Context, id domain.UserID, upd domain.ProfileUpdate) (domain.User, error) {
	if err := upd.Validate(); err != nil {
		return domain.User{}, fmt.Errorf("invalid profile update: %w", err)
	}
	path, err := userPath(id)
	if err != nil {
		return domain.User{}, err
	}
	if _, err := httpclient.Put[struct{}](ctx, s.client, path, upd); err != nil {
		return domain.User{}, err
	}
	return httpclient.Get[domain.User](ctx, s.client, path)
}

// FindByToken scans the user list for the user owning token.
func (s *Service) FindByToken(ctx context.Context, token string) (domain.User, error) {
	if token == "" {
		return domain.User{}, ErrUserNotFound
	}
	list, err := s.List(ctx)
	if err != nil {
		return domain.User{}, err
	}
	for _, u := range list {
		if u.Token == token {
			return u, nil
		}
	}
	return domain.User{}, ErrUserNotFound
}

func userPath(id domain.UserID) (string, error) {
	raw := strings.TrimSpace(id.String())
	if raw == "" {
		return "", errors.New("user id is required")
	}
	return usersPath + "/" + url.PathEscape(raw), nil
}
