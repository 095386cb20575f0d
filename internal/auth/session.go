package auth

import (
	"encoding/json"
	"fmt"

	"github.com/samvad-hq/userdesk/internal/domain"
	"github.com/samvad-hq/userdesk/internal/storage"
)

// Keys under which session state is persisted.
const (
	KeyToken       = "token"
	KeyCurrentUser = "currentUser"
	KeyUserID      = "userId"
)

// session is the persisted auth state.
type session struct {
	Token  string
	UserID string
	User   *domain.User
}

func loadSession(store storage.Store) (session, error) {
	var s session

	token, ok, err := store.Get(KeyToken)
	if err != nil {
		return session{}, fmt.Errorf("read token: %w", err)
	}
	if ok {
		s.Token = string(token)
	}

	id, ok, err := store.Get(KeyUserID)
	if err != nil {
		return session{}, fmt.Errorf("read user id: %w", err)
	}
	if ok {
		s.UserID = string(id)
	}

	raw, ok, err := store.Get(KeyCurrentUser)
	if err != nil {
		return session{}, fmt.Errorf("read current user: %w", err)
	}
	if ok {
		var u domain.User
		// A corrupt record is treated as absent; Refresh rebuilds it from the token.
		if err := json.Unmarshal(raw, &u); err == nil && u.ID != "" {
			s.User = &u
		}
	}
	return s, nil
}

func saveSession(store storage.Store, user domain.User) error {
	raw, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode current user: %w", err)
	}
	if err := store.Put(KeyToken, []byte(user.Token)); err != nil {
		return fmt.Errorf("write token: %w", err)
	}
	if err := store.Put(KeyUserID, []byte(user.ID.String())); err != nil {
		return fmt.Errorf("write user id: %w", err)
	}
	if err := store.Put(KeyCurrentUser, raw); err != nil {
		return fmt.Errorf("write current user: %w", err)
	}
	return nil
}

func clearSession(store storage.Store) error {
	if err := store.Delete(KeyToken, KeyUserID, KeyCurrentUser); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}
