package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Domain contains the user model exchanged with the users API.

// UserID is a user identifier. It is a string on the wire, but numeric ids are accepted.
type UserID string

func (id UserID) String() string { return string(id) }

// UnmarshalJSON accepts a JSON string, number or null.
func (id *UserID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	switch {
	case raw == "null":
		*id = ""
	case strings.HasPrefix(raw, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = UserID(s)
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("user id: %w", err)
		}
		*id = UserID(n.String())
	}
	return nil
}

// User is the canonical user record.
type User struct {
	ID           UserID     `json:"id"`
	Name         string     `json:"name,omitempty"`
	Username     string     `json:"username"`
	Token        string     `json:"token,omitempty"`
	Status       string     `json:"status,omitempty"`
	CreationDate *Timestamp `json:"creationDate,omitempty"`
	Birthday     *Date      `json:"birthday,omitempty"`
	Password     string     `json:"password,omitempty"`
}

// UnmarshalJSON also accepts the snake_case creation_date spelling.
func (u *User) UnmarshalJSON(data []byte) error {
	type alias User
	aux := struct {
		*alias
		CreationDateSnake *Timestamp `json:"creation_date"`
	}{alias: (*alias)(u)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if u.CreationDate == nil && aux.CreationDateSnake != nil {
		u.CreationDate = aux.CreationDateSnake
	}
	return nil
}

// Credentials is the /login request body.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (c Credentials) Validate() error {
	if strings.TrimSpace(c.Username) == "" {
		return errors.New("username is required")
	}
	if c.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// Registration is the POST /users request body.
type Registration struct {
	Username string `json:"username"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

// Validate checks required fields.
func (r Registration) Validate() error {
	if strings.TrimSpace(r.Username) == "" {
		return errors.New("username is required")
	}
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("name is required")
	}
	if r.Password == "" {
		return errors.New("password is required")
	}
	return nil
}

// ProfileUpdate is the PUT /users/{id} request body. Nil fields are left unchanged
// by the server.
type ProfileUpdate struct {
	Username *string `json:"username,omitempty"`
	Birthday *Date   `json:"birthday,omitempty"`
}

// Validate rejects empty updates and blank usernames.
func (p ProfileUpdate) Validate() error {
	if p.Username == nil && p.Birthday == nil {
		return errors.New("nothing to update")
	}
	if p.Username != nil && strings.TrimSpace(*p.Username) == "" {
		return errors.New("username must not be empty")
	}
	return nil
}

const dateLayout = "2006-01-02"

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	dateLayout,
}

func parseTime(raw string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", raw)
}

// unmarshalTime decodes a JSON string time; null and "" give the zero time.
func unmarshalTime(data []byte) (time.Time, error) {
	if strings.TrimSpace(string(data)) == "null" {
		return time.Time{}, nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return time.Time{}, err
	}
	if s = strings.TrimSpace(s); s == "" {
		return time.Time{}, nil
	}
	return parseTime(s)
}

// Timestamp is a point in time, written as RFC3339.
type Timestamp struct {
	time.Time
}

func (t Timestamp) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(t.Time.Format(time.RFC3339))
}

func (t *Timestamp) UnmarshalJSON(data []byte) error {
	parsed, err := unmarshalTime(data)
	if err != nil {
		return err
	}
	t.Time = parsed
	return nil
}

// Date is a calendar day, written as YYYY-MM-DD.
type Date struct {
	time.Time
}

// ParseDate parses a YYYY-MM-DD (or RFC3339) string.
func ParseDate(raw string) (Date, error) {
	t, err := parseTime(strings.TrimSpace(raw))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) String() string { return d.Time.Format(dateLayout) }

// MarshalJSON writes the zero Date as null.
func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	parsed, err := unmarshalTime(data)
	if err != nil {
		return err
	}
	d.Time = parsed
	return nil
}
