package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/eyoklama/authclient/permission"
)

// ErrUserRecordCorrupt is returned when a stored user record cannot be decoded or
// lacks an id or a known role.
var ErrUserRecordCorrupt = errors.New("user record corrupt")

// EncodeUser serializes u for the user slot.
func EncodeUser(u User) ([]byte, error) {
	if err := validateUser(u); err != nil {
		return nil, err
	}
	return json.Marshal(u)
}

// DecodeUser parses a user slot value. Unknown fields are ignored. ogrno and telno may
// be stored as JSON numbers by older backends and are accepted as such.
func DecodeUser(data []byte) (User, error) {
	var raw struct {
		ID            json.RawMessage `json:"id"`
		Mail          string          `json:"mail"`
		Role          string          `json:"role"`
		FirstName     string          `json:"ad"`
		LastName      string          `json:"soyad"`
		StudentNumber json.RawMessage `json:"ogrno"`
		Phone         json.RawMessage `json:"telno"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrUserRecordCorrupt, err)
	}

	id, err := looseString(raw.ID)
	if err != nil {
		return User{}, err
	}
	ogrno, err := looseString(raw.StudentNumber)
	if err != nil {
		return User{}, err
	}
	telno, err := looseString(raw.Phone)
	if err != nil {
		return User{}, err
	}

	u := User{
		ID:            id,
		Mail:          raw.Mail,
		Role:          raw.Role,
		FirstName:     raw.FirstName,
		LastName:      raw.LastName,
		StudentNumber: ogrno,
		Phone:         telno,
	}
	if err := validateUser(u); err != nil {
		return User{}, err
	}
	return u, nil
}

func validateUser(u User) error {
	if u.ID == "" {
		return fmt.Errorf("%w: missing id", ErrUserRecordCorrupt)
	}
	if _, ok := permission.Normalize(u.Role); !ok {
		return fmt.Errorf("%w: unknown role", ErrUserRecordCorrupt)
	}
	return nil
}

// looseString accepts a JSON string, number, or null.
func looseString(raw json.RawMessage) (string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUserRecordCorrupt, err)
		}
		return s, nil
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return "", fmt.Errorf("%w: %v", ErrUserRecordCorrupt, err)
		}
		if i, err := n.Int64(); err == nil {
			return strconv.FormatInt(i, 10), nil
		}
		return n.String(), nil
	}
}
