package session

import (
	"strings"

	"github.com/eyoklama/authclient/permission"
)

// Slot names one persisted credential value.
type Slot string

const (
	// SlotAccessToken holds the short-lived bearer credential.
	SlotAccessToken Slot = "access_token"
	// SlotRefreshToken holds the long-lived refresh credential.
	SlotRefreshToken Slot = "refresh_token"
	// SlotUser holds the JSON user record.
	SlotUser Slot = "user_info"
)

// AllSlots lists every slot in write order. The access token goes last so a crash
// mid-save never leaves a usable bearer token next to a missing user record.
var AllSlots = []Slot{SlotUser, SlotRefreshToken, SlotAccessToken}

// User is the authenticated user record as returned by the login endpoint.
type User struct {
	ID            string `json:"id"`
	Mail          string `json:"mail,omitempty"`
	Role          string `json:"role"`
	FirstName     string `json:"ad,omitempty"`
	LastName      string `json:"soyad,omitempty"`
	StudentNumber string `json:"ogrno,omitempty"`
	Phone         string `json:"telno,omitempty"`
}

// CanonicalRole normalizes the stored role through the default alias table.
func (u User) CanonicalRole() (permission.Role, bool) {
	return permission.Normalize(u.Role)
}

// DisplayName joins first and last name, falling back to the mail address.
func (u User) DisplayName() string {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name != "" {
		return name
	}
	return u.Mail
}

// Session is the authoritative client-side view of who is logged in.
type Session struct {
	AccessToken  string
	RefreshToken string
	User         User
}

// Complete reports whether all three parts are present.
func (s *Session) Complete() bool {
	return s != nil && s.AccessToken != "" && s.RefreshToken != "" && s.User.ID != ""
}

// Clone returns a copy safe to hand to callers.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	return &c
}
