package session

import (
	"context"
	"errors"
	"fmt"
)

// ErrIncompleteSession is returned by Save when a session lacks a token or user id.
var ErrIncompleteSession = errors.New("incomplete session")

// ErrSessionAbsent is returned by UpdateAccessToken when no session is persisted.
var ErrSessionAbsent = errors.New("no persisted session")

// Store layers all-or-absent session semantics over a [Backend].
type Store struct {
	backend Backend
}

// NewStore creates a [Store] backed by b.
func NewStore(b Backend) *Store {
	return &Store{backend: b}
}

// Backend returns the underlying backend.
func (s *Store) Backend() Backend {
	return s.backend
}

// Load reads all three slots. It returns (nil, nil) when any slot is missing or the
// user record is corrupt. Backend I/O failures are returned as errors.
func (s *Store) Load(ctx context.Context) (*Session, error) {
	values, missing, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	if missing > 0 {
		return nil, nil
	}

	user, err := DecodeUser(values[SlotUser])
	if err != nil {
		return nil, nil
	}

	return &Session{
		AccessToken:  string(values[SlotAccessToken]),
		RefreshToken: string(values[SlotRefreshToken]),
		User:         user,
	}, nil
}

// Save writes every slot. Batch-capable backends write atomically; others are written in
// [AllSlots] order and cleared again if a write fails part-way.
func (s *Store) Save(ctx context.Context, sess *Session) error {
	if !sess.Complete() {
		return ErrIncompleteSession
	}
	userBlob, err := EncodeUser(sess.User)
	if err != nil {
		return err
	}

	values := []SlotValue{
		{Slot: SlotUser, Value: userBlob},
		{Slot: SlotRefreshToken, Value: []byte(sess.RefreshToken)},
		{Slot: SlotAccessToken, Value: []byte(sess.AccessToken)},
	}

	if bw, ok := s.backend.(BatchWriter); ok {
		if err := bw.SetAll(ctx, values); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
		return nil
	}

	for _, v := range values {
		if err := s.backend.Set(ctx, v.Slot, v.Value); err != nil {
			_ = s.backend.Delete(ctx, AllSlots...)
			return fmt.Errorf("save session slot %s: %w", v.Slot, err)
		}
	}
	return nil
}

// UpdateAccessToken rewrites only the access-token slot. The refresh-token slot must
// already exist so the store never gains a token without its session.
func (s *Store) UpdateAccessToken(ctx context.Context, token string) error {
	if token == "" {
		return ErrIncompleteSession
	}
	if _, err := s.backend.Get(ctx, SlotRefreshToken); err != nil {
		if errors.Is(err, ErrSlotNotFound) {
			return ErrSessionAbsent
		}
		return fmt.Errorf("update access token: %w", err)
	}
	if err := s.backend.Set(ctx, SlotAccessToken, []byte(token)); err != nil {
		return fmt.Errorf("update access token: %w", err)
	}
	return nil
}

// Clear removes all slots. It is idempotent.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Delete(ctx, AllSlots...); err != nil {
		return fmt.Errorf("clear session: %w", err)
	}
	return nil
}

// CheckConsistency purges a partially written or corrupt record. It reports whether
// anything was cleared.
func (s *Store) CheckConsistency(ctx context.Context) (bool, error) {
	values, missing, err := s.readAll(ctx)
	if err != nil {
		return false, err
	}
	if missing == len(AllSlots) {
		return false, nil
	}
	if missing == 0 {
		if _, err := DecodeUser(values[SlotUser]); err == nil {
			return false, nil
		}
	}
	if err := s.Clear(ctx); err != nil {
		return false, err
	}
	return true, nil
}

// Close releases backend resources when the backend holds any.
func (s *Store) Close() error {
	if c, ok := s.backend.(Closer); ok {
		return c.Close()
	}
	return nil
}

func (s *Store) readAll(ctx context.Context) (map[Slot][]byte, int, error) {
	values := make(map[Slot][]byte, len(AllSlots))
	missing := 0
	for _, slot := range AllSlots {
		v, err := s.backend.Get(ctx, slot)
		if err != nil {
			if errors.Is(err, ErrSlotNotFound) {
				missing++
				continue
			}
			return nil, 0, fmt.Errorf("read slot %s: %w", slot, err)
		}
		if len(v) == 0 {
			missing++
			continue
		}
		values[slot] = v
	}
	return values, missing, nil
}
