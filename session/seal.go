package session

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// MinPassphraseLength is the shortest passphrase NewSealedBackend accepts.
const MinPassphraseLength = 10

const (
	sealVersion     byte = 2
	sealSaltSize         = 16
	minSealMemoryKB      = 8 * 1024
	// maxSealKeys bounds the keys cached for values written by earlier instances.
	maxSealKeys = 8
)

// ErrSealBroken marks a slot value that failed authentication on decrypt.
var ErrSealBroken = errors.New("sealed slot failed authentication")

// SealConfig holds the Argon2id parameters used to derive the sealing key.
type SealConfig struct {
	Memory      uint32 // in KB
	Time        uint32
	Parallelism uint8
}

// DefaultSealConfig returns the RFC 9106 second recommended parameter set.
func DefaultSealConfig() SealConfig {
	return SealConfig{
		Memory:      64 * 1024,
		Time:        3,
		Parallelism: 4,
	}
}

// SealedBackend encrypts slot values with XChaCha20-Poly1305 before handing them to the
// wrapped backend. Each instance derives its key with Argon2id from the passphrase and a
// random salt; the salt is stored in the header of every value it writes:
//
//	version(1) | salt(16) | nonce(24) | ciphertext
//
// The namespace and slot name are bound as additional data so values cannot be swapped
// between slots or namespaces.
type SealedBackend struct {
	inner      Backend
	passphrase []byte
	namespace  string
	cfg        SealConfig

	salt [sealSaltSize]byte
	key  []byte

	mu   sync.Mutex
	keys map[[sealSaltSize]byte][]byte
}

// NewSealedBackend draws a fresh salt and derives the sealing key for passphrase.
func NewSealedBackend(inner Backend, passphrase, namespace string, cfg SealConfig) (*SealedBackend, error) {
	if inner == nil {
		return nil, errors.New("nil backend")
	}
	if len(passphrase) < MinPassphraseLength {
		return nil, fmt.Errorf("passphrase must be at least %d bytes", MinPassphraseLength)
	}
	if cfg.Memory < minSealMemoryKB || cfg.Time < 1 || cfg.Parallelism < 1 {
		return nil, errors.New("invalid seal parameters")
	}

	s := &SealedBackend{
		inner:      inner,
		passphrase: []byte(passphrase),
		namespace:  namespace,
		cfg:        cfg,
		keys:       make(map[[sealSaltSize]byte][]byte),
	}
	if _, err := io.ReadFull(rand.Reader, s.salt[:]); err != nil {
		return nil, fmt.Errorf("seal salt: %w", err)
	}
	s.key = s.derive(s.salt)
	return s, nil
}

func (s *SealedBackend) derive(salt [sealSaltSize]byte) []byte {
	return argon2.IDKey(s.passphrase, salt[:], s.cfg.Time, s.cfg.Memory, s.cfg.Parallelism, chacha20poly1305.KeySize)
}

// keyFor returns the key for a value written under salt, deriving and caching it
// when the value came from another instance.
func (s *SealedBackend) keyFor(salt [sealSaltSize]byte) []byte {
	if salt == s.salt {
		return s.key
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if key, ok := s.keys[salt]; ok {
		return key
	}
	if len(s.keys) >= maxSealKeys {
		clear(s.keys)
	}
	key := s.derive(salt)
	s.keys[salt] = key
	return key
}

func (s *SealedBackend) additionalData(slot Slot) []byte {
	return []byte(s.namespace + "\x00" + string(slot))
}

func (s *SealedBackend) seal(slot Slot, plaintext []byte) ([]byte, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, err
	}
	header := 1 + sealSaltSize + aead.NonceSize()
	out := make([]byte, header, header+len(plaintext)+aead.Overhead())
	out[0] = sealVersion
	copy(out[1:], s.salt[:])
	nonce := out[1+sealSaltSize:]
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, err
	}
	return aead.Seal(out, nonce, plaintext, s.additionalData(slot)), nil
}

func (s *SealedBackend) open(slot Slot, blob []byte) ([]byte, error) {
	header := 1 + sealSaltSize + chacha20poly1305.NonceSizeX
	if len(blob) < header+chacha20poly1305.Overhead || blob[0] != sealVersion {
		return nil, ErrSealBroken
	}
	var salt [sealSaltSize]byte
	copy(salt[:], blob[1:1+sealSaltSize])

	aead, err := chacha20poly1305.NewX(s.keyFor(salt))
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, blob[1+sealSaltSize:header], blob[header:], s.additionalData(slot))
	if err != nil {
		return nil, ErrSealBroken
	}
	return plaintext, nil
}

// Get decrypts the stored value. A value that fails authentication reads as missing.
func (s *SealedBackend) Get(ctx context.Context, slot Slot) ([]byte, error) {
	blob, err := s.inner.Get(ctx, slot)
	if err != nil {
		return nil, err
	}
	plaintext, err := s.open(slot, blob)
	if err != nil {
		return nil, errors.Join(ErrSlotNotFound, err)
	}
	return plaintext, nil
}

func (s *SealedBackend) Set(ctx context.Context, slot Slot, value []byte) error {
	blob, err := s.seal(slot, value)
	if err != nil {
		return fmt.Errorf("seal slot %s: %w", slot, err)
	}
	return s.inner.Set(ctx, slot, blob)
}

// SetAll seals every value and delegates to the wrapped backend, atomically when it
// supports batches.
func (s *SealedBackend) SetAll(ctx context.Context, values []SlotValue) error {
	sealed := make([]SlotValue, 0, len(values))
	for _, v := range values {
		blob, err := s.seal(v.Slot, v.Value)
		if err != nil {
			return fmt.Errorf("seal slot %s: %w", v.Slot, err)
		}
		sealed = append(sealed, SlotValue{Slot: v.Slot, Value: blob})
	}
	if bw, ok := s.inner.(BatchWriter); ok {
		return bw.SetAll(ctx, sealed)
	}
	for _, v := range sealed {
		if err := s.inner.Set(ctx, v.Slot, v.Value); err != nil {
			_ = s.inner.Delete(ctx, AllSlots...)
			return err
		}
	}
	return nil
}

func (s *SealedBackend) Delete(ctx context.Context, slots ...Slot) error {
	return s.inner.Delete(ctx, slots...)
}

// Close closes the wrapped backend when it holds resources.
func (s *SealedBackend) Close() error {
	if c, ok := s.inner.(Closer); ok {
		return c.Close()
	}
	return nil
}
