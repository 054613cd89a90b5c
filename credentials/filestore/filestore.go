// Package filestore persists session credentials as a single JSON document,
// optionally sealed with a passphrase-derived key.
package filestore

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/go-auth-session/credentials"
	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

var (
	_ credentials.Store   = (*Store)(nil)
	_ credentials.Batcher = (*Store)(nil)
)

// ErrDecrypt is returned when the file can't be opened with the configured passphrase.
var ErrDecrypt = errors.New("filestore: unable to decrypt credentials file")

const (
	filePerm  = 0o600
	saltSize  = 16
	keySize   = chacha20poly1305.KeySize
	kdfTime   = 1
	kdfMemory = 64 * 1024
	kdfLanes  = 4
)

// envelope is the on-disk format. Plain stores keep Values; sealed stores keep
// Salt, Nonce and Ciphertext of the JSON-encoded values map.
type envelope struct {
	Version    int               `json:"version"`
	Values     map[string]string `json:"values,omitempty"`
	Salt       []byte            `json:"salt,omitempty"`
	Nonce      []byte            `json:"nonce,omitempty"`
	Ciphertext []byte            `json:"ciphertext,omitempty"`
}

// Store is a file-backed credentials.Store. Every mutation rewrites the whole
// file atomically, so readers never observe a partial write.
type Store struct {
	path       string
	passphrase []byte

	mu sync.RWMutex

	// The derived key is cached for the salt it was derived with; the salt is
	// kept across writes so reads and writes derive once per file.
	keyMu       sync.Mutex
	salt        []byte
	key         []byte
	derivations int
}

// Option configures a Store.
type Option func(*Store)

// WithPassphrase seals the file with XChaCha20-Poly1305 under an Argon2id key.
func WithPassphrase(passphrase string) Option {
	return func(s *Store) {
		s.passphrase = []byte(passphrase)
	}
}

// New returns a store writing to path. The file is created on first write.
func New(path string, opts ...Option) (*Store, error) {
	if path == "" {
		return nil, errors.New("[filestore.New] path is required")
	}
	s := &Store{path: path}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Store) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	values, err := s.load()
	if err != nil {
		return "", false, err
	}
	v, ok := values[key]
	return v, ok, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.SetMany(ctx, map[string]string{key: value})
}

func (s *Store) Remove(ctx context.Context, key string) error {
	return s.RemoveMany(ctx, key)
}

func (s *Store) SetMany(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return err
	}
	for k, v := range values {
		current[k] = v
	}
	return s.save(current)
}

func (s *Store) RemoveMany(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.load()
	if err != nil {
		return err
	}
	changed := false
	for _, k := range keys {
		if _, ok := current[k]; ok {
			delete(current, k)
			changed = true
		}
	}
	if !changed {
		return nil
	}
	return s.save(current)
}

func (s *Store) load() (map[string]string, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("[filestore.load] read %s: %w", s.path, err)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("[filestore.load] decode: %w", err)
	}

	if len(env.Ciphertext) == 0 {
		if env.Values == nil {
			env.Values = make(map[string]string)
		}
		return env.Values, nil
	}

	if len(s.passphrase) == 0 {
		return nil, ErrDecrypt
	}
	aead, err := chacha20poly1305.NewX(s.keyFor(env.Salt))
	if err != nil {
		return nil, fmt.Errorf("[filestore.load] cipher: %w", err)
	}
	plain, err := aead.Open(nil, env.Nonce, env.Ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	values := make(map[string]string)
	if err := json.Unmarshal(plain, &values); err != nil {
		return nil, fmt.Errorf("[filestore.load] decode values: %w", err)
	}
	return values, nil
}

func (s *Store) save(values map[string]string) error {
	env := envelope{Version: 1}

	if len(s.passphrase) == 0 {
		env.Values = values
	} else {
		plain, err := json.Marshal(values)
		if err != nil {
			return fmt.Errorf("[filestore.save] encode values: %w", err)
		}
		salt, err := s.currentSalt()
		if err != nil {
			return fmt.Errorf("[filestore.save] salt: %w", err)
		}
		env.Salt = salt
		aead, err := chacha20poly1305.NewX(s.keyFor(salt))
		if err != nil {
			return fmt.Errorf("[filestore.save] cipher: %w", err)
		}
		env.Nonce = make([]byte, aead.NonceSize())
		if _, err := rand.Read(env.Nonce); err != nil {
			return fmt.Errorf("[filestore.save] nonce: %w", err)
		}
		env.Ciphertext = aead.Seal(nil, env.Nonce, plain, nil)
	}

	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("[filestore.save] encode: %w", err)
	}
	return writeAtomic(s.path, data, filePerm)
}

// keyFor returns the key for salt, deriving it only when the salt changed.
func (s *Store) keyFor(salt []byte) []byte {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()

	if s.key != nil && bytes.Equal(s.salt, salt) {
		return s.key
	}
	s.salt = append([]byte(nil), salt...)
	s.key = argon2.IDKey(s.passphrase, salt, kdfTime, kdfMemory, kdfLanes, keySize)
	s.derivations++
	return s.key
}

// currentSalt returns the salt of the last key, or a fresh one.
func (s *Store) currentSalt() ([]byte, error) {
	s.keyMu.Lock()
	defer s.keyMu.Unlock()

	if s.salt != nil {
		return append([]byte(nil), s.salt...), nil
	}
	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, err
	}
	return salt, nil
}

// writeAtomic writes to a temp file in the same directory, syncs it and
// renames it over path.
func writeAtomic(path string, data []byte, perm fs.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".credentials-*")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("fsync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	_ = os.Chmod(tmpPath, perm)

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(path)
		if err2 := os.Rename(tmpPath, path); err2 != nil {
			return fmt.Errorf("rename: %v (after remove: %v)", err, err2)
		}
	}
	return nil
}
