package identity

import (
	"crypto/rand"
	"log/slog"
	"math/big"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Token prefixes. The full token shape is
// "<prefix>_<unix-millis>_<9 base36 chars>", matching what existing
// stored data uses.
const (
	visitorPrefix = "visitor"
	sessionPrefix = "session"
)

// visitorKey is the state key holding the persisted visitor identifier.
const visitorKey = "visitor_id"

// randSuffixLen is the length of the random base36 suffix.
const randSuffixLen = 9

// Store is the durable client-side state store. It keeps one small file
// per key in a state directory, with an in-memory fallback when the
// directory is not writable (the analog of private-browsing storage
// restrictions): callers always make forward progress, they just lose
// persistence.
//
// Store is safe for concurrent use.
type Store struct {
	dir    string
	logger *slog.Logger

	mu sync.Mutex
	// memory holds values that could not be (or have not yet been)
	// persisted. Persisted reads also land here as a cache.
	memory map[string]string
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets a custom logger for the store.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		s.logger = logger
	}
}

// NewStore creates a state store rooted at dir. The directory is
// created lazily on first write; a missing or unwritable directory is
// not an error.
func NewStore(dir string, opts ...Option) *Store {
	s := &Store{
		dir:    dir,
		memory: make(map[string]string),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = slog.Default()
	}

	return s
}

// GetOrCreateVisitorID returns the persisted visitor identifier,
// creating and persisting a fresh one on first use. When persistence is
// unavailable it returns a fresh unpersisted identifier rather than an
// error: tracking degrades to per-process identity instead of failing.
func (s *Store) GetOrCreateVisitorID() string {
	if id, ok := s.Load(visitorKey); ok {
		return id
	}

	id := NewToken(visitorPrefix)
	if err := s.Save(visitorKey, id); err != nil {
		s.logger.Debug("visitor id not persisted, using ephemeral id", "error", err)
	}
	return id
}

// Load returns the value stored under key and whether it exists.
func (s *Store) Load(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if v, ok := s.memory[key]; ok {
		return v, true
	}

	data, err := os.ReadFile(s.path(key))
	if err != nil {
		return "", false
	}

	v := strings.TrimSpace(string(data))
	if v == "" {
		return "", false
	}

	s.memory[key] = v
	return v, true
}

// Save stores value under key, both in memory and on disk. The
// in-memory copy is kept even when the disk write fails, so repeated
// reads within one process stay consistent.
func (s *Store) Save(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.memory[key] = value

	if err := os.MkdirAll(s.dir, 0o750); err != nil {
		return err
	}
	return os.WriteFile(s.path(key), []byte(value+"\n"), 0o600)
}

// path returns the file path backing key.
func (s *Store) path(key string) string {
	return filepath.Join(s.dir, key)
}

// NewSessionID generates a fresh session identifier. It is never
// persisted; each page view gets its own.
func NewSessionID() string {
	return NewToken(sessionPrefix)
}

// NewToken builds a time-seeded random token:
// "<prefix>_<unix-millis>_<random base36 suffix>".
func NewToken(prefix string) string {
	var b strings.Builder
	b.WriteString(prefix)
	b.WriteByte('_')
	b.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 10))
	b.WriteByte('_')
	b.WriteString(randBase36(randSuffixLen))
	return b.String()
}

// base36Alphabet is the digit set for random token suffixes.
const base36Alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// randBase36 returns n random base36 characters from crypto/rand.
func randBase36(n int) string {
	max := big.NewInt(int64(len(base36Alphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand failing means the platform RNG is broken;
			// fall back to a time-derived digit to keep the token non-empty.
			b[i] = base36Alphabet[time.Now().UnixNano()%int64(len(base36Alphabet))]
			continue
		}
		b[i] = base36Alphabet[idx.Int64()]
	}
	return string(b)
}
