package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/qumail/qumail-client/internal/logger"
	"go.uber.org/zap"
)

// SlotName keys the credential record inside the session document.
const SlotName = "qumail.session"

// Store persists at most one Credential.
type Store interface {
	// Save replaces any stored credential. IssuedAt is set to now.
	Save(userID, email, token string) (*Credential, error)
	// Load returns ok=false with a nil error when nobody is signed in.
	Load() (cred *Credential, ok bool, err error)
	// Clear removes the credential; clearing an empty store is not an error.
	Clear() error
}

// record is the on-disk layout of one slot.
type record struct {
	Email     string    `json:"email"`
	ID        string    `json:"id"`
	JWT       string    `json:"jwt"`
	LastLogin time.Time `json:"lastLogin"`
}

// Option configures a store.
type Option func(*options)

type options struct {
	now func() time.Time
}

// WithClock overrides the clock used for IssuedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// FileStore keeps the credential in a single JSON document on disk with the
// token sealed by a Sealer. All operations are serialized.
type FileStore struct {
	mu     sync.Mutex
	path   string
	sealer Sealer
	now    func() time.Time
}

// NewFileStore creates a store at path. The file is created on first Save.
func NewFileStore(path string, sealer Sealer, opts ...Option) (*FileStore, error) {
	if path == "" {
		return nil, &StoreError{Op: "open", Cause: errors.New("path is required")}
	}
	if sealer == nil {
		return nil, ErrNoEncryptionKey
	}
	o := buildOptions(opts)
	return &FileStore{
		path:   path,
		sealer: sealer,
		now:    o.now,
	}, nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Save(userID, email, token string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cred := &Credential{
		UserID:   userID,
		Email:    email,
		Token:    token,
		IssuedAt: s.now().UTC(),
	}

	sealed, err := s.sealer.Seal([]byte(token), []byte(SlotName))
	if err != nil {
		return nil, s.fail("save", err)
	}

	doc := map[string]record{
		SlotName: {
			Email:     email,
			ID:        userID,
			JWT:       sealed,
			LastLogin: cred.IssuedAt,
		},
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, s.fail("save", err)
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return nil, s.fail("save", err)
	}

	logger.Debug("Session saved", zap.Object("credential", cred), zap.String("path", s.path))
	return cred, nil
}

func (s *FileStore) Load() (*Credential, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, s.fail("load", err)
	}

	var doc map[string]record
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, false, s.fail("load", fmt.Errorf("corrupt session file: %w", err))
	}
	rec, ok := doc[SlotName]
	if !ok {
		return nil, false, nil
	}
	if rec.JWT == "" {
		return nil, false, s.fail("load", errors.New("corrupt session file: token missing"))
	}

	token, err := s.sealer.Open(rec.JWT, []byte(SlotName))
	if err != nil {
		return nil, false, s.fail("load", err)
	}

	return &Credential{
		UserID:   rec.ID,
		Email:    rec.Email,
		Token:    string(token),
		IssuedAt: rec.LastLogin,
	}, true, nil
}

func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return s.fail("clear", err)
	}
	logger.Debug("Session cleared", zap.String("path", s.path))
	return nil
}

func (s *FileStore) fail(op string, err error) error {
	logger.Error("Session store failure", zap.String("op", op), zap.String("path", s.path), zap.Error(err))
	return &StoreError{Op: op, Path: s.path, Cause: err}
}

// writeFileAtomic writes data to a temp file next to path, fsyncs it and
// renames it into place so readers never see a partial record.
func writeFileAtomic(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".session-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if err = tmp.Chmod(0o600); err != nil {
		_ = tmp.Close()
		return err
	}
	if _, err = tmp.Write(data); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Sync(); err != nil {
		_ = tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = os.Rename(tmpName, path); err != nil {
		return err
	}

	// Persist the rename itself. Not every platform supports syncing a
	// directory, so a failure here is logged rather than returned.
	if d, openErr := os.Open(dir); openErr == nil {
		if syncErr := d.Sync(); syncErr != nil {
			logger.Debug("Directory sync not supported", zap.String("dir", dir), zap.Error(syncErr))
		}
		_ = d.Close()
	}
	return nil
}
