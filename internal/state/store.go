package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"go.uber.org/zap"

	"github.com/danhigham/tgsend/internal/domain"
)

// ErrNotExist is returned by Load when the record has never been written.
var ErrNotExist = errors.New("record does not exist")

// Store keeps durable JSON records under a single directory, one file per
// record. Every read-modify-write runs under an exclusive advisory lock so
// concurrent invocations of the tool cannot interleave writes; writes are
// temp-file + rename so a crash never leaves a partial record.
type Store struct {
	dir    string
	logger *zap.Logger
}

func New(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the directory records live in.
func (s *Store) Dir() string { return s.dir }

// Load reads the named record without taking the write lock.
// Returns ErrNotExist when the record has never been saved and a
// CorruptState error when it exists but cannot be decoded.
func (s *Store) Load(name string, v any) error {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotExist
		}
		return domain.WrapError(domain.ErrCorruptState, "read record "+name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return domain.WrapError(domain.ErrCorruptState, "decode record "+name, err)
	}
	return nil
}

// Save writes the named record under the record lock.
func (s *Store) Save(name string, v any) error {
	unlock, err := s.lock(name)
	if err != nil {
		return err
	}
	defer unlock()
	return s.write(name, v)
}

// Update runs a read-modify-write sequence on the named record: take the
// lock, refresh v from disk (a missing record leaves v as given), apply fn,
// persist. fn returning an error abandons the write and leaves the record
// untouched.
func (s *Store) Update(name string, v any, fn func() error) error {
	unlock, err := s.lock(name)
	if err != nil {
		return err
	}
	defer unlock()

	if err := s.Load(name, v); err != nil && !errors.Is(err, ErrNotExist) {
		return err
	}
	if err := fn(); err != nil {
		return err
	}
	return s.write(name, v)
}

func (s *Store) lock(name string) (func(), error) {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	fl := flock.New(filepath.Join(s.dir, name+".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return nil, domain.WrapError(domain.ErrLockContention, "lock record "+name, err)
	}
	if !ok {
		return nil, domain.NewError(domain.ErrLockContention,
			"record "+name+" is locked by another instance; retry once it finishes")
	}
	return func() {
		if err := fl.Unlock(); err != nil {
			s.logger.Warn("release record lock", zap.String("record", name), zap.Error(err))
		}
	}, nil
}

func (s *Store) write(name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode record %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dir, name+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp record: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write record %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close record %s: %w", name, err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod record %s: %w", name, err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace record %s: %w", name, err)
	}
	return nil
}
