package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"gopkg.in/yaml.v3"

	"github.com/danhigham/tgsend/internal/domain"
)

const credentialsFile = "credentials.yaml"

// Credentials are the provider-issued application credentials. Both fields
// must be set before any authentication attempt.
type Credentials struct {
	APIID   int    `yaml:"api_id"`
	APIHash string `yaml:"api_hash"`
}

// Dir returns the per-user directory all durable state lives under.
func Dir() string {
	cfgDir, err := os.UserConfigDir()
	if err != nil {
		cfgDir = filepath.Join(os.Getenv("HOME"), ".config")
	}
	return filepath.Join(cfgDir, "tgsend")
}

// CredentialStore persists exactly one credential pair per local user.
type CredentialStore struct {
	dir string
}

func NewCredentialStore(dir string) *CredentialStore {
	return &CredentialStore{dir: dir}
}

// Load returns the saved credentials. A never-written record reports
// NotConfigured; an unreadable or incomplete record reports CorruptState,
// which is deliberately distinct so corruption is never mistaken for a
// fresh install.
func (s *CredentialStore) Load() (Credentials, error) {
	path := filepath.Join(s.dir, credentialsFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Credentials{}, domain.NewError(domain.ErrNotConfigured,
				"no API credentials configured; run 'tgsend config --api-id ID --api-hash HASH'")
		}
		return Credentials{}, domain.WrapError(domain.ErrCorruptState, "read credentials", err)
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return Credentials{}, domain.WrapError(domain.ErrCorruptState, "parse credentials", err)
	}
	if creds.APIID == 0 || creds.APIHash == "" {
		return Credentials{}, domain.NewError(domain.ErrCorruptState,
			"credential record is missing api_id or api_hash")
	}
	return creds, nil
}

// Save atomically replaces any existing credentials.
func (s *CredentialStore) Save(creds Credentials) error {
	if creds.APIID == 0 || creds.APIHash == "" {
		return domain.NewError(domain.ErrInvalidCredentials,
			"both --api-id and --api-hash are required")
	}
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	fl := flock.New(filepath.Join(s.dir, credentialsFile+".lock"))
	ok, err := fl.TryLock()
	if err != nil {
		return domain.WrapError(domain.ErrLockContention, "lock credentials", err)
	}
	if !ok {
		return domain.NewError(domain.ErrLockContention,
			"credentials are locked by another instance; retry once it finishes")
	}
	defer fl.Unlock()

	data, err := yaml.Marshal(&creds)
	if err != nil {
		return fmt.Errorf("encode credentials: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, credentialsFile+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp credentials: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write credentials: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close credentials: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("chmod credentials: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.dir, credentialsFile)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace credentials: %w", err)
	}
	return nil
}
