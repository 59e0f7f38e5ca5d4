package auth

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	svcerrors "github.com/seven-io/seven-mcp/internal/errors"
)

const (
	// storeDirPerm is the permission mode for the state directory
	// (~/.seven-mcp/).
	storeDirPerm = fs.FileMode(0o700)

	// storeFilePerm is the permission mode for the credentials
	// database file.
	storeFilePerm = fs.FileMode(0o600)

	// storeOpenTimeout is the maximum time to wait for the bolt
	// database lock.
	storeOpenTimeout = 5 * time.Second
)

var credentialsBucket = []byte("credentials")

// BoltStore is a file-backed CredentialStore used when the OS
// keychain is disabled or unsupported (headless systems). Secrets are
// stored unencrypted in a mode-0600 bbolt file under the user's home
// directory.
type BoltStore struct {
	db *bolt.DB
}

// DefaultStorePath returns the default credentials database path:
// ~/.seven-mcp/credentials.db
func DefaultStorePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".seven-mcp", "credentials.db"), nil
}

// OpenBoltStore opens (creating if needed) the credentials database at
// path.
func OpenBoltStore(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), storeDirPerm); err != nil {
		return nil, fmt.Errorf("%w: creating store directory: %v", svcerrors.ErrStorageUnavailable, err)
	}

	db, err := bolt.Open(path, storeFilePerm, &bolt.Options{Timeout: storeOpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", svcerrors.ErrStorageUnavailable, path, err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(credentialsBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: initializing store: %v", svcerrors.ErrStorageUnavailable, err)
	}

	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// credKey builds the bucket key for a (service, account) pair. The
// NUL separator cannot appear in either component.
func credKey(service, account string) []byte {
	return []byte(service + "\x00" + account)
}

// Get retrieves the secret for (service, account).
func (s *BoltStore) Get(service, account string) (string, error) {
	var secret []byte

	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(credentialsBucket).Get(credKey(service, account))
		if v == nil {
			return ErrCredentialNotFound
		}

		secret = append(secret, v...)

		return nil
	})
	if err != nil {
		if errors.Is(err, ErrCredentialNotFound) {
			return "", ErrCredentialNotFound
		}

		return "", fmt.Errorf("%w: %v", svcerrors.ErrStorageUnavailable, err)
	}

	return string(secret), nil
}

// Set writes the secret for (service, account), replacing any prior
// value.
func (s *BoltStore) Set(service, account, secret string) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(credentialsBucket).Put(credKey(service, account), []byte(secret))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", svcerrors.ErrStorageUnavailable, err)
	}

	return nil
}

// Delete removes the secret for (service, account).
func (s *BoltStore) Delete(service, account string) error {
	notFound := false

	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(credentialsBucket)

		key := credKey(service, account)
		if b.Get(key) == nil {
			notFound = true
			return nil
		}

		return b.Delete(key)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", svcerrors.ErrStorageUnavailable, err)
	}

	if notFound {
		return ErrCredentialNotFound
	}

	return nil
}

// OpenCredentialStore resolves the credential backend once at process
// start. The OS keychain is the default; noKeychain switches to the
// bbolt file store. Keychain unavailability on a given platform
// surfaces later as ErrStorageUnavailable from individual operations,
// not as a startup crash.
func OpenCredentialStore(noKeychain bool) (CredentialStore, error) {
	if !noKeychain {
		return NewKeychain(), nil
	}

	path, err := DefaultStorePath()
	if err != nil {
		return nil, err
	}

	return OpenBoltStore(path)
}
