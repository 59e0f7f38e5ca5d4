package auth

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"

	svcerrors "github.com/seven-io/seven-mcp/internal/errors"
)

// Keychain stores credentials in the OS credential store: Keychain on
// macOS, the secret service (libsecret) on Linux, Credential Manager
// on Windows.
type Keychain struct{}

// NewKeychain returns a CredentialStore backed by the OS keychain.
func NewKeychain() *Keychain {
	return &Keychain{}
}

// Get retrieves the secret for (service, account).
func (k *Keychain) Get(service, account string) (string, error) {
	secret, err := keyring.Get(service, account)
	if err != nil {
		return "", mapKeyringError(err)
	}

	return secret, nil
}

// Set writes the secret for (service, account), replacing any prior
// value.
func (k *Keychain) Set(service, account, secret string) error {
	if err := keyring.Set(service, account, secret); err != nil {
		return mapKeyringError(err)
	}

	return nil
}

// Delete removes the secret for (service, account).
func (k *Keychain) Delete(service, account string) error {
	if err := keyring.Delete(service, account); err != nil {
		return mapKeyringError(err)
	}

	return nil
}

// mapKeyringError translates go-keyring errors into this package's
// contract: absence is ErrCredentialNotFound, everything else means
// the facility itself is unreachable.
func mapKeyringError(err error) error {
	if errors.Is(err, keyring.ErrNotFound) {
		return ErrCredentialNotFound
	}

	return fmt.Errorf("%w: %v", svcerrors.ErrStorageUnavailable, err)
}
