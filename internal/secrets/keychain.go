// internal/secrets/keychain.go
package secrets

import (
	"context"
	"errors"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keychain service the secrets are filed under.
const DefaultService = "LoxoneMCP"

// Keychain stores secrets in the OS credential manager (macOS Keychain,
// Secret Service on Linux, Windows Credential Manager).
type Keychain struct {
	service string
}

// NewKeychain creates a keychain store for the given service name.
func NewKeychain(service string) *Keychain {
	if service == "" {
		service = DefaultService
	}
	return &Keychain{service: service}
}

func (k *Keychain) Get(ctx context.Context, name string) (string, error) {
	if err := validateName(name); err != nil {
		return "", err
	}
	v, err := keyring.Get(k.service, name)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", notFound(name)
	}
	if err != nil {
		return "", storeErr("reading keychain", err)
	}
	return v, nil
}

func (k *Keychain) Set(ctx context.Context, name, secret string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := keyring.Set(k.service, name, secret); err != nil {
		return storeErr("writing keychain", err)
	}
	return nil
}

func (k *Keychain) Delete(ctx context.Context, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	err := keyring.Delete(k.service, name)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return storeErr("deleting from keychain", err)
	}
	return nil
}
