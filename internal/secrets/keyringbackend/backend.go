// Package keyringbackend adapts github.com/zalando/go-keyring to
// internal/secrets.Backend — the real OS-keyring collaborator the broker is
// specified against (macOS Keychain, Windows Credential Manager, the Secret
// Service on Linux).
package keyringbackend

import (
	"errors"

	"github.com/zalando/go-keyring"

	"github.com/berbicanes/queryark/internal/secrets"
)

type Backend struct{}

func New() Backend { return Backend{} }

func (Backend) Set(service, username, value string) error {
	return keyring.Set(service, username, value)
}

func (Backend) Get(service, username string) (string, error) {
	value, err := keyring.Get(service, username)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", secrets.ErrNotFound
	}
	return value, err
}

func (Backend) Delete(service, username string) error {
	err := keyring.Delete(service, username)
	if errors.Is(err, keyring.ErrNotFound) {
		return secrets.ErrNotFound
	}
	return err
}
