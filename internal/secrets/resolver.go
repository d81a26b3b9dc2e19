// Package secrets resolves per-connection credentials through an OS-keyring
// collaborator (§1, §4.6), with transparent migration off a legacy service
// name. The package owns the entry-naming and migration policy; the actual
// keyring I/O is abstracted behind Backend so tests run against
// memorybackend instead of a real OS keyring.
package secrets

import (
	"errors"

	"github.com/berbicanes/queryark/internal/dberrors"
	"github.com/berbicanes/queryark/internal/logging"
)

// Secret keys drawn from the closed set named in §4.6.
const (
	KeyPassword        = "password"
	KeySSHPassword      = "ssh_password"
	KeySSHPassphrase    = "ssh_passphrase"
	KeyAWSSecretKey     = "aws_secret_key"
	KeyCredentialsJSON  = "credentials_json"
)

// AllKeys enumerates every secret kind store_all/delete_all iterate over.
var AllKeys = []string{KeyPassword, KeySSHPassword, KeySSHPassphrase, KeyAWSSecretKey, KeyCredentialsJSON}

const (
	serviceName       = "com.queryark.database-ide"
	legacyServiceName = "com.dataforge.database-ide"
	probeUsername     = "__queryark_probe__"
)

// ErrNotFound is the sentinel every Backend must return (wrapped or bare)
// when an entry does not exist, matching keyring.ErrNotFound's role in the
// original driver.
var ErrNotFound = errors.New("secret not found in keyring")

// Backend is the minimal OS-keyring surface this package depends on.
// keyringbackend adapts github.com/zalando/go-keyring; memorybackend is an
// in-process stand-in for tests.
type Backend interface {
	Set(service, username, value string) error
	Get(service, username string) (string, error)
	Delete(service, username string) error
}

// Resolver implements §4.6's store/get/delete/available/delete_all contract
// on top of a Backend.
type Resolver struct {
	backend Backend
	log     *logging.Logger
}

func NewResolver(backend Backend, log *logging.Logger) *Resolver {
	if log == nil {
		log = logging.Default
	}
	return &Resolver{backend: backend, log: log}
}

// entryUsername composes the keyring username for a connection+key pair.
// "password" keeps the bare connection id for backward compatibility with
// entries written before per-key namespacing existed.
func entryUsername(connectionID, key string) string {
	if key == KeyPassword {
		return connectionID
	}
	return connectionID + ":" + key
}

// Store writes value under the current service name.
func (r *Resolver) Store(connectionID, key, value string) error {
	if err := r.backend.Set(serviceName, entryUsername(connectionID, key), value); err != nil {
		return dberrors.Keychain("failed to store secret '"+key+"'", err)
	}
	return nil
}

// StorePassword is the store_password convenience the original exposes as a
// distinct entry point, routed through Store with key="password".
func (r *Resolver) StorePassword(connectionID, password string) error {
	return r.Store(connectionID, KeyPassword, password)
}

// Get returns (value, true) on a hit, or ("", false) on any miss — a
// genuine NoEntry or a backend failure, matching the original's collapse of
// both into None for callers, while a mid-lookup backend failure is still
// logged.
func (r *Resolver) Get(connectionID, key string) (string, bool) {
	username := entryUsername(connectionID, key)

	value, err := r.backend.Get(serviceName, username)
	if err == nil {
		return value, true
	}
	if !errors.Is(err, ErrNotFound) {
		r.log.WithField("key", key).Warnf("keychain get failed for %q: %v", connectionID, err)
		return "", false
	}

	return r.migrateFromLegacy(connectionID, key, username)
}

// migrateFromLegacy re-queries under the legacy service name; on a hit it
// re-stores under the current name and deletes the legacy entry before
// returning the value, per the migration contract in §4.6.
func (r *Resolver) migrateFromLegacy(connectionID, key, username string) (string, bool) {
	legacyValue, err := r.backend.Get(legacyServiceName, username)
	if err != nil {
		return "", false
	}

	if err := r.backend.Set(serviceName, username, legacyValue); err != nil {
		r.log.Warnf("failed to migrate secret '%s' for %q to current service name: %v", key, connectionID, err)
	}
	if err := r.backend.Delete(legacyServiceName, username); err != nil && !errors.Is(err, ErrNotFound) {
		r.log.Warnf("failed to delete legacy secret '%s' for %q: %v", key, connectionID, err)
	}
	return legacyValue, true
}

func (r *Resolver) GetPassword(connectionID string) (string, bool) {
	return r.Get(connectionID, KeyPassword)
}

// Delete removes a single secret. A NoEntry outcome is treated as success,
// matching the original's delete_secret.
func (r *Resolver) Delete(connectionID, key string) error {
	err := r.backend.Delete(serviceName, entryUsername(connectionID, key))
	if err == nil || errors.Is(err, ErrNotFound) {
		return nil
	}
	return dberrors.Keychain("failed to delete secret '"+key+"'", err)
}

func (r *Resolver) DeletePassword(connectionID string) error {
	return r.Delete(connectionID, KeyPassword)
}

// DeleteAll removes every known secret kind for a connection, stopping at
// the first non-NoEntry failure.
func (r *Resolver) DeleteAll(connectionID string) error {
	for _, key := range AllKeys {
		if err := r.Delete(connectionID, key); err != nil {
			return err
		}
	}
	return nil
}

// Available probes the backend with a sentinel username; a NoEntry result
// still counts as "available" since it proves the backend itself responded.
func (r *Resolver) Available() bool {
	_, err := r.backend.Get(serviceName, probeUsername)
	return err == nil || errors.Is(err, ErrNotFound)
}
