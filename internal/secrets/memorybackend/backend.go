// Package memorybackend is an in-process stand-in for the OS keyring, used
// by secrets-package tests and any environment without a real keyring
// daemon (headless CI, containers).
package memorybackend

import (
	"sync"

	"github.com/berbicanes/queryark/internal/secrets"
)

type entryKey struct {
	service  string
	username string
}

type Backend struct {
	mu      sync.Mutex
	entries map[entryKey]string
}

func New() *Backend {
	return &Backend{entries: make(map[entryKey]string)}
}

func (b *Backend) Set(service, username, value string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries[entryKey{service, username}] = value
	return nil
}

func (b *Backend) Get(service, username string) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	value, ok := b.entries[entryKey{service, username}]
	if !ok {
		return "", secrets.ErrNotFound
	}
	return value, nil
}

func (b *Backend) Delete(service, username string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := entryKey{service, username}
	if _, ok := b.entries[key]; !ok {
		return secrets.ErrNotFound
	}
	delete(b.entries, key)
	return nil
}
