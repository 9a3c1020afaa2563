// Package sysstore persists the API server's system-level state: issued
// API keys and the bootstrap system config record. It is grounded on the
// teacher's pkg/storage.DefaultStorage (pebble-backed KV with ksuid-stamped
// records), generalized from a single flat keyspace to the two record kinds
// pkg/api needs.
package sysstore

import (
	"encoding/json"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/pkg/errors"
	"github.com/segmentio/ksuid"
)

const (
	keyPrefixAPIKey = "apikey/"
	keySystemConfig = "system/config"
)

// APIKeyRecord is an issued API key: its ksuid-derived id, the secret value
// handed to the client, and a human label (which system principal owns it).
type APIKeyRecord struct {
	ID        string `json:"id"`
	Key       string `json:"key"`
	Label     string `json:"label"`
	Revoked   bool   `json:"revoked"`
	CreatedAt int64  `json:"created_at"`
}

// SystemConfig is the single bootstrap record pkg/api/system.go reads on
// startup and rewrites on rotation (system key, encryption key material).
type SystemConfig struct {
	SystemKey       string `json:"system_key"`
	EncryptionKey   string `json:"encryption_key,omitempty"`
	EnableEncrypted bool   `json:"enable_encrypted"`
}

// Store wraps a pebble.DB opened at a single data directory, the same
// layout the teacher's DefaultStorage uses for its KV log.
type Store struct {
	db *pebble.DB
}

// Open opens (creating if absent) a pebble store rooted at dir.
func Open(dir string) (*Store, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, errors.WithMessage(err, "sysstore: open pebble")
	}
	return &Store{db: db}, nil
}

// Close releases the underlying pebble handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateAPIKey mints a new key record under a fresh ksuid id and persists it.
func (s *Store) CreateAPIKey(secret, label string) (APIKeyRecord, error) {
	return s.CreateAPIKeyWithID(ksuid.New().String(), secret, label)
}

// CreateAPIKeyWithID persists a key record under a caller-chosen id, for
// well-known ids like the bootstrap system-root key.
func (s *Store) CreateAPIKeyWithID(id, secret, label string) (APIKeyRecord, error) {
	rec := APIKeyRecord{ID: id, Key: secret, Label: label}
	if err := s.putAPIKey(rec); err != nil {
		return APIKeyRecord{}, err
	}
	return rec, nil
}

func (s *Store) putAPIKey(rec APIKeyRecord) error {
	buf, err := json.Marshal(rec)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := s.db.Set([]byte(keyPrefixAPIKey+rec.ID), buf, pebble.Sync); err != nil {
		return errors.WithMessage(err, "sysstore: put api key")
	}
	return nil
}

// GetAPIKey fetches a key record by id.
func (s *Store) GetAPIKey(id string) (APIKeyRecord, error) {
	val, closer, err := s.db.Get([]byte(keyPrefixAPIKey + id))
	if err == pebble.ErrNotFound {
		return APIKeyRecord{}, fmt.Errorf("sysstore: api key %q not found", id)
	}
	if err != nil {
		return APIKeyRecord{}, errors.WithMessage(err, "sysstore: get api key")
	}
	defer closer.Close()
	var rec APIKeyRecord
	if err := json.Unmarshal(val, &rec); err != nil {
		return APIKeyRecord{}, errors.WithStack(err)
	}
	return rec, nil
}

// ListAPIKeys returns every issued key record in id order.
func (s *Store) ListAPIKeys() ([]APIKeyRecord, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(keyPrefixAPIKey),
		UpperBound: []byte(keyPrefixAPIKey + "\xff"),
	})
	if err != nil {
		return nil, errors.WithMessage(err, "sysstore: list api keys")
	}
	defer iter.Close()

	var out []APIKeyRecord
	for iter.First(); iter.Valid(); iter.Next() {
		var rec APIKeyRecord
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, errors.WithStack(err)
		}
		out = append(out, rec)
	}
	return out, iter.Error()
}

// RevokeAPIKey marks a key record revoked in place.
func (s *Store) RevokeAPIKey(id string) error {
	rec, err := s.GetAPIKey(id)
	if err != nil {
		return err
	}
	rec.Revoked = true
	return s.putAPIKey(rec)
}

// FindByKey looks up the record whose secret matches key, for request-time
// authentication. A full scan is fine at the key counts this server deals
// with.
func (s *Store) FindByKey(key string) (APIKeyRecord, bool, error) {
	all, err := s.ListAPIKeys()
	if err != nil {
		return APIKeyRecord{}, false, err
	}
	for _, rec := range all {
		if !rec.Revoked && rec.Key == key {
			return rec, true, nil
		}
	}
	return APIKeyRecord{}, false, nil
}

// SaveSystemConfig persists the single bootstrap config record.
func (s *Store) SaveSystemConfig(cfg SystemConfig) error {
	buf, err := json.Marshal(cfg)
	if err != nil {
		return errors.WithStack(err)
	}
	if err := s.db.Set([]byte(keySystemConfig), buf, pebble.Sync); err != nil {
		return errors.WithMessage(err, "sysstore: save system config")
	}
	return nil
}

// LoadSystemConfig reads the bootstrap config record, if one was ever
// saved. ok is false on a fresh store.
func (s *Store) LoadSystemConfig() (cfg SystemConfig, ok bool, err error) {
	val, closer, err := s.db.Get([]byte(keySystemConfig))
	if err == pebble.ErrNotFound {
		return SystemConfig{}, false, nil
	}
	if err != nil {
		return SystemConfig{}, false, errors.WithMessage(err, "sysstore: load system config")
	}
	defer closer.Close()
	if err := json.Unmarshal(val, &cfg); err != nil {
		return SystemConfig{}, false, errors.WithStack(err)
	}
	return cfg, true, nil
}
