package api

import (
	"fmt"
	"time"

	"github.com/ssargent/kdforest/pkg/sysstore"
)

// SystemService provides internal APIs for managing system-level data:
// issued API keys and the bootstrap system config record, backed by
// pkg/sysstore (a pebble-backed store adapted from the teacher's
// pkg/storage.DefaultStorage).
type SystemService struct {
	store  *sysstore.Store
	config SystemConfig
	isOpen bool
}

// SystemConfig holds configuration for the system service.
type SystemConfig struct {
	DataDir          string
	EncryptionKey    string
	EnableEncryption bool
	MaxRecordSize    int
}

// APIKey represents an API key stored in the system, the api-package-level
// view of a sysstore.APIKeyRecord.
type APIKey struct {
	ID          string     `json:"id"`
	Key         string     `json:"key"`
	Description string     `json:"description,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	IsActive    bool       `json:"is_active"`
}

// NewSystemService creates a new system service instance.
func NewSystemService(config SystemConfig) (*SystemService, error) {
	return &SystemService{config: config}, nil
}

// Open opens the underlying sysstore at <DataDir>/system.
func (s *SystemService) Open() error {
	if s.isOpen {
		return nil
	}
	store, err := sysstore.Open(s.config.DataDir + "/system")
	if err != nil {
		return fmt.Errorf("failed to open system store: %w", err)
	}
	s.store = store
	s.isOpen = true
	return nil
}

// Close shuts down the system service.
func (s *SystemService) Close() error {
	if !s.isOpen {
		return nil
	}
	s.isOpen = false
	if s.store != nil {
		return s.store.Close()
	}
	return nil
}

// IsOpen returns whether the system service is open.
func (s *SystemService) IsOpen() bool {
	return s.isOpen
}

// StoreAPIKey records a new API key, reusing apiKey.ID if the caller set
// one (the bootstrap system-root key) or minting a fresh ksuid otherwise.
func (s *SystemService) StoreAPIKey(apiKey APIKey) error {
	if !s.isOpen {
		return fmt.Errorf("system service is not open")
	}
	if apiKey.ID != "" {
		_, err := s.store.CreateAPIKeyWithID(apiKey.ID, apiKey.Key, apiKey.Description)
		return err
	}
	_, err := s.store.CreateAPIKey(apiKey.Key, apiKey.Description)
	return err
}

// GetAPIKey retrieves an API key by id.
func (s *SystemService) GetAPIKey(keyID string) (*APIKey, error) {
	if !s.isOpen {
		return nil, fmt.Errorf("system service is not open")
	}
	rec, err := s.store.GetAPIKey(keyID)
	if err != nil {
		return nil, err
	}
	return &APIKey{ID: rec.ID, Key: rec.Key, Description: rec.Label, IsActive: !rec.Revoked}, nil
}

// ValidateAPIKey reports whether apiKeyValue matches a live issued key.
func (s *SystemService) ValidateAPIKey(apiKeyValue string) (bool, error) {
	if !s.isOpen {
		return false, fmt.Errorf("system service is not open")
	}
	_, ok, err := s.store.FindByKey(apiKeyValue)
	return ok, err
}

// ListAPIKeys returns every issued key's id.
func (s *SystemService) ListAPIKeys() ([]string, error) {
	if !s.isOpen {
		return nil, fmt.Errorf("system service is not open")
	}
	recs, err := s.store.ListAPIKeys()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(recs))
	for i, r := range recs {
		ids[i] = r.ID
	}
	return ids, nil
}

// DeleteAPIKey revokes an API key in place; the record is kept for audit
// purposes the way the teacher's tombstone-style deletes are.
func (s *SystemService) DeleteAPIKey(keyID string) error {
	if !s.isOpen {
		return fmt.Errorf("system service is not open")
	}
	return s.store.RevokeAPIKey(keyID)
}

// StoreSystemConfig persists the bootstrap system key / encryption settings.
func (s *SystemService) StoreSystemConfig(systemKey string) error {
	if !s.isOpen {
		return fmt.Errorf("system service is not open")
	}
	return s.store.SaveSystemConfig(sysstore.SystemConfig{
		SystemKey:       systemKey,
		EncryptionKey:   s.config.EncryptionKey,
		EnableEncrypted: s.config.EnableEncryption,
	})
}

// GetSystemConfig loads the bootstrap system config record.
func (s *SystemService) GetSystemConfig() (sysstore.SystemConfig, bool, error) {
	if !s.isOpen {
		return sysstore.SystemConfig{}, false, fmt.Errorf("system service is not open")
	}
	return s.store.LoadSystemConfig()
}

// InitializeSystem implements the SystemInitializer interface: it opens the
// system store, records the administrative API key, and persists the
// bootstrap config record.
func (s *SystemService) InitializeSystem(dataDir, systemKey, systemAPIKey string) error {
	if err := s.Open(); err != nil {
		return fmt.Errorf("failed to open system service: %w", err)
	}
	defer s.Close()

	apiKey := APIKey{
		ID:          "system-root",
		Key:         systemAPIKey,
		Description: "System root API key for administrative operations",
		CreatedAt:   time.Now(),
		IsActive:    true,
	}
	if err := s.StoreAPIKey(apiKey); err != nil {
		return fmt.Errorf("failed to store system API key: %w", err)
	}

	if err := s.StoreSystemConfig(systemKey); err != nil {
		return fmt.Errorf("failed to store system configuration: %w", err)
	}

	return nil
}
