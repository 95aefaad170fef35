package services

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/99designs/keyring"
)

const serviceName = "oneclick"

// ErrAPIKeyNotFound is returned when no key is stored for a provider.
var ErrAPIKeyNotFound = errors.New("api key not configured")

type KeyringConfig struct {
	// Backend selects the store: "file" or an OS keychain such as
	// "secret-service", "keychain", "wincred" or "pass".
	Backend  string
	Dir      string
	Password string
}

// KeyringService stores generator provider API keys.
type KeyringService struct {
	ring keyring.Keyring
}

// OpenKeyring opens the configured backend. The file backend is encrypted
// with cfg.Password and lives under cfg.Dir or the user config directory.
func OpenKeyring(cfg KeyringConfig) (keyring.Keyring, error) {
	backend := strings.ToLower(strings.TrimSpace(cfg.Backend))
	if backend == "" {
		backend = string(keyring.FileBackend)
	}
	kc := keyring.Config{
		ServiceName:     serviceName,
		AllowedBackends: []keyring.BackendType{keyring.BackendType(backend)},
	}
	if backend == string(keyring.FileBackend) {
		dir := cfg.Dir
		if dir == "" {
			configDir, err := os.UserConfigDir()
			if err != nil {
				return nil, fmt.Errorf("resolve keyring dir: %w", err)
			}
			dir = filepath.Join(configDir, serviceName, "keys")
		}
		if cfg.Password == "" {
			return nil, errors.New("keyring password is required for the file backend")
		}
		kc.FileDir = dir
		kc.FilePasswordFunc = keyring.FixedStringPrompt(cfg.Password)
	}
	ring, err := keyring.Open(kc)
	if err != nil {
		return nil, fmt.Errorf("open %s keyring: %w", backend, err)
	}
	return ring, nil
}

func NewKeyringService(ring keyring.Keyring) *KeyringService {
	return &KeyringService{ring: ring}
}

func (s *KeyringService) StoreApiKey(provider string, apiKey []byte) error {
	if len(apiKey) == 0 {
		return errors.New("API key is empty")
	}
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	return s.ring.Set(keyring.Item{
		Key:         provider,
		Data:        apiKey,
		Label:       provider + " API key",
		Description: "API key for " + provider + " used by OneClick Studio",
	})
}

func (s *KeyringService) GetApiKey(provider string) (string, error) {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return "", errors.New("provider is required")
	}
	item, err := s.ring.Get(provider)
	if err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return "", fmt.Errorf("%w: %s", ErrAPIKeyNotFound, provider)
		}
		return "", err
	}
	return string(item.Data), nil
}

func (s *KeyringService) DeleteApiKey(provider string) error {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return errors.New("provider is required")
	}
	if err := s.ring.Remove(provider); err != nil {
		if errors.Is(err, keyring.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrAPIKeyNotFound, provider)
		}
		return err
	}
	return nil
}

// ListApiKeys describes the stored keys without revealing them.
func (s *KeyringService) ListApiKeys() ([]map[string]string, error) {
	keys, err := s.ring.Keys()
	if err != nil {
		return nil, err
	}
	sort.Strings(keys)
	results := make([]map[string]string, 0, len(keys))
	for _, provider := range keys {
		results = append(results, map[string]string{
			"provider":    provider,
			"label":       provider + " API key",
			"description": "API key for " + provider + " used by OneClick Studio",
		})
	}
	return results, nil
}
