// Package keys resolves venue signing keys from the environment and key
// files.
package keys

import (
	"errors"
	"os"
	"strings"
	"time"
)

// ErrKeyNotFound is returned when no source yields a private key.
var ErrKeyNotFound = errors.New("no private key found")

// Environment variables, checked in order of precedence after explicit
// config values.
const (
	envTestnetKey     = "HYPERLIQUID_TESTNET_PRIVATE_KEY"
	envMainnetKey     = "HYPERLIQUID_MAINNET_PRIVATE_KEY"
	envLegacyKey      = "HYPERLIQUID_PRIVATE_KEY"
	envTestnetKeyFile = "HYPERLIQUID_TESTNET_KEY_FILE"
	envMainnetKeyFile = "HYPERLIQUID_MAINNET_KEY_FILE"
	envLegacyKeyFile  = "HYPERLIQUID_PRIVATE_KEY_FILE"
)

// normalizedKeyLen is the length of a 0x-prefixed 32-byte hex key.
const normalizedKeyLen = 66

// Info summarizes a key lookup without exposing the key itself.
type Info struct {
	Network   string
	KeySource string
	KeyFound  bool
	Error     string
	CheckedAt time.Time
}

// Source supplies key material configured per bot, keyed by the same
// names the original YAML uses (testnet_private_key, private_key_file...).
type Source map[string]string

// Manager resolves private keys. Resolution order: bot config values,
// network env var, legacy env var, network key file, legacy key file.
type Manager struct{}

// NewManager creates a key manager.
func NewManager() *Manager { return &Manager{} }

// PrivateKey resolves the signing key for the selected network. The
// returned key is lowercase and 0x-prefixed.
func (m *Manager) PrivateKey(testnet bool, botConfig Source) (string, error) {
	if key, ok := m.botKey(botConfig, testnet); ok {
		return key, nil
	}
	if key, ok := m.envKey(testnet); ok {
		return key, nil
	}
	if key, ok := lookupNormalized(envLegacyKey); ok {
		return key, nil
	}
	if key, ok := m.fileKey(testnet); ok {
		return key, nil
	}
	if key, ok := m.readKeyFileEnv(envLegacyKeyFile); ok {
		return key, nil
	}
	return "", ErrKeyNotFound
}

func (m *Manager) botKey(config Source, testnet bool) (string, bool) {
	if config == nil {
		return "", false
	}
	direct := []string{"mainnet_private_key", "private_key"}
	files := []string{"mainnet_key_file", "private_key_file"}
	if testnet {
		direct = []string{"testnet_private_key", "private_key"}
		files = []string{"testnet_key_file", "private_key_file"}
	}
	for _, name := range direct {
		if value, ok := config[name]; ok && value != "" {
			return normalizeKey(value), true
		}
	}
	for _, name := range files {
		if path, ok := config[name]; ok && path != "" {
			if key, ok := readKeyFile(path); ok {
				return key, true
			}
		}
	}
	return "", false
}

func (m *Manager) envKey(testnet bool) (string, bool) {
	if testnet {
		return lookupNormalized(envTestnetKey)
	}
	return lookupNormalized(envMainnetKey)
}

func (m *Manager) fileKey(testnet bool) (string, bool) {
	if testnet {
		return m.readKeyFileEnv(envTestnetKeyFile)
	}
	return m.readKeyFileEnv(envMainnetKeyFile)
}

func (m *Manager) readKeyFileEnv(envVar string) (string, bool) {
	path, ok := os.LookupEnv(envVar)
	if !ok || path == "" {
		return "", false
	}
	return readKeyFile(path)
}

func lookupNormalized(envVar string) (string, bool) {
	value, ok := os.LookupEnv(envVar)
	if !ok {
		return "", false
	}
	return normalizeKey(value), true
}

// readKeyFile loads and normalizes a key from disk. File keys must be
// exactly 66 characters after normalization; anything else is rejected.
func readKeyFile(path string) (string, bool) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return "", false
	}
	trimmed := strings.TrimSpace(string(contents))
	if trimmed == "" {
		return "", false
	}
	normalized := normalizeKey(trimmed)
	if len(normalized) != normalizedKeyLen {
		return "", false
	}
	return normalized, true
}

// normalizeKey lowercases the key and ensures the 0x prefix.
func normalizeKey(key string) string {
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, "0x") {
		return lower
	}
	return "0x" + lower
}

// KeyInfo reports whether a key resolves for the network, without the key
// material itself.
func (m *Manager) KeyInfo(testnet bool, botConfig Source) Info {
	network := "mainnet"
	if testnet {
		network = "testnet"
	}
	info := Info{Network: network, CheckedAt: time.Now().UTC()}
	if _, err := m.PrivateKey(testnet, botConfig); err != nil {
		info.Error = err.Error()
		return info
	}
	info.KeyFound = true
	info.KeySource = "resolved"
	return info
}
