package credentials

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mrlokans/gallery/internal/config"
	"github.com/mrlokans/gallery/internal/crypto"
	"github.com/mrlokans/gallery/internal/logger"
)

const (
	// EnvEncryptionKey is read when no key is configured explicitly.
	EnvEncryptionKey = "CREDENTIALS_ENCRYPTION_KEY"

	DefaultKeyFileName = ".gallery-credentials-key"
)

// ResolveEncryptor builds the Encryptor from, in order: the configured
// key, the environment, or a key file (generated on first use). Keys may
// be base64 32-byte keys or passphrases.
func ResolveEncryptor(cfg config.Credentials) (*crypto.Encryptor, error) {
	secret, err := resolveSecret(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve encryption key: %w", err)
	}
	enc, err := crypto.NewEncryptorFromSecret(secret)
	if err != nil {
		return nil, fmt.Errorf("failed to create encryptor: %w", err)
	}
	return enc, nil
}

func resolveSecret(cfg config.Credentials) (string, error) {
	if cfg.EncryptionKey != "" {
		return cfg.EncryptionKey, nil
	}
	if key := os.Getenv(EnvEncryptionKey); key != "" {
		return key, nil
	}

	keyFilePath := cfg.KeyFilePath
	if keyFilePath == "" {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		keyFilePath = filepath.Join(homeDir, DefaultKeyFileName)
	}

	if data, err := os.ReadFile(keyFilePath); err == nil {
		return strings.TrimSpace(string(data)), nil
	} else if !os.IsNotExist(err) {
		return "", fmt.Errorf("failed to read key file %s: %w", keyFilePath, err)
	}

	newKey, err := crypto.GenerateKey()
	if err != nil {
		return "", fmt.Errorf("failed to generate encryption key: %w", err)
	}
	if err := os.WriteFile(keyFilePath, []byte(newKey), 0600); err != nil {
		return "", fmt.Errorf("failed to save encryption key to %s: %w", keyFilePath, err)
	}

	logger.WithFields(logger.Fields{"path": keyFilePath}).Warn("Generated new credentials encryption key")
	return newKey, nil
}
