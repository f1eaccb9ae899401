package identity

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/crypto/argon2"
)

// Argon2id parameters for mnemonic-at-rest encryption.
const (
	argon2Time        = 3
	argon2Memory      = 64 * 1024
	argon2Parallelism = 4
	argon2KeyLen      = 32
	argon2SaltLen     = 32
)

// EncryptedSeed is a mnemonic encrypted for storage on disk.
type EncryptedSeed struct {
	Version    int    `json:"version"`
	Ciphertext []byte `json:"ciphertext"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
}

// EncryptMnemonic encrypts a mnemonic with a password using Argon2id key
// derivation and AES-256-GCM.
func EncryptMnemonic(mnemonic, password string) (*EncryptedSeed, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, fmt.Errorf("identity: invalid mnemonic")
	}
	if len(password) == 0 {
		return nil, fmt.Errorf("identity: password must not be empty")
	}

	salt := make([]byte, argon2SaltLen)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("identity: generate salt: %w", err)
	}
	key := argon2.IDKey([]byte(password), salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLen)
	defer secureClear(key)

	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("identity: generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, []byte(mnemonic), nil)
	return &EncryptedSeed{Version: 1, Ciphertext: ciphertext, Salt: salt, Nonce: nonce}, nil
}

// DecryptMnemonic reverses EncryptMnemonic.
func DecryptMnemonic(encrypted *EncryptedSeed, password string) (string, error) {
	key := argon2.IDKey([]byte(password), encrypted.Salt, argon2Time, argon2Memory, argon2Parallelism, argon2KeyLen)
	defer secureClear(key)

	gcm, err := newGCM(key)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, encrypted.Nonce, encrypted.Ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("identity: decrypt (wrong password?): %w", err)
	}
	return string(plaintext), nil
}

// SaveEncryptedSeed writes an encrypted seed to path, creating its parent
// directory if needed.
func SaveEncryptedSeed(encrypted *EncryptedSeed, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("identity: create seed directory: %w", err)
	}
	data, err := json.Marshal(encrypted)
	if err != nil {
		return fmt.Errorf("identity: marshal seed: %w", err)
	}
	return os.WriteFile(path, data, 0600)
}

// LoadEncryptedSeed reads an encrypted seed previously written by
// SaveEncryptedSeed.
func LoadEncryptedSeed(path string) (*EncryptedSeed, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("identity: read seed file: %w", err)
	}
	var encrypted EncryptedSeed
	if err := json.Unmarshal(data, &encrypted); err != nil {
		return nil, fmt.Errorf("identity: unmarshal seed: %w", err)
	}
	return &encrypted, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("identity: create cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("identity: create gcm: %w", err)
	}
	return gcm, nil
}

func secureClear(data []byte) {
	for i := range data {
		data[i] = 0
	}
}
