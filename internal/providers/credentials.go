package providers

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/zalando/go-keyring"
)

const credentialService = "tripweaver"

var ErrCredentialNotFound = errors.New("credential not found")

// credentialEnv maps credential names to the environment variable consulted
// when neither the keyring nor the credential file has a value.
var credentialEnv = map[string]string{
	"openai":         "OPENAI_API_KEY",
	"groq":           "GROQ_API_KEY",
	"amadeus_id":     "AMADEUS_CLIENT_ID",
	"amadeus_secret": "AMADEUS_CLIENT_SECRET",
}

var (
	credentialFileMu sync.Mutex
	keyringGet       = keyring.Get
	keyringSet       = keyring.Set
	keyringDelete    = keyring.Delete
	userHomeDir      = os.UserHomeDir
	lookupEnv        = os.LookupEnv
)

// ValidateCredential rejects values that cannot be an API key.
func ValidateCredential(key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return errors.New("credential value is empty")
	}
	if strings.ContainsAny(key, " \t\r\n") {
		return errors.New("credential value must not contain whitespace")
	}
	return nil
}

func StoreCredential(keyName, key string) error {
	keyName = strings.TrimSpace(keyName)
	key = strings.TrimSpace(key)
	if keyName == "" {
		return errors.New("credential key name is empty")
	}
	if err := ValidateCredential(key); err != nil {
		return err
	}

	if err := keyringSet(credentialService, keyName, key); err == nil {
		return nil
	}

	credentialFileMu.Lock()
	defer credentialFileMu.Unlock()

	entries, err := readCredentialFileUnlocked()
	if err != nil {
		return err
	}
	entries[keyName] = key
	return writeCredentialFileUnlocked(entries)
}

func LoadCredential(keyName string) (string, error) {
	keyName = strings.TrimSpace(keyName)
	if keyName == "" {
		return "", errors.New("credential key name is empty")
	}

	if key, err := keyringGet(credentialService, keyName); err == nil {
		key = strings.TrimSpace(key)
		if key != "" {
			return key, nil
		}
	}

	credentialFileMu.Lock()
	entries, err := readCredentialFileUnlocked()
	credentialFileMu.Unlock()
	if err != nil {
		return "", err
	}
	if key := strings.TrimSpace(entries[keyName]); key != "" {
		return key, nil
	}

	if envName, ok := credentialEnv[keyName]; ok {
		if key, ok := lookupEnv(envName); ok && strings.TrimSpace(key) != "" {
			return strings.TrimSpace(key), nil
		}
	}
	return "", ErrCredentialNotFound
}

// DeleteCredential removes a credential from the keyring and the file. It
// reports ErrCredentialNotFound when neither held it.
func DeleteCredential(keyName string) error {
	keyName = strings.TrimSpace(keyName)
	if keyName == "" {
		return errors.New("credential key name is empty")
	}
	removed := keyringDelete(credentialService, keyName) == nil

	credentialFileMu.Lock()
	defer credentialFileMu.Unlock()

	entries, err := readCredentialFileUnlocked()
	if err != nil {
		return err
	}
	if _, ok := entries[keyName]; ok {
		delete(entries, keyName)
		if err := writeCredentialFileUnlocked(entries); err != nil {
			return err
		}
		removed = true
	}
	if !removed {
		return ErrCredentialNotFound
	}
	return nil
}

// HasCredential reports whether LoadCredential would find a value.
func HasCredential(keyName string) bool {
	_, err := LoadCredential(keyName)
	return err == nil
}

func credentialFilePath() (string, error) {
	home, err := userHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	home = strings.TrimSpace(home)
	if home == "" {
		return "", errors.New("home directory is empty")
	}
	return filepath.Join(home, ".config", "tripweaver", "credentials.json"), nil
}

func readCredentialFileUnlocked() (map[string]string, error) {
	path, err := credentialFilePath()
	if err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read credential file: %w", err)
	}
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" {
		return map[string]string{}, nil
	}
	entries := make(map[string]string)
	if err := json.Unmarshal(raw, &entries); err != nil {
		return nil, fmt.Errorf("decode credential file: %w", err)
	}
	clean := make(map[string]string, len(entries))
	for k, v := range entries {
		k = strings.TrimSpace(k)
		v = strings.TrimSpace(v)
		if k == "" || v == "" {
			continue
		}
		clean[k] = v
	}
	return clean, nil
}

func writeCredentialFileUnlocked(entries map[string]string) error {
	path, err := credentialFilePath()
	if err != nil {
		return err
	}
	if entries == nil {
		entries = map[string]string{}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("create credential directory: %w", err)
	}
	payload, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode credential file: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, payload, 0o600); err != nil {
		return fmt.Errorf("write credential temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("replace credential file: %w", err)
	}
	if err := os.Chmod(path, 0o600); err != nil {
		return fmt.Errorf("set credential file permissions: %w", err)
	}
	return nil
}
