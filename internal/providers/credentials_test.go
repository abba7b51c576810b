package providers

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubCredentialBackends swaps the keyring, home dir and environment for the
// duration of a test. Tests using it must not run in parallel.
func stubCredentialBackends(t *testing.T, keyringValues map[string]string, env map[string]string) string {
	t.Helper()

	origGet, origSet, origDelete := keyringGet, keyringSet, keyringDelete
	origHome, origEnv := userHomeDir, lookupEnv
	t.Cleanup(func() {
		keyringGet, keyringSet, keyringDelete = origGet, origSet, origDelete
		userHomeDir, lookupEnv = origHome, origEnv
	})

	tmpHome := t.TempDir()
	userHomeDir = func() (string, error) { return tmpHome, nil }
	lookupEnv = func(name string) (string, bool) {
		v, ok := env[name]
		return v, ok
	}

	if keyringValues == nil {
		unavailable := errors.New("keyring unavailable")
		keyringSet = func(service, user, password string) error { return unavailable }
		keyringGet = func(service, user string) (string, error) { return "", unavailable }
		keyringDelete = func(service, user string) error { return unavailable }
		return tmpHome
	}

	keyringSet = func(service, user, password string) error {
		keyringValues[user] = password
		return nil
	}
	keyringGet = func(service, user string) (string, error) {
		value := keyringValues[user]
		if value == "" {
			return "", errors.New("not found")
		}
		return value, nil
	}
	keyringDelete = func(service, user string) error {
		if _, ok := keyringValues[user]; !ok {
			return errors.New("not found")
		}
		delete(keyringValues, user)
		return nil
	}
	return tmpHome
}

func TestStoreCredentialFallsBackToFileWhenKeyringUnavailable(t *testing.T) {
	tmpHome := stubCredentialBackends(t, nil, nil)

	require.NoError(t, StoreCredential("groq", "gsk_test"))

	credentialPath := filepath.Join(tmpHome, ".config", "tripweaver", "credentials.json")
	info, err := os.Stat(credentialPath)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())

	got, err := LoadCredential("groq")
	require.NoError(t, err)
	assert.Equal(t, "gsk_test", got)

	require.NoError(t, DeleteCredential("groq"))
	_, err = LoadCredential("groq")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
}

func TestStoreCredentialUsesKeyringWhenAvailable(t *testing.T) {
	keyringValues := make(map[string]string)
	tmpHome := stubCredentialBackends(t, keyringValues, nil)

	require.NoError(t, StoreCredential("openai", "sk-test"))
	assert.Equal(t, "sk-test", keyringValues["openai"])

	credentialPath := filepath.Join(tmpHome, ".config", "tripweaver", "credentials.json")
	_, err := os.Stat(credentialPath)
	assert.True(t, errors.Is(err, os.ErrNotExist), "no fallback file expected when keyring succeeds, got %v", err)
}

func TestLoadCredentialFallsBackToEnvironment(t *testing.T) {
	stubCredentialBackends(t, nil, map[string]string{"AMADEUS_CLIENT_ID": " id-from-env "})

	got, err := LoadCredential("amadeus_id")
	require.NoError(t, err)
	assert.Equal(t, "id-from-env", got)

	_, err = LoadCredential("amadeus_secret")
	assert.ErrorIs(t, err, ErrCredentialNotFound)
	assert.False(t, HasCredential("amadeus_secret"))
}

func TestDeleteCredentialReportsMissing(t *testing.T) {
	stubCredentialBackends(t, map[string]string{}, nil)

	assert.ErrorIs(t, DeleteCredential("openai"), ErrCredentialNotFound)
}

func TestValidateCredential(t *testing.T) {
	t.Parallel()

	assert.NoError(t, ValidateCredential("sk-abc"))
	assert.Error(t, ValidateCredential("   "))
	assert.Error(t, ValidateCredential("sk abc"))
}
