package secret

import "runtime"

// Keys for the secrets the app needs.
const (
	KeyGeminiAPIKey = "gemini_api_key"
	KeySinkPassword = "sink_password"
)

// SecretStore holds credentials that must not live in the config file:
// the Gemini API key and the lead sink password.
type SecretStore interface {
	// Set stores a secret value under the given key.
	Set(key string, value []byte) error

	// Get retrieves the secret value for the given key.
	// Returns empty slice and nil error if key does not exist.
	Get(key string) ([]byte, error)

	Delete(key string) error
}

// Default returns the environment store, backed by the Keychain on macOS.
func Default() SecretStore {
	env := NewEnvStore()
	if runtime.GOOS == "darwin" {
		return NewChain(env, NewKeychainStore())
	}
	return env
}

// GetString is Get for text secrets.
func GetString(s SecretStore, key string) (string, error) {
	b, err := s.Get(key)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
