package secret

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

const keychainService = "neuralflow"

// errItemNotFound is the exit status of `security` for a missing item.
const errItemNotFound = 44

// runner executes the `security` tool and returns its stdout.
type runner func(args ...string) ([]byte, error)

func runSecurity(args ...string) ([]byte, error) {
	out, err := exec.Command("security", args...).Output()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
		err = fmt.Errorf("%s: %w", strings.TrimSpace(string(exitErr.Stderr)), err)
	}
	return out, err
}

// KeychainStore keeps secrets in the macOS login Keychain as generic
// passwords under the "neuralflow" service, one account per key.
type KeychainStore struct {
	run runner
}

func NewKeychainStore() *KeychainStore {
	return &KeychainStore{run: runSecurity}
}

// Set adds or replaces key.
func (k *KeychainStore) Set(key string, value []byte) error {
	_, err := k.run("add-generic-password",
		"-a", key,
		"-s", keychainService,
		"-w", string(value),
		"-U",
	)
	if err != nil {
		return fmt.Errorf("keychain set %s: %w", key, err)
	}
	return nil
}

// Get returns nil without error when the item does not exist.
func (k *KeychainStore) Get(key string) ([]byte, error) {
	out, err := k.run("find-generic-password", "-a", key, "-s", keychainService, "-w")
	if notFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("keychain get %s: %w", key, err)
	}
	return []byte(strings.TrimRight(string(out), "\n")), nil
}

// Delete is a no-op for a missing item.
func (k *KeychainStore) Delete(key string) error {
	_, err := k.run("delete-generic-password", "-a", key, "-s", keychainService)
	if err != nil && !notFound(err) {
		return fmt.Errorf("keychain delete %s: %w", key, err)
	}
	return nil
}

// notFound matches *exec.ExitError and anything else carrying an exit code.
func notFound(err error) bool {
	var code interface{ ExitCode() int }
	return errors.As(err, &code) && code.ExitCode() == errItemNotFound
}
