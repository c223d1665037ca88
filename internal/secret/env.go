package secret

import (
	"os"
	"strings"
	"sync"
)

const envPrefix = "NEURALFLOW_SECRET_"

// EnvStore reads secrets from NEURALFLOW_SECRET_<KEY> variables. Values set
// at runtime are held in memory and shadow the environment.
type EnvStore struct {
	mu      sync.RWMutex
	values  map[string][]byte
	deleted map[string]bool
	lookup  func(string) (string, bool)
}

func NewEnvStore() *EnvStore {
	return &EnvStore{
		values:  map[string][]byte{},
		deleted: map[string]bool{},
		lookup:  os.LookupEnv,
	}
}

// EnvName is the variable consulted for key.
func EnvName(key string) string {
	return envPrefix + strings.ToUpper(key)
}

func (e *EnvStore) Set(key string, value []byte) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.values[key] = append([]byte(nil), value...)
	delete(e.deleted, key)
	return nil
}

func (e *EnvStore) Get(key string) ([]byte, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if v, ok := e.values[key]; ok {
		return append([]byte(nil), v...), nil
	}
	if e.deleted[key] {
		return nil, nil
	}
	if v, ok := e.lookup(EnvName(key)); ok {
		return []byte(v), nil
	}
	return nil, nil
}

func (e *EnvStore) Delete(key string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	delete(e.values, key)
	e.deleted[key] = true
	return nil
}
