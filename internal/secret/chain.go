package secret

// Chain reads from each store in turn and returns the first non-empty value.
// Writes go to the first store; deletes go to all of them.
type Chain struct {
	stores []SecretStore
}

func NewChain(stores ...SecretStore) *Chain {
	return &Chain{stores: stores}
}

func (c *Chain) Set(key string, value []byte) error {
	if len(c.stores) == 0 {
		return nil
	}
	return c.stores[0].Set(key, value)
}

func (c *Chain) Get(key string) ([]byte, error) {
	var firstErr error
	for _, s := range c.stores {
		v, err := s.Get(key)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if len(v) > 0 {
			return v, nil
		}
	}
	return nil, firstErr
}

func (c *Chain) Delete(key string) error {
	var firstErr error
	for _, s := range c.stores {
		if err := s.Delete(key); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
