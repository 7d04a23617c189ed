package cookies

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "imgharvest"
	keyringPrefix  = "cookies_"
)

// KeyringSource keeps a cookie blob in the system keychain under an account name
type KeyringSource struct {
	Account string
}

// Load fetches and parses the stored blob
func (k KeyringSource) Load() ([]Record, error) {
	if k.Account == "" {
		return nil, errors.New("keyring account is required")
	}

	data, err := keyring.Get(keyringService, keyringPrefix+k.Account)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return nil, fmt.Errorf("%w: keyring account %s", ErrNotFound, k.Account)
		}
		return nil, fmt.Errorf("failed to retrieve from keyring: %w", err)
	}
	return Parse([]byte(data))
}

// Save stores records under the account, replacing any previous blob
func (k KeyringSource) Save(records []Record) error {
	if k.Account == "" {
		return errors.New("keyring account is required")
	}

	data, err := json.Marshal(records)
	if err != nil {
		return fmt.Errorf("failed to marshal cookies: %w", err)
	}
	if err := keyring.Set(keyringService, keyringPrefix+k.Account, string(data)); err != nil {
		return fmt.Errorf("failed to store in keyring: %w", err)
	}
	return nil
}

// Delete removes the stored blob
func (k KeyringSource) Delete() error {
	err := keyring.Delete(keyringService, keyringPrefix+k.Account)
	if errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: keyring account %s", ErrNotFound, k.Account)
	}
	if err != nil {
		return fmt.Errorf("failed to delete from keyring: %w", err)
	}
	return nil
}
