package credentials

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/kbukum/meetscribe/encryption"
)

// ErrWrongPassphrase is returned by OpenVault when the passphrase does not
// open the stored keys.
var ErrWrongPassphrase = errors.New("credentials: wrong vault passphrase")

// vaultFile is the on-disk form of a Vault.
type vaultFile struct {
	Salt string            `json:"salt"`
	Keys map[string]string `json:"keys"`
}

// Vault is a passphrase-encrypted key file. Each key is sealed under its own
// name. Changes are kept in memory until Save.
type Vault struct {
	path   string
	salt   []byte
	cipher *encryption.Cipher

	mu     sync.RWMutex
	sealed map[string]string
}

var _ Provider = (*Vault)(nil)

// OpenVault reads the vault at path, creating an empty one in memory when the
// file does not exist. The passphrase is checked against every stored key.
func OpenVault(path, passphrase string) (*Vault, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("credentials: vault passphrase is required")
	}
	v := &Vault{path: path, sealed: map[string]string{}}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if v.salt, err = encryption.NewSalt(); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, fmt.Errorf("credentials: read vault: %w", err)
	default:
		var f vaultFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("credentials: parse vault %s: %w", path, err)
		}
		if v.salt, err = base64.StdEncoding.DecodeString(f.Salt); err != nil || len(v.salt) == 0 {
			return nil, fmt.Errorf("credentials: vault %s has no valid salt", path)
		}
		if f.Keys != nil {
			v.sealed = f.Keys
		}
	}

	if v.cipher, err = encryption.NewCipher(encryption.DeriveKey(passphrase, v.salt)); err != nil {
		return nil, err
	}
	for name, sealed := range v.sealed {
		if _, err := v.cipher.OpenString(name, sealed); err != nil {
			return nil, ErrWrongPassphrase
		}
	}
	return v, nil
}

// Lookup implements Provider.
func (v *Vault) Lookup(name string) (string, bool) {
	v.mu.RLock()
	sealed, ok := v.sealed[name]
	v.mu.RUnlock()
	if !ok {
		return "", false
	}
	key, err := v.cipher.OpenString(name, sealed)
	if err != nil || key == "" {
		return "", false
	}
	return key, true
}

// Set stores key under name. An empty key deletes the entry.
func (v *Vault) Set(name, key string) error {
	if key == "" {
		v.Delete(name)
		return nil
	}
	sealed, err := v.cipher.SealString(name, key)
	if err != nil {
		return err
	}
	v.mu.Lock()
	v.sealed[name] = sealed
	v.mu.Unlock()
	return nil
}

// Delete removes name. It reports whether an entry existed.
func (v *Vault) Delete(name string) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	_, ok := v.sealed[name]
	delete(v.sealed, name)
	return ok
}

// Names returns the stored credential names, sorted.
func (v *Vault) Names() []string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	names := make([]string, 0, len(v.sealed))
	for name := range v.sealed {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Save writes the vault atomically with owner-only permissions.
func (v *Vault) Save() error {
	v.mu.RLock()
	data, err := json.MarshalIndent(vaultFile{
		Salt: base64.StdEncoding.EncodeToString(v.salt),
		Keys: v.sealed,
	}, "", "  ")
	v.mu.RUnlock()
	if err != nil {
		return err
	}

	dir := filepath.Dir(v.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("credentials: create vault dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".vault-*")
	if err != nil {
		return fmt.Errorf("credentials: write vault: %w", err)
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("credentials: write vault: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("credentials: write vault: %w", err)
	}
	if err := os.Rename(tmp.Name(), v.path); err != nil {
		return fmt.Errorf("credentials: write vault: %w", err)
	}
	return nil
}
