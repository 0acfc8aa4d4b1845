package storage

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/dmitrijs2005/notesync/internal/api"
	"github.com/dmitrijs2005/notesync/internal/cryptox"
	"github.com/dmitrijs2005/notesync/internal/repositories/accounts"
	"github.com/dmitrijs2005/notesync/internal/shared"
)

const machineSecretFile = "notesync.secret"

// Keychain stores account credentials in the accounts table, sealed with a
// key derived from a random per-machine secret kept next to the database.
type Keychain struct {
	secret   []byte
	accounts accounts.Repository
}

// NewKeychain loads the machine secret from dir, creating it on first use.
func NewKeychain(dir string, repo accounts.Repository) (*Keychain, error) {
	path := filepath.Join(dir, machineSecretFile)

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		s, err := shared.MakeRandHexString(32)
		if err != nil {
			return nil, err
		}
		if err := os.WriteFile(path, []byte(s), 0o600); err != nil {
			return nil, fmt.Errorf("writing machine secret: %w", err)
		}
		data = []byte(s)
	} else if err != nil {
		return nil, fmt.Errorf("reading machine secret: %w", err)
	}

	secret, err := hex.DecodeString(string(data))
	if err != nil {
		return nil, fmt.Errorf("malformed machine secret %s: %w", path, err)
	}

	return &Keychain{secret: secret, accounts: repo}, nil
}

// Seal encrypts the credentials into a blob for the accounts table. The
// account name salts the key so blobs are not interchangeable between rows.
// The caller persists the blob, typically in the same transaction that
// creates the account row.
func (k *Keychain) Seal(accountName string, creds api.Credentials) ([]byte, error) {
	plain, err := json.Marshal(creds)
	if err != nil {
		return nil, err
	}
	defer shared.WipeByteArray(plain)

	key := cryptox.DeriveKey(k.secret, []byte(accountName))
	defer shared.WipeByteArray(key)

	return cryptox.Seal(plain, key)
}

// Load returns the credentials for the account, or shared.ErrNotFound when
// none were stored.
func (k *Keychain) Load(ctx context.Context, accountID int64, accountName string) (api.Credentials, error) {
	var creds api.Credentials

	sealed, err := k.accounts.GetCredentials(ctx, accountID)
	if err != nil {
		return creds, err
	}
	if len(sealed) == 0 {
		return creds, shared.ErrNotFound
	}

	key := cryptox.DeriveKey(k.secret, []byte(accountName))
	defer shared.WipeByteArray(key)

	plain, err := cryptox.Open(sealed, key)
	if err != nil {
		return creds, fmt.Errorf("unsealing credentials: %w", err)
	}
	defer shared.WipeByteArray(plain)

	if err := json.Unmarshal(plain, &creds); err != nil {
		return creds, err
	}
	return creds, nil
}
