package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notesync/internal/api"
	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/shared"
)

func TestKeychain_RoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := InitDatabase(ctx, filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	defer s.Close()

	kc, err := NewKeychain(dir, s.Accounts)
	require.NoError(t, err)

	accID, err := s.Accounts.Create(ctx, &models.Account{
		URL:         "https://cloud.example.com",
		UserName:    "alice",
		AccountName: "alice@cloud.example.com",
	})
	require.NoError(t, err)

	creds := api.Credentials{UserName: "alice", AppPassword: "s3cret-app-pass"}
	blob, err := kc.Seal("alice@cloud.example.com", creds)
	require.NoError(t, err)
	require.NoError(t, s.Accounts.SetCredentials(ctx, accID, blob))

	// nothing readable at rest
	sealed, err := s.Accounts.GetCredentials(ctx, accID)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "s3cret-app-pass")

	got, err := kc.Load(ctx, accID, "alice@cloud.example.com")
	require.NoError(t, err)
	assert.Equal(t, creds, got)
}

func TestKeychain_LoadWithoutStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := InitDatabase(ctx, filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	defer s.Close()

	kc, err := NewKeychain(dir, s.Accounts)
	require.NoError(t, err)

	accID, err := s.Accounts.Create(ctx, &models.Account{
		URL:         "https://cloud.example.com",
		UserName:    "alice",
		AccountName: "alice@cloud.example.com",
	})
	require.NoError(t, err)

	_, err = kc.Load(ctx, accID, "alice@cloud.example.com")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestNewKeychain_CreatesAndReusesSecret(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	s, err := InitDatabase(ctx, filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	defer s.Close()

	accID, err := s.Accounts.Create(ctx, &models.Account{
		URL:         "https://cloud.example.com",
		UserName:    "alice",
		AccountName: "alice@cloud.example.com",
	})
	require.NoError(t, err)

	kc1, err := NewKeychain(dir, s.Accounts)
	require.NoError(t, err)

	_, err = os.Stat(filepath.Join(dir, machineSecretFile))
	require.NoError(t, err)

	blob, err := kc1.Seal("alice@cloud.example.com", api.Credentials{AppPassword: "pw"})
	require.NoError(t, err)
	require.NoError(t, s.Accounts.SetCredentials(ctx, accID, blob))

	// a fresh keychain from the same dir must open the existing blob
	kc2, err := NewKeychain(dir, s.Accounts)
	require.NoError(t, err)

	got, err := kc2.Load(ctx, accID, "alice@cloud.example.com")
	require.NoError(t, err)
	assert.Equal(t, "pw", got.AppPassword)
}
