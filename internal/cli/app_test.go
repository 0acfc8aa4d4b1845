package cli

import (
	"bufio"
	"bytes"
	"context"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notesync/internal/config"
	"github.com/dmitrijs2005/notesync/internal/logging"
	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/shared"
	"github.com/dmitrijs2005/notesync/internal/storage"
	syncpkg "github.com/dmitrijs2005/notesync/internal/sync"
)

// newTestApp builds an App against a throwaway database with scripted stdin.
func newTestApp(t *testing.T, input string) (*App, *bytes.Buffer) {
	t.Helper()
	ctx := context.Background()

	dir := t.TempDir()
	store, err := storage.InitDatabase(ctx, filepath.Join(dir, "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	keychain, err := storage.NewKeychain(dir, store.Accounts)
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.DataDir = dir

	var out bytes.Buffer
	app := &App{
		config:   cfg,
		store:    store,
		keychain: keychain,
		manager:  syncpkg.NewManager(store, keychain, cfg, logging.Nop()),
		log:      logging.Nop(),
		reader:   bufio.NewReader(strings.NewReader(input)),
		out:      &out,
	}
	return app, &out
}

func TestRun_UnknownCommand(t *testing.T) {
	app, _ := newTestApp(t, "")
	err := app.Run(context.Background(), []string{"frobnicate"})
	assert.Error(t, err)
}

func TestRun_NoCommandPrintsUsage(t *testing.T) {
	app, out := newTestApp(t, "")
	require.NoError(t, app.Run(context.Background(), nil))
	assert.Contains(t, out.String(), "Usage:")
}

func TestAccountAddAndList(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(fd int) ([]byte, error) { return []byte("app-pass"), nil }

	ctx := context.Background()
	app, out := newTestApp(t, "https://cloud.example.com\nalice\n")

	require.NoError(t, app.Run(ctx, []string{"account", "add"}))
	assert.Contains(t, out.String(), "alice@cloud.example.com")

	acc, err := app.store.Accounts.GetByName(ctx, "alice@cloud.example.com")
	require.NoError(t, err)

	creds, err := app.keychain.Load(ctx, acc.ID, acc.AccountName)
	require.NoError(t, err)
	assert.Equal(t, "app-pass", creds.AppPassword)

	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"account", "list"}))
	assert.Contains(t, out.String(), "alice@cloud.example.com")
}

func TestAccountAdd_DuplicateGetsUniqueName(t *testing.T) {
	orig := readPassword
	t.Cleanup(func() { readPassword = orig })
	readPassword = func(fd int) ([]byte, error) { return []byte("pw"), nil }

	ctx := context.Background()
	input := strings.Repeat("https://cloud.example.com\nalice\n", 2)
	app, _ := newTestApp(t, input)

	require.NoError(t, app.Run(ctx, []string{"account", "add"}))
	require.NoError(t, app.Run(ctx, []string{"account", "add"}))

	accs, err := app.store.Accounts.GetAll(ctx)
	require.NoError(t, err)
	require.Len(t, accs, 2)
	assert.NotEqual(t, accs[0].AccountName, accs[1].AccountName)
}

func TestNoteAddEditDelete(t *testing.T) {
	ctx := context.Background()

	input := "# Shopping\nmilk\n\nhome\n" + // note add: content, blank, category
		"# Shopping\neggs\n\n" // note edit: new content
	app, out := newTestApp(t, input)

	accID, err := app.store.Accounts.Create(ctx, &models.Account{
		URL: "https://c.example.com", UserName: "a", AccountName: "a@c.example.com",
	})
	require.NoError(t, err)

	require.NoError(t, app.Run(ctx, []string{"note", "add", "a@c.example.com"}))

	list, err := app.store.Notes.GetByAccount(ctx, accID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Shopping", list[0].Title)
	assert.Equal(t, "# Shopping\nmilk", list[0].Content)
	assert.Equal(t, "home", list[0].Category)

	id := list[0].ID
	idArg := []string{"note", "edit", itoa(id)}
	require.NoError(t, app.Run(ctx, idArg))

	got, err := app.store.Notes.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "# Shopping\neggs", got.Content)

	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"note", "list", "a@c.example.com"}))
	assert.Contains(t, out.String(), "Shopping")

	require.NoError(t, app.Run(ctx, []string{"note", "delete", itoa(id)}))

	out.Reset()
	require.NoError(t, app.Run(ctx, []string{"note", "list", "a@c.example.com"}))
	assert.Contains(t, out.String(), "No notes.")
}

func TestTitleFromContent(t *testing.T) {
	tests := []struct {
		content string
		want    string
	}{
		{content: "# Heading\nbody", want: "Heading"},
		{content: "plain first line\nmore", want: "plain first line"},
		{content: "", want: "New note"},
		{content: "###   \nbody", want: "New note"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, titleFromContent(tt.content), "content %q", tt.content)
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}

func TestSync_WithoutCredentialsNeedsAttention(t *testing.T) {
	ctx := context.Background()
	app, out := newTestApp(t, "")

	// account row exists but no credentials were ever stored
	_, err := app.store.Accounts.Create(ctx, &models.Account{
		URL: "https://c.example.com", UserName: "a", AccountName: "a@c.example.com",
	})
	require.NoError(t, err)

	err = app.Run(ctx, []string{"sync", "a@c.example.com"})
	require.Error(t, err)
	assert.Contains(t, out.String(), "incomplete")
	assert.Contains(t, out.String(), "needs attention")
}

func TestPrintResult_RetryHint(t *testing.T) {
	app, out := newTestApp(t, "")

	app.printResult(models.SyncResult{AccountID: 1, Errors: 1, FirstError: shared.ErrMaintenance})
	assert.Contains(t, out.String(), "run sync again later")

	out.Reset()
	app.printResult(models.SyncResult{AccountID: 1, Errors: 1, FirstError: shared.ErrUnauthorized})
	assert.Contains(t, out.String(), "needs attention")

	out.Reset()
	app.printResult(models.SyncResult{AccountID: 1, PushSuccessful: true, PullSuccessful: true})
	assert.NotContains(t, out.String(), "needs attention")
}
