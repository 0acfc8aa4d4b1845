package cli

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/notesync/internal/api"
	"github.com/dmitrijs2005/notesync/internal/dbx"
	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/repositories/accounts"
	"github.com/dmitrijs2005/notesync/internal/shared"
)

func (a *App) runAccount(ctx context.Context, args []string) error {
	cmd, rest := splitCommand(args)
	switch cmd {
	case "add":
		return a.accountAdd(ctx)
	case "list":
		return a.accountList(ctx)
	case "remove":
		name, _ := splitCommand(rest)
		if name == "" {
			return errors.New("account remove: account name required")
		}
		return a.accountRemove(ctx, name)
	default:
		return fmt.Errorf("unknown account command %q", cmd)
	}
}

func (a *App) accountAdd(ctx context.Context) error {
	rawURL, err := GetSimpleText(a.reader, "Server URL", a.out)
	if err != nil {
		return err
	}
	parsed, err := url.Parse(rawURL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid server url %q", rawURL)
	}

	userName, err := GetSimpleText(a.reader, "User name", a.out)
	if err != nil {
		return err
	}
	if userName == "" {
		return errors.New("user name must not be empty")
	}

	password, err := GetPassword(a.out)
	if err != nil {
		return err
	}
	defer shared.WipeByteArray(password)

	name, err := a.uniqueAccountName(ctx, userName+"@"+parsed.Host)
	if err != nil {
		return err
	}

	sealed, err := a.keychain.Seal(name, api.Credentials{UserName: userName, AppPassword: string(password)})
	if err != nil {
		return err
	}

	acc := &models.Account{
		URL:         rawURL,
		UserName:    userName,
		AccountName: name,
		Color:       models.DefaultColor,
		TextColor:   models.DefaultTextColor,
	}

	// the account row and its credentials land together or not at all
	err = dbx.WithTx(ctx, a.store.DB, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := accounts.NewSQLiteRepository(tx)
		id, err := repo.Create(ctx, acc)
		if err != nil {
			return err
		}
		return repo.SetCredentials(ctx, id, sealed)
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Added account %s\n", name)
	return nil
}

// uniqueAccountName appends a random suffix when several accounts share the
// same user and host.
func (a *App) uniqueAccountName(ctx context.Context, base string) (string, error) {
	_, err := a.store.Accounts.GetByName(ctx, base)
	if errors.Is(err, shared.ErrAccountNotFound) {
		return base, nil
	}
	if err != nil {
		return "", err
	}
	return base + "-" + uuid.NewString()[:8], nil
}

func (a *App) accountList(ctx context.Context) error {
	accs, err := a.store.Accounts.GetAll(ctx)
	if err != nil {
		return err
	}
	if len(accs) == 0 {
		fmt.Fprintln(a.out, "No accounts configured.")
		return nil
	}
	for _, acc := range accs {
		fmt.Fprintf(a.out, "%d  %s  %s\n", acc.ID, acc.AccountName, acc.URL)
	}
	return nil
}

func (a *App) accountRemove(ctx context.Context, name string) error {
	acc, err := a.store.Accounts.GetByName(ctx, name)
	if err != nil {
		return err
	}
	if err := a.store.Accounts.Delete(ctx, acc.ID); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Removed account %s and its local notes\n", name)
	return nil
}
