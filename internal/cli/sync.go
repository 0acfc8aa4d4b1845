package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/shared"
)

func (a *App) runSync(ctx context.Context, args []string) error {
	all := false
	for _, arg := range args {
		if arg == "--all" || arg == "-all" {
			all = true
		}
	}

	a.manager.OnAccepted = func(accountID int64) {
		fmt.Fprintf(a.out, "Sync started for account %d...\n", accountID)
	}

	if all {
		results, err := a.manager.SyncAll(ctx)
		if err != nil {
			return err
		}
		for _, res := range results {
			a.printResult(res)
		}
		return nil
	}

	name, _ := splitCommand(args)
	if name == "" {
		return errors.New("sync: account name or --all required")
	}
	acc, err := a.store.Accounts.GetByName(ctx, name)
	if err != nil {
		return err
	}

	res := <-a.manager.RequestSync(ctx, acc.ID)
	a.printResult(res)
	if !res.Successful() {
		return fmt.Errorf("sync finished with %d error(s): %w", res.Errors, res.FirstError)
	}
	return nil
}

func (a *App) printResult(res models.SyncResult) {
	status := "ok"
	if !res.Successful() {
		status = "incomplete"
	}
	fmt.Fprintf(a.out, "Account %d: %s (pushed %d, pulled %d, deleted %d, errors %d)\n",
		res.AccountID, status, res.Pushed, res.Pulled, res.Deleted, res.Errors)

	if res.Successful() || res.FirstError == nil {
		return
	}
	if shared.Retryable(res.FirstError) {
		fmt.Fprintln(a.out, "  temporary failure, run sync again later")
	} else {
		fmt.Fprintln(a.out, "  needs attention: check the account's credentials and server")
	}
}
