package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/notesync/internal/models"
)

func (a *App) runNote(ctx context.Context, args []string) error {
	cmd, rest := splitCommand(args)
	switch cmd {
	case "add":
		name, _ := splitCommand(rest)
		if name == "" {
			return errors.New("note add: account name required")
		}
		return a.noteAdd(ctx, name)
	case "list":
		name, _ := splitCommand(rest)
		if name == "" {
			return errors.New("note list: account name required")
		}
		return a.noteList(ctx, name)
	case "edit":
		id, err := noteID(rest)
		if err != nil {
			return err
		}
		return a.noteEdit(ctx, id)
	case "delete":
		id, err := noteID(rest)
		if err != nil {
			return err
		}
		return a.noteDelete(ctx, id)
	default:
		return fmt.Errorf("unknown note command %q", cmd)
	}
}

func noteID(args []string) (int64, error) {
	raw, _ := splitCommand(args)
	if raw == "" {
		return 0, errors.New("note id required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid note id %q", raw)
	}
	return id, nil
}

// titleFromContent derives the note title from the first content line, the
// way the server would, stripping a markdown heading prefix.
func titleFromContent(content string) string {
	line, _, _ := strings.Cut(content, "\n")
	line = strings.TrimSpace(strings.TrimLeft(line, "#"))
	if line == "" {
		return "New note"
	}
	return line
}

func (a *App) noteAdd(ctx context.Context, accountName string) error {
	acc, err := a.store.Accounts.GetByName(ctx, accountName)
	if err != nil {
		return err
	}

	content, err := GetMultiline(a.reader, "Note content", a.out)
	if err != nil {
		return err
	}
	if content == "" {
		return errors.New("note content must not be empty")
	}

	category, err := GetSimpleText(a.reader, "Category (optional)", a.out)
	if err != nil {
		return err
	}

	n := &models.Note{
		AccountID: acc.ID,
		Title:     titleFromContent(content),
		Content:   content,
		Category:  category,
	}
	id, err := a.store.Notes.Create(ctx, n)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Created note %d (synced on next cycle)\n", id)
	return nil
}

func (a *App) noteList(ctx context.Context, accountName string) error {
	acc, err := a.store.Accounts.GetByName(ctx, accountName)
	if err != nil {
		return err
	}

	list, err := a.store.Notes.GetByAccount(ctx, acc.ID)
	if err != nil {
		return err
	}

	shown := 0
	for _, n := range list {
		if n.Status == models.StatusLocalDeleted {
			continue
		}
		marker := " "
		if n.Status == models.StatusLocalEdited {
			marker = "*" // pending local change
		}
		fav := " "
		if n.Favorite {
			fav = "★"
		}
		fmt.Fprintf(a.out, "%d %s%s %-30s %s\n", n.ID, marker, fav, n.Title, n.Excerpt)
		shown++
	}
	if shown == 0 {
		fmt.Fprintln(a.out, "No notes.")
	}
	return nil
}

func (a *App) noteEdit(ctx context.Context, id int64) error {
	n, err := a.store.Notes.GetByID(ctx, id)
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Current content:\n%s\n\n", n.Content)
	content, err := GetMultiline(a.reader, "New content", a.out)
	if err != nil {
		return err
	}
	if content == "" {
		return errors.New("note content must not be empty")
	}

	n.Content = content
	n.Title = titleFromContent(content)
	if err := a.store.Notes.SaveLocalEdit(ctx, n); err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Saved note %d (synced on next cycle)\n", id)
	return nil
}

func (a *App) noteDelete(ctx context.Context, id int64) error {
	if err := a.store.Notes.MarkDeleted(ctx, id); err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Deleted note %d\n", id)
	return nil
}
