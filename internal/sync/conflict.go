package sync

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/notesync/internal/models"
)

// resolveConflict handles a precondition failure during push: another client
// changed the note since our last pull. The local edit always wins until it
// is pushed successfully — the note is re-fetched only to obtain the fresh
// ETag (and the server content, kept alongside for display), and the edit is
// resubmitted with that ETag on the next push.
func (t *task) resolveConflict(ctx context.Context, n *models.Note) error {
	fresh, err := t.api.Get(ctx, *n.RemoteID)
	if err != nil {
		return fmt.Errorf("refetching conflicting note %d: %w", n.ID, err)
	}

	if err := t.notes.SetConflict(ctx, n.ID, fresh.ETag, fresh.Content); err != nil {
		return err
	}

	t.log.Info(ctx, "conflict: keeping local edit, adopting fresh server etag",
		"note", n.ID, "etag", fresh.ETag)
	return nil
}
