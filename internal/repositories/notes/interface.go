package notes

import (
	"context"

	"github.com/dmitrijs2005/notesync/internal/models"
)

// Repository is the single write path for notes. Both the editing UI and the
// sync engine go through it; every statement is conditional on the note's
// sync status where concurrent edits could otherwise be lost.
type Repository interface {
	// Create inserts a locally created note with status local_edited.
	Create(ctx context.Context, note *models.Note) (int64, error)

	// GetByID returns a note, or shared.ErrNotFound.
	GetByID(ctx context.Context, id int64) (*models.Note, error)

	// GetByAccount lists every note of the account, including rows pending
	// deletion (callers filter for display).
	GetByAccount(ctx context.Context, accountID int64) ([]models.Note, error)

	// GetLocalModified lists notes with status != clean in modification
	// order; this is the push-phase work queue.
	GetLocalModified(ctx context.Context, accountID int64) ([]models.Note, error)

	// SaveLocalEdit applies a user edit: content fields, status
	// local_edited, fresh modification time.
	SaveLocalEdit(ctx context.Context, note *models.Note) error

	// MarkDeleted flags a note as locally deleted. A note that has never
	// been pushed is removed right away.
	MarkDeleted(ctx context.Context, id int64) error

	// DeleteByID removes a row, but only while it still has the expected
	// status, so a user edit racing the sync engine wins.
	DeleteByID(ctx context.Context, id int64, status models.SyncStatus) error

	// UpdateRemoteID stores the server-assigned id after a create.
	UpdateRemoteID(ctx context.Context, id int64, remoteID int64) error

	// ApplyPushResult adopts the server state after a successful push and
	// sets the note clean — unless the user edited the note while the push
	// was in flight (the stored content no longer equals pushedContent), in
	// which case nothing happens and false is returned.
	ApplyPushResult(ctx context.Context, id int64, pushedContent string, remote *models.ServerNote) (bool, error)

	// SetConflict records the outcome of conflict resolution: the fresh
	// server ETag and the server-side content, while the local edit stays
	// dirty and untouched.
	SetConflict(ctx context.Context, id int64, etag string, remoteContent string) error

	// InsertPulled inserts a note first seen on the server, already clean.
	InsertPulled(ctx context.Context, accountID int64, remote *models.ServerNote) (int64, error)

	// ApplyPulledState overwrites a note with the remote snapshot, but only
	// while the note is clean; a dirty note is left alone and false is
	// returned.
	ApplyPulledState(ctx context.Context, id int64, remote *models.ServerNote) (bool, error)
}
