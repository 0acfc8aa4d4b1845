package sync

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/notesync/internal/api"
	"github.com/dmitrijs2005/notesync/internal/logging"
	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/repositories/accounts"
	"github.com/dmitrijs2005/notesync/internal/repositories/notes"
	"github.com/dmitrijs2005/notesync/internal/shared"
)

// task carries the state of one synchronization cycle for one account.
type task struct {
	account  *models.Account
	clients  *Clients
	accounts accounts.Repository
	notes    notes.Repository
	log      logging.Logger

	api api.NotesAPI
}

// run refreshes capabilities, pushes local changes, then pulls remote ones.
// The new watermark and list ETag are persisted only when both phases ran to
// completion, so a failed cycle repeats its work instead of skipping it.
func (t *task) run(ctx context.Context, result *models.SyncResult) {
	if err := t.refreshCapabilities(ctx); err != nil {
		result.AddError(err)
		if errors.Is(err, shared.ErrUnauthorized) {
			t.log.Error(ctx, "account needs re-authentication")
			return
		}
	}

	version, ok := api.Negotiate(t.account.APIVersion)
	if !ok {
		t.log.Warn(ctx, "no mutually supported api version, falling back",
			"advertised", t.account.APIVersion, "using", version.String())
	}
	t.api = t.clients.NotesAPI(version)
	t.log.Debug(ctx, "starting cycle", "api_version", version.String())

	result.PushSuccessful = t.push(ctx, result)
	if !result.PushSuccessful && errors.Is(result.FirstError, shared.ErrUnauthorized) {
		// pulling would fail the same way and could clobber nothing useful
		return
	}

	list, ok := t.pull(ctx, result)
	result.PullSuccessful = ok

	if result.Successful() && list != nil {
		watermark := t.account.Modified
		if list.LastModified > 0 {
			watermark = list.LastModified
		}
		if err := t.accounts.UpdateSyncState(ctx, t.account.ID, watermark, list.ETag); err != nil {
			result.AddError(err)
			result.PullSuccessful = false
		}
	}

	t.log.Info(ctx, "cycle finished",
		"pushed", result.Pushed, "pulled", result.Pulled, "deleted", result.Deleted,
		"errors", result.Errors)
}

// refreshCapabilities performs the conditional capabilities fetch. A 304
// keeps the cached value; maintenance mode or a malformed document skips the
// refresh for this cycle without failing it.
func (t *task) refreshCapabilities(ctx context.Context) error {
	caps, err := t.clients.Capabilities.Fetch(ctx, t.account.CapabilitiesETag)
	switch {
	case err == nil:
		if err := t.accounts.UpdateCapabilities(ctx, t.account.ID, caps); err != nil {
			return err
		}
		t.account.CapabilitiesETag = caps.ETag
		t.account.APIVersion = rawVersions(caps.APIVersions)
		t.account.Color = caps.Color
		t.account.TextColor = caps.TextColor
		return nil
	case errors.Is(err, shared.ErrNotModified):
		return nil
	case errors.Is(err, shared.ErrUnauthorized):
		return err
	case errors.Is(err, shared.ErrMaintenance):
		t.log.Warn(ctx, "server in maintenance mode, keeping cached capabilities")
		return nil
	default:
		t.log.Warn(ctx, "capabilities refresh failed, keeping cached value", "error", err)
		return nil
	}
}

// push uploads every dirty note in modification order. A single note's
// failure never aborts the batch; only an authentication failure does.
func (t *task) push(ctx context.Context, result *models.SyncResult) bool {
	dirty, err := t.notes.GetLocalModified(ctx, t.account.ID)
	if err != nil {
		result.AddError(err)
		return false
	}

	ok := true
	for i := range dirty {
		n := &dirty[i]
		if err := t.pushNote(ctx, n, result); err != nil {
			result.AddError(err)
			ok = false
			if errors.Is(err, shared.ErrUnauthorized) {
				return false
			}
			if shared.Retryable(err) {
				t.log.Warn(ctx, "pushing note failed, leaving it dirty for the next cycle",
					"note", n.ID, "error", err)
			} else {
				t.log.Warn(ctx, "pushing note failed on a bad response, skipping it this cycle",
					"note", n.ID, "error", err)
			}
		}
	}
	return ok
}

func (t *task) pushNote(ctx context.Context, n *models.Note, result *models.SyncResult) error {
	switch n.Status {
	case models.StatusLocalDeleted:
		return t.pushDelete(ctx, n, result)
	case models.StatusLocalEdited:
		if n.RemoteID == nil {
			return t.pushCreate(ctx, n, result)
		}
		return t.pushUpdate(ctx, n, result)
	default:
		return fmt.Errorf("note %d has unexpected status %q in push queue", n.ID, n.Status)
	}
}

func (t *task) pushDelete(ctx context.Context, n *models.Note, result *models.SyncResult) error {
	if n.RemoteID != nil {
		// deleting a note that is already gone remotely succeeds
		if err := t.api.Delete(ctx, *n.RemoteID); err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
	}
	if err := t.notes.DeleteByID(ctx, n.ID, models.StatusLocalDeleted); err != nil {
		return err
	}
	result.Deleted++
	return nil
}

func (t *task) pushCreate(ctx context.Context, n *models.Note, result *models.SyncResult) error {
	remote, err := t.api.Create(ctx, n)
	if err != nil {
		return err
	}
	if err := t.notes.UpdateRemoteID(ctx, n.ID, remote.RemoteID); err != nil {
		return err
	}
	applied, err := t.notes.ApplyPushResult(ctx, n.ID, n.Content, remote)
	if err != nil {
		return err
	}
	if !applied {
		t.log.Debug(ctx, "note edited during push, staying dirty", "note", n.ID)
	}
	result.Pushed++
	return nil
}

func (t *task) pushUpdate(ctx context.Context, n *models.Note, result *models.SyncResult) error {
	remote, err := t.api.Update(ctx, n, *n.RemoteID, n.ETag)
	switch {
	case errors.Is(err, shared.ErrPreconditionFailed):
		return t.resolveConflict(ctx, n)
	case errors.Is(err, shared.ErrNotFound):
		// deleted remotely while edited locally: the local edit wins,
		// the note is recreated under a fresh remote id
		t.log.Debug(ctx, "note vanished remotely, recreating", "note", n.ID)
		return t.pushCreate(ctx, n, result)
	case err != nil:
		return err
	}

	applied, err := t.notes.ApplyPushResult(ctx, n.ID, n.Content, remote)
	if err != nil {
		return err
	}
	if !applied {
		t.log.Debug(ctx, "note edited during push, staying dirty", "note", n.ID)
	}
	result.Pushed++
	return nil
}

// pull reconciles the server's note set into the local store. Returns the
// list response (nil on 304) and whether the phase completed.
func (t *task) pull(ctx context.Context, result *models.SyncResult) (*api.NotesList, bool) {
	list, err := t.api.ListChanged(ctx, t.account.Modified, t.account.NotesETag)
	if errors.Is(err, shared.ErrNotModified) {
		t.log.Debug(ctx, "note list unchanged")
		return nil, true
	}
	if err != nil {
		result.AddError(err)
		return nil, false
	}

	local, err := t.notes.GetByAccount(ctx, t.account.ID)
	if err != nil {
		result.AddError(err)
		return nil, false
	}
	byRemote := make(map[int64]*models.Note, len(local))
	for i := range local {
		if local[i].RemoteID != nil {
			byRemote[*local[i].RemoteID] = &local[i]
		}
	}

	ok := true
	seen := make(map[int64]bool, len(list.Notes))
	for i := range list.Notes {
		sn := &list.Notes[i]
		if sn.RemoteID == 0 {
			// A list entry without an id cannot be stored as a clean row.
			t.log.Warn(ctx, "skipping list entry without an id", "title", sn.Title)
			continue
		}
		seen[sn.RemoteID] = true
		if sn.Pruned() {
			continue
		}

		ln, exists := byRemote[sn.RemoteID]
		if !exists {
			if _, err := t.notes.InsertPulled(ctx, t.account.ID, sn); err != nil {
				result.AddError(err)
				ok = false
				continue
			}
			result.Pulled++
			continue
		}

		if ln.Status != models.StatusClean {
			// a pending local change is never overwritten by a pull
			t.log.Debug(ctx, "skipping remote snapshot for dirty note", "note", ln.ID)
			continue
		}
		applied, err := t.notes.ApplyPulledState(ctx, ln.ID, sn)
		if err != nil {
			result.AddError(err)
			ok = false
			continue
		}
		if applied {
			result.Pulled++
		}
	}

	// a clean note missing from the snapshot and older than the watermark
	// was deleted by another client
	for i := range local {
		ln := &local[i]
		if ln.RemoteID == nil || seen[*ln.RemoteID] {
			continue
		}
		if ln.Status != models.StatusClean || ln.Modified >= t.account.Modified {
			continue
		}
		if err := t.notes.DeleteByID(ctx, ln.ID, models.StatusClean); err != nil {
			result.AddError(err)
			ok = false
			continue
		}
		result.Deleted++
	}

	return list, ok
}
