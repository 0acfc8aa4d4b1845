package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/dmitrijs2005/notesync/internal/logging"
	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/shared"
)

// NotesList is the result of one incremental list call.
type NotesList struct {
	Notes []models.ServerNote

	// ETag identifies this snapshot of the list; send it back on the next
	// call to get a cheap 304.
	ETag string

	// LastModified is the server clock of the snapshot in unix seconds, used
	// as the next sync watermark. Zero when the server sent no header, which
	// makes the next pull a full one.
	LastModified int64
}

// NotesAPI is the version-agnostic surface of the remote notes endpoint.
// One implementation per protocol version; the choice is made once per
// account after negotiation, not at every call site.
//
// All operations are idempotent-safe: deleting an already-deleted note is a
// success, and a create that timed out may or may not have happened — the
// caller must not assume it failed.
type NotesAPI interface {
	// ListChanged returns the server's note set, pruned to stubs for notes
	// unchanged since the given watermark. Returns shared.ErrNotModified
	// when the list ETag still matches.
	ListChanged(ctx context.Context, since int64, lastETag string) (*NotesList, error)

	// Get fetches a single note, bypassing any list cache. Used to obtain a
	// fresh ETag and content during conflict resolution.
	Get(ctx context.Context, remoteID int64) (*models.ServerNote, error)

	// Create pushes a new note and returns the server-assigned id and ETag.
	Create(ctx context.Context, note *models.Note) (*models.ServerNote, error)

	// Update pushes changed content guarded by the expected ETag. Returns
	// shared.ErrPreconditionFailed when the server has a newer version and
	// shared.ErrNotFound when the note vanished remotely.
	Update(ctx context.Context, note *models.Note, remoteID int64, expectedETag string) (*models.ServerNote, error)

	// Delete removes a note. Deleting a note that is already gone succeeds.
	Delete(ctx context.Context, remoteID int64) error
}

// NewNotesAPI returns the implementation for the negotiated version.
func NewNotesAPI(t *Transport, version ApiVersion, log logging.Logger) NotesAPI {
	base := baseClient{transport: t, log: log}
	if version.Compatible(Version10) {
		base.basePath = "/api/v1"
		return &clientV1{baseClient: base}
	}
	base.basePath = "/api/v0.2"
	return &clientV02{baseClient: base}
}

// baseClient implements the operations both protocol versions share.
type baseClient struct {
	transport *Transport
	basePath  string
	log       logging.Logger
}

func (c *baseClient) notesPath() string {
	return c.basePath + "/notes"
}

func (c *baseClient) notePath(remoteID int64) string {
	return c.notesPath() + "/" + strconv.FormatInt(remoteID, 10)
}

func (c *baseClient) ListChanged(ctx context.Context, since int64, lastETag string) (*NotesList, error) {

	query := url.Values{"pruneBefore": {strconv.FormatInt(since, 10)}}
	header := http.Header{}
	if lastETag != "" {
		header.Set("If-None-Match", lastETag)
	}

	resp, err := c.transport.Do(ctx, http.MethodGet, c.notesPath(), query, header, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNotModified:
		return nil, shared.ErrNotModified
	case http.StatusServiceUnavailable:
		return nil, shared.ErrMaintenance
	case http.StatusOK:
		// fall through
	default:
		return nil, fmt.Errorf("list notes returned %d: %w", resp.StatusCode, shared.ErrUnexpectedStatus)
	}

	var notes []models.ServerNote
	if err := json.NewDecoder(resp.Body).Decode(&notes); err != nil {
		return nil, fmt.Errorf("list notes: %w: %v", shared.ErrMalformedResponse, err)
	}

	list := &NotesList{Notes: notes, ETag: resp.Header.Get("ETag")}
	if lm := resp.Header.Get("Last-Modified"); lm != "" {
		if ts, err := http.ParseTime(lm); err == nil {
			list.LastModified = ts.Unix()
		}
	}
	return list, nil
}

func (c *baseClient) Get(ctx context.Context, remoteID int64) (*models.ServerNote, error) {
	resp, err := c.transport.Do(ctx, http.MethodGet, c.notePath(remoteID), nil, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeNote(resp, http.StatusOK)
}

// decodeNote maps the common single-note response codes and decodes the body.
func decodeNote(resp *http.Response, want int) (*models.ServerNote, error) {
	switch resp.StatusCode {
	case want:
		// fall through
	case http.StatusNotFound:
		return nil, shared.ErrNotFound
	case http.StatusPreconditionFailed:
		return nil, shared.ErrPreconditionFailed
	case http.StatusServiceUnavailable:
		return nil, shared.ErrMaintenance
	default:
		return nil, fmt.Errorf("note request returned %d: %w", resp.StatusCode, shared.ErrUnexpectedStatus)
	}

	var note models.ServerNote
	if err := json.NewDecoder(resp.Body).Decode(&note); err != nil {
		return nil, fmt.Errorf("note response: %w: %v", shared.ErrMalformedResponse, err)
	}
	if note.RemoteID == 0 {
		return nil, fmt.Errorf("note response carries no id: %w", shared.ErrMalformedResponse)
	}
	if note.ETag == "" {
		note.ETag = resp.Header.Get("ETag")
	}
	return &note, nil
}
