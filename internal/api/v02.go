package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/shared"
)

// clientV02 speaks the legacy protocol version 0.2: the outbound note shape
// has no separate title (the server derives it from the first content line),
// conditional updates travel as an etag query parameter, and delete echoes
// the removed note in the response body.
type clientV02 struct {
	baseClient
}

// noteV02 is the reduced outbound shape of protocol 0.2.
type noteV02 struct {
	Content  string `json:"content"`
	Category string `json:"category"`
	Favorite bool   `json:"favorite"`
	Modified int64  `json:"modified"`
}

func toNoteV02(note *models.Note) noteV02 {
	return noteV02{
		Content:  note.Content,
		Category: note.Category,
		Favorite: note.Favorite,
		Modified: note.Modified,
	}
}

func (c *clientV02) Create(ctx context.Context, note *models.Note) (*models.ServerNote, error) {
	resp, err := c.transport.Do(ctx, http.MethodPost, c.notesPath(), nil, nil, toNoteV02(note))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeNote(resp, http.StatusOK)
}

func (c *clientV02) Update(ctx context.Context, note *models.Note, remoteID int64, expectedETag string) (*models.ServerNote, error) {

	var query url.Values
	if expectedETag != "" {
		query = url.Values{"etag": {expectedETag}}
	}

	resp, err := c.transport.Do(ctx, http.MethodPut, c.notePath(remoteID), query, nil, toNoteV02(note))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeNote(resp, http.StatusOK)
}

func (c *clientV02) Delete(ctx context.Context, remoteID int64) error {
	resp, err := c.transport.Do(ctx, http.MethodDelete, c.notePath(remoteID), nil, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		// the legacy protocol echoes the deleted note; drain it but do not
		// fail the delete on a body we cannot read
		var echoed models.ServerNote
		if err := json.NewDecoder(resp.Body).Decode(&echoed); err != nil {
			c.log.Debug(ctx, "delete echo could not be decoded", "remote_id", remoteID, "error", err)
		}
		return nil
	case http.StatusNotFound:
		// already gone remotely, nothing left to do
		return nil
	case http.StatusServiceUnavailable:
		return shared.ErrMaintenance
	default:
		return fmt.Errorf("delete note returned %d: %w", resp.StatusCode, shared.ErrUnexpectedStatus)
	}
}
