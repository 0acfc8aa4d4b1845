package api

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/shared"
)

// clientV1 speaks protocol version 1.0: full note body on writes, If-Match
// header for conditional updates, 204 without a body on delete.
type clientV1 struct {
	baseClient
}

// noteV1 is the outbound shape of protocol 1.0.
type noteV1 struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Favorite bool   `json:"favorite"`
	Modified int64  `json:"modified"`
}

func toNoteV1(note *models.Note) noteV1 {
	return noteV1{
		Title:    note.Title,
		Content:  note.Content,
		Category: note.Category,
		Favorite: note.Favorite,
		Modified: note.Modified,
	}
}

func (c *clientV1) Create(ctx context.Context, note *models.Note) (*models.ServerNote, error) {
	resp, err := c.transport.Do(ctx, http.MethodPost, c.notesPath(), nil, nil, toNoteV1(note))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeNote(resp, http.StatusOK)
}

func (c *clientV1) Update(ctx context.Context, note *models.Note, remoteID int64, expectedETag string) (*models.ServerNote, error) {

	header := http.Header{}
	if expectedETag != "" {
		header.Set("If-Match", `"`+expectedETag+`"`)
	}

	resp, err := c.transport.Do(ctx, http.MethodPut, c.notePath(remoteID), nil, header, toNoteV1(note))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	return decodeNote(resp, http.StatusOK)
}

func (c *clientV1) Delete(ctx context.Context, remoteID int64) error {
	resp, err := c.transport.Do(ctx, http.MethodDelete, c.notePath(remoteID), nil, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusNoContent, http.StatusOK:
		_, _ = io.Copy(io.Discard, resp.Body)
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
