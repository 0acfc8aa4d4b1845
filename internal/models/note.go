package models

import (
	"strings"
	"unicode"
)

// SyncStatus distinguishes local change types for server synchronization.
// It is deliberately one enum rather than independent booleans so that the
// push phase can switch over it exhaustively.
type SyncStatus string

const (
	// StatusClean means the note matches the last known server state.
	// A clean note always has a remote id and an ETag.
	StatusClean SyncStatus = "clean"

	// StatusLocalEdited means the note was created or changed locally since
	// the last successful synchronization. If it was created locally and has
	// never been pushed, RemoteID is nil.
	StatusLocalEdited SyncStatus = "local_edited"

	// StatusLocalDeleted means the note was deleted locally but the deletion
	// has not been confirmed remotely yet. The row keeps its remote id until
	// the server delete succeeds, then it is removed entirely.
	StatusLocalDeleted SyncStatus = "local_deleted"
)

// Note is one locally stored note.
type Note struct {
	ID        int64
	RemoteID  *int64 // nil until the first successful create on the server
	AccountID int64
	Title     string
	Content   string
	Category  string
	Favorite  bool
	Modified  int64 // unix seconds
	ETag      string
	Status    SyncStatus

	// RemoteContent holds the server-side content captured when a push hit a
	// version conflict. The local edit stays untouched; the UI may offer the
	// server version from here. Cleared once the note is pushed successfully.
	RemoteContent string

	// UI-only fields, ignored by synchronization.
	Excerpt string
	ScrollY int
}

const excerptMaxLength = 80

// GenerateExcerpt builds the list-view preview for a note: the first line of
// content that differs from the title, trimmed and capped.
func GenerateExcerpt(content, title string) string {
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimLeftFunc(line, func(r rune) bool {
			return unicode.IsSpace(r) || r == '#' || r == '*' || r == '-' || r == '>'
		})
		line = strings.TrimSpace(line)
		if line == "" || line == strings.TrimSpace(title) {
			continue
		}
		if len(line) > excerptMaxLength {
			return line[:excerptMaxLength]
		}
		return line
	}
	return ""
}
