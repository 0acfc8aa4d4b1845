package models

// ServerNote is the wire representation of a note. Version-specific subtypes
// only ever add fields; this struct carries the superset both protocol
// versions understand.
//
// Servers answer list requests with the full set of notes: entries unchanged
// since the pruneBefore watermark come back as pruned stubs carrying only the
// id (Modified == 0). A note deleted on the server is absent from the set
// entirely.
type ServerNote struct {
	RemoteID int64  `json:"id"`
	Title    string `json:"title"`
	Content  string `json:"content"`
	Category string `json:"category"`
	Favorite bool   `json:"favorite"`
	Modified int64  `json:"modified"`
	ETag     string `json:"etag"`
}

// Pruned reports whether the server sent this note as an unchanged stub.
func (n *ServerNote) Pruned() bool {
	return n.Modified == 0
}
