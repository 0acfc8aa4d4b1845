// Package models defines the shared data types of the synchronization
// engine: accounts, notes, wire DTOs and sync results.
package models

// Account is one server account. Several accounts may point at the same
// server; AccountName is globally unique.
type Account struct {
	ID          int64
	URL         string
	UserName    string
	AccountName string

	// CapabilitiesETag is the ETag of the last successfully fetched
	// capabilities document, used for conditional GETs.
	CapabilitiesETag string

	// NotesETag is the ETag of the last notes list response.
	NotesETag string

	// Modified is the sync watermark in unix seconds: the server only needs
	// to return notes changed at or after this point.
	Modified int64

	// APIVersion is the raw version list the server advertised last, e.g.
	// `["0.2","1.1"]`. Persisted so version negotiation works offline; the
	// negotiated version itself is derived, never stored.
	APIVersion string

	// Brand colors from the capabilities document, hex with leading '#'.
	Color     string
	TextColor string
}

// Default brand colors, used until the first capabilities fetch succeeds.
const (
	DefaultColor     = "#0082C9"
	DefaultTextColor = "#FFFFFF"
)

// Capabilities is the per-account server metadata returned by the
// capabilities endpoint.
type Capabilities struct {
	APIVersions []string
	Color       string
	TextColor   string
	ETag        string
}
