package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/dmitrijs2005/notesync/internal/logging"
	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/shared"
)

const capabilitiesPath = "/capabilities"

// CapabilitiesClient fetches the per-account capabilities document with a
// conditional GET.
type CapabilitiesClient struct {
	transport *Transport
	log       logging.Logger
}

func NewCapabilitiesClient(transport *Transport, log logging.Logger) *CapabilitiesClient {
	return &CapabilitiesClient{transport: transport, log: log}
}

type capabilitiesResponse struct {
	Capabilities struct {
		Notes struct {
			APIVersion json.RawMessage `json:"api_version"`
		} `json:"notes"`
		Theming struct {
			Color     string `json:"color"`
			ColorText string `json:"color-text"`
		} `json:"theming"`
	} `json:"capabilities"`
}

// Fetch issues a conditional GET using lastETag.
//
// Returns shared.ErrNotModified on 304 (the cached value stays valid) and
// shared.ErrMaintenance on 503 (retryable; the caller must keep its cache).
// On 200 any single malformed subfield is skipped without aborting the parse.
func (c *CapabilitiesClient) Fetch(ctx context.Context, lastETag string) (*models.Capabilities, error) {

	header := http.Header{}
	if lastETag != "" {
		header.Set("If-None-Match", lastETag)
	}

	query := url.Values{"format": {"json"}}
	resp, err := c.transport.Do(ctx, http.MethodGet, capabilitiesPath, query, header, nil)
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
		return nil, fmt.Errorf("capabilities returned %d: %w", resp.StatusCode, shared.ErrUnexpectedStatus)
	}

	var body capabilitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("capabilities: %w: %v", shared.ErrMalformedResponse, err)
	}

	caps := &models.Capabilities{
		ETag:      resp.Header.Get("ETag"),
		Color:     models.DefaultColor,
		TextColor: models.DefaultTextColor,
	}

	if versions, ok := parseVersionsField(body.Capabilities.Notes.APIVersion); ok {
		caps.APIVersions = versions
	} else {
		c.log.Debug(ctx, "capabilities: dropping malformed api_version field")
	}

	if color, ok := normalizeColor(body.Capabilities.Theming.Color); ok {
		caps.Color = color
	}
	if color, ok := normalizeColor(body.Capabilities.Theming.ColorText); ok {
		caps.TextColor = color
	}

	return caps, nil
}

// parseVersionsField accepts only a JSON array of version strings. Anything
// else is dropped silently; feature detection then falls back to the oldest
// dialect rather than failing the whole capabilities refresh.
func parseVersionsField(raw json.RawMessage) ([]string, bool) {
	if len(raw) == 0 {
		return nil, false
	}
	var versions []string
	if err := json.Unmarshal(raw, &versions); err != nil {
		return nil, false
	}
	return versions, true
}

var hexColorPattern = regexp.MustCompile(`^#[0-9a-fA-F]{6}$|^#[0-9a-fA-F]{3}$`)

// normalizeColor validates a hex color, tolerating a missing '#' prefix.
func normalizeColor(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", false
	}
	if !strings.HasPrefix(s, "#") {
		s = "#" + s
	}
	if !hexColorPattern.MatchString(s) {
		return "", false
	}
	return s, true
}
