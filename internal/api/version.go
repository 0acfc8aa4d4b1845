// Package api talks to the remote notes server: version negotiation, the
// capabilities endpoint and the version-polymorphic notes endpoint.
package api

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
)

// ApiVersion is one protocol version of the remote notes API.
type ApiVersion struct {
	major int
	minor int
}

var (
	// Version02 is the legacy protocol: no separate title field on writes,
	// delete echoes the removed note, conditional updates via query param.
	Version02 = ApiVersion{major: 0, minor: 2}

	// Version10 is the current protocol: full note body on writes, delete
	// returns 204, conditional updates via If-Match.
	Version10 = ApiVersion{major: 1, minor: 0}
)

// SupportedVersions lists the protocol implementations this client ships,
// newest first.
var SupportedVersions = []ApiVersion{Version10, Version02}

func (v ApiVersion) Major() int { return v.major }
func (v ApiVersion) Minor() int { return v.minor }

func (v ApiVersion) String() string {
	return strconv.Itoa(v.major) + "." + strconv.Itoa(v.minor)
}

// Compare orders versions by major, then minor.
func (v ApiVersion) Compare(o ApiVersion) int {
	a := semver.New(uint64(v.major), uint64(v.minor), 0, "", "")
	b := semver.New(uint64(o.major), uint64(o.minor), 0, "", "")
	return a.Compare(b)
}

// Compatible reports whether the two versions share a major version. A server
// may add minor revisions without breaking the dialect, so compatibility is
// decided on the major version alone. Ranking between candidates still uses
// the full major.minor comparison (see Compare).
func (v ApiVersion) Compatible(o ApiVersion) bool {
	return v.major == o.major
}

var numberPattern = regexp.MustCompile(`[0-9]+`)

func extractNumber(s string) int {
	m := numberPattern.FindString(s)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// ParseVersion parses a single version string leniently: the first run of
// digits per dot-separated segment counts, everything else is ignored.
func ParseVersion(s string) ApiVersion {
	var v ApiVersion
	parts := strings.SplitN(s, ".", 2)
	if len(parts) > 0 {
		v.major = extractNumber(parts[0])
	}
	if len(parts) > 1 {
		v.minor = extractNumber(parts[1])
	}
	return v
}

// ParseVersions extracts all valid versions from a raw advertisement, which
// is usually a JSON array of strings (`["0.2","1.1"]`) but may also be a bare
// value. Malformed input yields an empty slice, never an error: a server
// announcing garbage is treated like a server announcing nothing.
func ParseVersions(raw string) []ApiVersion {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}

	var arr []any
	if err := json.Unmarshal([]byte(raw), &arr); err != nil {
		// maybe a bare value without brackets
		if err := json.Unmarshal([]byte("["+raw+"]"), &arr); err != nil {
			arr = []any{raw}
		}
	}

	result := make([]ApiVersion, 0, len(arr))
	for _, item := range arr {
		var s string
		switch x := item.(type) {
		case string:
			s = x
		case float64:
			s = strconv.FormatFloat(x, 'f', -1, 64)
		default:
			continue
		}
		v := ParseVersion(s)
		if v.major == 0 && v.minor == 0 {
			continue
		}
		result = append(result, v)
	}
	return result
}

// Negotiate picks the protocol implementation to use against a server
// advertising raw. Candidates compatible with a supported major version are
// ranked by major, then minor; the winner is mapped onto the shipped
// implementation for its major version, so an advertised 1.1 is served by the
// 1.0 implementation.
//
// The second return value is false when no advertised version overlapped with
// the supported set; the oldest supported version is returned then, because
// attempting the legacy dialect beats refusing to sync. Callers should log a
// warning in that case.
func Negotiate(raw string) (ApiVersion, bool) {
	var best *ApiVersion
	for _, cand := range ParseVersions(raw) {
		if !supportedMajor(cand) {
			continue
		}
		if best == nil || cand.Compare(*best) > 0 {
			c := cand
			best = &c
		}
	}
	if best == nil {
		return oldestSupported(), false
	}
	for _, s := range SupportedVersions {
		if s.Compatible(*best) {
			return s, true
		}
	}
	// unreachable while supportedMajor and SupportedVersions agree
	return oldestSupported(), false
}

func supportedMajor(v ApiVersion) bool {
	for _, s := range SupportedVersions {
		if s.Compatible(v) {
			return true
		}
	}
	return false
}

func oldestSupported() ApiVersion {
	oldest := SupportedVersions[0]
	for _, s := range SupportedVersions[1:] {
		if s.Compare(oldest) < 0 {
			oldest = s
		}
	}
	return oldest
}
