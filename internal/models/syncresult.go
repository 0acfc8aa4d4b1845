package models

// SyncResult aggregates the outcome of one synchronization cycle for one
// account. Partial success (some notes synced, some deferred) is the expected
// steady state, not an error condition: failures are counted and only the
// first one is kept for display.
type SyncResult struct {
	AccountID int64

	PushSuccessful bool
	PullSuccessful bool

	// Per-cycle counters.
	Pushed  int // notes created or updated remotely
	Deleted int // notes removed remotely and locally
	Pulled  int // notes inserted or updated from the server

	Errors     int
	FirstError error
}

// AddError records a per-note or per-phase failure.
func (r *SyncResult) AddError(err error) {
	r.Errors++
	if r.FirstError == nil {
		r.FirstError = err
	}
}

// Successful reports whether both phases ran to completion.
func (r *SyncResult) Successful() bool {
	return r.PushSuccessful && r.PullSuccessful
}
