// Package sync drives the push-then-pull synchronization cycle. The Manager
// serializes cycles per account, coalesces concurrent requests for the same
// account into one in-flight cycle plus one chained follow-up, and runs
// different accounts concurrently on a bounded pool.
package sync

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/notesync/internal/api"
	"github.com/dmitrijs2005/notesync/internal/config"
	"github.com/dmitrijs2005/notesync/internal/logging"
	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/storage"
)

// CapabilitiesFetcher is the part of the capabilities client the cycle needs.
type CapabilitiesFetcher interface {
	Fetch(ctx context.Context, lastETag string) (*models.Capabilities, error)
}

// Clients is the per-account set of server clients for one cycle. The notes
// client is a factory because the protocol version is only known after the
// capabilities refresh.
type Clients struct {
	Capabilities CapabilitiesFetcher
	NotesAPI     func(version api.ApiVersion) api.NotesAPI
}

// Dialer builds the server clients for an account.
type Dialer func(ctx context.Context, acc *models.Account) (*Clients, error)

type accountState struct {
	running bool
	queued  bool
	waiters []chan models.SyncResult
}

// Manager is the entry point callers use to request synchronization.
type Manager struct {
	store *storage.Storage
	cfg   *config.Config
	log   logging.Logger
	dial  Dialer

	// OnAccepted, when set, fires synchronously inside RequestSync before
	// any network activity, so a UI can show progress immediately.
	OnAccepted func(accountID int64)

	mu    sync.Mutex
	state map[int64]*accountState
}

func NewManager(store *storage.Storage, keychain *storage.Keychain, cfg *config.Config, log logging.Logger) *Manager {
	m := &Manager{
		store: store,
		cfg:   cfg,
		log:   log,
		state: make(map[int64]*accountState),
	}
	m.dial = func(ctx context.Context, acc *models.Account) (*Clients, error) {
		creds, err := keychain.Load(ctx, acc.ID, acc.AccountName)
		if err != nil {
			return nil, err
		}
		transport, err := api.NewTransport(acc.URL, creds, cfg.RequestTimeout)
		if err != nil {
			return nil, err
		}
		return &Clients{
			Capabilities: api.NewCapabilitiesClient(transport, log),
			NotesAPI: func(version api.ApiVersion) api.NotesAPI {
				return api.NewNotesAPI(transport, version, log)
			},
		}, nil
	}
	return m
}

// RequestSync asynchronously starts (or joins) a cycle for the account and
// returns a channel that delivers exactly one SyncResult.
//
// If a cycle for the account is already running, the caller joins its waiter
// set and receives that cycle's result; additionally exactly one follow-up
// cycle is scheduled after the in-flight one, so edits made meanwhile are not
// skipped. Multiple requests during one cycle still schedule only a single
// follow-up.
func (m *Manager) RequestSync(ctx context.Context, accountID int64) <-chan models.SyncResult {
	ch := make(chan models.SyncResult, 1)

	m.mu.Lock()
	st := m.state[accountID]
	if st == nil {
		st = &accountState{}
		m.state[accountID] = st
	}
	st.waiters = append(st.waiters, ch)

	start := !st.running
	if st.running {
		st.queued = true
	} else {
		st.running = true
	}
	m.mu.Unlock()

	if m.OnAccepted != nil {
		m.OnAccepted(accountID)
	}

	if start {
		go m.run(ctx, accountID)
	}
	return ch
}

// run executes cycles for one account until no follow-up is queued. Waiters
// registered during a cycle are notified with that cycle's result.
func (m *Manager) run(ctx context.Context, accountID int64) {
	for {
		res := m.runCycle(ctx, accountID)

		m.mu.Lock()
		st := m.state[accountID]
		waiters := st.waiters
		st.waiters = nil
		again := st.queued
		st.queued = false
		if !again {
			st.running = false
		}
		m.mu.Unlock()

		for _, w := range waiters {
			w <- res
		}
		if !again {
			return
		}
	}
}

// SyncAll runs a cycle for every configured account, at most
// cfg.MaxParallelSyncs at a time, and returns the per-account results.
func (m *Manager) SyncAll(ctx context.Context) ([]models.SyncResult, error) {
	accs, err := m.store.Accounts.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]models.SyncResult, len(accs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(m.cfg.MaxParallelSyncs)
	for i, acc := range accs {
		g.Go(func() error {
			select {
			case results[i] = <-m.RequestSync(ctx, acc.ID):
			case <-ctx.Done():
				return ctx.Err()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// runCycle performs one full push-then-pull cycle.
func (m *Manager) runCycle(ctx context.Context, accountID int64) models.SyncResult {
	result := models.SyncResult{AccountID: accountID}

	log := m.log.With("account", accountID, "cycle", uuid.NewString())

	acc, err := m.store.Accounts.GetByID(ctx, accountID)
	if err != nil {
		log.Error(ctx, "loading account", "error", err)
		result.AddError(err)
		return result
	}

	clients, err := m.dial(ctx, acc)
	if err != nil {
		log.Error(ctx, "building server clients", "error", err)
		result.AddError(err)
		return result
	}

	t := &task{
		account:  acc,
		clients:  clients,
		accounts: m.store.Accounts,
		notes:    m.store.Notes,
		log:      log,
	}
	t.run(ctx, &result)
	return result
}

// rawVersions renders a version list the way it is persisted on the account.
func rawVersions(versions []string) string {
	if len(versions) == 0 {
		return ""
	}
	raw, err := json.Marshal(versions)
	if err != nil {
		return ""
	}
	return string(raw)
}
