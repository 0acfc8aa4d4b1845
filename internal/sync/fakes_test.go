package sync

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notesync/internal/api"
	"github.com/dmitrijs2005/notesync/internal/config"
	"github.com/dmitrijs2005/notesync/internal/logging"
	"github.com/dmitrijs2005/notesync/internal/models"
	"github.com/dmitrijs2005/notesync/internal/shared"
	"github.com/dmitrijs2005/notesync/internal/storage"
)

// fakeCaps serves a fixed capabilities document and counts fetches, which
// doubles as a per-cycle counter since every cycle fetches exactly once.
type fakeCaps struct {
	mu         sync.Mutex
	fetchCalls int
	err        error
	gate       chan struct{} // when set, Fetch blocks until it is closed
}

func (f *fakeCaps) Fetch(ctx context.Context, lastETag string) (*models.Capabilities, error) {
	f.mu.Lock()
	f.fetchCalls++
	gate := f.gate
	err := f.err
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	if err != nil {
		return nil, err
	}
	return &models.Capabilities{
		APIVersions: []string{"1.0"},
		Color:       models.DefaultColor,
		TextColor:   models.DefaultTextColor,
		ETag:        "caps-1",
	}, nil
}

func (f *fakeCaps) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

// fakeServer is an in-memory stand-in for the remote notes endpoint shared
// by every account in a test. It implements api.NotesAPI.
type fakeServer struct {
	mu      sync.Mutex
	notes   map[int64]models.ServerNote
	nextID  int64
	nextTag int
	listTag int
	clock   int64
	upderr  error // returned once by Update, then cleared
}

func newFakeServer() *fakeServer {
	return &fakeServer{notes: make(map[int64]models.ServerNote), nextID: 100, clock: 1000}
}

func (s *fakeServer) etag() string {
	s.nextTag++
	return fmt.Sprintf("e%d", s.nextTag)
}

func (s *fakeServer) tick() int64 {
	s.clock++
	return s.clock
}

// put stores a note server-side as if another client changed it.
func (s *fakeServer) put(n models.ServerNote) models.ServerNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.RemoteID == 0 {
		s.nextID++
		n.RemoteID = s.nextID
	}
	if n.ETag == "" {
		n.ETag = s.etag()
	}
	if n.Modified == 0 {
		n.Modified = s.tick()
	}
	s.notes[n.RemoteID] = n
	s.listTag++
	return n
}

func (s *fakeServer) remove(remoteID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.notes, remoteID)
	s.listTag++
}

func (s *fakeServer) get(remoteID int64) (models.ServerNote, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[remoteID]
	return n, ok
}

func (s *fakeServer) ListChanged(ctx context.Context, since int64, lastETag string) (*api.NotesList, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current := fmt.Sprintf("list-%d", s.listTag)
	if lastETag != "" && lastETag == current {
		return nil, shared.ErrNotModified
	}

	list := &api.NotesList{ETag: current, LastModified: s.clock + 1}
	for _, n := range s.notes {
		if n.Modified < since {
			// unchanged: pruned to an id-only stub
			list.Notes = append(list.Notes, models.ServerNote{RemoteID: n.RemoteID})
			continue
		}
		list.Notes = append(list.Notes, n)
	}
	return list, nil
}

func (s *fakeServer) Get(ctx context.Context, remoteID int64) (*models.ServerNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.notes[remoteID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &n, nil
}

func (s *fakeServer) Create(ctx context.Context, note *models.Note) (*models.ServerNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	n := models.ServerNote{
		RemoteID: s.nextID,
		Title:    note.Title,
		Content:  note.Content,
		Category: note.Category,
		Favorite: note.Favorite,
		Modified: s.tick(),
		ETag:     s.etag(),
	}
	s.notes[n.RemoteID] = n
	s.listTag++
	return &n, nil
}

func (s *fakeServer) Update(ctx context.Context, note *models.Note, remoteID int64, expectedETag string) (*models.ServerNote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.upderr != nil {
		err := s.upderr
		s.upderr = nil
		return nil, err
	}

	existing, ok := s.notes[remoteID]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if existing.ETag != expectedETag {
		return nil, shared.ErrPreconditionFailed
	}

	existing.Title = note.Title
	existing.Content = note.Content
	existing.Category = note.Category
	existing.Favorite = note.Favorite
	existing.Modified = s.tick()
	existing.ETag = s.etag()
	s.notes[remoteID] = existing
	s.listTag++
	return &existing, nil
}

func (s *fakeServer) Delete(ctx context.Context, remoteID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.notes[remoteID]; !ok {
		return nil // already gone is success
	}
	delete(s.notes, remoteID)
	s.listTag++
	return nil
}

// editDuringPush wraps the fake server and simulates a user edit landing
// while the create request is on the wire.
type editDuringPush struct {
	api.NotesAPI
	t      *testing.T
	env    *testEnv
	noteID int64
	once   sync.Once
}

func (e *editDuringPush) Create(ctx context.Context, note *models.Note) (*models.ServerNote, error) {
	remote, err := e.NotesAPI.Create(ctx, note)
	if err != nil {
		return nil, err
	}
	e.once.Do(func() {
		n, err := e.env.store.Notes.GetByID(ctx, e.noteID)
		require.NoError(e.t, err)
		n.Content = "v2"
		require.NoError(e.t, e.env.store.Notes.SaveLocalEdit(ctx, n))
	})
	return remote, nil
}

// idlessList wraps the fake server and slips an entry without an id into
// every list response, the way a misbehaving server might.
type idlessList struct {
	api.NotesAPI
}

func (l *idlessList) ListChanged(ctx context.Context, since int64, lastETag string) (*api.NotesList, error) {
	list, err := l.NotesAPI.ListChanged(ctx, since, lastETag)
	if err != nil {
		return nil, err
	}
	list.Notes = append(list.Notes, models.ServerNote{Title: "ghost", Content: "x", Modified: 999999})
	return list, nil
}

type testEnv struct {
	m      *Manager
	store  *storage.Storage
	server *fakeServer
	caps   *fakeCaps
	accID  int64
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()

	store, err := storage.InitDatabase(ctx, filepath.Join(t.TempDir(), "app.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	accID, err := store.Accounts.Create(ctx, &models.Account{
		URL:         "https://cloud.example.com",
		UserName:    "alice",
		AccountName: "alice@cloud.example.com",
	})
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.LoadDefaults()

	env := &testEnv{
		store:  store,
		server: newFakeServer(),
		caps:   &fakeCaps{},
		accID:  accID,
	}
	env.m = NewManager(store, nil, cfg, logging.Nop())
	env.m.dial = func(ctx context.Context, acc *models.Account) (*Clients, error) {
		return &Clients{
			Capabilities: env.caps,
			NotesAPI:     func(api.ApiVersion) api.NotesAPI { return env.server },
		}, nil
	}
	return env
}

// syncOnce runs one cycle and waits for its result.
func (e *testEnv) syncOnce(t *testing.T) models.SyncResult {
	t.Helper()
	return <-e.m.RequestSync(context.Background(), e.accID)
}
