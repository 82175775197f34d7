// Package content owns the site document: it seeds it, mirrors it to local
// storage on every change and keeps it in step with the backend.
package content

import (
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"studio_site/internal/metrics"
	"studio_site/internal/models"
	"studio_site/internal/storage"
	"studio_site/internal/storage/local"
	"studio_site/internal/visibility"
)

const DocumentKey = "studio_db"

//go:embed seed.json
var seedJSON []byte

// DefaultDocument is the bundled content used until a local or remote copy exists.
func DefaultDocument() (models.Document, error) {
	doc, err := models.ParseDocument(seedJSON)
	if err != nil {
		return models.Document{}, err
	}
	return *doc, nil
}

type Remote interface {
	Fetch(ctx context.Context) (*models.Document, error)
	Push(ctx context.Context, doc models.Document, adminEmail string) error
}

type SyncStatus struct {
	Synced   bool       `json:"synced"`
	LastSync *time.Time `json:"lastSync,omitempty"`
}

type Store struct {
	mu       sync.RWMutex
	doc      models.Document
	synced   bool
	lastSync time.Time
	seq      uint64
	pending  int

	pushMu      sync.Mutex
	attempted   uint64
	pushes      sync.WaitGroup
	pushTimeout time.Duration

	kv      local.KV
	remote  Remote
	log     *slog.Logger
	metrics *metrics.Recorder
	now     func() time.Time
}

func NewStore(seed models.Document, kv local.KV, remote Remote, log *slog.Logger, rec *metrics.Recorder) *Store {
	return &Store{
		doc:         seed.Clone(),
		kv:          kv,
		remote:      remote,
		log:         log,
		metrics:     rec,
		now:         time.Now,
		pushTimeout: 30 * time.Second,
	}
}

// Load replaces the seed with the locally persisted copy, if there is one.
// A corrupt local copy is ignored.
func (s *Store) Load() error {
	const op = "content.Store.Load"

	data, err := s.kv.Get(DocumentKey)
	if errors.Is(err, storage.ErrNotFound) {
		s.log.Info("no local document, using bundled content")
		return nil
	}
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	doc, err := models.ParseDocument(data)
	if err != nil {
		s.log.Warn("ignoring unreadable local document",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		return nil
	}

	s.mu.Lock()
	s.doc = *doc
	s.mu.Unlock()

	s.log.Info("local document loaded", slog.Int("bytes", len(data)))

	return nil
}

// Sync pulls the backend copy. Failures keep the current document and only
// flip the synced flag. A fetch that overlaps a local edit or an unfinished
// push is dropped.
func (s *Store) Sync(ctx context.Context) bool {
	const op = "content.Store.Sync"

	s.mu.RLock()
	start := s.seq
	s.mu.RUnlock()

	doc, err := s.remote.Fetch(ctx)
	s.metrics.RecordSync(metrics.OpFetch, err)
	if err != nil {
		s.log.Warn("remote fetch failed, keeping current document",
			slog.String("operation", op),
			slog.String("error", err.Error()))
		s.setSynced(false)
		return false
	}

	s.mu.Lock()
	if s.seq != start || s.pending > 0 {
		s.mu.Unlock()
		s.log.Info("discarding fetched document, local edits are newer",
			slog.String("operation", op))
		return false
	}
	s.doc = *doc
	s.seq++
	if err := s.persist(*doc); err != nil {
		s.log.Error("failed to persist fetched document",
			slog.String("operation", op),
			slog.String("error", err.Error()))
	}
	s.mu.Unlock()

	s.setSynced(true)
	s.log.Info("document synced from backend")

	return true
}

func (s *Store) setSynced(ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.synced = ok
	if ok {
		s.lastSync = s.now().UTC()
	}
}

func (s *Store) Status() SyncStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := SyncStatus{Synced: s.synced}
	if !s.lastSync.IsZero() {
		t := s.lastSync
		st.LastSync = &t
	}
	return st
}

// Snapshot returns a private copy of the full document.
func (s *Store) Snapshot() models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.doc.Clone()
}

// View is the document as a viewer sees it.
func (s *Store) View(admin bool) models.Document {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return visibility.Filter(s.doc, admin, s.now())
}

// Mutate applies fn to a copy of the document, persists it locally, swaps it
// in and pushes it to the backend in the background. fn errors leave the
// document untouched.
func (s *Store) Mutate(ctx context.Context, adminEmail string, fn func(*models.Document) error) (models.Document, error) {
	const op = "content.Store.Mutate"

	s.mu.Lock()

	next := s.doc.Clone()
	if err := fn(&next); err != nil {
		s.mu.Unlock()
		return models.Document{}, err
	}

	if err := next.Validate(); err != nil {
		s.mu.Unlock()
		return models.Document{}, fmt.Errorf("%s: %w", op, err)
	}

	if err := s.persist(next); err != nil {
		s.mu.Unlock()
		return models.Document{}, fmt.Errorf("%s: %w", op, err)
	}

	s.doc = next
	s.seq++
	s.pending++
	seq := s.seq
	pushed := next.Clone()

	s.mu.Unlock()

	s.pushes.Add(1)
	go s.push(context.WithoutCancel(ctx), seq, pushed, adminEmail)

	return next.Clone(), nil
}

// push sends doc unless a newer document was already sent. Only a push of
// the current document can mark the store synced.
func (s *Store) push(ctx context.Context, seq uint64, doc models.Document, adminEmail string) {
	const op = "content.Store.push"

	defer s.pushes.Done()
	defer s.pushDone()

	s.pushMu.Lock()
	defer s.pushMu.Unlock()

	if seq <= s.attempted {
		s.log.Debug("skipping stale push", slog.Uint64("seq", seq))
		return
	}
	s.attempted = seq

	ctx, cancel := context.WithTimeout(ctx, s.pushTimeout)
	defer cancel()

	err := s.remote.Push(ctx, doc, adminEmail)
	s.metrics.RecordSync(metrics.OpPush, err)
	if err != nil {
		s.log.Warn("remote push failed",
			slog.String("operation", op),
			slog.String("admin", adminEmail),
			slog.String("error", err.Error()))
		s.setSynced(false)
		return
	}

	s.mu.Lock()
	if seq == s.seq {
		s.synced = true
		s.lastSync = s.now().UTC()
	}
	s.mu.Unlock()
}

func (s *Store) pushDone() {
	s.mu.Lock()
	if s.pending > 0 {
		s.pending--
	}
	s.mu.Unlock()
}

// Flush waits for in-flight pushes.
func (s *Store) Flush() {
	s.pushes.Wait()
}

func (s *Store) persist(doc models.Document) error {
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	return s.kv.Set(DocumentKey, data)
}
