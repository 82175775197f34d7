package content

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"studio_site/internal/metrics"
	"studio_site/internal/models"
	"studio_site/internal/storage"
	"studio_site/internal/storage/local"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Fetch(ctx context.Context) (*models.Document, error) {
	args := m.Called(ctx)
	doc, _ := args.Get(0).(*models.Document)
	return doc, args.Error(1)
}

func (m *MockRemote) Push(ctx context.Context, doc models.Document, adminEmail string) error {
	args := m.Called(ctx, doc, adminEmail)
	return args.Error(0)
}

var fixedNow = time.Date(2026, time.October, 17, 12, 0, 0, 0, time.UTC)

func seedDocument() models.Document {
	return models.Document{
		Games: []models.Game{
			{ID: "cardamania", Title: "Cardamania", ReleaseDate: "Available 2028", Genres: []string{"Cards"}},
			{ID: "sequel", Title: "Sequel", ReleaseDate: "2030-01-01"},
		},
		Partners: []models.Partner{{ID: "pub", Name: "Publisher"}},
	}
}

func setupStore(t *testing.T) (*Store, *MockRemote, *local.Store) {
	t.Helper()

	kv, err := local.New(t.TempDir())
	require.NoError(t, err)

	remote := &MockRemote{}
	log := slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))

	s := NewStore(seedDocument(), kv, remote, log, metrics.NewRecorder("test"))
	s.now = func() time.Time { return fixedNow }

	return s, remote, kv
}

func TestDefaultDocument(t *testing.T) {
	doc, err := DefaultDocument()
	require.NoError(t, err)

	assert.NotEmpty(t, doc.Games)
	assert.NotEmpty(t, doc.Studios)
	assert.NoError(t, doc.Validate())
}

func TestStore_Load(t *testing.T) {
	t.Run("keeps seed when nothing stored", func(t *testing.T) {
		s, _, _ := setupStore(t)

		require.NoError(t, s.Load())
		assert.Equal(t, seedDocument(), s.Snapshot())
	})

	t.Run("local copy wins over seed", func(t *testing.T) {
		s, _, kv := setupStore(t)
		require.NoError(t, kv.Set(DocumentKey, []byte(`{"games":[{"id":"local","title":"Local"}]}`)))

		require.NoError(t, s.Load())
		assert.Equal(t, "local", s.Snapshot().Games[0].ID)
	})

	t.Run("corrupt local copy is ignored", func(t *testing.T) {
		s, _, kv := setupStore(t)
		require.NoError(t, kv.Set(DocumentKey, []byte(`{"games":`)))

		require.NoError(t, s.Load())
		assert.Equal(t, seedDocument(), s.Snapshot())
	})
}

func TestStore_Sync(t *testing.T) {
	t.Run("success replaces and persists", func(t *testing.T) {
		s, remote, kv := setupStore(t)

		remoteDoc := &models.Document{Games: []models.Game{{ID: "remote", Title: "Remote"}}}
		remote.On("Fetch", mock.Anything).Return(remoteDoc, nil)

		assert.True(t, s.Sync(context.Background()))
		assert.Equal(t, *remoteDoc, s.Snapshot())

		st := s.Status()
		assert.True(t, st.Synced)
		require.NotNil(t, st.LastSync)
		assert.Equal(t, fixedNow, *st.LastSync)

		data, err := kv.Get(DocumentKey)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"remote"`)

		remote.AssertExpectations(t)
	})

	t.Run("failure keeps local document", func(t *testing.T) {
		s, remote, kv := setupStore(t)
		require.NoError(t, kv.Set(DocumentKey, []byte(`{"games":[{"id":"local","title":"Local"}]}`)))
		require.NoError(t, s.Load())
		before := s.Snapshot()

		remote.On("Fetch", mock.Anything).Return(nil, errors.New("network unreachable"))

		assert.False(t, s.Sync(context.Background()))
		assert.Equal(t, before, s.Snapshot())
		assert.False(t, s.Status().Synced)
		assert.Nil(t, s.Status().LastSync)

		remote.AssertExpectations(t)
	})
}

func TestStore_View(t *testing.T) {
	s, _, _ := setupStore(t)

	public := s.View(false)
	require.Len(t, public.Games, 1)
	assert.Equal(t, "cardamania", public.Games[0].ID)

	admin := s.View(true)
	assert.Len(t, admin.Games, 2)
}

func TestStore_Mutate(t *testing.T) {
	t.Run("persists then pushes", func(t *testing.T) {
		s, remote, kv := setupStore(t)

		remote.On("Push", mock.Anything, mock.AnythingOfType("models.Document"), "owner@studio.dev").Return(nil)

		got, err := s.Mutate(context.Background(), "owner@studio.dev", func(d *models.Document) error {
			d.Games = append(d.Games, models.Game{ID: "new", Title: "New"})
			return nil
		})
		require.NoError(t, err)
		assert.Len(t, got.Games, 3)

		data, err := kv.Get(DocumentKey)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"new"`)

		s.Flush()
		assert.True(t, s.Status().Synced)

		pushed := remote.Calls[0].Arguments.Get(1).(models.Document)
		assert.Len(t, pushed.Games, 3)
		remote.AssertExpectations(t)
	})

	t.Run("push failure marks not synced but keeps edit", func(t *testing.T) {
		s, remote, _ := setupStore(t)

		remote.On("Push", mock.Anything, mock.Anything, mock.Anything).Return(errors.New("502"))

		_, err := s.Mutate(context.Background(), "owner@studio.dev", func(d *models.Document) error {
			d.Games = d.Games[:1]
			return nil
		})
		require.NoError(t, err)

		s.Flush()
		assert.False(t, s.Status().Synced)
		assert.Len(t, s.Snapshot().Games, 1)
	})

	t.Run("fn error leaves document untouched", func(t *testing.T) {
		s, remote, kv := setupStore(t)

		_, err := s.Mutate(context.Background(), "owner@studio.dev", func(d *models.Document) error {
			d.Games = nil
			return errors.New("nope")
		})
		assert.Error(t, err)
		assert.Equal(t, seedDocument(), s.Snapshot())

		_, err = kv.Get(DocumentKey)
		assert.True(t, errors.Is(err, storage.ErrNotFound))
		remote.AssertNotCalled(t, "Push", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("duplicate ids rejected", func(t *testing.T) {
		s, _, _ := setupStore(t)

		_, err := s.Mutate(context.Background(), "owner@studio.dev", func(d *models.Document) error {
			d.Games = append(d.Games, models.Game{ID: "cardamania"})
			return nil
		})
		assert.True(t, errors.Is(err, models.ErrDuplicateID))
	})

	t.Run("callers cannot alias the stored document", func(t *testing.T) {
		s, remote, _ := setupStore(t)
		remote.On("Push", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		got, err := s.Mutate(context.Background(), "owner@studio.dev", func(d *models.Document) error { return nil })
		require.NoError(t, err)
		got.Games[0].Genres[0] = "Changed"

		assert.Equal(t, "Cards", s.Snapshot().Games[0].Genres[0])
		s.Flush()
	})
}

func TestStore_StalePushIsSkipped(t *testing.T) {
	s, remote, _ := setupStore(t)

	var mu sync.Mutex
	var titles []string
	remote.On("Push", mock.Anything, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		doc := args.Get(1).(models.Document)
		mu.Lock()
		titles = append(titles, doc.Games[0].Title)
		mu.Unlock()
	}).Return(nil)

	// newer push lands first, the older one must not overwrite it
	s.pushes.Add(1)
	s.push(context.Background(), 2, models.Document{Games: []models.Game{{ID: "g", Title: "second"}}}, "owner@studio.dev")
	s.pushes.Add(1)
	s.push(context.Background(), 1, models.Document{Games: []models.Game{{ID: "g", Title: "first"}}}, "owner@studio.dev")

	assert.Equal(t, []string{"second"}, titles)
}

func TestStore_OlderPushAfterFailedNewer(t *testing.T) {
	s, remote, _ := setupStore(t)
	s.seq = 2

	var mu sync.Mutex
	var sent []string
	record := func(args mock.Arguments) {
		mu.Lock()
		sent = append(sent, args.Get(1).(models.Document).Games[0].Title)
		mu.Unlock()
	}
	isTitle := func(title string) interface{} {
		return mock.MatchedBy(func(d models.Document) bool { return d.Games[0].Title == title })
	}
	remote.On("Push", mock.Anything, isTitle("second"), mock.Anything).Run(record).Return(errors.New("backend down"))
	remote.On("Push", mock.Anything, isTitle("first"), mock.Anything).Run(record).Return(nil)

	s.pushes.Add(1)
	s.push(context.Background(), 2, models.Document{Games: []models.Game{{ID: "g", Title: "second"}}}, "owner@studio.dev")
	s.pushes.Add(1)
	s.push(context.Background(), 1, models.Document{Games: []models.Game{{ID: "g", Title: "first"}}}, "owner@studio.dev")

	assert.Equal(t, []string{"second"}, sent)
	assert.False(t, s.Status().Synced)
}

func TestStore_SyncOverlappingEdit(t *testing.T) {
	addGame := func(d *models.Document) error {
		d.Games = append(d.Games, models.Game{ID: "third", Title: "Third"})
		return nil
	}

	t.Run("edit during fetch", func(t *testing.T) {
		s, remote, _ := setupStore(t)

		stale := seedDocument()
		started := make(chan struct{})
		release := make(chan struct{})
		remote.On("Fetch", mock.Anything).Run(func(mock.Arguments) {
			close(started)
			<-release
		}).Return(&stale, nil)
		remote.On("Push", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		result := make(chan bool, 1)
		go func() { result <- s.Sync(context.Background()) }()
		<-started

		_, err := s.Mutate(context.Background(), "owner@studio.dev", addGame)
		require.NoError(t, err)
		s.Flush()

		close(release)
		assert.False(t, <-result)

		assert.Len(t, s.Snapshot().Games, 3)
		assert.True(t, s.Status().Synced)
	})

	t.Run("fetch while a push is in flight", func(t *testing.T) {
		s, remote, _ := setupStore(t)

		stale := seedDocument()
		pushing := make(chan struct{})
		release := make(chan struct{})
		remote.On("Push", mock.Anything, mock.Anything, mock.Anything).Run(func(mock.Arguments) {
			close(pushing)
			<-release
		}).Return(nil)
		remote.On("Fetch", mock.Anything).Return(&stale, nil)

		_, err := s.Mutate(context.Background(), "owner@studio.dev", addGame)
		require.NoError(t, err)
		<-pushing

		assert.False(t, s.Sync(context.Background()))
		assert.Len(t, s.Snapshot().Games, 3)

		close(release)
		s.Flush()
		assert.True(t, s.Status().Synced)
	})
}

func TestStore_LocalRoundTrip(t *testing.T) {
	s, remote, kv := setupStore(t)
	remote.On("Push", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	doc, err := DefaultDocument()
	require.NoError(t, err)

	_, err = s.Mutate(context.Background(), "owner@studio.dev", func(d *models.Document) error {
		*d = doc.Clone()
		return nil
	})
	require.NoError(t, err)
	s.Flush()

	reloaded := NewStore(models.Document{}, kv, remote, s.log, nil)
	require.NoError(t, reloaded.Load())

	want, err := json.Marshal(doc)
	require.NoError(t, err)
	got, err := json.Marshal(reloaded.Snapshot())
	require.NoError(t, err)

	assert.JSONEq(t, string(want), string(got))
}
