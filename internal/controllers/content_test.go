package controllers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"studio_site/internal/content"
	"studio_site/internal/middleware"
	"studio_site/internal/models"
	"studio_site/internal/search"
	"studio_site/internal/services"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) Content(admin bool) models.Document {
	return m.Called(admin).Get(0).(models.Document)
}

func (m *MockContentService) Games(admin bool) []models.Game {
	games, _ := m.Called(admin).Get(0).([]models.Game)
	return games
}

func (m *MockContentService) GetGame(id string, admin bool) (*models.Game, error) {
	args := m.Called(id, admin)
	g, _ := args.Get(0).(*models.Game)
	return g, args.Error(1)
}

func (m *MockContentService) GetStudio(id string, admin bool) (*models.Studio, error) {
	args := m.Called(id, admin)
	s, _ := args.Get(0).(*models.Studio)
	return s, args.Error(1)
}

func (m *MockContentService) GetSeries(studioID, seriesID string, admin bool) (*models.Series, error) {
	args := m.Called(studioID, seriesID, admin)
	s, _ := args.Get(0).(*models.Series)
	return s, args.Error(1)
}

func (m *MockContentService) GetPartner(id string, admin bool) (*models.Partner, error) {
	args := m.Called(id, admin)
	p, _ := args.Get(0).(*models.Partner)
	return p, args.Error(1)
}

func (m *MockContentService) GetArticle(id string, admin bool) (*services.ArticleView, error) {
	args := m.Called(id, admin)
	a, _ := args.Get(0).(*services.ArticleView)
	return a, args.Error(1)
}

func (m *MockContentService) Search(q search.Query) []search.Item {
	return m.Called(q).Get(0).([]search.Item)
}

func (m *MockContentService) Routes() []models.Page {
	return m.Called().Get(0).([]models.Page)
}

func (m *MockContentService) SyncStatus() content.SyncStatus {
	return m.Called().Get(0).(content.SyncStatus)
}

func (m *MockContentService) Sync(ctx context.Context) content.SyncStatus {
	return m.Called(ctx).Get(0).(content.SyncStatus)
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func setupContentController() (*ContentController, *MockContentService) {
	mockService := &MockContentService{}
	return NewContentController(mockService, testLogger()), mockService
}

func withURLParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func asAdmin(r *http.Request, email string) *http.Request {
	ctx := context.WithValue(r.Context(), middleware.AdminEmailKey, email)
	ctx = context.WithValue(ctx, middleware.IsAdminKey, true)
	return r.WithContext(ctx)
}

func TestContentController_GetContent(t *testing.T) {
	t.Run("public view", func(t *testing.T) {
		ctrl, mockService := setupContentController()

		doc := models.Document{Games: []models.Game{{ID: "cardamania", Title: "Cardamania"}}}
		mockService.On("Content", false).Return(doc)

		w := httptest.NewRecorder()
		ctrl.GetContent(w, httptest.NewRequest(http.MethodGet, "/api/content", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

		var got models.Document
		require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
		assert.Equal(t, doc.Games, got.Games)

		mockService.AssertExpectations(t)
	})

	t.Run("admin view", func(t *testing.T) {
		ctrl, mockService := setupContentController()
		mockService.On("Content", true).Return(models.Document{})

		w := httptest.NewRecorder()
		ctrl.GetContent(w, asAdmin(httptest.NewRequest(http.MethodGet, "/api/content", nil), "owner@studio.dev"))

		assert.Equal(t, http.StatusOK, w.Code)
		mockService.AssertExpectations(t)
	})
}

func TestContentController_GetGames(t *testing.T) {
	ctrl, mockService := setupContentController()
	mockService.On("Games", false).Return(nil)

	w := httptest.NewRecorder()
	ctrl.GetGames(w, httptest.NewRequest(http.MethodGet, "/api/games", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestContentController_GetGame(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		ctrl, mockService := setupContentController()

		mockService.On("GetGame", "cardamania", false).Return(&models.Game{ID: "cardamania", Title: "Cardamania"}, nil)

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/games/cardamania", nil), map[string]string{"id": "cardamania"})
		w := httptest.NewRecorder()
		ctrl.GetGame(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var g models.Game
		require.NoError(t, json.NewDecoder(w.Body).Decode(&g))
		assert.Equal(t, "Cardamania", g.Title)
		mockService.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		ctrl, mockService := setupContentController()

		mockService.On("GetGame", "ghost", false).Return(nil, fmt.Errorf("services.content.GetGame: %w", services.ErrNotFound))

		req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/games/ghost", nil), map[string]string{"id": "ghost"})
		w := httptest.NewRecorder()
		ctrl.GetGame(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Contains(t, w.Body.String(), "not found")
	})
}

func TestContentController_GetSeries(t *testing.T) {
	ctrl, mockService := setupContentController()

	mockService.On("GetSeries", "northlight", "aurora-tales", true).Return(&models.Series{ID: "aurora-tales"}, nil)

	req := withURLParams(
		httptest.NewRequest(http.MethodGet, "/api/studios/northlight/series/aurora-tales", nil),
		map[string]string{"studioID": "northlight", "seriesID": "aurora-tales"},
	)
	w := httptest.NewRecorder()
	ctrl.GetSeries(w, asAdmin(req, "owner@studio.dev"))

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestContentController_GetArticle(t *testing.T) {
	ctrl, mockService := setupContentController()

	mockService.On("GetArticle", "announce", false).Return(&services.ArticleView{
		Article: models.Article{ID: "announce", Title: "Announced"},
		Kind:    models.KindNews,
	}, nil)

	req := withURLParams(httptest.NewRequest(http.MethodGet, "/api/news/announce", nil), map[string]string{"id": "announce"})
	w := httptest.NewRecorder()
	ctrl.GetArticle(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"id":"announce","title":"Announced","excerpt":"","type":"news"}`, w.Body.String())
}

func TestContentController_Search(t *testing.T) {
	ctrl, mockService := setupContentController()

	items := []search.Item{
		{ID: "cardamania", Title: "Cardamania", Kind: models.KindGame, Path: "/games/cardamania", Genres: []string{"Cards", "Roguelike"}},
		{ID: "lantern-keeper", Title: "Lantern Keeper", Kind: models.KindGame, Path: "/games/lantern-keeper", Genres: []string{"cards"}},
	}
	mockService.On("Search", search.Query{Text: "card", Type: "game", Status: "All", Genre: ""}).Return(items)

	w := httptest.NewRecorder()
	ctrl.Search(w, httptest.NewRequest(http.MethodGet, "/api/search?q=card&type=game&status=All", nil))

	assert.Equal(t, http.StatusOK, w.Code)

	var res SearchResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&res))
	assert.Equal(t, "card", res.Query)
	assert.Len(t, res.Results, 2)
	assert.Equal(t, []string{"Cards", "Roguelike"}, res.Genres)
	assert.Equal(t, models.KindGame, res.Results[0].Kind)

	mockService.AssertExpectations(t)
}

func TestContentController_GetRoutes(t *testing.T) {
	ctrl, mockService := setupContentController()
	mockService.On("Routes").Return(models.SitePages())

	w := httptest.NewRecorder()
	ctrl.GetRoutes(w, httptest.NewRequest(http.MethodGet, "/api/routes", nil))

	var pages []models.Page
	require.NoError(t, json.NewDecoder(w.Body).Decode(&pages))
	assert.Len(t, pages, len(models.SitePages()))
	for _, p := range pages {
		assert.NotEqual(t, models.PathAdmin, p.Path)
		assert.NotEmpty(t, p.Icon)
	}
}

func TestContentController_Sync(t *testing.T) {
	t.Run("status", func(t *testing.T) {
		ctrl, mockService := setupContentController()

		last := time.Date(2026, time.October, 17, 9, 0, 0, 0, time.UTC)
		mockService.On("SyncStatus").Return(content.SyncStatus{Synced: true, LastSync: &last})

		w := httptest.NewRecorder()
		ctrl.GetSyncStatus(w, httptest.NewRequest(http.MethodGet, "/api/sync", nil))

		assert.JSONEq(t, `{"synced":true,"lastSync":"2026-10-17T09:00:00Z"}`, w.Body.String())
	})

	t.Run("failed resync is still 200", func(t *testing.T) {
		ctrl, mockService := setupContentController()
		mockService.On("Sync", mock.Anything).Return(content.SyncStatus{Synced: false})

		w := httptest.NewRecorder()
		ctrl.Resync(w, httptest.NewRequest(http.MethodPost, "/api/sync", nil))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"synced":false}`, w.Body.String())
	})
}
