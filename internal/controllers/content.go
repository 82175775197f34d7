package controllers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"studio_site/internal/content"
	"studio_site/internal/middleware"
	"studio_site/internal/models"
	"studio_site/internal/search"
	"studio_site/internal/services"

	"github.com/go-chi/chi/v5"
)

type ContentServicer interface {
	Content(admin bool) models.Document
	Games(admin bool) []models.Game
	GetGame(id string, admin bool) (*models.Game, error)
	GetStudio(id string, admin bool) (*models.Studio, error)
	GetSeries(studioID, seriesID string, admin bool) (*models.Series, error)
	GetPartner(id string, admin bool) (*models.Partner, error)
	GetArticle(id string, admin bool) (*services.ArticleView, error)
	Search(q search.Query) []search.Item
	Routes() []models.Page
	SyncStatus() content.SyncStatus
	Sync(ctx context.Context) content.SyncStatus
}

type ContentController struct {
	service ContentServicer
	log     *slog.Logger
}

func NewContentController(s ContentServicer, log *slog.Logger) *ContentController {
	return &ContentController{
		service: s,
		log:     log,
	}
}

// GetContent godoc
// @Summary      Site content
// @Description  Whole document. Future-dated entries are hidden unless the caller has an admin session.
// @Tags         content
// @Produce      json
// @Param        X-Admin-Email  header    string  false  "Admin email"
// @Success      200            {object}  models.Document
// @Router       /content [get]
func (c *ContentController) GetContent(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, c.log, http.StatusOK, c.service.Content(middleware.IsAdmin(r.Context())))
}

func (c *ContentController) GetGames(w http.ResponseWriter, r *http.Request) {
	games := c.service.Games(middleware.IsAdmin(r.Context()))
	if games == nil {
		games = []models.Game{}
	}
	writeJSON(w, c.log, http.StatusOK, games)
}

// GetGame godoc
// @Summary      Game by id
// @Tags         games
// @Produce      json
// @Param        id   path      string  true  "Game id"
// @Success      200  {object}  models.Game
// @Failure      404  {string}  string
// @Router       /games/{id} [get]
func (c *ContentController) GetGame(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.GetGame(chi.URLParam(r, "id"), middleware.IsAdmin(r.Context()))
	c.respondEntity(w, "controllers.content.GetGame", res, err)
}

func (c *ContentController) GetStudio(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.GetStudio(chi.URLParam(r, "id"), middleware.IsAdmin(r.Context()))
	c.respondEntity(w, "controllers.content.GetStudio", res, err)
}

func (c *ContentController) GetSeries(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.GetSeries(
		chi.URLParam(r, "studioID"),
		chi.URLParam(r, "seriesID"),
		middleware.IsAdmin(r.Context()),
	)
	c.respondEntity(w, "controllers.content.GetSeries", res, err)
}

func (c *ContentController) GetPartner(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.GetPartner(chi.URLParam(r, "id"), middleware.IsAdmin(r.Context()))
	c.respondEntity(w, "controllers.content.GetPartner", res, err)
}

func (c *ContentController) GetArticle(w http.ResponseWriter, r *http.Request) {
	res, err := c.service.GetArticle(chi.URLParam(r, "id"), middleware.IsAdmin(r.Context()))
	c.respondEntity(w, "controllers.content.GetArticle", res, err)
}

func (c *ContentController) respondEntity(w http.ResponseWriter, op string, res any, err error) {
	if errors.Is(err, services.ErrNotFound) {
		c.log.Debug(ErrNotFound.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		http.Error(w, ErrNotFound.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		c.log.Error(ErrInternal.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		http.Error(w, ErrInternal.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, c.log, http.StatusOK, res)
}

type SearchResponse struct {
	Query   string        `json:"query"`
	Results []search.Item `json:"results"`
	Genres  []string      `json:"genres"`
}

// Search godoc
// @Summary      Search the catalogue
// @Description  Case-insensitive substring match on title or description. "All" disables a facet.
// @Tags         search
// @Produce      json
// @Param        q       query     string  false  "Free text"
// @Param        type    query     string  false  "game, series, studio, partner, article, news, page"
// @Param        status  query     string  false  "Project status"
// @Param        genre   query     string  false  "Project genre"
// @Success      200     {object}  controllers.SearchResponse
// @Router       /search [get]
func (c *ContentController) Search(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	query := search.Query{
		Text:   q.Get("q"),
		Type:   q.Get("type"),
		Status: q.Get("status"),
		Genre:  q.Get("genre"),
	}

	results := c.service.Search(query)
	genres := search.Genres(results)
	if genres == nil {
		genres = []string{}
	}

	writeJSON(w, c.log, http.StatusOK, SearchResponse{
		Query:   query.Text,
		Results: results,
		Genres:  genres,
	})
}

func (c *ContentController) GetRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, c.log, http.StatusOK, c.service.Routes())
}

func (c *ContentController) GetSyncStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, c.log, http.StatusOK, c.service.SyncStatus())
}

// Resync pulls the backend copy again. A failed fetch is not an HTTP error:
// the response just reports synced=false.
func (c *ContentController) Resync(w http.ResponseWriter, r *http.Request) {
	st := c.service.Sync(r.Context())
	c.log.Info("manual sync", slog.Bool("synced", st.Synced))
	writeJSON(w, c.log, http.StatusOK, st)
}
