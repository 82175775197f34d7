package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"studio_site/internal/middleware"
	"studio_site/internal/models"
	"studio_site/internal/services"
	"studio_site/internal/session"

	"github.com/go-chi/chi/v5"
)

type AdminServicer interface {
	CreateGame(ctx context.Context, adminEmail string, g models.Game) (*models.Game, error)
	UpdateGame(ctx context.Context, adminEmail, id string, g models.Game) (*models.Game, error)
	DeleteGame(ctx context.Context, adminEmail, id string) error
	CreateArticle(ctx context.Context, adminEmail string, kind models.Kind, a models.Article) (*services.ArticleView, error)
	UpdateArticle(ctx context.Context, adminEmail, id string, a models.Article) (*services.ArticleView, error)
	DeleteArticle(ctx context.Context, adminEmail, id string) error
}

type SessionManager interface {
	Login(email string) (session.Session, error)
	Logout(email string) error
}

type GameImporter interface {
	Import(ctx context.Context, pageURL string) (*models.Game, error)
}

type AdminController struct {
	service  AdminServicer
	sessions SessionManager
	importer GameImporter
	log      *slog.Logger
}

func NewAdminController(s AdminServicer, sessions SessionManager, importer GameImporter, log *slog.Logger) *AdminController {
	return &AdminController{
		service:  s,
		sessions: sessions,
		importer: importer,
		log:      log,
	}
}

type LoginRequest struct {
	Email string `json:"email"`
}

func (c *AdminController) Login(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.admin.Login"

	var req LoginRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		c.log.Error(ErrParsingJSON.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		http.Error(w, ErrLogin.Error(), http.StatusBadRequest)
		return
	}

	if strings.TrimSpace(req.Email) == "" {
		c.log.Error(ErrMissingEmail.Error(), slog.String("operation", op))
		http.Error(w, ErrMissingEmail.Error(), http.StatusBadRequest)
		return
	}

	s, err := c.sessions.Login(req.Email)
	if errors.Is(err, session.ErrNotAllowed) {
		c.log.Warn("login rejected", slog.String("operation", op), slog.String("email", req.Email))
		http.Error(w, ErrForbidden.Error(), http.StatusForbidden)
		return
	}
	if err != nil {
		c.log.Error(ErrLogin.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		http.Error(w, ErrLogin.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, c.log, http.StatusOK, s)
}

func (c *AdminController) Logout(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.admin.Logout"

	email, ok := middleware.AdminEmailFromContext(r.Context())
	if !ok {
		http.Error(w, ErrUnauthorized.Error(), http.StatusUnauthorized)
		return
	}

	if err := c.sessions.Logout(email); err != nil {
		c.log.Error(ErrLogout.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		http.Error(w, ErrLogout.Error(), http.StatusInternalServerError)
		return
	}

	writeJSON(w, c.log, http.StatusOK, map[string]string{"message": "logged out successfully"})
}

func (c *AdminController) CreateGame(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.admin.CreateGame"

	email, _ := middleware.AdminEmailFromContext(r.Context())

	var g models.Game
	if !c.decode(w, r, op, &g) {
		return
	}

	res, err := c.service.CreateGame(r.Context(), email, g)
	if err != nil {
		c.mutationError(w, op, ErrCreate, err)
		return
	}

	writeJSON(w, c.log, http.StatusCreated, res)
}

func (c *AdminController) UpdateGame(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.admin.UpdateGame"

	email, _ := middleware.AdminEmailFromContext(r.Context())

	var g models.Game
	if !c.decode(w, r, op, &g) {
		return
	}

	res, err := c.service.UpdateGame(r.Context(), email, chi.URLParam(r, "id"), g)
	if err != nil {
		c.mutationError(w, op, ErrUpdate, err)
		return
	}

	writeJSON(w, c.log, http.StatusOK, res)
}

func (c *AdminController) DeleteGame(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.admin.DeleteGame"

	email, _ := middleware.AdminEmailFromContext(r.Context())

	if err := c.service.DeleteGame(r.Context(), email, chi.URLParam(r, "id")); err != nil {
		c.mutationError(w, op, ErrDelete, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ArticleRequest carries the article plus its kind: "article" for a blog
// post, "news" for a news item.
type ArticleRequest struct {
	models.Article
	Type string `json:"type"`
}

func (c *AdminController) CreateArticle(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.admin.CreateArticle"

	email, _ := middleware.AdminEmailFromContext(r.Context())

	var req ArticleRequest
	if !c.decode(w, r, op, &req) {
		return
	}

	kind := models.KindArticle
	if req.Type != "" {
		k, err := models.ParseKind(req.Type)
		if err != nil {
			c.log.Error(ErrInvalidType.Error(), slog.String("operation", op), slog.String("type", req.Type))
			http.Error(w, ErrInvalidType.Error(), http.StatusBadRequest)
			return
		}
		kind = k
	}

	res, err := c.service.CreateArticle(r.Context(), email, kind, req.Article)
	if err != nil {
		c.mutationError(w, op, ErrCreate, err)
		return
	}

	writeJSON(w, c.log, http.StatusCreated, res)
}

func (c *AdminController) UpdateArticle(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.admin.UpdateArticle"

	email, _ := middleware.AdminEmailFromContext(r.Context())

	var req ArticleRequest
	if !c.decode(w, r, op, &req) {
		return
	}

	res, err := c.service.UpdateArticle(r.Context(), email, chi.URLParam(r, "id"), req.Article)
	if err != nil {
		c.mutationError(w, op, ErrUpdate, err)
		return
	}

	writeJSON(w, c.log, http.StatusOK, res)
}

func (c *AdminController) DeleteArticle(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.admin.DeleteArticle"

	email, _ := middleware.AdminEmailFromContext(r.Context())

	if err := c.service.DeleteArticle(r.Context(), email, chi.URLParam(r, "id")); err != nil {
		c.mutationError(w, op, ErrDelete, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type ImportRequest struct {
	URL string `json:"url"`
}

// ImportGame scrapes a page into a draft. Nothing is saved.
func (c *AdminController) ImportGame(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.admin.ImportGame"

	var req ImportRequest
	if !c.decode(w, r, op, &req) {
		return
	}

	if strings.TrimSpace(req.URL) == "" {
		http.Error(w, ErrMissingURL.Error(), http.StatusBadRequest)
		return
	}

	g, err := c.importer.Import(r.Context(), req.URL)
	if err != nil {
		c.log.Error(ErrImport.Error(),
			slog.String("operation", op),
			slog.String("url", req.URL),
			slog.String("error", err.Error()))
		http.Error(w, ErrImport.Error(), http.StatusBadGateway)
		return
	}

	writeJSON(w, c.log, http.StatusOK, g)
}

func (c *AdminController) decode(w http.ResponseWriter, r *http.Request, op string, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		c.log.Error(ErrParsingJSON.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		http.Error(w, ErrBadRequest.Error(), http.StatusBadRequest)
		return false
	}
	return true
}

func (c *AdminController) mutationError(w http.ResponseWriter, op string, public, err error) {
	c.log.Error(public.Error(), slog.String("operation", op), slog.String("error", err.Error()))

	switch {
	case errors.Is(err, services.ErrNotFound):
		http.Error(w, ErrNotFound.Error(), http.StatusNotFound)
	case errors.Is(err, services.ErrExists), errors.Is(err, models.ErrDuplicateID):
		http.Error(w, ErrConflict.Error(), http.StatusConflict)
	case errors.Is(err, services.ErrInvalidKind):
		http.Error(w, ErrInvalidType.Error(), http.StatusBadRequest)
	case errors.Is(err, models.ErrUnknownStatus):
		http.Error(w, models.ErrUnknownStatus.Error(), http.StatusBadRequest)
	default:
		http.Error(w, public.Error(), http.StatusInternalServerError)
	}
}
