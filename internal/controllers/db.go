package controllers

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"studio_site/internal/clients/backend"
	"studio_site/internal/storage"
	"studio_site/internal/storage/mariadb"
)

// Error codes of the /db envelope.
const (
	CodeNotFound        = "not_found"
	CodeUnsupportedType = "unsupported_type"
	CodeInternal        = "internal"
	CodeUnauthorized    = "unauthorized"
	CodeBadRequest      = "bad_request"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

type OKResponse struct {
	OK bool `json:"ok"`
}

type DocumentStore interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

type WriteJournal interface {
	RecordWrite(ctx context.Context, w *mariadb.SyncWrite) error
	RecentWrites(ctx context.Context, limit int) ([]mariadb.SyncWrite, error)
}

type AllowList interface {
	Allowed(email string) bool
}

// DBController serves the single-key document endpoint. journal may be nil.
type DBController struct {
	store   DocumentStore
	journal WriteJournal
	allow   AllowList
	log     *slog.Logger
}

func NewDBController(store DocumentStore, journal WriteJournal, allow AllowList, log *slog.Logger) *DBController {
	return &DBController{
		store:   store,
		journal: journal,
		allow:   allow,
		log:     log,
	}
}

// Get godoc
// @Summary      Read the stored document
// @Tags         db
// @Produce      json
// @Success      200  {object}  models.Document
// @Failure      400  {object}  controllers.ErrorResponse
// @Failure      404  {object}  controllers.ErrorResponse
// @Failure      500  {object}  controllers.ErrorResponse
// @Router       /db [get]
func (c *DBController) Get(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.db.Get"

	data, err := c.store.Load(r.Context())
	switch {
	case errors.Is(err, storage.ErrNotFound):
		c.fail(w, http.StatusNotFound, CodeNotFound, "")
		return
	case errors.Is(err, storage.ErrUnsupportedType):
		c.log.Warn(ErrUnsupportedKey.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		c.fail(w, http.StatusBadRequest, CodeUnsupportedType, err.Error())
		return
	case err != nil:
		c.log.Error(ErrInternal.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		c.fail(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		c.log.Error(ErrEncoding.Error(), slog.String("operation", op), slog.String("error", err.Error()))
	}
}

// Post godoc
// @Summary      Replace the stored document
// @Description  The key keeps its Redis type. Requires an allow-listed admin email.
// @Tags         db
// @Accept       json
// @Produce      json
// @Param        X-Admin-Email  header    string  true  "Admin email"
// @Success      200            {object}  controllers.OKResponse
// @Failure      400            {object}  controllers.ErrorResponse
// @Failure      401            {object}  controllers.ErrorResponse
// @Failure      500            {object}  controllers.ErrorResponse
// @Router       /db [post]
func (c *DBController) Post(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.db.Post"

	email := r.Header.Get(backend.HeaderAdminEmail)
	if !c.allow.Allowed(email) {
		c.log.Warn("write rejected", slog.String("operation", op), slog.String("email", email))
		c.fail(w, http.StatusUnauthorized, CodeUnauthorized, "")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		c.fail(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	if !isJSONObject(body) {
		c.fail(w, http.StatusBadRequest, CodeBadRequest, "body must be a JSON object")
		return
	}

	if err := c.store.Save(r.Context(), body); err != nil {
		switch {
		case errors.Is(err, storage.ErrUnsupportedType):
			c.log.Warn(ErrUnsupportedKey.Error(), slog.String("operation", op), slog.String("error", err.Error()))
			c.fail(w, http.StatusBadRequest, CodeUnsupportedType, err.Error())
		case errors.Is(err, storage.ErrInvalidDocument):
			c.fail(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		default:
			c.log.Error(ErrInternal.Error(), slog.String("operation", op), slog.String("error", err.Error()))
			c.fail(w, http.StatusInternalServerError, CodeInternal, err.Error())
		}
		return
	}

	c.record(r.Context(), email, body)

	c.log.Info("document replaced", slog.String("admin", email), slog.Int("bytes", len(body)))

	writeJSON(w, c.log, http.StatusOK, OKResponse{OK: true})
}

// record journals an accepted write. Journal failures never fail the write.
func (c *DBController) record(ctx context.Context, email string, body []byte) {
	const op = "controllers.db.record"

	if c.journal == nil {
		return
	}

	sum := sha256.Sum256(body)
	entry := &mariadb.SyncWrite{
		AdminEmail: email,
		Bytes:      len(body),
		Checksum:   hex.EncodeToString(sum[:]),
	}

	if err := c.journal.RecordWrite(ctx, entry); err != nil {
		c.log.Error("failed to journal write", slog.String("operation", op), slog.String("error", err.Error()))
	}
}

func (c *DBController) History(w http.ResponseWriter, r *http.Request) {
	const op = "controllers.db.History"

	if !c.allow.Allowed(r.Header.Get(backend.HeaderAdminEmail)) {
		c.fail(w, http.StatusUnauthorized, CodeUnauthorized, "")
		return
	}

	if c.journal == nil {
		c.fail(w, http.StatusNotFound, CodeNotFound, "write journal is disabled")
		return
	}

	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 1 {
		limit = defaultHistoryLimit
	} else if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	writes, err := c.journal.RecentWrites(r.Context(), limit)
	if err != nil {
		c.log.Error(ErrInternal.Error(), slog.String("operation", op), slog.String("error", err.Error()))
		c.fail(w, http.StatusInternalServerError, CodeInternal, err.Error())
		return
	}
	if writes == nil {
		writes = []mariadb.SyncWrite{}
	}

	writeJSON(w, c.log, http.StatusOK, writes)
}

func (c *DBController) fail(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, c.log, status, ErrorResponse{Error: code, Message: message})
}

func isJSONObject(b []byte) bool {
	b = bytes.TrimSpace(b)
	return len(b) > 0 && b[0] == '{' && json.Valid(b)
}
