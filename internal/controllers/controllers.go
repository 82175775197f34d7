package controllers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrBadRequest     = errors.New("bad request")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrForbidden      = errors.New("forbidden")
	ErrConflict       = errors.New("already exists")
	ErrParsingJSON    = errors.New("failed to parse json body")
	ErrMissingEmail   = errors.New("email is required")
	ErrMissingURL     = errors.New("url is required")
	ErrInvalidType    = errors.New("invalid article type")
	ErrCreate         = errors.New("failed to create")
	ErrUpdate         = errors.New("failed to update")
	ErrDelete         = errors.New("failed to delete")
	ErrImport         = errors.New("failed to import page")
	ErrLogin          = errors.New("failed to login")
	ErrLogout         = errors.New("failed to logout")
	ErrEncoding       = errors.New("failed to encode")
	ErrInternal       = errors.New("internal error")
	ErrUnsupportedKey = errors.New("unsupported key type")
)

const maxBodyBytes = 8 << 20

func writeJSON(w http.ResponseWriter, log *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error(ErrEncoding.Error(), slog.String("error", err.Error()))
	}
}
