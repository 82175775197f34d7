package models

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrDuplicateID   = errors.New("duplicate id")
	ErrUnknownKind   = errors.New("unknown kind")
	ErrUnknownStatus = errors.New("unknown status")
)

type GameStatus string

const (
	StatusReleased      GameStatus = "Released"
	StatusInDevelopment GameStatus = "In Development"
	StatusEarlyAccess   GameStatus = "Early Access"
	StatusComingSoon    GameStatus = "Coming Soon"
	StatusLive          GameStatus = "Live"
)

var statuses = []GameStatus{
	StatusReleased,
	StatusInDevelopment,
	StatusEarlyAccess,
	StatusComingSoon,
	StatusLive,
}

func Statuses() []GameStatus {
	return append([]GameStatus(nil), statuses...)
}

// ParseStatus accepts any casing of a known status.
func ParseStatus(s string) (GameStatus, error) {
	s = strings.TrimSpace(s)
	for _, st := range statuses {
		if strings.EqualFold(string(st), s) {
			return st, nil
		}
	}

	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}
