// Package visibility derives the public view of the content document.
//
// The admin check here is presentation only. Writes are authorised again by
// the /db endpoint against its own allow-list.
package visibility

import (
	"regexp"
	"strings"
	"time"

	"studio_site/internal/models"
)

var (
	bareYearRe = regexp.MustCompile(`^\d{4}$`)

	layouts = []string{
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02",
		"2006/01/02",
		"January 2, 2006",
		"Jan 2, 2006",
		"2 January 2006",
		"January 2006",
		"Jan 2006",
		"02.01.2006",
	}
)

// IsPublic reports whether an entry dated date is visible at now.
// Unknown formats are public.
func IsPublic(date string, now time.Time) bool {
	date = strings.TrimSpace(date)

	switch {
	case date == "":
		return true
	case strings.EqualFold(date, "TBA"):
		return true
	case strings.Contains(date, "Live"):
		return true
	case bareYearRe.MatchString(date):
		return true
	}

	// Labels such as "Available 2028" or "Q3 2027" land here too.
	t, ok := parseDate(date)
	if !ok {
		return true
	}

	return !t.After(now)
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Filter returns a copy of doc without id-less entries and, unless admin is
// set, without entries dated in the future.
func Filter(doc models.Document, admin bool, now time.Time) models.Document {
	out := doc.Clone()

	visible := func(id, date string) bool {
		if id == "" {
			return false
		}
		return admin || IsPublic(date, now)
	}

	out.Games = keep(out.Games, func(g models.Game) bool { return visible(g.ID, g.ReleaseDate) })
	out.BlogPosts = keep(out.BlogPosts, func(p models.BlogPost) bool { return visible(p.ID, p.Date) })
	out.News = keep(out.News, func(n models.NewsItem) bool { return visible(n.ID, n.Date) })
	out.Partners = keep(out.Partners, func(p models.Partner) bool { return p.ID != "" })
	out.Studios = keep(out.Studios, func(s models.Studio) bool { return s.ID != "" })

	for i := range out.Studios {
		s := &out.Studios[i]
		s.Games = keep(s.Games, func(g models.Game) bool { return visible(g.ID, g.ReleaseDate) })
		s.Series = keep(s.Series, func(sr models.Series) bool { return visible(sr.ID, sr.ReleaseDate) })
	}

	return out
}

func keep[T any](in []T, ok func(T) bool) []T {
	if in == nil {
		return nil
	}

	out := in[:0]
	for _, v := range in {
		if ok(v) {
			out = append(out, v)
		}
	}

	return out
}
