package models

import (
	"encoding/json"
	"fmt"
)

// Document is the whole site content. It is replaced, never patched.
type Document struct {
	Games     []Game     `json:"games"`
	Studios   []Studio   `json:"studios"`
	Partners  []Partner  `json:"partners"`
	News      []NewsItem `json:"news"`
	BlogPosts []BlogPost `json:"blogPosts"`
	About     About      `json:"about"`
}

type Game struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	LongDescription string     `json:"longDescription,omitempty"`
	Image           string     `json:"image,omitempty"`
	ReleaseDate     string     `json:"releaseDate,omitempty"`
	Status          GameStatus `json:"status,omitempty"`
	Genres          []string   `json:"genres,omitempty"`
	Platforms       []string   `json:"platforms,omitempty"`
	Links           []Link     `json:"links,omitempty"`
}

type Link struct {
	Label string `json:"label"`
	URL   string `json:"url"`
}

type Series struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	LongDescription string     `json:"longDescription,omitempty"`
	Image           string     `json:"image,omitempty"`
	ReleaseDate     string     `json:"releaseDate,omitempty"`
	Status          GameStatus `json:"status,omitempty"`
	Genres          []string   `json:"genres,omitempty"`
}

type Studio struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	LongDescription string   `json:"longDescription,omitempty"`
	Image           string   `json:"image,omitempty"`
	Games           []Game   `json:"games,omitempty"`
	Series          []Series `json:"series,omitempty"`
}

type Partner struct {
	ID              string `json:"id"`
	Name            string `json:"name"`
	Description     string `json:"description"`
	LongDescription string `json:"longDescription,omitempty"`
	Image           string `json:"image,omitempty"`
	URL             string `json:"url,omitempty"`
}

// Article is the shared shape of news items and blog posts.
type Article struct {
	ID      string   `json:"id"`
	Title   string   `json:"title"`
	Excerpt string   `json:"excerpt"`
	Content string   `json:"content,omitempty"`
	Image   string   `json:"image,omitempty"`
	Date    string   `json:"date,omitempty"`
	Author  string   `json:"author,omitempty"`
	Tags    []string `json:"tags,omitempty"`
}

type (
	NewsItem Article
	BlogPost Article
)

type About struct {
	Mission string       `json:"mission,omitempty"`
	Story   string       `json:"story,omitempty"`
	Team    []TeamMember `json:"team,omitempty"`
}

type TeamMember struct {
	Name  string `json:"name"`
	Role  string `json:"role"`
	Bio   string `json:"bio,omitempty"`
	Image string `json:"image,omitempty"`
}

// Clone returns a deep copy that shares no slices with d.
func (d Document) Clone() Document {
	out := d

	out.Games = cloneGames(d.Games)
	out.Partners = append([]Partner(nil), d.Partners...)
	out.News = cloneArticles(d.News)
	out.BlogPosts = cloneArticles(d.BlogPosts)

	if d.Studios != nil {
		out.Studios = make([]Studio, len(d.Studios))
		for i, s := range d.Studios {
			s.Games = cloneGames(s.Games)
			if s.Series != nil {
				series := make([]Series, len(s.Series))
				for j, sr := range s.Series {
					sr.Genres = append([]string(nil), sr.Genres...)
					series[j] = sr
				}
				s.Series = series
			}
			out.Studios[i] = s
		}
	}

	out.About.Team = append([]TeamMember(nil), d.About.Team...)

	return out
}

func cloneGames(in []Game) []Game {
	if in == nil {
		return nil
	}

	out := make([]Game, len(in))
	for i, g := range in {
		g.Genres = append([]string(nil), g.Genres...)
		g.Platforms = append([]string(nil), g.Platforms...)
		g.Links = append([]Link(nil), g.Links...)
		out[i] = g
	}

	return out
}

func cloneArticles[T NewsItem | BlogPost](in []T) []T {
	if in == nil {
		return nil
	}

	out := make([]T, len(in))
	for i, a := range in {
		art := Article(a)
		art.Tags = append([]string(nil), art.Tags...)
		out[i] = T(art)
	}

	return out
}

// Validate reports duplicate ids inside a single category.
func (d Document) Validate() error {
	if err := uniqueIDs("games", len(d.Games), func(i int) string { return d.Games[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("studios", len(d.Studios), func(i int) string { return d.Studios[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("partners", len(d.Partners), func(i int) string { return d.Partners[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("news", len(d.News), func(i int) string { return d.News[i].ID }); err != nil {
		return err
	}
	if err := uniqueIDs("blogPosts", len(d.BlogPosts), func(i int) string { return d.BlogPosts[i].ID }); err != nil {
		return err
	}

	for _, s := range d.Studios {
		if err := uniqueIDs("studios."+s.ID+".games", len(s.Games), func(i int) string { return s.Games[i].ID }); err != nil {
			return err
		}
		if err := uniqueIDs("studios."+s.ID+".series", len(s.Series), func(i int) string { return s.Series[i].ID }); err != nil {
			return err
		}
	}

	return nil
}

func uniqueIDs(category string, n int, id func(int) string) error {
	seen := make(map[string]struct{}, n)
	for i := 0; i < n; i++ {
		v := id(i)
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			return fmt.Errorf("%w: %s in %s", ErrDuplicateID, v, category)
		}
		seen[v] = struct{}{}
	}

	return nil
}

// ParseDocument decodes and validates a document body.
func ParseDocument(data []byte) (*Document, error) {
	const op = "models.ParseDocument"

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := doc.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &doc, nil
}
