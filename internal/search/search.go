// Package search projects the content document into a flat list and filters
// it by free text and facets. The index is rebuilt on every query; the
// catalogue is tens of entries.
package search

import (
	"strings"

	"studio_site/internal/models"
)

// All disables a facet.
const All = "All"

type Item struct {
	ID          string            `json:"id"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Kind        models.Kind       `json:"type"`
	Path        string            `json:"path"`
	Image       string            `json:"image,omitempty"`
	Status      models.GameStatus `json:"status,omitempty"`
	Genres      []string          `json:"genres,omitempty"`
}

type Query struct {
	Text   string
	Type   string
	Status string
	Genre  string
}

// Build projects doc in a fixed order: games, blog posts, news, studios each
// followed by their games and series, site pages, partners. The first item
// seen for an id wins.
func Build(doc models.Document) []Item {
	b := builder{seen: make(map[string]struct{})}

	for _, g := range doc.Games {
		b.addGame(g)
	}
	for _, p := range doc.BlogPosts {
		b.add(Item{ID: p.ID, Title: p.Title, Description: p.Excerpt, Kind: models.KindArticle, Path: models.ArticlePath(p.ID), Image: p.Image})
	}
	for _, n := range doc.News {
		b.add(Item{ID: n.ID, Title: n.Title, Description: n.Excerpt, Kind: models.KindNews, Path: models.ArticlePath(n.ID), Image: n.Image})
	}
	for _, s := range doc.Studios {
		b.add(Item{ID: s.ID, Title: s.Name, Description: s.Description, Kind: models.KindStudio, Path: models.StudioPath(s.ID), Image: s.Image})
		for _, g := range s.Games {
			b.addGame(g)
		}
		for _, sr := range s.Series {
			b.add(Item{
				ID:          sr.ID,
				Title:       sr.Title,
				Description: sr.Description,
				Kind:        models.KindSeries,
				Path:        models.SeriesPath(s.ID, sr.ID),
				Image:       sr.Image,
				Status:      sr.Status,
				Genres:      sr.Genres,
			})
		}
	}
	for _, p := range models.SitePages() {
		b.add(Item{ID: p.ID, Title: p.Title, Description: p.Description, Kind: models.KindPage, Path: p.Path})
	}
	for _, p := range doc.Partners {
		b.add(Item{ID: p.ID, Title: p.Name, Description: p.Description, Kind: models.KindPartner, Path: models.PartnerPath(p.ID), Image: p.Image})
	}

	return b.items
}

type builder struct {
	items []Item
	seen  map[string]struct{}
}

func (b *builder) addGame(g models.Game) {
	b.add(Item{
		ID:          g.ID,
		Title:       g.Title,
		Description: g.Description,
		Kind:        models.KindGame,
		Path:        models.GamePath(g.ID),
		Image:       g.Image,
		Status:      g.Status,
		Genres:      g.Genres,
	})
}

func (b *builder) add(it Item) {
	if it.ID == "" {
		return
	}
	if _, ok := b.seen[it.ID]; ok {
		return
	}
	b.seen[it.ID] = struct{}{}
	b.items = append(b.items, it)
}

// Filter keeps the items matching q, preserving order.
func Filter(items []Item, q Query) []Item {
	text := strings.ToLower(strings.TrimSpace(q.Text))

	out := make([]Item, 0, len(items))
	for _, it := range items {
		if matchText(it, text) && matchType(it, q.Type) && matchStatus(it, q.Status) && matchGenre(it, q.Genre) {
			out = append(out, it)
		}
	}

	return out
}

// Search builds the index for doc and filters it.
func Search(doc models.Document, q Query) []Item {
	return Filter(Build(doc), q)
}

func matchText(it Item, text string) bool {
	if text == "" {
		return true
	}
	return strings.Contains(strings.ToLower(it.Title), text) ||
		strings.Contains(strings.ToLower(it.Description), text)
}

func facetOff(v string) bool {
	v = strings.TrimSpace(v)
	return v == "" || v == All
}

func matchType(it Item, facet string) bool {
	if facetOff(facet) {
		return true
	}
	return strings.EqualFold(it.Kind.String(), strings.TrimSpace(facet))
}

func matchStatus(it Item, facet string) bool {
	if facetOff(facet) || !it.Kind.IsProject() {
		return true
	}
	return strings.EqualFold(string(it.Status), strings.TrimSpace(facet))
}

func matchGenre(it Item, facet string) bool {
	if facetOff(facet) || !it.Kind.IsProject() {
		return true
	}
	facet = strings.TrimSpace(facet)
	for _, g := range it.Genres {
		if strings.EqualFold(g, facet) {
			return true
		}
	}
	return false
}

// Genres lists the distinct genres of project items, in first-seen order.
func Genres(items []Item) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, it := range items {
		if !it.Kind.IsProject() {
			continue
		}
		for _, g := range it.Genres {
			key := strings.ToLower(g)
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			out = append(out, g)
		}
	}
	return out
}
