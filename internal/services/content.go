package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"studio_site/internal/content"
	"studio_site/internal/metrics"
	"studio_site/internal/models"
	"studio_site/internal/search"

	"github.com/google/uuid"
)

var (
	ErrNotFound    = errors.New("not found")
	ErrExists      = errors.New("already exists")
	ErrInvalidKind = errors.New("articles are either news or article")
)

type ContentService struct {
	store   *content.Store
	log     *slog.Logger
	metrics *metrics.Recorder
}

func NewContentService(store *content.Store, log *slog.Logger, rec *metrics.Recorder) *ContentService {
	return &ContentService{
		store:   store,
		log:     log,
		metrics: rec,
	}
}

func (s *ContentService) Content(admin bool) models.Document {
	return s.store.View(admin)
}

func (s *ContentService) Games(admin bool) []models.Game {
	return s.store.View(admin).Games
}

// GetGame looks in the top-level catalogue first, then inside studios.
func (s *ContentService) GetGame(id string, admin bool) (*models.Game, error) {
	const op = "services.content.GetGame"

	doc := s.store.View(admin)
	for i := range doc.Games {
		if doc.Games[i].ID == id {
			return &doc.Games[i], nil
		}
	}
	for _, st := range doc.Studios {
		for i := range st.Games {
			if st.Games[i].ID == id {
				return &st.Games[i], nil
			}
		}
	}

	return nil, fmt.Errorf("%s: game %q: %w", op, id, ErrNotFound)
}

func (s *ContentService) GetStudio(id string, admin bool) (*models.Studio, error) {
	const op = "services.content.GetStudio"

	doc := s.store.View(admin)
	for i := range doc.Studios {
		if doc.Studios[i].ID == id {
			return &doc.Studios[i], nil
		}
	}

	return nil, fmt.Errorf("%s: studio %q: %w", op, id, ErrNotFound)
}

func (s *ContentService) GetSeries(studioID, seriesID string, admin bool) (*models.Series, error) {
	const op = "services.content.GetSeries"

	studio, err := s.GetStudio(studioID, admin)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	for i := range studio.Series {
		if studio.Series[i].ID == seriesID {
			return &studio.Series[i], nil
		}
	}

	return nil, fmt.Errorf("%s: series %q: %w", op, seriesID, ErrNotFound)
}

func (s *ContentService) GetPartner(id string, admin bool) (*models.Partner, error) {
	const op = "services.content.GetPartner"

	doc := s.store.View(admin)
	for i := range doc.Partners {
		if doc.Partners[i].ID == id {
			return &doc.Partners[i], nil
		}
	}

	return nil, fmt.Errorf("%s: partner %q: %w", op, id, ErrNotFound)
}

// ArticleView is a blog post or news item tagged with its kind.
type ArticleView struct {
	models.Article
	Kind models.Kind `json:"type"`
}

// GetArticle serves both blog posts and news; blog posts win on an id clash.
func (s *ContentService) GetArticle(id string, admin bool) (*ArticleView, error) {
	const op = "services.content.GetArticle"

	doc := s.store.View(admin)
	for _, p := range doc.BlogPosts {
		if p.ID == id {
			return &ArticleView{Article: models.Article(p), Kind: models.KindArticle}, nil
		}
	}
	for _, n := range doc.News {
		if n.ID == id {
			return &ArticleView{Article: models.Article(n), Kind: models.KindNews}, nil
		}
	}

	return nil, fmt.Errorf("%s: article %q: %w", op, id, ErrNotFound)
}

// Search runs over the whole document regardless of who is asking.
func (s *ContentService) Search(q search.Query) []search.Item {
	s.metrics.RecordSearch()

	res := search.Search(s.store.Snapshot(), q)
	if res == nil {
		res = []search.Item{}
	}

	s.log.Debug("search",
		slog.String("q", q.Text),
		slog.String("type", q.Type),
		slog.Int("results", len(res)))

	return res
}

func (s *ContentService) Routes() []models.Page {
	return models.SitePages()
}

func (s *ContentService) SyncStatus() content.SyncStatus {
	return s.store.Status()
}

func (s *ContentService) Sync(ctx context.Context) content.SyncStatus {
	s.store.Sync(ctx)
	return s.store.Status()
}

func (s *ContentService) CreateGame(ctx context.Context, adminEmail string, g models.Game) (*models.Game, error) {
	const op = "services.content.CreateGame"

	if err := normalizeGame(&g); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}

	_, err := s.store.Mutate(ctx, adminEmail, func(d *models.Document) error {
		for _, existing := range d.Games {
			if existing.ID == g.ID {
				return fmt.Errorf("game %q: %w", g.ID, ErrExists)
			}
		}
		d.Games = append(d.Games, g)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("game created", slog.String("id", g.ID), slog.String("admin", adminEmail))

	return &g, nil
}

func (s *ContentService) UpdateGame(ctx context.Context, adminEmail, id string, g models.Game) (*models.Game, error) {
	const op = "services.content.UpdateGame"

	if err := normalizeGame(&g); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	g.ID = id

	_, err := s.store.Mutate(ctx, adminEmail, func(d *models.Document) error {
		for i := range d.Games {
			if d.Games[i].ID == id {
				d.Games[i] = g
				return nil
			}
		}
		return fmt.Errorf("game %q: %w", id, ErrNotFound)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &g, nil
}

func (s *ContentService) DeleteGame(ctx context.Context, adminEmail, id string) error {
	const op = "services.content.DeleteGame"

	_, err := s.store.Mutate(ctx, adminEmail, func(d *models.Document) error {
		for i := range d.Games {
			if d.Games[i].ID == id {
				d.Games = append(d.Games[:i], d.Games[i+1:]...)
				return nil
			}
		}
		return fmt.Errorf("game %q: %w", id, ErrNotFound)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("game deleted", slog.String("id", id), slog.String("admin", adminEmail))

	return nil
}

// CreateArticle adds a blog post (KindArticle) or a news item (KindNews).
func (s *ContentService) CreateArticle(ctx context.Context, adminEmail string, kind models.Kind, a models.Article) (*ArticleView, error) {
	const op = "services.content.CreateArticle"

	if kind != models.KindArticle && kind != models.KindNews {
		return nil, fmt.Errorf("%s: %w", op, ErrInvalidKind)
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}

	_, err := s.store.Mutate(ctx, adminEmail, func(d *models.Document) error {
		if articleIndex(d.BlogPosts, a.ID) >= 0 || articleIndex(d.News, a.ID) >= 0 {
			return fmt.Errorf("article %q: %w", a.ID, ErrExists)
		}
		if kind == models.KindNews {
			d.News = append(d.News, models.NewsItem(a))
		} else {
			d.BlogPosts = append(d.BlogPosts, models.BlogPost(a))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("article created",
		slog.String("id", a.ID),
		slog.String("type", kind.String()),
		slog.String("admin", adminEmail))

	return &ArticleView{Article: a, Kind: kind}, nil
}

// UpdateArticle replaces an article in place; its kind does not change.
func (s *ContentService) UpdateArticle(ctx context.Context, adminEmail, id string, a models.Article) (*ArticleView, error) {
	const op = "services.content.UpdateArticle"

	a.ID = id
	kind := models.KindArticle

	_, err := s.store.Mutate(ctx, adminEmail, func(d *models.Document) error {
		if i := articleIndex(d.BlogPosts, id); i >= 0 {
			d.BlogPosts[i] = models.BlogPost(a)
			return nil
		}
		if i := articleIndex(d.News, id); i >= 0 {
			d.News[i] = models.NewsItem(a)
			kind = models.KindNews
			return nil
		}
		return fmt.Errorf("article %q: %w", id, ErrNotFound)
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &ArticleView{Article: a, Kind: kind}, nil
}

func (s *ContentService) DeleteArticle(ctx context.Context, adminEmail, id string) error {
	const op = "services.content.DeleteArticle"

	_, err := s.store.Mutate(ctx, adminEmail, func(d *models.Document) error {
		if i := articleIndex(d.BlogPosts, id); i >= 0 {
			d.BlogPosts = append(d.BlogPosts[:i], d.BlogPosts[i+1:]...)
			return nil
		}
		if i := articleIndex(d.News, id); i >= 0 {
			d.News = append(d.News[:i], d.News[i+1:]...)
			return nil
		}
		return fmt.Errorf("article %q: %w", id, ErrNotFound)
	})
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	s.log.Info("article deleted", slog.String("id", id), slog.String("admin", adminEmail))

	return nil
}

func articleIndex[T models.NewsItem | models.BlogPost](list []T, id string) int {
	for i, a := range list {
		if models.Article(a).ID == id {
			return i
		}
	}
	return -1
}

func normalizeGame(g *models.Game) error {
	g.ID = strings.TrimSpace(g.ID)
	if g.Status == "" {
		return nil
	}

	st, err := models.ParseStatus(string(g.Status))
	if err != nil {
		return err
	}
	g.Status = st

	return nil
}
