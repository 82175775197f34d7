// Package importer turns a public store or wiki page into a game draft that
// an admin can review before saving.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"syscall"
	"time"

	"studio_site/internal/models"
	"studio_site/internal/visibility"

	"github.com/PuerkitoBio/goquery"
)

var (
	ErrInvalidURL = errors.New("invalid page url")
	ErrStatus     = errors.New("unexpected page status")
	ErrNoTitle    = errors.New("page has no recognisable title")
	ErrBlocked    = errors.New("address is not publicly routable")
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"

var (
	spaceRe = regexp.MustCompile(`\s+`)
	slugRe  = regexp.MustCompile(`[^a-z0-9]+`)
	yearRe  = regexp.MustCompile(`\b(19\d{2}|20\d{2})\b`)
)

type Importer struct {
	client *http.Client
	log    *slog.Logger
	now    func() time.Time

	// allowPrivate lifts the public-address check. Tests only.
	allowPrivate bool
}

// New builds an importer whose client only connects to public addresses,
// redirects included.
func New(timeout time.Duration, log *slog.Logger) *Importer {
	i := &Importer{
		log: log,
		now: time.Now,
	}

	dialer := &net.Dialer{
		Timeout: timeout,
		Control: i.checkAddress,
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.Proxy = nil
	transport.DialContext = dialer.DialContext

	i.client = &http.Client{Timeout: timeout, Transport: transport}

	return i
}

// checkAddress runs on the resolved address of every connection.
func (i *Importer) checkAddress(network, address string, _ syscall.RawConn) error {
	if i.allowPrivate {
		return nil
	}

	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}

	ip := net.ParseIP(host)
	if ip == nil || !isPublic(ip) {
		return fmt.Errorf("%s: %w", address, ErrBlocked)
	}
	return nil
}

func isPublic(ip net.IP) bool {
	return !(ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsUnspecified() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast())
}

// Import downloads pageURL and parses it into a draft.
func (i *Importer) Import(ctx context.Context, pageURL string) (*models.Game, error) {
	const op = "importer.Import"

	u, err := url.Parse(pageURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("%s: %w: %q", op, ErrInvalidURL, pageURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept-Language", "en-US,en;q=0.8")
	req.AddCookie(&http.Cookie{Name: "birthtime", Value: "473385601"})
	req.AddCookie(&http.Cookie{Name: "wants_mature_content", Value: "1"})

	resp, err := i.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s: %w: %d", op, ErrStatus, resp.StatusCode)
	}

	g, err := i.Parse(resp.Body, u.String())
	if err != nil {
		i.log.Warn("page import failed",
			slog.String("operation", op),
			slog.String("url", u.String()),
			slog.String("error", err.Error()))
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	i.log.Info("page imported", slog.String("url", u.String()), slog.String("id", g.ID))

	return g, nil
}

// Parse reads a Steam store page or a wiki article with an infobox. Open
// Graph tags fill whatever the page layout does not provide.
func (i *Importer) Parse(r io.Reader, pageURL string) (*models.Game, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var g models.Game
	switch {
	case doc.Find("#appHubAppName, div.apphub_AppName").Length() > 0:
		parseStore(doc, &g)
	case doc.Find("table.infobox").Length() > 0:
		parseInfobox(doc, &g)
	}
	fillOpenGraph(doc, &g)

	if g.Title == "" {
		return nil, ErrNoTitle
	}

	g.ID = slugify(g.Title)
	g.Links = append(g.Links, models.Link{Label: "Source page", URL: pageURL})

	if g.Status == "" && g.ReleaseDate != "" {
		if visibility.IsPublic(g.ReleaseDate, i.now()) {
			g.Status = models.StatusReleased
		} else {
			g.Status = models.StatusComingSoon
		}
	}

	return &g, nil
}

func parseStore(doc *goquery.Document, g *models.Game) {
	g.Title = clean(doc.Find("#appHubAppName, div.apphub_AppName").First().Text())
	g.Description = clean(doc.Find("div.game_description_snippet").First().Text())
	g.LongDescription = clean(doc.Find("#game_area_description").First().Text())
	g.LongDescription = strings.TrimPrefix(g.LongDescription, "About This Game ")

	if img, ok := doc.Find("img.game_header_image_full").Attr("src"); ok {
		g.Image = img
	}

	g.ReleaseDate = clean(doc.Find("div.release_date div.date").First().Text())

	doc.Find("#genresAndManufacturer a").Each(func(_ int, s *goquery.Selection) {
		href, _ := s.Attr("href")
		if strings.Contains(href, "/genre/") {
			g.Genres = appendUnique(g.Genres, clean(s.Text()))
		}
	})

	doc.Find("div.game_area_sys_req[data-os]").Each(func(_ int, s *goquery.Selection) {
		switch platform, _ := s.Attr("data-os"); platform {
		case "win":
			g.Platforms = appendUnique(g.Platforms, "PC")
		case "mac":
			g.Platforms = appendUnique(g.Platforms, "macOS")
		case "linux":
			g.Platforms = appendUnique(g.Platforms, "Linux")
		}
	})

	if doc.Find("div.early_access_header").Length() > 0 {
		g.Status = models.StatusEarlyAccess
	}
}

func parseInfobox(doc *goquery.Document, g *models.Game) {
	infobox := doc.Find("table.infobox").First()

	g.Title = clean(infobox.Find("th.infobox-above").Text())

	if img, ok := infobox.Find("td.infobox-image img").Attr("src"); ok {
		if strings.HasPrefix(img, "//") {
			img = "https:" + img
		}
		g.Image = img
	}

	for _, label := range []string{"Genre(s)", "Genre"} {
		if sel := infobox.Find(fmt.Sprintf("th:contains('%s')", label)); sel.Length() > 0 {
			sel.Next().Find("a").Each(func(_ int, s *goquery.Selection) {
				g.Genres = appendUnique(g.Genres, clean(s.Text()))
			})
			if len(g.Genres) == 0 {
				g.Genres = appendUnique(g.Genres, clean(sel.Next().Text()))
			}
			break
		}
	}

	if sel := infobox.Find("th:contains('Platform')"); sel.Length() > 0 {
		sel.Next().Find("a").Each(func(_ int, s *goquery.Selection) {
			g.Platforms = appendUnique(g.Platforms, clean(s.Text()))
		})
	}

	if sel := infobox.Find("th:contains('Release')"); sel.Length() > 0 {
		if m := yearRe.FindString(sel.Next().Text()); m != "" {
			g.ReleaseDate = m
		}
	}

	// first paragraph after the infobox is the lead
	found := false
	infobox.Parent().Children().EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if s.Is("table.infobox") {
			found = true
			return true
		}
		if found && s.Is("p") {
			if text := clean(s.Text()); text != "" {
				g.Description = text
				return false
			}
		}
		return true
	})
}

func fillOpenGraph(doc *goquery.Document, g *models.Game) {
	meta := func(property string) string {
		v, _ := doc.Find(fmt.Sprintf("meta[property='%s']", property)).Attr("content")
		return clean(v)
	}

	if g.Title == "" {
		g.Title = meta("og:title")
	}
	if g.Description == "" {
		g.Description = meta("og:description")
	}
	if g.Image == "" {
		g.Image = meta("og:image")
	}
}

func clean(s string) string {
	return strings.TrimSpace(spaceRe.ReplaceAllString(s, " "))
}

func slugify(title string) string {
	return strings.Trim(slugRe.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

func appendUnique(list []string, v string) []string {
	if v == "" {
		return list
	}
	for _, existing := range list {
		if strings.EqualFold(existing, v) {
			return list
		}
	}
	return append(list, v)
}
