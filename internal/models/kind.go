package models

import (
	"fmt"
	"net/url"
	"strings"
)

// Kind tags a searchable or navigable entry.
type Kind int

const (
	KindGame Kind = iota + 1
	KindSeries
	KindStudio
	KindPartner
	KindArticle
	KindNews
	KindPage
)

type Icon string

const (
	IconGamepad   Icon = "gamepad"
	IconLayers    Icon = "layers"
	IconBuilding  Icon = "building"
	IconHandshake Icon = "handshake"
	IconPen       Icon = "pen"
	IconNewspaper Icon = "newspaper"
	IconCompass   Icon = "compass"
)

type kindInfo struct {
	name    string
	icon    Icon
	project bool
}

// kinds must list every Kind constant; kind_test.go walks the range.
var kinds = map[Kind]kindInfo{
	KindGame:    {name: "game", icon: IconGamepad, project: true},
	KindSeries:  {name: "series", icon: IconLayers, project: true},
	KindStudio:  {name: "studio", icon: IconBuilding},
	KindPartner: {name: "partner", icon: IconHandshake},
	KindArticle: {name: "article", icon: IconPen},
	KindNews:    {name: "news", icon: IconNewspaper},
	KindPage:    {name: "page", icon: IconCompass},
}

func Kinds() []Kind {
	return []Kind{KindGame, KindSeries, KindStudio, KindPartner, KindArticle, KindNews, KindPage}
}

func (k Kind) String() string {
	if info, ok := kinds[k]; ok {
		return info.name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

func (k Kind) Icon() Icon {
	return kinds[k].icon
}

// IsProject reports whether status and genre facets apply to the kind.
func (k Kind) IsProject() bool {
	return kinds[k].project
}

func ParseKind(s string) (Kind, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for k, info := range kinds {
		if info.name == s {
			return k, nil
		}
	}

	return 0, fmt.Errorf("%w: %q", ErrUnknownKind, s)
}

func (k Kind) MarshalText() ([]byte, error) {
	if _, ok := kinds[k]; !ok {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, int(k))
	}
	return []byte(k.String()), nil
}

func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// Static site paths.
const (
	PathHome    = "/"
	PathAbout   = "/about"
	PathGames   = "/games"
	PathNetwork = "/network"
	PathNews    = "/news"
	PathContact = "/contact"
	PathAdmin   = "/admin"
	PathPrivacy = "/privacy"
)

type Page struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Path        string `json:"path"`
	Icon        Icon   `json:"icon"`
}

// SitePages lists the public static routes. Admin is routed but never listed.
func SitePages() []Page {
	return []Page{
		{ID: "page-home", Title: "Home", Description: "Studio overview and featured games", Path: PathHome, Icon: IconCompass},
		{ID: "page-about", Title: "About", Description: "Our mission, story and team", Path: PathAbout, Icon: IconCompass},
		{ID: "page-games", Title: "Games", Description: "Every game we have made or are making", Path: PathGames, Icon: IconGamepad},
		{ID: "page-network", Title: "Network", Description: "Sub-studios and partners", Path: PathNetwork, Icon: IconBuilding},
		{ID: "page-news", Title: "News", Description: "Announcements and dev blog", Path: PathNews, Icon: IconNewspaper},
		{ID: "page-contact", Title: "Contact", Description: "Press, business and support channels", Path: PathContact, Icon: IconCompass},
		{ID: "page-privacy", Title: "Privacy", Description: "Privacy policy", Path: PathPrivacy, Icon: IconCompass},
	}
}

func GamePath(id string) string {
	return PathGames + "/" + url.PathEscape(id)
}

func StudioPath(id string) string {
	return PathNetwork + "/" + url.PathEscape(id)
}

func SeriesPath(studioID, seriesID string) string {
	return StudioPath(studioID) + "/series/" + url.PathEscape(seriesID)
}

func PartnerPath(id string) string {
	return "/partners/" + url.PathEscape(id)
}

func ArticlePath(id string) string {
	return PathNews + "/" + url.PathEscape(id)
}
