// Package parser extracts directory listing cards from page HTML.
package parser

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	urlutil "github.com/law-makers/dircrawl/internal/utils/url"
	"github.com/law-makers/dircrawl/pkg/models"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

// Selectors locate the listing fields inside a page
type Selectors struct {
	Card       string `mapstructure:"card"`
	IDAttr     string `mapstructure:"id_attr"`
	NameAttr   string `mapstructure:"name_attr"`
	Link       string `mapstructure:"link"`
	Rating     string `mapstructure:"rating"`
	Reviews    string `mapstructure:"reviews"`
	Category   string `mapstructure:"category"`
	Pagination string `mapstructure:"pagination"`
}

// DefaultSelectors match the reference medical directory markup
func DefaultSelectors() Selectors {
	return Selectors{
		Card:       "div.b-doctor-card[data-doctor-id]",
		IDAttr:     "data-doctor-id",
		NameAttr:   "data-doctor-name",
		Link:       "a.b-doctor-card__name-link",
		Rating:     "div.b-stars-rate__progress",
		Reviews:    `a[href*="#otzivi"]`,
		Category:   "div.b-doctor-card__spec",
		Pagination: "ul.b-pagination-vuetify-imitation a",
	}
}

var (
	ratingRe = regexp.MustCompile(`width:\s*([\d.]+)\s*em`)
	digitsRe = regexp.MustCompile(`\d+`)
)

// CardParser reads listing cards with CSS selectors
type CardParser struct {
	sel     Selectors
	baseURL string
}

// New creates a CardParser. Empty selector fields fall back to the defaults.
func New(baseURL string, sel Selectors) *CardParser {
	def := DefaultSelectors()
	fill := func(v *string, d string) {
		if strings.TrimSpace(*v) == "" {
			*v = d
		}
	}
	fill(&sel.Card, def.Card)
	fill(&sel.IDAttr, def.IDAttr)
	fill(&sel.NameAttr, def.NameAttr)
	fill(&sel.Link, def.Link)
	fill(&sel.Rating, def.Rating)
	fill(&sel.Reviews, def.Reviews)
	fill(&sel.Category, def.Category)
	fill(&sel.Pagination, def.Pagination)

	return &CardParser{sel: sel, baseURL: baseURL}
}

func (p *CardParser) document(body []byte) *goquery.Document {
	root, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		log.Debug().Err(err).Msg("Unparseable page body")
		return nil
	}
	return goquery.NewDocumentFromNode(root)
}

// ParsePage returns one fragment per card. Missing fields are left empty.
func (p *CardParser) ParsePage(body []byte) []models.Fragment {
	doc := p.document(body)
	if doc == nil {
		return nil
	}

	var out []models.Fragment
	doc.Find(p.sel.Card).Each(func(_ int, card *goquery.Selection) {
		out = append(out, p.parseCard(card))
	})
	return out
}

func (p *CardParser) parseCard(card *goquery.Selection) models.Fragment {
	f := models.Fragment{
		ID:          strings.TrimSpace(card.AttrOr(p.sel.IDAttr, "")),
		DisplayName: cleanText(card.AttrOr(p.sel.NameAttr, "")),
	}

	link := card.Find(p.sel.Link).First()
	if href, ok := link.Attr("href"); ok && strings.TrimSpace(href) != "" {
		f.ProfileURL = urlutil.StripFragment(urlutil.ResolveURL(p.baseURL, strings.TrimSpace(href)))
	}
	if f.DisplayName == "" {
		f.DisplayName = cleanText(link.Text())
	}

	if style, ok := card.Find(p.sel.Rating).First().Attr("style"); ok {
		if m := ratingRe.FindStringSubmatch(style); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				f.Rating = &v
			}
		}
	}

	if reviews := card.Find(p.sel.Reviews).First(); reviews.Length() > 0 {
		if digits := strings.Join(digitsRe.FindAllString(reviews.Text(), -1), ""); digits != "" {
			if n, err := strconv.Atoi(digits); err == nil {
				f.ReviewCount = &n
			}
		}
	}

	if cat := card.Find(p.sel.Category).First(); cat.Length() > 0 {
		f.CategoryLabel = cleanText(cat.Text())
	}

	return f
}

// PageCount returns the largest numeric pagination link, or 0
func (p *CardParser) PageCount(body []byte) int {
	doc := p.document(body)
	if doc == nil {
		return 0
	}

	max := 0
	doc.Find(p.sel.Pagination).Each(func(_ int, a *goquery.Selection) {
		if n, err := strconv.Atoi(strings.TrimSpace(a.Text())); err == nil && n > max {
			max = n
		}
	})
	return max
}

// cleanText unescapes entities and collapses whitespace
func cleanText(s string) string {
	return strings.Join(strings.Fields(html.UnescapeString(s)), " ")
}
