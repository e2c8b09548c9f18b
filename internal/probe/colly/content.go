package collyprobe

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/JakeFAU/sourcescope/internal/osint"
	"github.com/JakeFAU/sourcescope/internal/probe"
)

var (
	loginActionMarkers = []string{"login", "signin", "auth"}
	paywallMarkers     = []string{"subscribe", "premium", "membership", "paywall", "subscription", "pay to read"}
)

// ContentProber fetches the landing page and inspects its HTML.
type ContentProber struct {
	visitor *visitor
}

var _ osint.ContentProbe = (*ContentProber)(nil)

// NewContentProber builds a prober. A nil transport gets a dedicated one.
func NewContentProber(cfg probe.Config, transport http.RoundTripper, logger *zap.Logger) *ContentProber {
	return &ContentProber{visitor: newVisitor(cfg, transport, logger)}
}

// AnalyzeContent implements osint.ContentProbe.
func (p *ContentProber) AnalyzeContent(ctx context.Context, target *url.URL) osint.ContentObservation {
	pg, err := p.visitor.visit(ctx, target.String())
	if err != nil {
		return osint.ContentObservation{Error: err.Error()}
	}
	obs, err := AnalyzeHTML(pg.body)
	if err != nil {
		return osint.ContentObservation{Error: err.Error()}
	}
	return obs
}

// AnalyzeHTML runs the login-form and paywall heuristics over an HTML body.
func AnalyzeHTML(body []byte) (osint.ContentObservation, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return osint.ContentObservation{}, fmt.Errorf("parse html: %w", err)
	}

	forms := doc.Find("form")
	hasLogin := false
	forms.EachWithBreak(func(_ int, form *goquery.Selection) bool {
		if isLoginForm(form) {
			hasLogin = true
			return false
		}
		return true
	})

	return osint.ContentObservation{
		Title:                strings.TrimSpace(doc.Find("title").First().Text()),
		MetaDescription:      metaDescription(doc),
		FormCount:            forms.Length(),
		HasLoginForm:         osint.Bool(hasLogin),
		HasPaywallIndicators: osint.Bool(hasPaywall(doc)),
	}, nil
}

func isLoginForm(form *goquery.Selection) bool {
	password := false
	form.Find("input").EachWithBreak(func(_ int, input *goquery.Selection) bool {
		if strings.EqualFold(strings.TrimSpace(input.AttrOr("type", "")), "password") {
			password = true
			return false
		}
		return true
	})
	if password {
		return true
	}
	action := strings.ToLower(form.AttrOr("action", ""))
	return containsAny(action, loginActionMarkers)
}

// hasPaywall mutates doc: scripts and styles are dropped before reading text.
func hasPaywall(doc *goquery.Document) bool {
	doc.Find("script, style, noscript").Remove()
	return containsAny(strings.ToLower(doc.Text()), paywallMarkers)
}

func metaDescription(doc *goquery.Document) string {
	var desc string
	doc.Find("meta").EachWithBreak(func(_ int, meta *goquery.Selection) bool {
		if strings.EqualFold(meta.AttrOr("name", ""), "description") {
			desc = strings.TrimSpace(meta.AttrOr("content", ""))
			return false
		}
		return true
	})
	return desc
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
