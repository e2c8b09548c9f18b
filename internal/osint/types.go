// Package osint defines the observation and classification types shared by the
// probes, the analyzer, and the HTTP surface, plus the source classifier itself.
package osint

import "time"

// Category labels how openly accessible a source is.
type Category string

// Category values reported to clients.
const (
	CategoryOSINT            Category = "OSINT"
	CategoryPotentiallyOSINT Category = "POTENTIALLY_OSINT"
	CategoryCSINT            Category = "CSINT"
	CategoryError            Category = "ERROR"
)

// ReachabilityObservation captures the outcome of a plain GET against the target.
type ReachabilityObservation struct {
	HTTPStatus     *int    `json:"http_status"`
	Reachable      bool    `json:"reachable"`
	RequiresAuth   bool    `json:"requires_auth"`
	Redirected     bool    `json:"redirected"`
	FinalURL       string  `json:"final_url,omitempty"`
	ElapsedSeconds float64 `json:"elapsed_seconds"`
	Error          string  `json:"error,omitempty"`
}

// RegistrationObservation captures domain registration metadata.
// IsPrivate is nil when the registry publishes no registrant at all.
type RegistrationObservation struct {
	Domain         string   `json:"domain,omitempty"`
	Registrar      string   `json:"registrar,omitempty"`
	IsPrivate      *bool    `json:"is_private"`
	CreatedDate    string   `json:"created_date,omitempty"`
	ExpirationDate string   `json:"expiration_date,omitempty"`
	NameServers    []string `json:"name_servers,omitempty"`
	Error          string   `json:"error,omitempty"`
}

// CrawlPolicyObservation captures the robots.txt lookup.
// AllowsCrawling is only meaningful when Exists is true.
type CrawlPolicyObservation struct {
	Exists         bool   `json:"exists"`
	AllowsCrawling *bool  `json:"allows_crawling"`
	ContentPreview string `json:"content_preview,omitempty"`
	Error          string `json:"error,omitempty"`
}

// ContentObservation captures HTML heuristics computed over the landing page.
type ContentObservation struct {
	Title                string `json:"title,omitempty"`
	MetaDescription      string `json:"meta_description,omitempty"`
	FormCount            int    `json:"form_count"`
	HasLoginForm         *bool  `json:"has_login_form"`
	HasPaywallIndicators *bool  `json:"has_paywall_indicators"`
	Error                string `json:"error,omitempty"`
}

// Observations groups the four probe results. A nil field means the probe
// produced nothing and the matching criterion is skipped.
type Observations struct {
	Reachability *ReachabilityObservation `json:"reachability,omitempty"`
	Registration *RegistrationObservation `json:"registration,omitempty"`
	CrawlPolicy  *CrawlPolicyObservation  `json:"crawl_policy,omitempty"`
	Content      *ContentObservation      `json:"content,omitempty"`
}

// Contribution records one fired rule.
type Contribution struct {
	Criterion Criterion `json:"criterion"`
	Delta     int       `json:"delta"`
	Reason    string    `json:"reason"`
}

// Result is the classification derived from a set of observations.
type Result struct {
	Category       Category       `json:"category"`
	Confidence     int            `json:"confidence"`
	ScoreRaw       int            `json:"score_raw"`
	Reasons        []string       `json:"reasons"`
	CategoryReason string         `json:"category_reason"`
	Policy         PolicyName     `json:"policy,omitempty"`
	Breakdown      []Contribution `json:"breakdown,omitempty"`
}

// Report is the full output of one analysis.
type Report struct {
	ID           string       `json:"id"`
	URL          string       `json:"url"`
	Timestamp    time.Time    `json:"timestamp"`
	Observations Observations `json:"observations"`
	Result       Result       `json:"result"`
	Error        string       `json:"error,omitempty"`
}

// Bool returns a pointer to v.
func Bool(v bool) *bool {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
