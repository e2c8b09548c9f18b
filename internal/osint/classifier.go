package osint

import (
	"errors"
	"fmt"
	"strings"
)

// Criterion names one scoring dimension.
type Criterion string

// Criteria in evaluation order.
const (
	CriterionReachability Criterion = "reachability"
	CriterionRegistration Criterion = "registration"
	CriterionCrawlPolicy  Criterion = "crawl_policy"
	CriterionLoginForm    Criterion = "content_login_form"
	CriterionPaywall      Criterion = "content_paywall"
)

// Category thresholds on the clamped confidence.
const (
	OSINTThreshold            = 70
	PotentiallyOSINTThreshold = 40
)

// PolicyName identifies a classification policy.
type PolicyName string

// Supported policies.
const (
	PolicyFull   PolicyName = "full"
	PolicySimple PolicyName = "simple"
)

// ErrUnknownPolicy is returned by ParsePolicy for unsupported names.
var ErrUnknownPolicy = errors.New("unknown classification policy")

// Policy turns observations into a Result. Implementations must be pure.
type Policy interface {
	Name() PolicyName
	Classify(obs Observations) Result
}

// ParsePolicy resolves a policy by name (case-insensitive).
func ParsePolicy(name string) (Policy, error) {
	switch PolicyName(strings.ToLower(strings.TrimSpace(name))) {
	case PolicyFull:
		return FullPolicy{}, nil
	case PolicySimple:
		return SimplePolicy{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, name)
	}
}

// Classify applies the full scoring policy.
func Classify(obs Observations) Result {
	return FullPolicy{}.Classify(obs)
}

// rule is one row of the scoring table.
type rule struct {
	when   func(Observations) bool
	delta  int
	reason string
}

// criterionRules groups mutually exclusive rules; the first match wins.
// guard must hold for any rule of the criterion to be considered.
type criterionRules struct {
	criterion Criterion
	guard     func(Observations) bool
	rules     []rule
}

var scoringTable = []criterionRules{
	{
		criterion: CriterionReachability,
		guard:     func(o Observations) bool { return o.Reachability != nil },
		rules: []rule{
			{
				when:   func(o Observations) bool { return statusIs(o.Reachability.HTTPStatus, 200) },
				delta:  30,
				reason: "reachable, HTTP 200",
			},
			{
				when:   func(o Observations) bool { return o.Reachability.RequiresAuth },
				delta:  -20,
				reason: "authentication required",
			},
			{
				when:   func(o Observations) bool { return !o.Reachability.Reachable },
				delta:  -15,
				reason: "site unreachable",
			},
		},
	},
	{
		criterion: CriterionRegistration,
		guard:     func(o Observations) bool { return o.Registration != nil },
		rules: []rule{
			{
				when: func(o Observations) bool {
					return o.Registration.Error == "" && isFalse(o.Registration.IsPrivate)
				},
				delta:  25,
				reason: "public domain registration",
			},
			{
				when:   func(o Observations) bool { return o.Registration.Error == "" },
				delta:  -10,
				reason: "private domain registration",
			},
			{
				when:   func(Observations) bool { return true },
				delta:  -5,
				reason: "registration data unavailable",
			},
		},
	},
	{
		criterion: CriterionCrawlPolicy,
		guard:     func(o Observations) bool { return o.CrawlPolicy != nil },
		rules: []rule{
			{
				when: func(o Observations) bool {
					return o.CrawlPolicy.Exists && isTrue(o.CrawlPolicy.AllowsCrawling)
				},
				delta:  15,
				reason: "crawling permitted",
			},
			{
				when:   func(o Observations) bool { return o.CrawlPolicy.Exists },
				delta:  -5,
				reason: "crawling restricted",
			},
			{
				when:   func(Observations) bool { return true },
				delta:  5,
				reason: "no crawl policy file",
			},
		},
	},
	{
		criterion: CriterionLoginForm,
		guard:     contentUsable,
		rules: []rule{
			{
				when:   func(o Observations) bool { return !isTrue(o.Content.HasLoginForm) },
				delta:  15,
				reason: "no authentication form detected",
			},
			{
				when:   func(Observations) bool { return true },
				delta:  -10,
				reason: "authentication form detected",
			},
		},
	},
	{
		criterion: CriterionPaywall,
		guard:     contentUsable,
		rules: []rule{
			{
				when:   func(o Observations) bool { return !isTrue(o.Content.HasPaywallIndicators) },
				delta:  15,
				reason: "no paywall indicators",
			},
			{
				when:   func(Observations) bool { return true },
				delta:  -10,
				reason: "paywall indicators detected",
			},
		},
	},
}

// FullPolicy is the additive point-scoring policy.
type FullPolicy struct{}

// Name implements Policy.
func (FullPolicy) Name() PolicyName { return PolicyFull }

// Classify implements Policy.
func (FullPolicy) Classify(obs Observations) Result {
	score := 0
	reasons := make([]string, 0, len(scoringTable))
	breakdown := make([]Contribution, 0, len(scoringTable))
	for _, group := range scoringTable {
		if !group.guard(obs) {
			continue
		}
		for _, r := range group.rules {
			if !r.when(obs) {
				continue
			}
			score += r.delta
			reasons = append(reasons, r.reason)
			breakdown = append(breakdown, Contribution{
				Criterion: group.criterion,
				Delta:     r.delta,
				Reason:    r.reason,
			})
			break
		}
	}

	confidence := clamp(score, 0, 100)
	category, categoryReason := categorize(confidence)
	return Result{
		Category:       category,
		Confidence:     confidence,
		ScoreRaw:       score,
		Reasons:        reasons,
		CategoryReason: categoryReason,
		Policy:         PolicyFull,
		Breakdown:      breakdown,
	}
}

// SimplePolicy only looks at reachability. It is the degraded mode used when
// the registration and crawl-policy probes are switched off.
type SimplePolicy struct{}

// Simple policy confidences.
const (
	simpleOpenConfidence   = 85
	simpleClosedConfidence = 70
)

// Name implements Policy.
func (SimplePolicy) Name() PolicyName { return PolicySimple }

// Classify implements Policy.
func (SimplePolicy) Classify(obs Observations) Result {
	if obs.Reachability != nil && statusIs(obs.Reachability.HTTPStatus, 200) {
		return Result{
			Category:       CategoryOSINT,
			Confidence:     simpleOpenConfidence,
			ScoreRaw:       simpleOpenConfidence,
			Reasons:        []string{"reachable, HTTP 200"},
			CategoryReason: "source is publicly reachable",
			Policy:         PolicySimple,
		}
	}
	return Result{
		Category:       CategoryCSINT,
		Confidence:     simpleClosedConfidence,
		ScoreRaw:       simpleClosedConfidence,
		Reasons:        []string{"site unreachable or requires authentication"},
		CategoryReason: "source has access problems",
		Policy:         PolicySimple,
	}
}

// ErrorResult is returned when an analysis could not run at all.
func ErrorResult(reason string) Result {
	return Result{
		Category:       CategoryError,
		Confidence:     0,
		ScoreRaw:       0,
		Reasons:        []string{},
		CategoryReason: reason,
	}
}

func categorize(confidence int) (Category, string) {
	switch {
	case confidence >= OSINTThreshold:
		return CategoryOSINT, "source is open and publicly accessible"
	case confidence >= PotentiallyOSINTThreshold:
		return CategoryPotentiallyOSINT, "source is mostly open but has some restrictions"
	default:
		return CategoryCSINT, "source has significant access restrictions"
	}
}

func contentUsable(o Observations) bool {
	return o.Content != nil && o.Content.Error == ""
}

func statusIs(status *int, want int) bool {
	return status != nil && *status == want
}

func isTrue(v *bool) bool {
	return v != nil && *v
}

func isFalse(v *bool) bool {
	return v != nil && !*v
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
