package osint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openObservations() Observations {
	return Observations{
		Reachability: &ReachabilityObservation{HTTPStatus: Int(200), Reachable: true},
		Registration: &RegistrationObservation{IsPrivate: Bool(false), Registrar: "Example Registrar"},
		CrawlPolicy:  &CrawlPolicyObservation{Exists: true, AllowsCrawling: Bool(true)},
		Content:      &ContentObservation{HasLoginForm: Bool(false), HasPaywallIndicators: Bool(false)},
	}
}

func TestClassify_AllOpenSignals(t *testing.T) {
	t.Parallel()

	res := Classify(openObservations())

	require.Equal(t, 100, res.ScoreRaw)
	require.Equal(t, 100, res.Confidence)
	require.Equal(t, CategoryOSINT, res.Category)
	require.Equal(t, PolicyFull, res.Policy)
	assert.Equal(t, []string{
		"reachable, HTTP 200",
		"public domain registration",
		"crawling permitted",
		"no authentication form detected",
		"no paywall indicators",
	}, res.Reasons)
	assert.Equal(t, "source is open and publicly accessible", res.CategoryReason)
	require.Len(t, res.Breakdown, 5)
	assert.Equal(t, CriterionReachability, res.Breakdown[0].Criterion)
	assert.Equal(t, 30, res.Breakdown[0].Delta)
}

func TestClassify_RestrictedSource(t *testing.T) {
	t.Parallel()

	obs := Observations{
		Reachability: &ReachabilityObservation{HTTPStatus: Int(403), Reachable: true, RequiresAuth: true},
		Registration: &RegistrationObservation{Error: "whois: connection refused"},
		CrawlPolicy:  &CrawlPolicyObservation{Exists: false},
		Content:      &ContentObservation{Error: "content: timeout"},
	}

	res := Classify(obs)

	require.Equal(t, -20, res.ScoreRaw)
	require.Equal(t, 0, res.Confidence)
	require.Equal(t, CategoryCSINT, res.Category)
	assert.Equal(t, []string{
		"authentication required",
		"registration data unavailable",
		"no crawl policy file",
	}, res.Reasons)
}

func TestClassify_ContentErrorSkipsBothSubScores(t *testing.T) {
	t.Parallel()

	obs := openObservations()
	obs.Content = &ContentObservation{
		HasLoginForm:         Bool(true),
		HasPaywallIndicators: Bool(true),
		Error:                "parse failed",
	}

	res := Classify(obs)

	assert.Equal(t, 70, res.ScoreRaw)
	for _, reason := range res.Reasons {
		assert.NotContains(t, reason, "form")
		assert.NotContains(t, reason, "paywall")
	}
}

func TestClassify_UnknownPrivacyCountsAsPrivate(t *testing.T) {
	t.Parallel()

	obs := openObservations()
	obs.Registration = &RegistrationObservation{Registrar: "Registrar"}

	res := Classify(obs)

	assert.Equal(t, 65, res.ScoreRaw)
	assert.Contains(t, res.Reasons, "private domain registration")
}

func TestClassify_CrawlPolicyBranches(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		policy CrawlPolicyObservation
		delta  int
		reason string
	}{
		{"permitted", CrawlPolicyObservation{Exists: true, AllowsCrawling: Bool(true)}, 15, "crawling permitted"},
		{"restricted", CrawlPolicyObservation{Exists: true, AllowsCrawling: Bool(false)}, -5, "crawling restricted"},
		{"unparsed", CrawlPolicyObservation{Exists: true, Error: "parse"}, -5, "crawling restricted"},
		{"missing", CrawlPolicyObservation{Exists: false}, 5, "no crawl policy file"},
		{"fetch failed", CrawlPolicyObservation{Exists: false, Error: "timeout"}, 5, "no crawl policy file"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			policy := tc.policy
			res := Classify(Observations{CrawlPolicy: &policy})
			require.Len(t, res.Breakdown, 1)
			assert.Equal(t, CriterionCrawlPolicy, res.Breakdown[0].Criterion)
			assert.Equal(t, tc.delta, res.Breakdown[0].Delta)
			assert.Equal(t, tc.reason, res.Breakdown[0].Reason)
		})
	}
}

func TestClassify_ReachabilityWithoutMatchingRule(t *testing.T) {
	t.Parallel()

	// A reachable 404 is neither open nor closed, so it contributes no reason
	// even though the observation is present.
	res := Classify(Observations{
		Reachability: &ReachabilityObservation{HTTPStatus: Int(404), Reachable: true},
	})

	assert.Equal(t, 0, res.ScoreRaw)
	assert.Empty(t, res.Reasons)
	assert.Equal(t, CategoryCSINT, res.Category)
}

func TestClassify_AllAbsent(t *testing.T) {
	t.Parallel()

	res := Classify(Observations{})

	assert.Empty(t, res.Reasons)
	assert.Equal(t, 0, res.Confidence)
	assert.Equal(t, CategoryCSINT, res.Category)
}

func TestClassify_Monotonicity(t *testing.T) {
	t.Parallel()

	type flip struct {
		name     string
		negative func(*Observations)
		positive func(*Observations)
	}
	flips := []flip{
		{
			name:     "auth required to open",
			negative: func(o *Observations) { o.Reachability = &ReachabilityObservation{HTTPStatus: Int(401), Reachable: true, RequiresAuth: true} },
			positive: func(o *Observations) { o.Reachability = &ReachabilityObservation{HTTPStatus: Int(200), Reachable: true} },
		},
		{
			name:     "unreachable to open",
			negative: func(o *Observations) { o.Reachability = &ReachabilityObservation{Error: "dial tcp"} },
			positive: func(o *Observations) { o.Reachability = &ReachabilityObservation{HTTPStatus: Int(200), Reachable: true} },
		},
		{
			name:     "private to public registration",
			negative: func(o *Observations) { o.Registration = &RegistrationObservation{IsPrivate: Bool(true)} },
			positive: func(o *Observations) { o.Registration = &RegistrationObservation{IsPrivate: Bool(false)} },
		},
		{
			name:     "registration error to public",
			negative: func(o *Observations) { o.Registration = &RegistrationObservation{Error: "timeout"} },
			positive: func(o *Observations) { o.Registration = &RegistrationObservation{IsPrivate: Bool(false)} },
		},
		{
			name:     "restricted to permitted crawling",
			negative: func(o *Observations) { o.CrawlPolicy = &CrawlPolicyObservation{Exists: true, AllowsCrawling: Bool(false)} },
			positive: func(o *Observations) { o.CrawlPolicy = &CrawlPolicyObservation{Exists: true, AllowsCrawling: Bool(true)} },
		},
		{
			name:     "login form removed",
			negative: func(o *Observations) { o.Content.HasLoginForm = Bool(true) },
			positive: func(o *Observations) { o.Content.HasLoginForm = Bool(false) },
		},
		{
			name:     "paywall removed",
			negative: func(o *Observations) { o.Content.HasPaywallIndicators = Bool(true) },
			positive: func(o *Observations) { o.Content.HasPaywallIndicators = Bool(false) },
		},
	}

	for _, f := range flips {
		t.Run(f.name, func(t *testing.T) {
			t.Parallel()
			neg := openObservations()
			f.negative(&neg)
			pos := openObservations()
			f.negative(&pos)
			f.positive(&pos)

			require.Greater(t, Classify(pos).ScoreRaw, Classify(neg).ScoreRaw)
		})
	}
}

func TestClassify_Idempotent(t *testing.T) {
	t.Parallel()

	obs := openObservations()
	obs.Content.HasPaywallIndicators = Bool(true)

	first := Classify(obs)
	second := Classify(obs)

	require.Equal(t, first, second)
}

func TestClassify_ConfidenceAlwaysInRange(t *testing.T) {
	t.Parallel()

	statuses := []*int{nil, Int(200), Int(401), Int(500)}
	privacy := []*bool{nil, Bool(true), Bool(false)}
	for _, status := range statuses {
		for _, private := range privacy {
			for _, exists := range []bool{true, false} {
				for _, flag := range privacy {
					obs := Observations{
						Reachability: &ReachabilityObservation{
							HTTPStatus:   status,
							Reachable:    status != nil,
							RequiresAuth: status != nil && *status == 401,
						},
						Registration: &RegistrationObservation{IsPrivate: private},
						CrawlPolicy:  &CrawlPolicyObservation{Exists: exists, AllowsCrawling: flag},
						Content:      &ContentObservation{HasLoginForm: flag, HasPaywallIndicators: private},
					}
					res := Classify(obs)
					require.GreaterOrEqual(t, res.Confidence, 0)
					require.LessOrEqual(t, res.Confidence, 100)
					require.NotEmpty(t, res.Category)
					require.Equal(t, clamp(res.ScoreRaw, 0, 100), res.Confidence)
				}
			}
		}
	}
}

func TestClassify_ThresholdScores(t *testing.T) {
	t.Parallel()

	seventy := openObservations()
	seventy.Content = &ContentObservation{Error: "boom"}
	res := Classify(seventy)
	require.Equal(t, 70, res.ScoreRaw)
	require.Equal(t, CategoryOSINT, res.Category)

	// 30 - 5 + 15, content skipped.
	forty := openObservations()
	forty.Registration = &RegistrationObservation{Error: "whois timeout"}
	forty.Content = &ContentObservation{Error: "boom"}
	res = Classify(forty)
	require.Equal(t, 40, res.ScoreRaw)
	require.Equal(t, CategoryPotentiallyOSINT, res.Category)

	// 30 - 10 + 15, content skipped.
	thirtyFive := openObservations()
	thirtyFive.Registration = &RegistrationObservation{IsPrivate: Bool(true)}
	thirtyFive.Content = &ContentObservation{Error: "boom"}
	res = Classify(thirtyFive)
	require.Equal(t, 35, res.ScoreRaw)
	require.Equal(t, CategoryCSINT, res.Category)

	// 30 - 5 + 15 + 15 - 10.
	fortyFive := openObservations()
	fortyFive.Registration = &RegistrationObservation{Error: "whois timeout"}
	fortyFive.Content = &ContentObservation{HasLoginForm: Bool(false), HasPaywallIndicators: Bool(true)}
	res = Classify(fortyFive)
	require.Equal(t, 45, res.ScoreRaw)
	require.Equal(t, CategoryPotentiallyOSINT, res.Category)
}

func TestCategorizeBoundaries(t *testing.T) {
	t.Parallel()

	cases := map[int]Category{
		100: CategoryOSINT,
		70:  CategoryOSINT,
		69:  CategoryPotentiallyOSINT,
		40:  CategoryPotentiallyOSINT,
		39:  CategoryCSINT,
		0:   CategoryCSINT,
	}
	for confidence, want := range cases {
		got, reason := categorize(confidence)
		assert.Equal(t, want, got, "confidence %d", confidence)
		assert.NotEmpty(t, reason)
	}
}

func TestSimplePolicy(t *testing.T) {
	t.Parallel()

	open := SimplePolicy{}.Classify(Observations{
		Reachability: &ReachabilityObservation{HTTPStatus: Int(200), Reachable: true},
	})
	assert.Equal(t, CategoryOSINT, open.Category)
	assert.Equal(t, 85, open.Confidence)
	assert.Equal(t, PolicySimple, open.Policy)

	closed := SimplePolicy{}.Classify(Observations{
		Reachability: &ReachabilityObservation{HTTPStatus: Int(403), Reachable: true, RequiresAuth: true},
	})
	assert.Equal(t, CategoryCSINT, closed.Category)
	assert.Equal(t, 70, closed.Confidence)

	absent := SimplePolicy{}.Classify(Observations{})
	assert.Equal(t, CategoryCSINT, absent.Category)
	assert.Len(t, absent.Reasons, 1)
}

func TestParsePolicy(t *testing.T) {
	t.Parallel()

	p, err := ParsePolicy("FULL")
	require.NoError(t, err)
	assert.Equal(t, PolicyFull, p.Name())

	p, err = ParsePolicy(" simple ")
	require.NoError(t, err)
	assert.Equal(t, PolicySimple, p.Name())

	_, err = ParsePolicy("aggressive")
	require.ErrorIs(t, err, ErrUnknownPolicy)
}

func TestErrorResult(t *testing.T) {
	t.Parallel()

	res := ErrorResult("malformed URL")
	assert.Equal(t, CategoryError, res.Category)
	assert.Equal(t, 0, res.Confidence)
	assert.Equal(t, "malformed URL", res.CategoryReason)
}
