package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/agext/levenshtein"
	"go.uber.org/zap"

	"github.com/medassist/device-assistant/internal/catalog"
	"github.com/medassist/device-assistant/internal/model"
)

// MatchResult is the outcome of matching user-entered values against the
// catalog. Manufacturer and Model always carry usable values: canonical
// casing on an exact hit, the raw entry otherwise.
type MatchResult struct {
	ExactMatch     bool                  `json:"exact_match"`
	Manufacturer   string                `json:"manufacturer"`
	Model          string                `json:"model"`
	Suggested      *model.DeviceIdentity `json:"suggested,omitempty"`
	MeetsThreshold bool                  `json:"meets_threshold"`
	Confidence     float64               `json:"confidence"`
	Reasoning      string                `json:"reasoning"`
}

// Suggestion is a fuzzy matcher's best guess with its confidence.
type Suggestion struct {
	Identity   model.DeviceIdentity
	Confidence float64
	Reasoning  string
}

// Matcher proposes the closest catalog identity for free-text input.
// Implementations may be string-similarity based or call out to an external
// reasoning service.
type Matcher interface {
	BestMatch(ctx context.Context, manufacturer, model_ string, candidates []model.DeviceIdentity) (Suggestion, error)
}

// CatalogMatcher resolves entered values to catalog identities: exact
// case-insensitive lookup first, fuzzy suggestion second. A failing fuzzy
// matcher never blocks confirmation; the raw values pass through instead.
type CatalogMatcher struct {
	catalog   *catalog.Catalog
	matcher   Matcher
	threshold float64
}

// NewCatalogMatcher creates a CatalogMatcher. threshold gates whether a
// fuzzy suggestion is offered as a "did you mean" versus reported as no
// match.
func NewCatalogMatcher(cat *catalog.Catalog, matcher Matcher, threshold float64) *CatalogMatcher {
	return &CatalogMatcher{catalog: cat, matcher: matcher, threshold: threshold}
}

// Match looks up the entered manufacturer/model against the catalog.
func (m *CatalogMatcher) Match(ctx context.Context, manufacturer, model_ string) MatchResult {
	if canonical, ok := m.catalog.CanonicalIdentity(manufacturer, model_); ok {
		return MatchResult{
			ExactMatch:     true,
			Manufacturer:   canonical.Manufacturer,
			Model:          canonical.Model,
			MeetsThreshold: true,
			Confidence:     1.0,
			Reasoning:      "exact catalog match",
		}
	}

	suggestion, err := m.matcher.BestMatch(ctx, manufacturer, model_, m.catalog.Identities())
	if err != nil {
		// Degrade to the raw entry; the flow must never hard-fail here.
		zap.L().Warn("fuzzy match failed, using entered values",
			zap.String("manufacturer", manufacturer),
			zap.String("model", model_),
			zap.Error(err),
		)
		return MatchResult{
			Manufacturer: manufacturer,
			Model:        model_,
			Reasoning:    "match service unavailable; entered values used as-is",
		}
	}

	return MatchResult{
		Manufacturer:   manufacturer,
		Model:          model_,
		Suggested:      &suggestion.Identity,
		MeetsThreshold: suggestion.Confidence >= m.threshold,
		Confidence:     suggestion.Confidence,
		Reasoning:      suggestion.Reasoning,
	}
}

// LevenshteinMatcher scores candidates by normalized edit-distance
// similarity, averaging the manufacturer and model similarities. When the
// entered manufacturer is blank only the model is compared, matching how
// users enter bare model numbers.
type LevenshteinMatcher struct{}

// NewLevenshteinMatcher creates a LevenshteinMatcher.
func NewLevenshteinMatcher() *LevenshteinMatcher {
	return &LevenshteinMatcher{}
}

// BestMatch returns the highest-scoring candidate. Candidates are compared
// case-insensitively; catalog order breaks ties.
func (l *LevenshteinMatcher) BestMatch(_ context.Context, manufacturer, model_ string, candidates []model.DeviceIdentity) (Suggestion, error) {
	if len(candidates) == 0 {
		return Suggestion{}, errNoCandidates
	}

	best := Suggestion{Confidence: -1}
	for _, cand := range candidates {
		score := pairSimilarity(manufacturer, model_, cand)
		if score > best.Confidence {
			best = Suggestion{Identity: cand, Confidence: score}
		}
	}

	best.Reasoning = fmt.Sprintf(
		"closest catalog entry to %q is %s (similarity %.2f)",
		strings.TrimSpace(manufacturer+" "+model_), best.Identity.DisplayName(), best.Confidence,
	)
	return best, nil
}

var errNoCandidates = fmt.Errorf("identity: no catalog candidates")

func pairSimilarity(manufacturer, model_ string, cand model.DeviceIdentity) float64 {
	modelSim := similarity(model_, cand.Model)
	if strings.TrimSpace(manufacturer) == "" {
		return modelSim
	}
	return (similarity(manufacturer, cand.Manufacturer) + modelSim) / 2
}

func similarity(a, b string) float64 {
	return levenshtein.Match(strings.ToLower(strings.TrimSpace(a)), strings.ToLower(strings.TrimSpace(b)), nil)
}
