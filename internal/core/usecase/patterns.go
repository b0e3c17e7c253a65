package usecase

import (
	"fmt"
	"sort"
	"strings"

	"github.com/auditops/findings-assistant/internal/core/domain"
)

// PatternRegistry holds the fast-path rules. Registration happens once during
// startup; after that the registry is read-only and matching needs no locking.
type PatternRegistry struct {
	patterns []*domain.QueryPattern
	byID     map[string]*domain.QueryPattern
	sealed   bool
}

func NewPatternRegistry() *PatternRegistry {
	return &PatternRegistry{
		byID: make(map[string]*domain.QueryPattern),
	}
}

// Register validates the pattern structurally and probes it for overlap with
// the already-registered set. Malformed patterns fail here, never at match
// time.
func (r *PatternRegistry) Register(p *domain.QueryPattern) error {
	if r.sealed {
		return domain.WrapError(domain.ErrInvalidPattern, "register pattern",
			fmt.Errorf("registry is sealed"))
	}
	if err := validatePattern(p); err != nil {
		return domain.WrapError(domain.ErrInvalidPattern, "register pattern", err)
	}
	if _, exists := r.byID[p.ID]; exists {
		return domain.WrapError(domain.ErrInvalidPattern, "register pattern",
			fmt.Errorf("duplicate pattern id %q", p.ID))
	}
	if err := r.checkOverlap(p); err != nil {
		return domain.WrapError(domain.ErrInvalidPattern, "register pattern", err)
	}

	r.patterns = append(r.patterns, p)
	r.byID[p.ID] = p
	// Descending priority; registration order breaks ties.
	sort.SliceStable(r.patterns, func(i, j int) bool {
		return r.patterns[i].Priority > r.patterns[j].Priority
	})
	return nil
}

// Seal freezes the registry. Matching is valid before sealing too; sealing
// only guards against accidental late registration.
func (r *PatternRegistry) Seal() {
	r.sealed = true
}

func (r *PatternRegistry) Len() int {
	return len(r.patterns)
}

// Match evaluates patterns in descending priority order and stops at the first
// regex hit. A miss returns Matched=false with zero confidence; that is the
// expected fall-through signal, not an error.
func (r *PatternRegistry) Match(query string) domain.MatchResult {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.MatchResult{}
	}

	for _, p := range r.patterns {
		groups := p.Regexp.FindStringSubmatch(query)
		if groups == nil {
			continue
		}
		params, err := extractParams(p, groups)
		if err != nil {
			// A registered pattern with a stale group index; skip it rather
			// than failing the query.
			continue
		}
		return domain.MatchResult{
			Matched:    true,
			Pattern:    p,
			Params:     params,
			Confidence: patternConfidence(p),
		}
	}
	return domain.MatchResult{}
}

func validatePattern(p *domain.QueryPattern) error {
	if p == nil {
		return fmt.Errorf("pattern is nil")
	}
	if strings.TrimSpace(p.ID) == "" {
		return fmt.Errorf("pattern id is empty")
	}
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("pattern %q: name is empty", p.ID)
	}
	if p.Regexp == nil {
		return fmt.Errorf("pattern %q: regexp is nil", p.ID)
	}
	if p.BuildFilters == nil {
		return fmt.Errorf("pattern %q: filter builder is nil", p.ID)
	}
	if p.BuildSorts == nil {
		return fmt.Errorf("pattern %q: sort builder is nil", p.ID)
	}
	maxGroup := p.Regexp.NumSubexp()
	for _, ex := range p.Extractors {
		if strings.TrimSpace(ex.Name) == "" {
			return fmt.Errorf("pattern %q: extractor with empty name", p.ID)
		}
		if ex.Group < 1 || ex.Group > maxGroup {
			return fmt.Errorf("pattern %q: extractor %q references group %d, regex has %d",
				p.ID, ex.Name, ex.Group, maxGroup)
		}
	}
	for _, example := range p.Examples {
		if !p.Regexp.MatchString(example) {
			return fmt.Errorf("pattern %q: example %q does not match its own regex", p.ID, example)
		}
	}
	return nil
}

// checkOverlap is advisory conflict detection: each pattern's example probes
// are tested against every other pattern's regex. A hit in either direction
// rejects registration and names both ids.
func (r *PatternRegistry) checkOverlap(candidate *domain.QueryPattern) error {
	for _, existing := range r.patterns {
		for _, example := range candidate.Examples {
			if existing.Regexp.MatchString(example) {
				return fmt.Errorf("pattern %q overlaps pattern %q on probe %q",
					candidate.ID, existing.ID, example)
			}
		}
		for _, example := range existing.Examples {
			if candidate.Regexp.MatchString(example) {
				return fmt.Errorf("pattern %q overlaps pattern %q on probe %q",
					candidate.ID, existing.ID, example)
			}
		}
	}
	return nil
}

func extractParams(p *domain.QueryPattern, groups []string) (map[string]string, error) {
	params := make(map[string]string, len(p.Extractors))
	for _, ex := range p.Extractors {
		if ex.Group >= len(groups) {
			return nil, fmt.Errorf("capture group %d out of range", ex.Group)
		}
		params[ex.Name] = applyNormalizer(groups[ex.Group], ex.Normalize)
	}
	return params, nil
}

func applyNormalizer(value string, n domain.Normalizer) string {
	value = strings.TrimSpace(value)
	switch n {
	case domain.NormalizeLower:
		return strings.ToLower(value)
	case domain.NormalizeUpper:
		return strings.ToUpper(value)
	case domain.NormalizeTitle:
		return titleCase(value)
	default:
		return value
	}
}

func titleCase(s string) string {
	words := strings.Fields(strings.ToLower(s))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// patternConfidence derives a match confidence from the pattern's priority and
// the specificity of its expression. Longer expressions anchor more of the
// input, so they score slightly higher.
func patternConfidence(p *domain.QueryPattern) float64 {
	conf := 0.7 + float64(p.Priority)/500.0
	specificity := float64(len(p.Regexp.String())) / 1000.0
	if specificity > 0.1 {
		specificity = 0.1
	}
	return clamp01(conf + specificity)
}
