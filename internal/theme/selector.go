package theme

import (
	"errors"
	"log/slog"
	"strings"
	"time"
)

// ErrNoThemeMatches reports a selection where no active theme's context
// matched the request.
var ErrNoThemeMatches = errors.New("no theme matches the selection context")

// SelectionContext is the request-side input to theme selection: where the
// request comes from, when, any running event, the features the site build
// provides, and an optional explicit user preference.
type SelectionContext struct {
	Now       time.Time
	Location  string
	Event     string
	Custom    []string
	Features  []string
	Preferred string
}

// Scoring weights. Specificity ranks location above event above season above
// custom above default; an explicit preference dominates everything, and a
// full feature match nudges otherwise-equal candidates.
const (
	scoreBase        = 10
	scoreLocation    = 50
	scoreEvent       = 40
	scoreSeason      = 30
	scoreCustom      = 20
	scorePreference  = 100
	scoreFeatureFull = 20
)

// Selector picks the best active theme for a request context.
type Selector struct {
	registry *Registry
	log      *slog.Logger
}

func NewSelector(registry *Registry, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Selector{registry: registry, log: logger}
}

// Select filters active themes whose context matches sctx, scores them, and
// returns the winner. Ties fall to declaration order: All() iterates in that
// order and only a strictly higher score displaces the current best.
func (s *Selector) Select(sctx SelectionContext) (*Definition, error) {
	var (
		best      *Definition
		bestScore = -1
	)
	for _, def := range s.registry.All() {
		if !def.Active {
			continue
		}
		if !contextMatches(def.Context, sctx) {
			continue
		}
		score := scoreTheme(def, sctx)
		if score > bestScore {
			best = def
			bestScore = score
		}
	}
	if best == nil {
		return nil, ErrNoThemeMatches
	}
	s.log.Debug("theme selected", "theme", best.Name, "score", bestScore)
	return best, nil
}

func scoreTheme(def *Definition, sctx SelectionContext) int {
	score := scoreBase
	switch def.Context.Type {
	case ContextLocation:
		score += scoreLocation
	case ContextEvent:
		score += scoreEvent
	case ContextSeason:
		score += scoreSeason
	case ContextCustom:
		score += scoreCustom
	}
	if sctx.Preferred != "" && sctx.Preferred == def.Name {
		score += scorePreference
	}
	if len(def.Metadata.RequiredFeatures) > 0 && hasAll(sctx.Features, def.Metadata.RequiredFeatures) {
		score += scoreFeatureFull
	}
	return score
}

func contextMatches(c Context, sctx SelectionContext) bool {
	switch c.Type {
	case ContextDefault, "":
		return true
	case ContextLocation:
		return contains(c.Values, sctx.Location)
	case ContextEvent:
		return contains(c.Values, sctx.Event)
	case ContextSeason:
		now := sctx.Now
		if now.IsZero() {
			now = time.Now()
		}
		return seasonMatches(c.Values, now.Month())
	case ContextCustom:
		for _, v := range sctx.Custom {
			if contains(c.Values, v) {
				return true
			}
		}
		return false
	}
	return false
}

func contains(values []string, v string) bool {
	if v == "" {
		return false
	}
	for _, candidate := range values {
		if strings.EqualFold(candidate, v) {
			return true
		}
	}
	return false
}

func hasAll(have, want []string) bool {
	for _, w := range want {
		if !contains(have, w) {
			return false
		}
	}
	return true
}

// seasonMatches accepts month names ("december") and inclusive ranges
// ("june-august"). Ranges may wrap the year end ("november-february").
func seasonMatches(values []string, month time.Month) bool {
	for _, v := range values {
		if lo, hi, ok := parseMonthRange(v); ok {
			if monthInRange(month, lo, hi) {
				return true
			}
			continue
		}
		if m, ok := parseMonth(v); ok && m == month {
			return true
		}
	}
	return false
}

func parseMonthRange(v string) (lo, hi time.Month, ok bool) {
	parts := strings.SplitN(v, "-", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	lo, okLo := parseMonth(parts[0])
	hi, okHi := parseMonth(parts[1])
	return lo, hi, okLo && okHi
}

func monthInRange(m, lo, hi time.Month) bool {
	if lo <= hi {
		return m >= lo && m <= hi
	}
	// Wrapped range, e.g. november-february.
	return m >= lo || m <= hi
}

func parseMonth(v string) (time.Month, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	for m := time.January; m <= time.December; m++ {
		name := strings.ToLower(m.String())
		if v == name || (len(v) == 3 && v == name[:3]) {
			return m, true
		}
	}
	return 0, false
}
