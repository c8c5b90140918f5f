// Package resolve implements the element-target resolution engine: turning a
// symbolic target (ephemeral ref plus ordered selector candidates) into a
// live element handle, with fallback scoring across strategies.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"

	"github.com/xrash/smetrics"

	"github.com/retrace-dev/retrace/pkg/browser"
	"github.com/retrace-dev/retrace/pkg/models"
)

// ResolvedByRef tags a resolution that short-circuited through a live ref.
const ResolvedByRef = "ref"

// DefaultSimilarityThreshold is the minimum Jaro-Winkler score for a text
// candidate to match when no substring match exists.
const DefaultSimilarityThreshold = 0.9

// Resolution is a successful locate: the live element and the strategy that
// found it. FallbackFrom is set when the recorded ref was stale and a
// candidate strategy had to take over.
type Resolution struct {
	Element      browser.Element
	ResolvedBy   string
	FallbackFrom string
}

// FallbackUsed reports whether resolution fell through from a stale ref to a
// candidate strategy.
func (r *Resolution) FallbackUsed() bool {
	return r.FallbackFrom != ""
}

// Engine resolves element targets against read-page snapshots.
type Engine struct {
	similarityThreshold float64
	logger              *slog.Logger
}

// NewEngine creates a resolution engine. A zero threshold selects the
// default.
func NewEngine(logger *slog.Logger, similarityThreshold float64) *Engine {
	if similarityThreshold <= 0 {
		similarityThreshold = DefaultSimilarityThreshold
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{similarityThreshold: similarityThreshold, logger: logger.With("module", "resolve")}
}

// Locate resolves a target against the page. A live ref wins immediately with
// ResolvedBy="ref" and candidates are never consulted. Otherwise candidates
// are tried in priority order (declaration order breaking ties); the first
// strategy yielding exactly one visible match wins. Failure is reported as
// TARGET_NOT_FOUND.
func (e *Engine) Locate(ctx context.Context, page browser.Page, target *models.ElementTarget) (*Resolution, error) {
	if target.Empty() {
		return nil, models.NewStepError(models.CodeValidationError, "action has no element target")
	}

	fallbackFrom := ""

	if target.Ref != "" {
		el, err := page.ResolveRef(browser.Ref(target.Ref))
		if err == nil && el.Visible {
			return &Resolution{Element: *el, ResolvedBy: ResolvedByRef}, nil
		}

		// Stale or hidden: fall through to the candidates.
		fallbackFrom = ResolvedByRef

		e.logger.DebugContext(ctx, "recorded ref is stale, consulting candidates",
			"ref", target.Ref, "error", err)
	}

	for _, candidate := range orderedCandidates(target.Candidates) {
		matches, err := e.matchCandidate(page, candidate)
		if err != nil {
			e.logger.DebugContext(ctx, "candidate strategy errored",
				"strategy", candidate.Strategy, "value", candidate.Value, "error", err)

			continue
		}

		visible := visibleOnly(matches)
		if len(visible) != 1 {
			continue
		}

		return &Resolution{
			Element:      visible[0],
			ResolvedBy:   string(candidate.Strategy),
			FallbackFrom: fallbackFrom,
		}, nil
	}

	return nil, models.NewStepError(models.CodeTargetNotFound,
		"no strategy matched a unique visible element (ref=%q, %d candidates)",
		target.Ref, len(target.Candidates))
}

// LocateAll resolves every visible element a target's candidates match,
// for element-iteration steps. The first strategy yielding at least one
// visible match wins; refs are ignored since iteration wants the current
// set, not one recorded element. A max of zero means unbounded.
func (e *Engine) LocateAll(ctx context.Context, page browser.Page, target *models.ElementTarget, max int) ([]browser.Element, error) {
	if target.Empty() {
		return nil, models.NewStepError(models.CodeValidationError, "action has no element target")
	}

	for _, candidate := range orderedCandidates(target.Candidates) {
		matches, err := e.matchCandidate(page, candidate)
		if err != nil {
			e.logger.DebugContext(ctx, "candidate strategy errored",
				"strategy", candidate.Strategy, "value", candidate.Value, "error", err)

			continue
		}

		visible := visibleOnly(matches)
		if len(visible) == 0 {
			continue
		}

		if max > 0 && len(visible) > max {
			visible = visible[:max]
		}

		return visible, nil
	}

	return nil, models.NewStepError(models.CodeTargetNotFound,
		"no strategy matched any visible element (%d candidates)", len(target.Candidates))
}

func (e *Engine) matchCandidate(page browser.Page, c models.SelectorCandidate) ([]browser.Element, error) {
	switch c.Strategy {
	case models.StrategyCSS, models.StrategyAttr:
		return page.QueryCSS(c.Value)
	case models.StrategyXPath:
		return page.QueryXPath(c.Value)
	case models.StrategyAria:
		return e.matchAria(page, c.Value)
	case models.StrategyText:
		return e.matchText(page, c.Value), nil
	default:
		return nil, fmt.Errorf("unknown selector strategy: %q", c.Strategy)
	}
}

var ariaPattern = regexp.MustCompile(`^([\w-]+)(?:\[name=(?:"([^"]*)"|'([^']*)'|([^\]]*))\])?$`)

// matchAria expands a role[name=...] pattern into concrete attribute-selector
// attempts: explicit role attribute, implicit role via tag, each narrowed by
// aria-label, title, or visible text equal to the accessible name.
func (e *Engine) matchAria(page browser.Page, pattern string) ([]browser.Element, error) {
	parts := ariaPattern.FindStringSubmatch(strings.TrimSpace(pattern))
	if parts == nil {
		return nil, fmt.Errorf("unsupported aria pattern: %q", pattern)
	}

	role := parts[1]
	name := parts[2] + parts[3] + parts[4]

	attempts := []string{
		fmt.Sprintf(`[role=%s][aria-label=%q]`, role, name),
		fmt.Sprintf(`[role=%s][title=%q]`, role, name),
		fmt.Sprintf(`[role=%s]`, role),
		role, // implicit role via tag name (button, a, input, ...)
	}

	for i, attempt := range attempts {
		matches, err := page.QueryCSS(attempt)
		if err != nil || len(matches) == 0 {
			continue
		}

		// The bare-role attempts need the accessible name to discriminate.
		if name != "" && i >= 2 {
			matches = filterByName(matches, name)
		}

		if len(matches) > 0 {
			return matches, nil
		}
	}

	return nil, nil
}

// matchText finds elements whose visible text contains the needle, falling
// back to similarity scoring when no substring match exists.
func (e *Engine) matchText(page browser.Page, needle string) []browser.Element {
	normalized := normalizeText(needle)

	var substring []browser.Element

	for _, el := range page.Elements() {
		if strings.Contains(normalizeText(el.Text), normalized) {
			substring = append(substring, el)
		}
	}

	if len(substring) > 0 {
		return substring
	}

	var (
		best      []browser.Element
		bestScore float64
	)

	for _, el := range page.Elements() {
		if el.Text == "" {
			continue
		}

		score := smetrics.JaroWinkler(normalized, normalizeText(el.Text), 0.7, 4)
		if score < e.similarityThreshold {
			continue
		}

		switch {
		case score > bestScore:
			bestScore = score
			best = []browser.Element{el}
		case score == bestScore:
			best = append(best, el)
		}
	}

	return best
}

func filterByName(elements []browser.Element, name string) []browser.Element {
	var out []browser.Element

	for _, el := range elements {
		if el.Attr("aria-label") == name || el.Attr("title") == name ||
			normalizeText(el.Text) == normalizeText(name) {
			out = append(out, el)
		}
	}

	return out
}

func visibleOnly(elements []browser.Element) []browser.Element {
	var out []browser.Element

	for _, el := range elements {
		if el.Visible {
			out = append(out, el)
		}
	}

	return out
}

// orderedCandidates sorts by priority descending, keeping declaration order
// for equal priorities.
func orderedCandidates(candidates []models.SelectorCandidate) []models.SelectorCandidate {
	out := append([]models.SelectorCandidate(nil), candidates...)

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Priority > out[j].Priority
	})

	return out
}

func normalizeText(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), " "))
}

// IsNotFound reports whether err is a target-resolution miss.
func IsNotFound(err error) bool {
	var stepErr *models.StepError

	return errors.As(err, &stepErr) && stepErr.Code == models.CodeTargetNotFound
}
