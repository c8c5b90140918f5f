package dispatch

import (
	"github.com/retrace-dev/retrace/pkg/models"
)

// LegacySelector is the recorder's original selector shape: a kind string,
// a raw expression, and an optional weight.
type LegacySelector struct {
	Kind   string `json:"kind"`
	Expr   string `json:"expr"`
	Weight int    `json:"weight,omitempty"`
}

// LegacyRetry is the original retry block. Attempts counts total tries
// (first try included), where the newer policy counts retries after the
// first.
type LegacyRetry struct {
	Attempts int    `json:"attempts"`
	DelayMs  int    `json:"delayMs,omitempty"`
	Mode     string `json:"mode,omitempty"`
}

// LegacyStep is the pre-migration step schema. Extra carries every field
// the converter does not understand, verbatim, so round-tripping a step
// through the new schema loses nothing.
type LegacyStep struct {
	ID        string           `json:"id"`
	Action    string           `json:"action"`
	Config    map[string]any   `json:"config,omitempty"`
	Ref       string           `json:"ref,omitempty"`
	Selectors []LegacySelector `json:"selectors,omitempty"`
	Retry     *LegacyRetry     `json:"retry,omitempty"`
	TimeoutMs int              `json:"timeoutMs,omitempty"`
	OnFail    string           `json:"onFail,omitempty"`
	Extra     map[string]any   `json:"extra,omitempty"`
}

// Renames between the legacy action vocabulary and the current type set.
var legacyActionNames = map[string]models.ActionType{
	"doubleClick": models.ActionDblClick,
	"type":        models.ActionFill,
	"press":       models.ActionKey,
	"goto":        models.ActionNavigate,
	"eval":        models.ActionScript,
	"request":     models.ActionHTTP,
}

var currentActionNames = func() map[models.ActionType]string {
	names := make(map[models.ActionType]string, len(legacyActionNames))
	for legacy, current := range legacyActionNames {
		names[current] = legacy
	}

	return names
}()

var legacySelectorKinds = map[string]models.SelectorStrategy{
	"css":       models.StrategyCSS,
	"xpath":     models.StrategyXPath,
	"attribute": models.StrategyAttr,
	"aria":      models.StrategyAria,
	"text":      models.StrategyText,
}

// FromLegacy maps a legacy step onto the current action schema.
func FromLegacy(step *LegacyStep) *models.Action {
	actionType := models.ActionType(step.Action)
	if mapped, ok := legacyActionNames[step.Action]; ok {
		actionType = mapped
	}

	action := &models.Action{
		ID:     step.ID,
		Type:   actionType,
		Params: cloneMap(step.Config),
	}

	if step.Ref != "" || len(step.Selectors) > 0 {
		target := &models.ElementTarget{Ref: step.Ref}

		for _, sel := range step.Selectors {
			strategy, ok := legacySelectorKinds[sel.Kind]
			if !ok {
				strategy = models.SelectorStrategy(sel.Kind)
			}

			target.Candidates = append(target.Candidates, models.SelectorCandidate{
				Strategy: strategy,
				Value:    sel.Expr,
				Priority: sel.Weight,
			})
		}

		action.Target = target
	}

	policy := &models.StepPolicy{}
	hasPolicy := false

	if step.Retry != nil && step.Retry.Attempts > 1 {
		policy.Retry = &models.RetryPolicy{
			Retries:    step.Retry.Attempts - 1,
			IntervalMs: step.Retry.DelayMs,
			Backoff:    legacyBackoffMode(step.Retry.Mode),
		}
		hasPolicy = true
	}

	if step.TimeoutMs > 0 {
		policy.Timeout = &models.TimeoutPolicy{Ms: step.TimeoutMs, Scope: models.TimeoutScopeAttempt}
		hasPolicy = true
	}

	if step.OnFail != "" {
		policy.OnError = &models.OnErrorPolicy{Strategy: models.OnErrorStrategy(step.OnFail)}
		hasPolicy = true
	}

	if hasPolicy {
		action.Policy = policy
	}

	if len(step.Extra) > 0 {
		if action.Params == nil {
			action.Params = map[string]any{}
		}

		action.Params[legacyExtraKey] = cloneMap(step.Extra)
	}

	return action
}

// ToLegacy maps a current action back onto the legacy step schema. Fields
// stashed under the extra key by FromLegacy are restored verbatim.
func ToLegacy(action *models.Action) *LegacyStep {
	name := string(action.Type)
	if mapped, ok := currentActionNames[action.Type]; ok {
		name = mapped
	}

	step := &LegacyStep{
		ID:     action.ID,
		Action: name,
		Config: cloneMap(action.Params),
	}

	if extra, ok := step.Config[legacyExtraKey].(map[string]any); ok {
		step.Extra = extra

		delete(step.Config, legacyExtraKey)
		if len(step.Config) == 0 {
			step.Config = nil
		}
	}

	if !action.Target.Empty() {
		step.Ref = action.Target.Ref

		for _, candidate := range action.Target.Candidates {
			kind := string(candidate.Strategy)

			for legacyKind, strategy := range legacySelectorKinds {
				if strategy == candidate.Strategy {
					kind = legacyKind

					break
				}
			}

			step.Selectors = append(step.Selectors, LegacySelector{
				Kind:   kind,
				Expr:   candidate.Value,
				Weight: candidate.Priority,
			})
		}
	}

	if action.Policy != nil {
		if retry := action.Policy.Retry; retry != nil {
			step.Retry = &LegacyRetry{
				Attempts: retry.Retries + 1,
				DelayMs:  retry.IntervalMs,
				Mode:     string(retry.Backoff),
			}
		}

		if timeout := action.Policy.Timeout; timeout != nil {
			step.TimeoutMs = timeout.Ms
		}

		if onError := action.Policy.OnError; onError != nil {
			step.OnFail = string(onError.Strategy)
		}
	}

	return step
}

const legacyExtraKey = "__legacyExtra"

func legacyBackoffMode(mode string) models.BackoffKind {
	switch mode {
	case "linear":
		return models.BackoffLinear
	case "exp", "exponential":
		return models.BackoffExp
	default:
		return models.BackoffNone
	}
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}

	clone := make(map[string]any, len(m))
	for k, v := range m {
		clone[k] = v
	}

	return clone
}
