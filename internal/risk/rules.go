package risk

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"signalGenerator/internal/domain"
	"signalGenerator/internal/ports"
)

// ParseTrailingRules parses "bars,mfe,action|..." where action is "breakeven"
// or "trail:N". Malformed rules are skipped and reported in errs; the valid
// rules are returned sorted ascending by AfterBars.
func ParseTrailingRules(ruleList string) (rules []domain.TrailingRule, errs []error) {
	ruleList = strings.TrimSpace(ruleList)
	if ruleList == "" {
		return nil, nil
	}
	for _, raw := range strings.Split(ruleList, "|") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		rule, err := parseRule(raw)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		rules = append(rules, rule)
	}
	SortRules(rules)
	return rules, errs
}

func parseRule(raw string) (domain.TrailingRule, error) {
	parts := strings.Split(raw, ",")
	if len(parts) != 3 {
		return domain.TrailingRule{}, fmt.Errorf("%w: %q: want bars,mfe,action", ports.ErrInvalidRule, raw)
	}
	bars, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || bars < 0 {
		return domain.TrailingRule{}, fmt.Errorf("%w: %q: bad bar count", ports.ErrInvalidRule, raw)
	}
	mfe, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil || mfe < 0 {
		return domain.TrailingRule{}, fmt.Errorf("%w: %q: bad mfe", ports.ErrInvalidRule, raw)
	}

	rule := domain.TrailingRule{AfterBars: bars, IfMFE: mfe}
	action := strings.ToLower(strings.TrimSpace(parts[2]))
	switch {
	case action == string(domain.TrailActionBreakeven):
		rule.Action = domain.TrailActionBreakeven
	case strings.HasPrefix(action, "trail:"):
		dist, err := strconv.ParseFloat(strings.TrimPrefix(action, "trail:"), 64)
		if err != nil || dist <= 0 {
			return domain.TrailingRule{}, fmt.Errorf("%w: %q: bad trail distance", ports.ErrInvalidRule, raw)
		}
		rule.Action = domain.TrailActionTrail
		rule.TrailDistance = dist
	default:
		return domain.TrailingRule{}, fmt.Errorf("%w: %q: unknown action %q", ports.ErrInvalidRule, raw, action)
	}
	return rule, nil
}

// SortRules orders rules ascending by AfterBars, keeping input order for ties.
func SortRules(rules []domain.TrailingRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return rules[i].AfterBars < rules[j].AfterBars
	})
}
