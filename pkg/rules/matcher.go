// Package rules decides which applications an employee should be provisioned into.
package rules

import (
	"github.com/hrdash/lifecycle/pkg/models"
)

// Matches reports whether every key of condition resolves on the profile to
// an equal value. Keys are looked up on the direct profile fields first and
// on the custom attributes second. An empty condition matches every profile.
func Matches(profile *models.EmployeeProfile, condition map[string]any) bool {
	for key, raw := range condition {
		expected, ok := ValueOf(raw)
		if !ok {
			return false
		}

		resolved, found := profile.Lookup(key)
		if !found {
			if expected.Kind() == KindNull {
				continue
			}

			return false
		}

		actual, ok := ValueOf(resolved)
		if !ok || !actual.Equal(expected) {
			return false
		}
	}

	return true
}

// Selection partitions the applications that have at least one active rule.
type Selection struct {
	Matched   []*models.App `json:"matched"`
	Unmatched []*models.App `json:"unmatched"`
}

// MatchedIDs returns the ids of the matched applications in order.
func (s Selection) MatchedIDs() []string {
	ids := make([]string, 0, len(s.Matched))
	for _, app := range s.Matched {
		ids = append(ids, app.ID)
	}

	return ids
}

// SelectApplicableApps splits apps into those the profile qualifies for and
// those it does not. An app qualifies when any of its active rules matches.
// Apps without an active rule appear in neither list, and rules that point
// at unknown apps are ignored. Output follows the order of apps.
func SelectApplicableApps(profile *models.EmployeeProfile, apps []*models.App, rules []*models.ProvisioningRule) Selection {
	governed := make(map[string]bool)
	matched := make(map[string]bool)

	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}

		governed[rule.AppID] = true

		if !matched[rule.AppID] && Matches(profile, rule.Condition) {
			matched[rule.AppID] = true
		}
	}

	var selection Selection

	for _, app := range apps {
		switch {
		case !governed[app.ID]:
		case matched[app.ID]:
			selection.Matched = append(selection.Matched, app)
		default:
			selection.Unmatched = append(selection.Unmatched, app)
		}
	}

	return selection
}
