// Package aggregate classifies flattened test cases into categories and rolls them
// up into a RunSummary.
package aggregate

import (
	"strings"

	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

// Rule maps a (source label, lower-cased title) pair to a category
type Rule struct {
	Name     string
	Category types.Category
	Match    func(source, title string) bool
}

// DefaultRules returns the classification rules in precedence order.
//
// The mobile rule also matches every case from the "visual" source, so the
// visual-source rule after it never fires. Reports relying on visual_tests
// being populated should reorder the rules explicitly.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:     "airtable-or-integration-title",
			Category: types.CategoryAirtableIntegration,
			Match:    TitleContainsAny("airtable", "integration"),
		},
		{
			Name:     "mobile-title-or-visual-source",
			Category: types.CategoryMobile,
			Match:    AnyOf(TitleContainsAny("mobile"), SourceIs("visual")),
		},
		{
			Name:     "visual-source",
			Category: types.CategoryVisual,
			Match:    SourceIs("visual"),
		},
	}
}

// TitleContainsAny matches when the title contains any of the given substrings
func TitleContainsAny(substrs ...string) func(source, title string) bool {
	return func(_, title string) bool {
		for _, sub := range substrs {
			if strings.Contains(title, sub) {
				return true
			}
		}
		return false
	}
}

// SourceIs matches cases coming from the given source label
func SourceIs(label string) func(source, title string) bool {
	return func(source, _ string) bool {
		return source == label
	}
}

// AnyOf matches when at least one predicate matches
func AnyOf(preds ...func(source, title string) bool) func(source, title string) bool {
	return func(source, title string) bool {
		for _, p := range preds {
			if p(source, title) {
				return true
			}
		}
		return false
	}
}

// Classifier evaluates rules first-match-wins and falls back to a default category
type Classifier struct {
	rules    []Rule
	fallback types.Category
}

// NewClassifier creates a classifier. A nil rule set uses DefaultRules.
func NewClassifier(rules []Rule, fallback types.Category) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	if !fallback.IsValid() {
		fallback = types.CategoryCore
	}
	return &Classifier{
		rules:    rules,
		fallback: fallback,
	}
}

// NewDefaultClassifier uses DefaultRules with core_tests as the fallback
func NewDefaultClassifier() *Classifier {
	return NewClassifier(DefaultRules(), types.CategoryCore)
}

// Rules returns the rules in evaluation order
func (c *Classifier) Rules() []Rule {
	return c.rules
}

// Classify returns the category for a test case. Titles are matched case-insensitively.
func (c *Classifier) Classify(source, title string) types.Category {
	category, _ := c.classify(source, title)
	return category
}

// MatchedRule returns the name of the rule that classified the case, or "" for the fallback
func (c *Classifier) MatchedRule(source, title string) string {
	_, name := c.classify(source, title)
	return name
}

func (c *Classifier) classify(source, title string) (types.Category, string) {
	lowered := strings.ToLower(title)
	for _, r := range c.rules {
		if r.Match == nil || !r.Category.IsValid() {
			continue
		}
		if r.Match(source, lowered) {
			return r.Category, r.Name
		}
	}
	return c.fallback, ""
}
