package helpers

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
	"github.com/mohammad-safakhou/prizm/models"
)

var (
	strictPolicyOnce sync.Once
	strictPolicy     *bluemonday.Policy
)

// StrictHTMLPolicy returns a singleton bluemonday policy that strips every HTML
// element and attribute.
func StrictHTMLPolicy() *bluemonday.Policy {
	strictPolicyOnce.Do(func() {
		strictPolicy = bluemonday.StrictPolicy()
	})
	return strictPolicy
}

// maxStripPasses bounds how often PlainText re-sanitizes text whose decoded
// entities formed new markup.
const maxStripPasses = 5

// PlainText removes markup from user-supplied text. Entities escaped by the
// policy are decoded again so "a & b" survives unchanged; decoding is repeated
// until the result is stable, so encoded tags never come back as live markup.
func PlainText(s string) string {
	s = strings.TrimSpace(s)
	if s == "" || !strings.ContainsAny(s, "<>&") {
		return s
	}
	policy := StrictHTMLPolicy()
	for i := 0; i < maxStripPasses; i++ {
		out := strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
		if out == s {
			return out
		}
		s = out
	}
	// still changing: keep the escaped form, which cannot carry markup
	return strings.TrimSpace(policy.Sanitize(s))
}

// CleanMessage strips markup from a message before it is stored or delivered.
func CleanMessage(m models.NewMessage) models.NewMessage {
	m.Content = PlainText(m.Content)
	return m
}

// CleanBusiness strips markup from every free-text field of a business profile.
// These fields are rendered into oracle prompts.
func CleanBusiness(b models.NewBusiness) models.NewBusiness {
	b.Description = PlainText(b.Description)
	b.Category = PlainText(b.Category)
	b.Location = PlainText(b.Location)
	b.Services = cleanAll(b.Services)
	if b.IndustryRules != nil {
		rules := *b.IndustryRules
		rules.Keywords = cleanAll(rules.Keywords)
		rules.Requirements = cleanAll(rules.Requirements)
		rules.Specializations = cleanAll(rules.Specializations)
		b.IndustryRules = &rules
	}
	return b
}

func cleanAll(items []string) []string {
	if items == nil {
		return nil
	}
	out := make([]string, len(items))
	for i, s := range items {
		out[i] = PlainText(s)
	}
	return out
}
