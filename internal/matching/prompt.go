package matching

import (
	"fmt"
	"strings"

	"github.com/mohammad-safakhou/prizm/models"
)

const notAvailable = "N/A"

const matchSystemPrompt = "You are a business matching algorithm that finds relevant service providers for user queries."

// BuildPrompt renders the query and candidate profiles into the matching instruction.
// The oracle is asked for a comma-separated list of ids, most relevant first.
func BuildPrompt(query string, candidates []models.Business) string {
	var b strings.Builder
	b.WriteString("I need to match the following user query to the most relevant businesses. ")
	b.WriteString("Please analyze the query and return the IDs of businesses that match, in order of relevance.\n\n")
	fmt.Fprintf(&b, "User Query: %q\n\n", query)

	for i, c := range candidates {
		if i > 0 {
			b.WriteString("\n\n")
		}
		writeCandidate(&b, i+1, c)
	}

	b.WriteString(`

Analyze which businesses are most relevant to the user's query. Consider service offerings, specializations, keywords, and the semantic meaning of the query.
Match on capability and context, not only literal keyword overlap: a request for a "home cooling solution" should match a business offering "AC installation" or "HVAC services".
Return a comma-separated list of business IDs, ordered by relevance (most relevant first), for example: 3,1
Only include businesses that are genuinely relevant to the query. If none are relevant, return an empty response.
Do not include any other text.`)
	return b.String()
}

func writeCandidate(b *strings.Builder, n int, c models.Business) {
	var keywords, specializations []string
	if c.IndustryRules != nil {
		keywords = c.IndustryRules.Keywords
		specializations = c.IndustryRules.Specializations
	}
	fmt.Fprintf(b, "Business %d:\n", n)
	fmt.Fprintf(b, "ID: %d\n", c.ID)
	fmt.Fprintf(b, "Description: %s\n", orNA(c.Description))
	fmt.Fprintf(b, "Category: %s\n", orNA(c.Category))
	fmt.Fprintf(b, "Location: %s\n", orNA(c.Location))
	fmt.Fprintf(b, "Services: %s\n", joinOrNA(c.Services))
	fmt.Fprintf(b, "Keywords: %s\n", joinOrNA(keywords))
	fmt.Fprintf(b, "Specializations: %s", joinOrNA(specializations))
}

func orNA(s string) string {
	if strings.TrimSpace(s) == "" {
		return notAvailable
	}
	return s
}

func joinOrNA(items []string) string {
	if len(items) == 0 {
		return notAvailable
	}
	return strings.Join(items, ", ")
}
