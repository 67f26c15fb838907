package matching

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/mohammad-safakhou/prizm/internal/oracle"
	"github.com/mohammad-safakhou/prizm/models"
	"go.uber.org/zap"
)

// Categories returns the ids of catalogue entries relevant to query, in the
// oracle's order. Unknown ids are dropped. Any oracle failure yields an empty result.
func (m *Matcher) Categories(ctx context.Context, query string, catalogue []models.Category) []int {
	if len(catalogue) == 0 {
		return []int{}
	}
	lines := make([]string, 0, len(catalogue))
	known := make(map[int]bool, len(catalogue))
	for _, c := range catalogue {
		lines = append(lines, fmt.Sprintf("%d - %s", c.ID, c.Name))
		known[c.ID] = true
	}
	prompt := fmt.Sprintf(`From the following user query about home improvement, identify which categories are most relevant:

User Query: %q

Available Categories:
%s

Return only the category IDs that match, as a comma-separated list (e.g., "1,3,5").
If no categories match, return an empty response.`, query, strings.Join(lines, "\n"))

	reply, err := m.oracle.Complete(ctx, oracle.Request{
		Op:        "categories",
		System:    "You are a home improvement category classifier.",
		Turns:     []oracle.Turn{{Role: oracle.RoleUser, Content: prompt}},
		MaxTokens: 50,
	})
	if err != nil {
		m.logger.Warn("oracle category extraction failed", zap.String("query", query), zap.Error(err))
		m.metrics.Fallback("categories")
		return []int{}
	}

	out := []int{}
	seen := map[int]bool{}
	for _, id := range ParseIDs(reply) {
		if known[id] && !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}

var emergencyReason = regexp.MustCompile(`(?is)^\W*yes[,.:;!*\s-]+(.*)$`)

// DetectEmergency asks the oracle whether query describes a situation needing
// immediate attention. Any oracle failure yields a non-emergency.
func (m *Matcher) DetectEmergency(ctx context.Context, query string) models.Emergency {
	prompt := fmt.Sprintf(`Analyze this home improvement query and determine if it describes an emergency situation that requires immediate attention:

Query: %q

An emergency is defined as a situation that:
- Poses immediate danger to people (e.g., electrical hazards, gas leaks)
- Could cause significant property damage if not addressed quickly (e.g., active water leaks, structural issues)
- Creates unhealthy or unsafe living conditions (e.g., sewage backups, heating failure in winter)

Answer "yes" or "no" first.
Then, if it is an emergency, briefly explain why in one short sentence.`, query)

	reply, err := m.oracle.Complete(ctx, oracle.Request{
		Op:        "emergency",
		System:    "You are an emergency detection system for home improvement issues.",
		Turns:     []oracle.Turn{{Role: oracle.RoleUser, Content: prompt}},
		MaxTokens: 100,
	})
	if err != nil {
		m.logger.Warn("oracle emergency detection failed", zap.String("query", query), zap.Error(err))
		m.metrics.Fallback("emergency")
		return models.Emergency{}
	}
	return parseEmergency(reply)
}

func parseEmergency(reply string) models.Emergency {
	reply = strings.TrimSpace(reply)
	lower := strings.ToLower(reply)
	if !strings.HasPrefix(strings.TrimLeft(lower, " \t\n\"'*"), "yes") {
		return models.Emergency{}
	}
	out := models.Emergency{IsEmergency: true}
	if m := emergencyReason.FindStringSubmatch(reply); m != nil {
		out.Reason = strings.TrimSpace(m[1])
	}
	return out
}
