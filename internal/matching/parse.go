package matching

import (
	"errors"
	"strconv"
	"strings"
)

// ErrParse reports a non-empty reply that names no identifiers at all, such as
// a prose answer. Match treats it like an oracle failure.
var ErrParse = errors.New("reply carries no identifiers")

// ParseIDs extracts identifiers from a comma-separated oracle reply. Tokens that
// are not plain non-negative base-10 integers are dropped. An empty reply is a
// valid "no matches" answer and yields an empty, non-nil slice.
func ParseIDs(reply string) []int {
	ids := []int{}
	reply = strings.TrimSpace(reply)
	if reply == "" {
		return ids
	}
	for _, tok := range strings.Split(reply, ",") {
		tok = strings.TrimSpace(tok)
		if !isDigits(tok) {
			continue
		}
		id, err := strconv.Atoi(tok)
		if err != nil {
			// overflow
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
