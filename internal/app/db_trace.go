package app

import (
	"regexp"
	"strings"
)

// Roster SQL is written multi-line; collapse it so a span attribute stays
// a single readable line.
const tracedQueryLimit = 512

var sqlWhitespace = regexp.MustCompile(`\s+`)

func formatDBQueryForTrace(query string) string {
	collapsed := sqlWhitespace.ReplaceAllString(strings.TrimSpace(query), " ")
	if len(collapsed) > tracedQueryLimit {
		return collapsed[:tracedQueryLimit] + "..."
	}
	return collapsed
}
