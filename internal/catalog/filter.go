package catalog

import (
	"strings"

	"github.com/starford/langcards/internal/models"
)

// Filter returns the records whose name or description contains query,
// compared case-insensitively. The query is lower-cased but not trimmed.
// An empty query matches every record. Order is preserved and the input is
// never modified.
func Filter(records []models.Record, query string) []models.Record {
	q := strings.ToLower(query)
	out := make([]models.Record, 0, len(records))
	for _, r := range records {
		if Matches(r, q) {
			out = append(out, r)
		}
	}
	return out
}

// Matches reports whether r matches an already lower-cased query.
func Matches(r models.Record, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(r.Name), lowerQuery) ||
		strings.Contains(strings.ToLower(r.Description), lowerQuery)
}
