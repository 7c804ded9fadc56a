package services

import (
	"errors"
	"strings"

	"github.com/lib/pq"
)

// uniqueViolationField maps a uniqueness violation onto the offending column.
// Checks the pq error code for PostgreSQL and falls back to string matching so
// the SQLite-backed tests exercise the same path.
func uniqueViolationField(err error) string {
	if err == nil {
		return ""
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fieldFromConstraint(pqErr.Constraint)
	}

	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value") {
		return fieldFromConstraint(msg)
	}

	return ""
}

func fieldFromConstraint(s string) string {
	switch {
	case strings.Contains(s, "display_name"):
		return "display name"
	case strings.Contains(s, "email"):
		return "email"
	case strings.Contains(s, "username"):
		return "username"
	default:
		return "value"
	}
}

func isUniqueViolation(err error) bool {
	return uniqueViolationField(err) != ""
}
