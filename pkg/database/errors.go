package database

import (
	"errors"
	"strings"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// IsNotFound reports whether err is a missing-record error
func IsNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// UniqueViolation extracts the offending column when err is a
// unique-constraint violation, so handlers can answer with field-level
// detail instead of a bare 500.
func UniqueViolation(err error) (field string, ok bool) {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return fieldFromConstraint(string(pqErr.Constraint)), true
	}
	// sqlite (tests) reports unique violations as plain strings
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		msg := err.Error()
		if i := strings.LastIndex(msg, "."); i >= 0 {
			return msg[i+1:], true
		}
		return "", true
	}
	return "", false
}

// fieldFromConstraint turns index names like idx_accounts_email or
// accounts_email_key into the column name.
func fieldFromConstraint(constraint string) string {
	c := strings.TrimPrefix(constraint, "idx_")
	c = strings.TrimSuffix(c, "_key")
	if i := strings.LastIndex(c, "_"); i >= 0 {
		return c[i+1:]
	}
	return c
}
