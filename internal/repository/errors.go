package repository

import (
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrEmailTaken is returned when a user insert hits the email uniqueness constraint.
	ErrEmailTaken = errors.New("email already taken")
	// ErrDuplicateToken is returned when a token insert hits the token uniqueness constraint.
	ErrDuplicateToken = errors.New("duplicate token")
)

const (
	uniqueViolation           = "23505"
	invalidTextRepresentation = "22P02"
)

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

// missingOnMalformedID turns a uuid cast failure into pgx.ErrNoRows: an id
// that is not a uuid matches no row.
func missingOnMalformedID(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == invalidTextRepresentation {
		return pgx.ErrNoRows
	}
	return err
}
