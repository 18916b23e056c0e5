package persist

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Failure is a row-store write that did not go through. Message is always
// human-readable; Code and Hint are filled when the backend provides them.
type Failure struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Hint    string `json:"hint,omitempty"`
}

func (f *Failure) Error() string {
	if f.Code == "" {
		return "persist: " + f.Message
	}
	return "persist: " + f.Message + " (" + f.Code + ")"
}

// AsFailure converts any error from a row store into a *Failure.
func AsFailure(err error) *Failure {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		out := &Failure{Message: pgErr.Message, Code: pgErr.Code, Hint: pgErr.Hint}
		if out.Hint == "" && pgErr.Code == "42P01" {
			out.Hint = "the destination table does not exist; start the service with PERSIST_MIGRATE=true"
		}
		return out
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		out := &Failure{Message: liteErr.Error(), Code: strconv.Itoa(liteErr.Code())}
		switch {
		case liteErr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT:
			out.Hint = "a constraint on the destination table rejected the row"
		case strings.Contains(liteErr.Error(), "no such table"):
			out.Hint = "the destination table does not exist; start the service with PERSIST_MIGRATE=true"
		case liteErr.Code()&0xff == sqlite3.SQLITE_BUSY:
			out.Hint = "the database is locked; retry the submission"
		}
		return out
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &Failure{Message: "row store did not respond in time", Code: "timeout"}
	case errors.Is(err, context.Canceled):
		return &Failure{Message: "request was cancelled", Code: "cancelled"}
	}
	return &Failure{Message: err.Error()}
}
