// Package repository holds the MySQL access layer. Repositories return
// sql.ErrNoRows for missing rows and raw driver errors otherwise; the
// service layer translates them into apperr kinds. Methods suffixed with Tx
// run on a caller-owned transaction and never commit or roll back.
package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
)

// ErrCorruptAggregate is returned when a booking row is joined to both a game
// and a training. The schema cannot prevent it, so reads report it instead of
// picking one.
var ErrCorruptAggregate = errors.New("booking has both a game and a training")

// DBTX is the subset of *sql.DB and *sql.Tx the lookups need, so the same
// query can run inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func int64Args(ids []int64) []any {
	args := make([]any, 0, len(ids))
	for _, id := range ids {
		args = append(args, id)
	}
	return args
}

func int64Ptr(n sql.NullInt64) *int64 {
	if !n.Valid {
		return nil
	}
	v := n.Int64
	return &v
}

func timePtr(n sql.NullTime) *time.Time {
	if !n.Valid {
		return nil
	}
	v := n.Time
	return &v
}

func stringPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	v := n.String
	return &v
}

// affectedOrNoRows turns an UPDATE or DELETE that matched nothing into
// sql.ErrNoRows.
func affectedOrNoRows(res sql.Result, err error) error {
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MySQL server error numbers the service layer turns into domain errors.
const (
	mysqlDuplicateEntry  = 1062
	mysqlRowIsReferenced = 1451
	mysqlNoReferencedRow = 1452
)

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

// IsDuplicateKey reports whether err is a unique or primary key violation.
func IsDuplicateKey(err error) bool { return mysqlErrorNumber(err) == mysqlDuplicateEntry }

// IsReferenced reports whether err is a delete or update rejected because
// other rows still reference the target.
func IsReferenced(err error) bool { return mysqlErrorNumber(err) == mysqlRowIsReferenced }

// IsMissingReference reports whether err is an insert or update naming a
// parent row that does not exist.
func IsMissingReference(err error) bool { return mysqlErrorNumber(err) == mysqlNoReferencedRow }
