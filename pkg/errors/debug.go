package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for request logs. The DB fields come from
// Postgres errors (pgx or lib/pq) or from SQLite constraint messages.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	DBCode       string `json:"db_code,omitempty"`
	DBConstraint string `json:"db_constraint,omitempty"`
	DBTable      string `json:"db_table,omitempty"`
	DBColumn     string `json:"db_column,omitempty"`
	DBDetail     string `json:"db_detail,omitempty"`
	DBMessage    string `json:"db_message,omitempty"`
}

// sqlite reports constraint failures only through the message text.
var sqliteConstraintPrefixes = []string{
	"UNIQUE constraint failed: ",
	"CHECK constraint failed: ",
	"FOREIGN KEY constraint failed",
	"NOT NULL constraint failed: ",
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}
	if te := As(err); te != nil {
		d.Code = te.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		d.DBCode = pgxErr.Code
		d.DBConstraint = pgxErr.ConstraintName
		d.DBTable = pgxErr.TableName
		d.DBColumn = pgxErr.ColumnName
		d.DBDetail = pgxErr.Detail
		d.DBMessage = pgxErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.DBCode = string(pqErr.Code)
		d.DBConstraint = pqErr.Constraint
		d.DBTable = pqErr.Table
		d.DBColumn = pqErr.Column
		d.DBDetail = pqErr.Detail
		d.DBMessage = pqErr.Message
		return d
	}

	d.fillSQLite(d.Chain)
	return d
}

func (d *ErrorDump) fillSQLite(chain []string) {
	for _, link := range chain {
		for _, prefix := range sqliteConstraintPrefixes {
			idx := strings.Index(link, prefix)
			if idx < 0 {
				continue
			}
			d.DBCode = strings.TrimSpace(strings.TrimSuffix(prefix, ": "))
			d.DBMessage = link[idx:]
			target := strings.TrimSpace(link[idx+len(prefix):])
			if target == "" || strings.HasSuffix(prefix, "failed") {
				return
			}
			// "payments.order_id" or "offers.thread_id, offers.listing_id"
			d.DBConstraint = target
			first, _, _ := strings.Cut(target, ",")
			if table, column, ok := strings.Cut(first, "."); ok {
				d.DBTable = table
				d.DBColumn = column
			}
			return
		}
	}
}

// Fields returns the non-empty parts of the dump keyed for structured logs.
func (d ErrorDump) Fields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	if d.Code != "" {
		fields["error_code"] = d.Code
	}
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	for key, value := range map[string]string{
		"db_code":       d.DBCode,
		"db_constraint": d.DBConstraint,
		"db_table":      d.DBTable,
		"db_column":     d.DBColumn,
		"db_detail":     d.DBDetail,
		"db_message":    d.DBMessage,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
