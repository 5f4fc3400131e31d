package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// DBFailure is what the database driver reported, when it reported anything.
type DBFailure struct {
	Driver     string `json:"driver"`
	SQLState   string `json:"sql_state,omitempty"`
	Constraint string `json:"constraint,omitempty"`
	Table      string `json:"table,omitempty"`
	Column     string `json:"column,omitempty"`
	Detail     string `json:"detail,omitempty"`
	Message    string `json:"message,omitempty"`
}

// ErrorDump flattens an error chain for request logs.
type ErrorDump struct {
	TopMessage string     `json:"top_message"`
	Code       Code       `json:"code,omitempty"`
	Chain      []string   `json:"chain,omitempty"`
	DB         *DBFailure `json:"db,omitempty"`
}

// Dump walks err and collects its code, chain and any driver failure.
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
	d.DB = dbFailure(err)
	return d
}

// LogFields renders the dump as structured log fields, skipping empty ones.
func (d ErrorDump) LogFields() map[string]any {
	fields := map[string]any{"error": d.TopMessage}
	if d.Code != "" {
		fields["error_code"] = string(d.Code)
	}
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	if db := d.DB; db != nil {
		fields["db_driver"] = db.Driver
		for key, value := range map[string]string{
			"db_sql_state":  db.SQLState,
			"db_constraint": db.Constraint,
			"db_table":      db.Table,
			"db_column":     db.Column,
			"db_detail":     db.Detail,
			"db_message":    db.Message,
		} {
			if value != "" {
				fields[key] = value
			}
		}
	}
	return fields
}

func dbFailure(err error) *DBFailure {
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return &DBFailure{
			Driver:     "pgx",
			SQLState:   pgxErr.Code,
			Constraint: pgxErr.ConstraintName,
			Table:      pgxErr.TableName,
			Column:     pgxErr.ColumnName,
			Detail:     pgxErr.Detail,
			Message:    pgxErr.Message,
		}
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return &DBFailure{
			Driver:     "pq",
			SQLState:   string(pqErr.Code),
			Constraint: pqErr.Constraint,
			Table:      pqErr.Table,
			Column:     pqErr.Column,
			Detail:     pqErr.Detail,
			Message:    pqErr.Message,
		}
	}

	// The sqlite driver only exposes text, e.g.
	// "UNIQUE constraint failed: books.isbn".
	msg := err.Error()
	for _, marker := range []string{"UNIQUE constraint failed: ", "FOREIGN KEY constraint failed", "CHECK constraint failed: ", "NOT NULL constraint failed: "} {
		idx := strings.Index(msg, marker)
		if idx < 0 {
			continue
		}
		f := &DBFailure{Driver: "sqlite", Message: msg[idx:]}
		f.Constraint = strings.TrimSuffix(strings.TrimSpace(marker), ":")
		target := strings.TrimSpace(msg[idx+len(marker):])
		if table, rest, ok := strings.Cut(target, "."); ok {
			f.Table = table
			column, _, _ := strings.Cut(rest, ",")
			f.Column = strings.TrimSpace(column)
		}
		return f
	}
	return nil
}
