/*
 * Copyright 2025 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/catalog"
	"github.com/rulego/aggexec/functions"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - aggregates and functions tables
// 2 - index on aggregates(name)
const currentSchemaVersion = 2

var _ catalog.Persister = (*Store)(nil)

// Store is a SQLite-backed catalog persister.
type Store struct {
	db *sql.DB
}

// Open creates or opens the catalog database at path and applies the
// schema. It is safe to call on an existing database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}
	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}
	return nil
}

func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}
	if version < 2 {
		if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_aggregates_name ON aggregates(name)`); err != nil {
			return fmt.Errorf("migrate to v2: %w", err)
		}
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}
	return nil
}

func joinTypes(ts []string) string { return strings.Join(ts, ",") }

func splitTypes(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullLiteral(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}

func literal(v sql.NullString) *string {
	if !v.Valid {
		return nil
	}
	return aggregate.Literal(v.String)
}

// SaveAggregate inserts or replaces the row of spec.
func (s *Store) SaveAggregate(ctx context.Context, spec aggregate.Spec) error {
	kind, err := spec.Kind.OrDefault().MarshalText()
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO aggregates (
			id, name, arg_types, kind, num_direct_args,
			trans_fn, final_fn, combine_fn, serial_fn, deserial_fn, final_extra,
			mtrans_fn, minvtrans_fn, mfinal_fn, mfinal_extra, sort_op,
			trans_type, trans_space, mtrans_type, mtrans_space,
			init_value, minit_value, result_type, seq
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?,
			COALESCE((SELECT MAX(seq) FROM aggregates), 0) + 1)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, arg_types = excluded.arg_types, kind = excluded.kind,
			num_direct_args = excluded.num_direct_args, trans_fn = excluded.trans_fn,
			final_fn = excluded.final_fn, combine_fn = excluded.combine_fn,
			serial_fn = excluded.serial_fn, deserial_fn = excluded.deserial_fn,
			final_extra = excluded.final_extra, mtrans_fn = excluded.mtrans_fn,
			minvtrans_fn = excluded.minvtrans_fn, mfinal_fn = excluded.mfinal_fn,
			mfinal_extra = excluded.mfinal_extra, sort_op = excluded.sort_op,
			trans_type = excluded.trans_type, trans_space = excluded.trans_space,
			mtrans_type = excluded.mtrans_type, mtrans_space = excluded.mtrans_space,
			init_value = excluded.init_value, minit_value = excluded.minit_value,
			result_type = excluded.result_type
	`,
		spec.ID(), spec.Name, joinTypes(spec.ArgTypes), string(kind[:1]), spec.NumDirectArgs,
		spec.TransFn, nullString(spec.FinalFn), nullString(spec.CombineFn),
		nullString(spec.SerialFn), nullString(spec.DeserialFn), spec.FinalExtra,
		nullString(spec.MTransFn), nullString(spec.MInvTransFn), nullString(spec.MFinalFn),
		spec.MFinalExtra, nullString(spec.SortOp),
		spec.TransType, spec.TransSpace, nullString(spec.MTransType), spec.MTransSpace,
		nullLiteral(spec.InitValue), nullLiteral(spec.MInitValue), nullString(spec.ResultType),
	)
	if err != nil {
		return fmt.Errorf("save aggregate %s: %w", spec.ID(), err)
	}
	return nil
}

// DeleteAggregate removes the row with the given identifier.
func (s *Store) DeleteAggregate(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM aggregates WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete aggregate %s: %w", id, err)
	}
	return nil
}

// SaveFunction inserts or replaces an expression procedure.
func (s *Store) SaveFunction(ctx context.Context, spec functions.ExprSpec) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO functions (name, arg_types, ret_type, strict, expression, seq)
		VALUES (?, ?, ?, ?, ?, COALESCE((SELECT MAX(seq) FROM functions), 0) + 1)
		ON CONFLICT(name) DO UPDATE SET
			arg_types = excluded.arg_types, ret_type = excluded.ret_type,
			strict = excluded.strict, expression = excluded.expression
	`, spec.Name, joinTypes(spec.ArgTypes), spec.RetType, spec.Strict, spec.Expression)
	if err != nil {
		return fmt.Errorf("save function %s: %w", spec.Name, err)
	}
	return nil
}

// Load returns all stored functions and aggregates in insertion order.
func (s *Store) Load(ctx context.Context) ([]functions.ExprSpec, []aggregate.Spec, error) {
	fns, err := s.loadFunctions(ctx)
	if err != nil {
		return nil, nil, err
	}
	aggs, err := s.loadAggregates(ctx)
	if err != nil {
		return nil, nil, err
	}
	return fns, aggs, nil
}

func (s *Store) loadFunctions(ctx context.Context) ([]functions.ExprSpec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, arg_types, ret_type, strict, expression
		FROM functions ORDER BY seq ASC, name ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("load functions: %w", err)
	}
	defer rows.Close()

	var out []functions.ExprSpec
	for rows.Next() {
		var spec functions.ExprSpec
		var args string
		if err := rows.Scan(&spec.Name, &args, &spec.RetType, &spec.Strict, &spec.Expression); err != nil {
			return nil, fmt.Errorf("scan function: %w", err)
		}
		spec.ArgTypes = splitTypes(args)
		out = append(out, spec)
	}
	return out, rows.Err()
}

func (s *Store) loadAggregates(ctx context.Context) ([]aggregate.Spec, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT name, arg_types, kind, num_direct_args,
			trans_fn, final_fn, combine_fn, serial_fn, deserial_fn, final_extra,
			mtrans_fn, minvtrans_fn, mfinal_fn, mfinal_extra, sort_op,
			trans_type, trans_space, mtrans_type, mtrans_space,
			init_value, minit_value, result_type
		FROM aggregates ORDER BY seq ASC, id ASC COLLATE BINARY
	`)
	if err != nil {
		return nil, fmt.Errorf("load aggregates: %w", err)
	}
	defer rows.Close()

	var out []aggregate.Spec
	for rows.Next() {
		var (
			spec                                        aggregate.Spec
			args, kind                                  string
			final, combine, serial, deserial            sql.NullString
			mtrans, minv, mfinal, sortop, mtype, result sql.NullString
			initValue, mInitValue                       sql.NullString
		)
		if err := rows.Scan(&spec.Name, &args, &kind, &spec.NumDirectArgs,
			&spec.TransFn, &final, &combine, &serial, &deserial, &spec.FinalExtra,
			&mtrans, &minv, &mfinal, &spec.MFinalExtra, &sortop,
			&spec.TransType, &spec.TransSpace, &mtype, &spec.MTransSpace,
			&initValue, &mInitValue, &result,
		); err != nil {
			return nil, fmt.Errorf("scan aggregate: %w", err)
		}
		if err := spec.Kind.UnmarshalText([]byte(kind)); err != nil {
			return nil, fmt.Errorf("aggregate %s: %w", spec.Name, err)
		}
		spec.ArgTypes = splitTypes(args)
		spec.FinalFn, spec.CombineFn = final.String, combine.String
		spec.SerialFn, spec.DeserialFn = serial.String, deserial.String
		spec.MTransFn, spec.MInvTransFn, spec.MFinalFn = mtrans.String, minv.String, mfinal.String
		spec.SortOp, spec.MTransType, spec.ResultType = sortop.String, mtype.String, result.String
		spec.InitValue, spec.MInitValue = literal(initValue), literal(mInitValue)
		out = append(out, spec)
	}
	return out, rows.Err()
}
