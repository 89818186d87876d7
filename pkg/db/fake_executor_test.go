/*
 * Copyright 2025 Carver Automation Corporation.
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

package db

import (
	"context"
	"errors"
	"reflect"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var errFakeNotImplemented = errors.New("not implemented in fakeExecutor")

type recordedCall struct {
	sql  string
	args []any
}

// fakeExecutor records statements and replays canned rows.
type fakeExecutor struct {
	queries  []recordedCall
	execs    []recordedCall
	rows     [][]any
	queryErr error
	row      fakeRow
	batch    *fakeBatchResults
	batches  []*pgx.Batch
}

func (f *fakeExecutor) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	f.execs = append(f.execs, recordedCall{sql: sql, args: args})

	return pgconn.CommandTag{}, nil
}

func (f *fakeExecutor) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	f.queries = append(f.queries, recordedCall{sql: sql, args: args})

	if f.queryErr != nil {
		return nil, f.queryErr
	}

	return &fakeRows{data: f.rows, pos: -1}, nil
}

func (f *fakeExecutor) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	f.queries = append(f.queries, recordedCall{sql: sql, args: args})

	return f.row
}

func (f *fakeExecutor) SendBatch(_ context.Context, b *pgx.Batch) pgx.BatchResults {
	f.batches = append(f.batches, b)

	if f.batch == nil {
		f.batch = &fakeBatchResults{execErrAt: -1}
	}

	return f.batch
}

func assign(dest []any, values []any) error {
	if len(dest) != len(values) {
		return errors.New("column count mismatch")
	}

	for i, d := range dest {
		target := reflect.ValueOf(d).Elem()

		if values[i] == nil {
			target.Set(reflect.Zero(target.Type()))
			continue
		}

		target.Set(reflect.ValueOf(values[i]))
	}

	return nil
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}

	return assign(dest, r.values)
}

type fakeRows struct {
	data [][]any
	pos  int
}

func (r *fakeRows) Close()                                       {}
func (r *fakeRows) Err() error                                   { return nil }
func (r *fakeRows) CommandTag() pgconn.CommandTag                { return pgconn.CommandTag{} }
func (r *fakeRows) FieldDescriptions() []pgconn.FieldDescription { return nil }
func (r *fakeRows) Values() ([]any, error)                       { return r.data[r.pos], nil }
func (r *fakeRows) RawValues() [][]byte                          { return nil }
func (r *fakeRows) Conn() *pgx.Conn                              { return nil }

func (r *fakeRows) Next() bool {
	r.pos++

	return r.pos < len(r.data)
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(dest, r.data[r.pos])
}

type fakeBatchResults struct {
	execErrAt  int
	execErr    error
	execCalls  int
	closeCalls int
}

func (f *fakeBatchResults) Exec() (pgconn.CommandTag, error) {
	defer func() { f.execCalls++ }()

	if f.execCalls == f.execErrAt {
		return pgconn.CommandTag{}, f.execErr
	}

	return pgconn.CommandTag{}, nil
}

func (f *fakeBatchResults) Query() (pgx.Rows, error) {
	return nil, errFakeNotImplemented
}

func (f *fakeBatchResults) QueryRow() pgx.Row {
	return fakeRow{err: errFakeNotImplemented}
}

func (f *fakeBatchResults) Close() error {
	f.closeCalls++

	return nil
}
