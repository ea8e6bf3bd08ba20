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

package ddl

import (
	"context"
	"errors"
	"fmt"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/catalog"
)

// Result summarizes the effect of an applied script.
type Result struct {
	Functions []string
	Created   []*aggregate.Definition
	Dropped   []string
}

// Apply executes parsed statements against cat in order and stops at the
// first failure; statements applied before it stay applied.
func Apply(ctx context.Context, cat *catalog.Catalog, stmts []Statement) (*Result, error) {
	res := &Result{}
	for _, stmt := range stmts {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		switch stmt.Kind {
		case CreateFunction:
			p, err := cat.CreateFunction(ctx, stmt.Function)
			if err != nil {
				return res, fmt.Errorf("%s %s: %w", stmt.Kind, stmt.Function.Name, err)
			}
			res.Functions = append(res.Functions, p.Name)
		case CreateAggregate:
			def, err := createAggregate(ctx, cat, stmt)
			if err != nil {
				return res, fmt.Errorf("%s %s: %w", stmt.Kind, stmt.Aggregate.ID(), err)
			}
			res.Created = append(res.Created, def)
		case DropAggregate:
			for _, id := range stmt.Drop {
				err := cat.Drop(ctx, id)
				if err != nil && !(stmt.MissingOk && errors.Is(err, catalog.ErrNotFound)) {
					return res, fmt.Errorf("%s %s: %w", stmt.Kind, id, err)
				}
				if err == nil {
					res.Dropped = append(res.Dropped, id)
				}
			}
		}
	}
	return res, nil
}

func createAggregate(ctx context.Context, cat *catalog.Catalog, stmt Statement) (*aggregate.Definition, error) {
	if stmt.Replace {
		return cat.Replace(ctx, stmt.Aggregate)
	}
	return cat.Register(ctx, stmt.Aggregate)
}

// Exec parses sql and applies it to cat.
func Exec(ctx context.Context, cat *catalog.Catalog, sql string) (*Result, error) {
	stmts, err := Parse(sql)
	if err != nil {
		return nil, err
	}
	return Apply(ctx, cat, stmts)
}
