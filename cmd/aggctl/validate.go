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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/catalog"
	"github.com/rulego/aggexec/ddl"
	"github.com/rulego/aggexec/functions"
	"github.com/rulego/aggexec/logger"
)

// errInvalid is returned when at least one definition failed validation.
var errInvalid = errors.New("validation failed")

func newValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE...",
		Short: "Check definition files without registering them",
		Long: `Resolve and validate every function and aggregate of the given SQL or
YAML files against a scratch catalog. All rule violations of an aggregate
are reported, not only the first one.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scratch, err := catalog.New(catalog.WithLogger(logger.NewDiscardLogger()))
			if err != nil {
				return err
			}
			v := &validator{cat: scratch, out: cmd.OutOrStdout()}
			for _, path := range args {
				if err := v.file(cmd.Context(), path); err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			fmt.Fprintf(v.out, "%d valid, %d invalid\n", v.valid, v.invalid)
			if v.invalid > 0 {
				return fmt.Errorf("%w: %d invalid definitions", errInvalid, v.invalid)
			}
			return nil
		},
	}
}

type validator struct {
	cat     *catalog.Catalog
	out     io.Writer
	valid   int
	invalid int
}

func (v *validator) file(ctx context.Context, path string) error {
	if isYAML(path) {
		f, err := catalog.ReadFile(path)
		if err != nil {
			return err
		}
		for _, fn := range f.Functions {
			v.function(ctx, fn)
		}
		for _, spec := range f.Aggregates {
			v.aggregate(ctx, spec)
		}
		return nil
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	stmts, err := ddl.Parse(string(src))
	if err != nil {
		return err
	}
	for _, stmt := range stmts {
		switch stmt.Kind {
		case ddl.CreateFunction:
			v.function(ctx, stmt.Function)
		case ddl.CreateAggregate:
			v.aggregate(ctx, stmt.Aggregate)
		}
	}
	return nil
}

func (v *validator) function(ctx context.Context, spec functions.ExprSpec) {
	if _, err := v.cat.CreateFunction(ctx, spec); err != nil {
		v.invalid++
		fmt.Fprintf(v.out, "FAIL function %s: %v\n", spec.Name, err)
		return
	}
	v.valid++
	fmt.Fprintf(v.out, "ok   function %s\n", spec.Name)
}

func (v *validator) aggregate(ctx context.Context, spec aggregate.Spec) {
	def, err := aggregate.Resolve(spec, v.cat.Functions())
	if err != nil {
		v.invalid++
		fmt.Fprintf(v.out, "FAIL %s: %v\n", spec.ID(), err)
		return
	}
	if errs := aggregate.Check(def); len(errs) > 0 {
		v.invalid++
		for _, e := range errs {
			fmt.Fprintf(v.out, "FAIL %v\n", e)
		}
		return
	}
	// later statements may reference it
	if _, err := v.cat.Register(ctx, spec); err != nil {
		v.invalid++
		fmt.Fprintf(v.out, "FAIL %s: %v\n", spec.ID(), err)
		return
	}
	v.valid++
	fmt.Fprintf(v.out, "ok   %s\n", def.ID())
}
