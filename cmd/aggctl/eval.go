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
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rulego/aggexec"
	"github.com/rulego/aggexec/executor"
	"github.com/rulego/aggexec/types"
	"github.com/rulego/aggexec/window"
)

type evalOptions struct {
	mode      string
	direct    []string
	workers   int
	delimiter string
	preceding int
	following int
}

func newEvalCmd(opts *globalOptions) *cobra.Command {
	eo := &evalOptions{}
	cmd := &cobra.Command{
		Use:   "eval AGGREGATE [ROW...]",
		Short: "Evaluate an aggregate over literal input rows",
		Long: `Evaluate an aggregate, named by its identifier such as "sum(int8)", over
the given rows. Each row lists the aggregated arguments separated by the
delimiter; values are parsed as literals of the argument types and NULL
denotes a SQL NULL.

Windowed mode evaluates one frame per row, spanning --preceding rows before
and --following rows after it (-1 is unbounded).`,
		Example: `  aggctl eval "avg(numeric)" 1.5 2 NULL 4
  aggctl eval "percentile_cont(float8,float8)" --direct 0.5 1 2 3 4
  aggctl eval "sum(int4)" --mode windowed --preceding 1 1 2 3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mode, err := executor.ParseMode(eo.mode)
			if err != nil {
				return err
			}
			engine, err := openEngine(opts, aggexec.WithWorkers(eo.workers))
			if err != nil {
				return err
			}
			defer engine.Close()

			def, err := engine.Catalog().Lookup(args[0])
			if err != nil {
				return err
			}
			req := executor.Request{Definition: def, Mode: mode}
			if req.Direct, err = parseRow(def.DirectArgTypes(), eo.direct); err != nil {
				return fmt.Errorf("direct arguments: %w", err)
			}
			argTypes := def.AggregatedArgTypes()
			for i, raw := range args[1:] {
				var fields []string
				if len(argTypes) > 0 {
					fields = strings.Split(raw, eo.delimiter)
				}
				row, err := parseRow(argTypes, fields)
				if err != nil {
					return fmt.Errorf("row %d: %w", i+1, err)
				}
				req.Rows = append(req.Rows, row)
			}
			if mode == executor.ModeWindowed {
				req.Frames = window.RowsBetween(len(req.Rows), eo.preceding, eo.following)
			}

			res, err := engine.Run(cmd.Context(), req)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "strategy: %s\n", res.Strategy)
			if mode != executor.ModeWindowed {
				fmt.Fprintln(out, def.ResultType.Format(res.Value))
				return nil
			}
			for i, v := range res.Values {
				fmt.Fprintf(out, "%s\t%s\n", req.Frames[i], def.ResultType.Format(v))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&eo.mode, "mode", executor.ModeSequential.String(), "Execution mode: sequential, parallelizable, windowed or ordered_set")
	cmd.Flags().StringSliceVar(&eo.direct, "direct", nil, "Direct arguments of ordered-set aggregates")
	cmd.Flags().IntVar(&eo.workers, "workers", 0, "Parallel workers (default: number of CPUs)")
	cmd.Flags().StringVar(&eo.delimiter, "delimiter", "|", "Separator between the arguments of one row")
	cmd.Flags().IntVar(&eo.preceding, "preceding", window.Unbounded, "Rows before the current row in each window frame")
	cmd.Flags().IntVar(&eo.following, "following", 0, "Rows after the current row in each window frame")
	return cmd
}

// parseRow parses one literal per argument type.
func parseRow(argTypes []types.Type, fields []string) ([]types.Datum, error) {
	if len(fields) != len(argTypes) {
		return nil, fmt.Errorf("expected %d values, got %d", len(argTypes), len(fields))
	}
	row := make([]types.Datum, len(fields))
	for i, s := range fields {
		v, err := parseValue(argTypes[i], strings.TrimSpace(s))
		if err != nil {
			return nil, err
		}
		row[i] = v
	}
	return row, nil
}

func parseValue(typ types.Type, s string) (types.Datum, error) {
	if strings.EqualFold(s, "null") {
		return nil, nil
	}
	if typ.Name() != types.NameAny {
		return typ.ParseLiteral(s)
	}
	// polymorphic arguments take the narrowest literal form
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, nil
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f, nil
	}
	return s, nil
}
