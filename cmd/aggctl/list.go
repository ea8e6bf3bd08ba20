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
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/rulego/aggexec/aggregate"
	"github.com/rulego/aggexec/executor"
)

func newListCmd(opts *globalOptions) *cobra.Command {
	var userOnly bool
	cmd := &cobra.Command{
		Use:   "list [name]",
		Short: "List registered aggregates",
		Long: `List the aggregates of the catalog with their kind, result type and the
strategies selected for parallelizable and windowed execution.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer engine.Close()
			cat := engine.Catalog()

			defs := cat.List()
			if len(args) == 1 {
				defs = cat.LookupByName(args[0])
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "AGGREGATE\tKIND\tRESULT\tPARALLEL\tWINDOW")
			for _, def := range defs {
				if userOnly && cat.IsBuiltin(def.ID()) {
					continue
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", def.ID(), def.Kind, def.ResultType.Name(),
					strategyName(def, executor.ModeParallelizable), strategyName(def, executor.ModeWindowed))
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&userOnly, "user", false, "Only list user-defined aggregates")
	return cmd
}

func strategyName(def *aggregate.Definition, mode executor.Mode) string {
	s, err := executor.Select(def, mode)
	if err != nil {
		return "-"
	}
	return strings.ReplaceAll(s.String(), "_", "-")
}
