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
	"os"

	"github.com/spf13/cobra"

	"github.com/rulego/aggexec/catalog"
)

func newApplyCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "apply FILE...",
		Short: "Register definitions in the persistent catalog",
		Long: `Execute the statements of SQL files, or register the entries of YAML
catalog files, against the catalog selected by --db or --catalog. Files are
applied in order; the first failure stops the command.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if opts.dbPath == "" && opts.catalogFile == "" {
				return fmt.Errorf("apply needs a persistent catalog: set --db or --catalog")
			}
			engine, err := openEngine(opts)
			if err != nil {
				return err
			}
			defer engine.Close()

			out := cmd.OutOrStdout()
			for _, path := range args {
				if isYAML(path) {
					f, err := catalog.ReadFile(path)
					if err != nil {
						return err
					}
					defs, err := engine.Catalog().Apply(cmd.Context(), f)
					for _, def := range defs {
						fmt.Fprintf(out, "CREATE AGGREGATE %s\n", def.ID())
					}
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					continue
				}

				src, err := os.ReadFile(path)
				if err != nil {
					return err
				}
				res, err := engine.Execute(cmd.Context(), string(src))
				if res != nil {
					for _, name := range res.Functions {
						fmt.Fprintf(out, "CREATE FUNCTION %s\n", name)
					}
					for _, def := range res.Created {
						fmt.Fprintf(out, "CREATE AGGREGATE %s\n", def.ID())
					}
					for _, id := range res.Dropped {
						fmt.Fprintf(out, "DROP AGGREGATE %s\n", id)
					}
				}
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
			}
			return nil
		},
	}
}
