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
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/rulego/aggexec"
	"github.com/rulego/aggexec/logger"
)

// globalOptions are the flags shared by every command.
type globalOptions struct {
	debug       bool
	catalogFile string
	dbPath      string
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:   "aggctl",
		Short: "Aggregate definition and execution tool",
		Long: `aggctl validates, registers, lists and evaluates aggregate definitions.

Definitions are read from SQL files (CREATE AGGREGATE, CREATE FUNCTION ...
LANGUAGE expr, DROP AGGREGATE) or YAML catalog files. User-defined aggregates
persist in a SQLite database (--db) or a YAML catalog file (--catalog).

Commands:
  list      List registered aggregates and their execution strategies
  validate  Check definition files without registering them
  apply     Register definitions in the persistent catalog
  eval      Evaluate an aggregate over literal input rows`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.catalogFile != "" && opts.dbPath != "" {
				return fmt.Errorf("--catalog and --db are mutually exclusive")
			}
			level := logger.WARN
			if opts.debug {
				level = logger.DEBUG
			}
			logger.SetDefault(logger.NewLogger(level, cmd.ErrOrStderr()))
			return nil
		},
	}
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&opts.catalogFile, "catalog", "", "YAML catalog file holding user-defined aggregates")
	root.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database holding user-defined aggregates")

	root.AddCommand(newListCmd(opts))
	root.AddCommand(newValidateCmd())
	root.AddCommand(newApplyCmd(opts))
	root.AddCommand(newEvalCmd(opts))
	return root
}

// openEngine builds the engine backed by the catalog the global flags
// select, with the user-defined entries it persists loaded.
func openEngine(opts *globalOptions, extra ...aggexec.Option) (*aggexec.Engine, error) {
	engineOpts := []aggexec.Option{aggexec.WithLogger(logger.GetDefault())}
	if opts.dbPath != "" {
		engineOpts = append(engineOpts, aggexec.WithDatabase(opts.dbPath))
	}
	if opts.catalogFile != "" {
		engineOpts = append(engineOpts, aggexec.WithCatalogFile(opts.catalogFile))
	}
	return aggexec.New(append(engineOpts, extra...)...)
}

func isYAML(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return true
	}
	return false
}
