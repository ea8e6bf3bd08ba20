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

/*
Package catalog owns the registry of aggregate definitions.

A Catalog is created explicitly and passed to whoever executes aggregates;
there is no process-wide instance. Registration validates a definition and
stores it atomically: a rejected definition leaves the catalog unchanged.

# Core Features

• Builtin aggregates: count, sum, avg, min, max, variance family, bool_and/bool_or,
bit_and/bit_or, string_agg, array_agg, percentile_disc/cont and the hypothetical-set ranks
• Lookup by identifier ("sum(int8)") or by call signature with "any" matching
• Drop guarded by an external dependency check
• Pluggable persistence, with a YAML file persister included
• Expression-defined functions created alongside aggregates

Usage:

	cat, err := catalog.New(catalog.WithPersister(catalog.NewFilePersister("aggregates.yaml")))
	if err != nil {
		return err
	}
	if err := cat.Load(ctx); err != nil {
		log.Printf("some definitions failed to load: %v", err)
	}
	def, err := cat.LookupCall("avg", "numeric")
*/
package catalog
