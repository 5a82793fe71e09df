/*
 * Copyright 2025 tomoncle.
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

package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/tomoncle/foodcheck/repository"
	"github.com/tomoncle/foodcheck/types"
)

// NewLookupCommand creates the lookup command.
func NewLookupCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "lookup <sku>",
		Short:         "Print the product record for a barcode",
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLookup(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runLookup(opts *RootOptions, sku string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	s, closeFn, err := openSession(cmd.Context(), opts, out)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := s.queryContext(cmd)
	defer cancel()

	rec, err := s.service.Lookup(ctx, sku)
	if err != nil {
		return failQuery(out, err)
	}
	return out.Success(rec, func(w io.Writer) error {
		return writeRecord(w, rec)
	})
}

func writeRecord(w io.Writer, rec types.Record) error {
	for _, key := range []string{repository.FieldSKU, repository.FieldDescription, repository.FieldIngredients} {
		v, ok := rec.Text(key)
		if !ok {
			v = "<null>"
		}
		if _, err := fmt.Fprintf(w, "%s: %s\n", key, v); err != nil {
			return err
		}
	}
	return nil
}
