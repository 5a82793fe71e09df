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
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/tomoncle/foodcheck/repository"
	"github.com/tomoncle/foodcheck/types"
)

// SearchOptions holds flags for the search command.
type SearchOptions struct {
	Page int
	Size int
}

// NewSearchCommand creates the search command.
func NewSearchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &SearchOptions{}

	cmd := &cobra.Command{
		Use:   "search <prefix>",
		Short: "List products whose barcode starts with prefix",
		Long: `List products whose barcode starts with prefix, one page at a time,
ordered by barcode.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(rootOpts, opts, args[0], cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&opts.Size, "size", types.DefaultPageSize, fmt.Sprintf("page size (max %d)", types.MaxPageSize))

	return cmd
}

func runSearch(rootOpts *RootOptions, opts *SearchOptions, prefix string, cmd *cobra.Command) error {
	out := newFormatter(rootOpts, cmd)

	s, closeFn, err := openSession(cmd.Context(), rootOpts, out)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := s.queryContext(cmd)
	defer cancel()

	page, err := s.service.Search(ctx, prefix, types.NewDefaultPageRequest(opts.Page, opts.Size))
	if err != nil {
		return failQuery(out, err)
	}
	return out.Success(page, func(w io.Writer) error {
		return writePage(w, page)
	})
}

func writePage(w io.Writer, page *types.Pagination[repository.Food]) error {
	if page.Total == 0 {
		_, err := fmt.Fprintln(w, "no matching products")
		return err
	}
	tw := tabwriter.NewWriter(w, 0, 0, 3, ' ', 0)
	fmt.Fprintln(tw, "SKU\tDESCRIPTION")
	for _, food := range page.Items {
		fmt.Fprintf(tw, "%s\t%s\n", food.FdcID, food.Description)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "page %d/%d, %d total\n", page.Page, page.Pages(), page.Total)
	return err
}
