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
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"github.com/tomoncle/foodcheck"
)

// PromptText asks the operator for a barcode.
const PromptText = "Enter a barcode to get a food: "

var errEmptyBarcode = errors.New("no barcode entered")

// NewCheckCommand creates the check command.
func NewCheckCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check <sku>",
		Short: "Check a product's ingredients for wheat",
		Long: `Look the product up by barcode and report whether its ingredient
statement mentions wheat. The verdict is ">>> safe <<<" or ">>> unsafe <<<".`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

// runPrompt reads one barcode from the command's input and checks it.
func runPrompt(opts *RootOptions, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	promptTo := cmd.OutOrStdout()
	if out.JSON() {
		promptTo = cmd.ErrOrStderr()
	}
	fmt.Fprint(promptTo, PromptText)

	sku, err := readLine(cmd.InOrStdin())
	if err != nil {
		return out.Fail(ExitCommandError, ErrCodeInput, err)
	}
	return runCheck(opts, sku, cmd)
}

func readLine(r io.Reader) (string, error) {
	scanner := bufio.NewScanner(r)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read barcode: %w", err)
		}
		return "", errEmptyBarcode
	}
	line := strings.TrimSpace(scanner.Text())
	if line == "" {
		return "", errEmptyBarcode
	}
	return line, nil
}

func runCheck(opts *RootOptions, sku string, cmd *cobra.Command) error {
	out := newFormatter(opts, cmd)

	sku = strings.TrimSpace(sku)
	if sku == "" {
		return out.Fail(ExitCommandError, ErrCodeInput, errEmptyBarcode)
	}

	s, closeFn, err := openSession(cmd.Context(), opts, out)
	if err != nil {
		return err
	}
	defer closeFn()

	ctx, cancel := s.queryContext(cmd)
	defer cancel()

	report, err := s.service.Check(ctx, sku)
	if err != nil {
		return failQuery(out, err)
	}
	return out.Success(report, func(w io.Writer) error {
		return writeReport(w, report)
	})
}

// writeReport prints the ingredients, the allergen banner and the verdict.
func writeReport(w io.Writer, r *foodcheck.Report) error {
	_, err := fmt.Fprintf(w, "%s\n--- Using %s as an example allergen ---\n%s\n",
		r.Ingredients, r.Term, r.Verdict.Desc())
	return err
}
