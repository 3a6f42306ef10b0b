package cmd

import (
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/pageforge/pageforge/internal/dsl"
	"github.com/pageforge/pageforge/internal/errors"
)

var validateAsNode bool

var validateCmd = &cobra.Command{
	Use:   "validate <file>...",
	Short: "Validate page documents against the composition schema",
	Long: `Validate one or more JSON or YAML page documents, printing every
schema violation with its path.

Examples:
  pageforge validate pages/home.json
  pageforge validate pages/*.yaml
  pageforge validate --node fragment.json   # Validate a bare node tree`,
	Args: cobra.MinimumNArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateAsNode, "node", false, "Validate as a bare node tree instead of a full page")
}

func runValidate(cmd *cobra.Command, args []string) error {
	failed := 0
	for _, path := range args {
		if err := validateFile(cmd, path); err != nil {
			failed++
			printValidationError(cmd, path, err)
		} else {
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", path)
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d document(s) failed validation", failed, len(args))
	}
	return nil
}

func validateFile(cmd *cobra.Command, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	doc, err := normalizeDocument(path, raw)
	if err != nil {
		return err
	}

	if validateAsNode {
		return dsl.ValidateNode(doc)
	}
	return dsl.ValidatePage(doc)
}

// normalizeDocument converts YAML input to a decoded document so both
// formats validate identically; JSON passes through as raw bytes.
func normalizeDocument(path string, raw []byte) (interface{}, error) {
	switch filepath.Ext(path) {
	case ".yml", ".yaml":
		var doc interface{}
		if err := yaml.Unmarshal(raw, &doc); err != nil {
			return nil, fmt.Errorf("parsing YAML: %w", err)
		}
		return doc, nil
	default:
		return raw, nil
	}
}

func printValidationError(cmd *cobra.Command, path string, err error) {
	var engineErr *errors.EngineError
	if stderrors.As(err, &engineErr) && len(engineErr.Violations) > 0 {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", path, engineErr.Message)
		for _, violation := range engineErr.Violations {
			fmt.Fprintf(cmd.ErrOrStderr(), "  %s: %s\n", violation.Path, violation.Message)
		}
		return
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v\n", path, err)
}
