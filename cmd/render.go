package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pageforge/pageforge/internal/pipeline"
	"github.com/pageforge/pageforge/internal/server"
)

var (
	renderLocale string
	renderUser   string
	renderJSON   bool
)

var renderCmd = &cobra.Command{
	Use:   "render <slug>",
	Short: "Compose and render a page to stdout",
	Long: `Load the page for the given slug, run the composition pipeline and
print the result.

Examples:
  pageforge render home                  # HTML output
  pageforge render home --json           # Composition as JSON
  pageforge render home --locale fr      # Explicit locale
  pageforge render home --user user-42   # Identity for A/B bucketing`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	rootCmd.AddCommand(renderCmd)

	renderCmd.Flags().StringVar(&renderLocale, "locale", "", "Explicit locale override")
	renderCmd.Flags().StringVar(&renderUser, "user", "", "User identity for experiment bucketing")
	renderCmd.Flags().BoolVar(&renderJSON, "json", false, "Emit the composition as JSON instead of HTML")
}

func runRender(cmd *cobra.Command, args []string) error {
	container, err := buildContainer()
	if err != nil {
		return err
	}
	defer container.Dispose()

	cfg, _, pages, reg := resolveDeps(container)
	composer := server.NewComposer(cfg, pages, reg)

	req := pipeline.Request{Locale: renderLocale, UserID: renderUser}

	if renderJSON {
		body, err := composer.RenderJSON(cmd.Context(), args[0], req)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(body))
		return nil
	}

	html, _, err := composer.RenderHTML(cmd.Context(), args[0], req)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), html)
	return nil
}
