// Package cmd provides the pageforge command-line interface.
//
// Configuration is layered with clear precedence: command-line flags
// override environment variables (PAGEFORGE_ prefix, e.g.
// PAGEFORGE_SERVER_PORT), which override the configuration file
// (.pageforge.yml by default, or the path given via --config or
// PAGEFORGE_CONFIG_FILE).
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/pageforge/pageforge/internal/config"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "pageforge",
	Short: "A plugin-based page composition and rendering engine",
	Long: `PageForge composes pages from declarative JSON/YAML documents and
renders them through schema-validated plugins.

Quick Start:
  pageforge serve                 Start the composition server
  pageforge render home           Render a page to HTML on stdout
  pageforge validate page.json    Validate a page document
  pageforge version               Show version information`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Accept underscored flag spellings, e.g. --log_level.
	rootCmd.PersistentFlags().SetNormalizeFunc(func(f *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .pageforge.yml, can also use PAGEFORGE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")

	_ = viper.BindPFlag("log.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("log.format", rootCmd.PersistentFlags().Lookup("log-format"))
}

func initConfig() {
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("PAGEFORGE_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".pageforge")
	}

	config.SetupEnvironment()

	// A missing config file is fine; defaults and environment carry.
	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
