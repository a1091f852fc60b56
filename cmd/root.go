// Package cmd implements the command-line interface for goscrape.
package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jonesrussell/goscrape/cmd/run"
	"github.com/jonesrussell/goscrape/internal/config"
)

// version is set at build time.
var version = "1.0.0"

var (
	// cfgFile holds the path to the configuration file.
	cfgFile string

	// debug enables debug logging for all commands.
	debug bool

	// rootCmd represents the root command for the goscrape CLI.
	rootCmd = &cobra.Command{
		Use:   "goscrape",
		Short: "A recursive scraping pipeline runner",
		Long: `goscrape expands a tree of scraping stages from a seed set of
requests and flattens the results into leaf records.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
)

// Execute runs the root command.
func Execute() error {
	// Load .env early so environment variables are available to viper.
	_ = godotenv.Load()

	if err := bootstrap(os.Args[1:]); err != nil {
		return fmt.Errorf("failed to initialize configuration: %w", err)
	}

	return rootCmd.ExecuteContext(context.Background())
}

// bootstrap parses the persistent flags and then loads the
// configuration. Flags must come first: --config decides which file
// viper reads and --debug rewires the logger before any command runs.
func bootstrap(args []string) error {
	// Flag errors are reported by the command execution itself.
	_ = rootCmd.ParseFlags(args)

	return initConfig()
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile,
		"config",
		"",
		"config file (default is ./config.yaml)",
	)
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the version number",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("goscrape version %s\n", version)
		},
	})

	rootCmd.AddCommand(run.Command())
}

// initConfig reads in the config file and environment variables.
func initConfig() error {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("config")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
	}

	viper.AutomaticEnv()
	config.SetDefaults(viper.GetViper())

	// The config file is optional; defaults and environment variables
	// cover a bare invocation.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	}

	if debug {
		viper.Set("logger.level", "debug")
		viper.Set("logger.development", true)
		viper.Set("logger.encoding", "console")
	}

	return nil
}
