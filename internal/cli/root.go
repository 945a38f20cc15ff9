package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yildizm/ContractSum/internal/config"
	"github.com/yildizm/ContractSum/internal/emoji"
	"github.com/yildizm/ContractSum/internal/ui"
)

var (
	cfgFile    string
	serverURL  string
	verbose    bool
	noColor    bool
	noEmoji    bool
	outputFmt  string
	outputFile string

	appVersion   = "dev"
	globalConfig *config.Config
)

// NewRootCommand creates the root command
func NewRootCommand(version, commit, date string) *cobra.Command {
	if version != "" {
		appVersion = version
	}
	globalConfig = nil

	rootCmd := &cobra.Command{
		Use:   "contractsum",
		Short: "Upload contracts and read their AI analysis from the terminal",
		Long: `ContractSum is a terminal client for the AI Contracts Manager.

Sign in, upload PDF or DOCX contracts, and follow their analysis until a
summary and the key clauses are ready. Use the commands for scripting or
run "contractsum ui" for the interactive interface.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Auto-disable emojis on Windows if not explicitly set
			if runtime.GOOS == "windows" && !cmd.Flag("no-emoji").Changed {
				noEmoji = true
			}
			emoji.SetEmojiDisabled(noEmoji)

			cfg, err := loadGlobalConfig(cmd)
			if err != nil {
				return err
			}
			globalConfig = cfg

			if !ui.SetThemeByName(cfg.Output.Theme) {
				GetLogger("cli").Warn("Unknown theme %q, using default", cfg.Output.Theme)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "backend URL (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().BoolVar(&noEmoji, "no-emoji", false, "disable emoji output (useful for Windows terminals)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "", "output format (text, json, markdown, csv, xlsx)")
	rootCmd.PersistentFlags().StringVar(&outputFile, "output-file", "", "write results to a file instead of stdout")

	rootCmd.AddCommand(newLoginCommand())
	rootCmd.AddCommand(newRegisterCommand())
	rootCmd.AddCommand(newLogoutCommand())
	rootCmd.AddCommand(newWhoamiCommand())
	rootCmd.AddCommand(newUploadCommand())
	rootCmd.AddCommand(newStatusCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newWatchCommand())
	rootCmd.AddCommand(newUICommand())
	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newVersionCommand(version, commit, date))

	return rootCmd
}

// loadGlobalConfig loads configuration and applies command line overrides
func loadGlobalConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.NewLoader().LoadConfig(cfgFile)
	if err != nil {
		return nil, err
	}

	if serverURL != "" {
		cfg.Server.BaseURL = strings.TrimRight(serverURL, "/")
	}
	if cmd.Flag("verbose").Changed {
		cfg.Output.Verbose = verbose
	} else {
		verbose = cfg.Output.Verbose
	}
	if outputFmt != "" {
		cfg.Output.DefaultFormat = outputFmt
	}
	if noColor {
		cfg.Output.ColorMode = "never"
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func newVersionCommand(version, commit, date string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  "Display version number, build commit, date, and runtime information",
		Run: func(cmd *cobra.Command, args []string) {
			displayVersion := version
			displayCommit := commit
			displayDate := date

			if version == "dev" || version == "" {
				displayVersion = "development"
			}
			if commit == "none" || commit == "" {
				displayCommit = "local-build"
			}
			if date == "unknown" || date == "" {
				displayDate = "local-build"
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "ContractSum %s (%s) built on %s\n", displayVersion, displayCommit, displayDate)
			fmt.Fprintf(out, "Go version: %s\n", runtime.Version())
			fmt.Fprintf(out, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
		},
	}
}

// Global helpers
func isVerbose() bool {
	return verbose
}

func getOutputFormat() string {
	if globalConfig != nil && globalConfig.Output.DefaultFormat != "" {
		return globalConfig.Output.DefaultFormat
	}
	if outputFmt != "" {
		return outputFmt
	}
	return "text"
}

func isEmojiDisabled() bool {
	return noEmoji
}

// useColor resolves the color mode against NO_COLOR and --no-color
func useColor() bool {
	if noColor || ui.IsColorDisabled() {
		return false
	}
	if globalConfig != nil && globalConfig.Output.ColorMode == "never" {
		return false
	}
	return true
}
