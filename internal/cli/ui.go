package cli

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/yildizm/ContractSum/internal/ui"
)

func newUICommand() *cobra.Command {
	var startDir string

	cmd := &cobra.Command{
		Use:   "ui",
		Short: "Start the interactive interface",
		Long: `Start the interactive terminal interface.

Sign in or register, pick contracts with the file browser, upload them and
watch the analysis of the first file until its summary and key clauses are
ready. A saved session is reused when it is still valid.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if noColor {
				if err := os.Setenv("NO_COLOR", "1"); err != nil {
					return err
				}
			}

			client, err := newClient()
			if err != nil {
				return err
			}
			store, err := newSessionStore()
			if err != nil {
				return err
			}

			if startDir == "" {
				if startDir, err = os.Getwd(); err != nil {
					return err
				}
			}

			cfg := GetGlobalConfig()
			return ui.Run(ui.Options{
				Context:      cmd.Context(),
				Backend:      client,
				Session:      store,
				PollInterval: cfg.Polling.Interval,
				AllowedTypes: cfg.Upload.AllowedExtensions,
				StartDir:     startDir,
				Log:          GetLogger("ui"),
			})
		},
	}

	cmd.Flags().StringVarP(&startDir, "dir", "d", "", "directory the file browser starts in (default: current directory)")

	return cmd
}
