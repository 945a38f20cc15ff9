package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/yildizm/go-termfmt"
)

var historyLimit int

func newHistoryCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recently tracked analyses",
		Long: `List analyses uploaded or checked from this machine, newest first.

History is kept in the session file and survives logout. Use
"contractsum status <id>" to refresh an entry.`,
		Args: cobra.NoArgs,
		RunE: runHistory,
	}

	cmd.Flags().IntVarP(&historyLimit, "limit", "n", 10, "number of entries to show (0 for all)")

	return cmd
}

func runHistory(cmd *cobra.Command, args []string) error {
	store, err := newSessionStore()
	if err != nil {
		return err
	}

	recent := store.Recent(historyLimit)
	out := cmd.OutOrStdout()

	if getOutputFormat() == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(recent)
	}

	if len(recent) == 0 {
		fmt.Fprintln(out, "No analyses yet. Upload a contract with 'contractsum upload <file>'.")
		return nil
	}

	fmt.Fprintf(out, "%s Recent analyses\n\n", GetEmoji("history"))

	layout := GetGlobalConfig().Output.TimestampFormat
	rows := make([][]string, 0, len(recent))
	for _, r := range recent {
		rows = append(rows, []string{
			r.ID, r.FileName, r.Status.Label(), r.UpdatedAt.Local().Format(layout),
		})
	}

	opts := termfmt.DefaultOptions()
	opts.Color = useColor()
	opts.Emoji = !isEmojiDisabled()

	fmt.Fprintln(out, termfmt.TableWithOptions([]string{"ID", "FILE", "STATUS", "UPDATED"}, rows, opts))
	return nil
}
