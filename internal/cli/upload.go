package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/yildizm/ContractSum/internal/api"
	"github.com/yildizm/ContractSum/internal/formatter"
	"github.com/yildizm/ContractSum/internal/poller"
	"github.com/yildizm/ContractSum/internal/session"
)

var (
	uploadWait bool
	uploadAll  bool
	statusWait bool
)

func newUploadCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>...",
		Short: "Upload contracts for analysis",
		Long: `Upload one or more PDF or DOCX contracts in a single request.

The backend creates one analysis per file. With --wait the first analysis is
polled until it completes or fails, with --all every analysis is polled.`,
		Example: `  contractsum upload lease.pdf
  contractsum upload --wait lease.pdf nda.docx
  contractsum upload --all -o markdown --output-file report.md *.pdf`,
		Args: cobra.MinimumNArgs(1),
		RunE: runUpload,
	}

	cmd.Flags().BoolVarP(&uploadWait, "wait", "w", false, "wait for the first analysis to finish")
	cmd.Flags().BoolVarP(&uploadAll, "all", "a", false, "wait for every analysis to finish")

	return cmd
}

func newStatusCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <analysis-id>",
		Short: "Show the status and result of an analysis",
		Args:  cobra.ExactArgs(1),
		RunE:  runStatus,
	}

	cmd.Flags().BoolVarP(&statusWait, "watch", "w", false, "poll until the analysis completes or fails")

	return cmd
}

func runUpload(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	client, store, _, err := authenticate(ctx)
	if err != nil {
		return err
	}

	// Reject bad selections before anything is sent
	if err := client.ValidateUpload(args); err != nil {
		return errors.New(api.UserMessage(err, api.MsgUploadFailed))
	}

	analyses, err := client.UploadContracts(ctx, args)
	if err != nil {
		return errors.New(api.UserMessage(err, api.MsgUploadFailed))
	}
	for _, a := range analyses {
		remember(store, a)
	}

	fmt.Fprintf(cmd.ErrOrStderr(), "%s Successfully uploaded %d file(s). Analysis started for %s.\n",
		GetEmoji("upload"), len(args), analyses[0].FileName)

	switch {
	case uploadAll:
		analyses, err = trackAll(ctx, cmd.ErrOrStderr(), newPoller(client), store, analyses)
	case uploadWait:
		var final *api.Analysis
		final, err = track(ctx, cmd.ErrOrStderr(), newPoller(client), store, analyses[0])
		if final != nil {
			analyses = []*api.Analysis{final}
		}
	}
	if err != nil {
		return err
	}

	return outputAnalyses(cmd, analyses)
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	client, store, _, err := authenticate(ctx)
	if err != nil {
		return err
	}

	analysis, err := client.GetAnalysis(ctx, args[0])
	if err != nil {
		return errors.New(api.UserMessage(err, api.MsgFetchStatusFailed))
	}
	remember(store, analysis)

	if statusWait {
		analysis, err = track(ctx, cmd.ErrOrStderr(), newPoller(client), store, analysis)
		if err != nil {
			return err
		}
	}

	return outputAnalyses(cmd, []*api.Analysis{analysis})
}

// track polls one analysis and reports status changes on w
func track(ctx context.Context, w io.Writer, p *poller.Poller, store *session.Store, a *api.Analysis) (*api.Analysis, error) {
	if a.Status.IsActive() {
		fmt.Fprintf(w, "%s %s\n", GetEmoji("pending"), formatter.NoticeAnalyzing)
	}
	return p.Track(ctx, a, progressReporter(w, store))
}

// trackAll polls every analysis concurrently
func trackAll(ctx context.Context, w io.Writer, p *poller.Poller, store *session.Store, analyses []*api.Analysis) ([]*api.Analysis, error) {
	return p.TrackAll(ctx, analyses, progressReporter(w, store))
}

// progressReporter prints a line whenever an analysis changes status
func progressReporter(w io.Writer, store *session.Store) poller.UpdateFunc {
	var mu sync.Mutex
	last := make(map[string]api.Status)

	return func(a *api.Analysis) {
		remember(store, a)

		mu.Lock()
		defer mu.Unlock()
		if last[a.ID] == a.Status {
			return
		}
		last[a.ID] = a.Status
		fmt.Fprintf(w, "%s %s: %s\n", GetStatusEmoji(a.Status), a.FileName, a.Status.Label())
	}
}

func remember(store *session.Store, a *api.Analysis) {
	if store == nil || a == nil {
		return
	}
	if err := store.Remember(a); err != nil {
		GetLogger("cli").Warn("Failed to save analysis history: %v", err)
	}
}
