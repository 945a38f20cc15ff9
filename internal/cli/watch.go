package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/yildizm/ContractSum/internal/api"
	"github.com/yildizm/ContractSum/internal/session"
	"github.com/yildizm/ContractSum/internal/watcher"
)

var (
	watchRecursive bool
	watchDebounce  time.Duration
)

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch <dir>",
		Short: "Upload contracts dropped into a folder",
		Long: `Watch a folder and upload every new PDF or DOCX file that appears in it.

Files arriving together are uploaded in one request. The first analysis of
each upload is followed until it completes or fails and its result printed.
Press Ctrl+C to stop watching.`,
		Example: `  contractsum watch ~/Contracts/inbox
  contractsum watch --recursive --debounce 2s ./incoming`,
		Args: cobra.ExactArgs(1),
		RunE: runWatch,
	}

	cmd.Flags().BoolVarP(&watchRecursive, "recursive", "r", false, "watch subdirectories too")
	cmd.Flags().DurationVar(&watchDebounce, "debounce", 0, "quiet period before uploading (default from config)")

	return cmd
}

func runWatch(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext(cmd.Context())
	defer cancel()

	client, store, user, err := authenticate(ctx)
	if err != nil {
		return err
	}

	cfg := GetGlobalConfig()
	opts := watcher.Options{
		Debounce:  cfg.Watch.Debounce,
		Recursive: cfg.Watch.Recursive || watchRecursive,
		Accept:    client.AllowedFile,
	}
	if watchDebounce > 0 {
		opts.Debounce = watchDebounce
	}

	w, err := watcher.New(args[0], opts)
	if err != nil {
		return err
	}
	defer func() {
		if err := w.Close(); err != nil && isVerbose() {
			GetLogger("cli").Warn("failed to close watcher: %v", err)
		}
	}()
	w.SetLogger(GetLogger("cli"))

	fmt.Fprintf(cmd.ErrOrStderr(), "%s Watching %s as %s (Ctrl+C to stop)\n", GetEmoji("watch"), w.Dir(), user.Username)

	batches := make(chan []string)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(batches)
		return w.Run(gctx, batches)
	})

	g.Go(func() error {
		for batch := range batches {
			processBatch(gctx, cmd, client, store, batch)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	if isVerbose() {
		fmt.Fprintln(cmd.ErrOrStderr(), "\nStopped watching")
	}
	return nil
}

// processBatch uploads one batch and follows its first analysis. Failures are
// reported and watching continues.
func processBatch(ctx context.Context, cmd *cobra.Command, client *api.Client, store *session.Store, batch []string) {
	log := GetLogger("cli")
	stderr := cmd.ErrOrStderr()

	names := make([]string, len(batch))
	for i, p := range batch {
		names[i] = filepath.Base(p)
	}
	log.Info("Uploading %v", names)

	analyses, err := client.UploadContracts(ctx, batch)
	if err != nil {
		if ctx.Err() == nil {
			fmt.Fprintf(stderr, "%s %s\n", GetEmoji("error"), api.UserMessage(err, api.MsgUploadFailed))
		}
		return
	}
	for _, a := range analyses {
		remember(store, a)
	}
	fmt.Fprintf(stderr, "%s Successfully uploaded %d file(s). Analysis started for %s.\n",
		GetEmoji("upload"), len(batch), analyses[0].FileName)

	final, err := track(ctx, stderr, newPoller(client), store, analyses[0])
	if err != nil {
		if ctx.Err() == nil {
			fmt.Fprintf(stderr, "%s %v\n", GetEmoji("error"), err)
		}
		return
	}

	if err := outputAnalyses(cmd, []*api.Analysis{final}); err != nil {
		fmt.Fprintf(stderr, "%s %v\n", GetEmoji("error"), err)
	}
}
