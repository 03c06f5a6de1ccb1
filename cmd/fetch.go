package main

import (
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mietwerk/leasescan/internal/fetch"
)

var fetchOnce bool

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Poll the FTP inbox for new lease PDFs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := initPipeline(ctx, "fetch")
		if err != nil {
			return err
		}
		defer env.Close()

		inbox := fetch.NewFTPInbox(cfg.FTP)
		watcher := fetch.NewWatcher(inbox, env.Pipeline,
			time.Duration(cfg.FTP.PollInterval)*time.Second)

		if fetchOnce {
			return watcher.PollOnce(ctx)
		}
		return watcher.Run(ctx)
	},
}

func init() {
	fetchCmd.Flags().BoolVar(&fetchOnce, "once", false, "poll once and exit")
	rootCmd.AddCommand(fetchCmd)
}
