package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/franz/safetube/internal/scan"
	"github.com/franz/safetube/internal/util"
	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch <source-id>",
	Short: "Watch a local source folder and index changes live",
	Long: `Watch a local source's directory for filesystem changes and keep the
video index in step between full rescans: new video files get rows as they
appear, removed files are flagged unavailable. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	src, err := st.GetSource(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	if src == nil {
		return fmt.Errorf("no source with id %s", args[0])
	}

	watcher, err := scan.NewWatcher(st)
	if err != nil {
		return err
	}
	defer watcher.Close()

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	err = watcher.Watch(ctx, src)
	if errors.Is(err, context.Canceled) {
		util.InfoLog("Watch stopped")
		return nil
	}
	return err
}
