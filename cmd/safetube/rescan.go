package main

import (
	"fmt"
	"time"

	"github.com/franz/safetube/internal/scan"
	"github.com/franz/safetube/internal/util"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

var rescanCmd = &cobra.Command{
	Use:   "rescan [source-id]",
	Short: "Re-index local video folders",
	Long: `Walk every local source directory (or just the given source) and
refresh the video index: new files get rows, vanished files are flagged
unavailable. Remote sources are refreshed by the player, not by this
command.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRescan,
}

func init() {
	rootCmd.AddCommand(rescanCmd)
}

func runRescan(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	sources, err := st.ListSourcesByType(cmd.Context(), "local")
	if err != nil {
		return err
	}
	if len(args) == 1 {
		src, err := st.GetSource(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if src == nil {
			return fmt.Errorf("no source with id %s", args[0])
		}
		sources = sources[:0]
		sources = append(sources, src)
	}
	if len(sources) == 0 {
		util.InfoLog("No local sources configured")
		return nil
	}

	scanner := scan.New(st)
	start := time.Now()

	for _, src := range sources {
		var bar *progressbar.ProgressBar
		var progress func(found int)

		if util.StdoutIsTerminal() && !util.IsQuiet() {
			bar = progressbar.NewOptions(-1,
				progressbar.OptionSetDescription("Scanning "+src.Title),
				progressbar.OptionSetWidth(40),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("files"),
				progressbar.OptionThrottle(200*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
			progress = func(found int) { bar.Set(found) }
		}

		result, err := scanner.ScanSource(cmd.Context(), src, progress)
		if bar != nil {
			bar.Finish()
		}
		if err != nil {
			return fmt.Errorf("rescan of %q failed: %w", src.Title, err)
		}

		util.InfoLog("%s: %d new, %d refreshed, %d unavailable",
			src.Title, result.Discovered, result.Refreshed, result.Unavailable)
	}

	util.SuccessLog("Rescan complete in %v", time.Since(start).Round(time.Millisecond))
	return nil
}
