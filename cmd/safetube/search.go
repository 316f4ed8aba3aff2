package main

import (
	"fmt"
	"strings"

	"github.com/franz/safetube/internal/util"
	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over indexed videos",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSearch,
}

func init() {
	searchCmd.Flags().Int("limit", 25, "maximum results")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	query := strings.Join(args, " ")
	limit, _ := cmd.Flags().GetInt("limit")

	videos, err := st.SearchVideos(cmd.Context(), query, limit)
	if err != nil {
		return err
	}

	if err := st.RecordSearch(cmd.Context(), query, "database", len(videos)); err != nil {
		util.WarnLog("Failed to record search: %v", err)
	}

	if len(videos) == 0 {
		util.InfoLog("No matches for %q", query)
		return nil
	}
	for _, v := range videos {
		fmt.Printf("%-36s  %s\n", v.ID, v.Title)
	}
	return nil
}
