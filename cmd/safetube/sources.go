package main

import (
	"fmt"

	"github.com/franz/safetube/internal/store"
	"github.com/franz/safetube/internal/util"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage approved video sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List configured sources",
	RunE:  runSourcesList,
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a source",
	Long: `Add an approved source. Local sources need --path, remote ones
(youtube_channel, youtube_playlist, dlna) need --url.`,
	RunE: runSourcesAdd,
}

var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <source-id>",
	Short: "Remove a source and everything indexed from it",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcesRemove,
}

func init() {
	sourcesAddCmd.Flags().String("type", "local", "source type (local, youtube_channel, youtube_playlist, dlna)")
	sourcesAddCmd.Flags().String("title", "", "display title")
	sourcesAddCmd.Flags().String("path", "", "directory path (local sources)")
	sourcesAddCmd.Flags().String("url", "", "channel/playlist/server url (remote sources)")
	sourcesAddCmd.Flags().Int("max-depth", 2, "directory depth limit for local sources")

	sourcesCmd.AddCommand(sourcesListCmd, sourcesAddCmd, sourcesRemoveCmd)
	rootCmd.AddCommand(sourcesCmd)
}

func runSourcesList(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	sources, err := st.ListSources(cmd.Context())
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		util.InfoLog("No sources configured")
		return nil
	}

	for _, src := range sources {
		location := src.URL
		if src.Type == "local" {
			location = src.Path
		}
		fmt.Printf("%-36s  %-17s  %-30s  %4d videos  %s\n",
			src.ID, src.Type, src.Title, src.TotalVideos, location)
	}
	return nil
}

func runSourcesAdd(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	srcType, _ := cmd.Flags().GetString("type")
	title, _ := cmd.Flags().GetString("title")
	path, _ := cmd.Flags().GetString("path")
	url, _ := cmd.Flags().GetString("url")
	maxDepth, _ := cmd.Flags().GetInt("max-depth")

	if title == "" {
		return fmt.Errorf("--title is required")
	}

	src := &store.Source{
		ID:       uuid.NewString(),
		Type:     srcType,
		Title:    title,
		Path:     path,
		URL:      url,
		MaxDepth: maxDepth,
	}
	if err := st.CreateSource(cmd.Context(), src); err != nil {
		return err
	}

	util.SuccessLog("Added %s source %q (%s)", src.Type, src.Title, src.ID)
	return nil
}

func runSourcesRemove(cmd *cobra.Command, args []string) error {
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

	if err := st.DeleteSource(cmd.Context(), src.ID); err != nil {
		return err
	}
	util.SuccessLog("Removed %q and its %d indexed videos", src.Title, src.TotalVideos)
	return nil
}
