package main

import (
	"github.com/franz/safetube/internal/util"
	"github.com/spf13/cobra"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create or upgrade the SafeTube database",
	Long: `Create the database file if absent and bring its schema up to the
current version. Safe to run repeatedly; an up-to-date database is left
untouched.`,
	RunE: runInit,
}

func init() {
	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer st.Close()

	status := st.GetHealthStatus()
	util.SuccessLog("Database ready: %s", st.Path())
	util.InfoLog("  Pool size: %d", status.PoolSize)

	report := st.HealthCheck(cmd.Context())
	if report.IsHealthy {
		util.InfoLog("  SQLite version: %s", report.Version)
	}
	return nil
}
