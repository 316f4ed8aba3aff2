package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/franz/safetube/internal/store"
	"github.com/franz/safetube/internal/util"
	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Run diagnostic checks on the database",
	Long: `Run diagnostic checks to ensure SafeTube can operate correctly.

This command checks:
- SQLite driver availability and version
- Database file accessibility and size
- Database integrity (PRAGMA integrity_check)
- Connection pool health and query metrics

Use this command to troubleshoot issues before blaming the player.`,
	RunE: runDoctor,
}

func init() {
	rootCmd.AddCommand(doctorCmd)
}

type checkResult struct {
	name    string
	message string
	error   bool
	warning bool
}

func runDoctor(cmd *cobra.Command, args []string) error {
	util.InfoLog("=== SafeTube Doctor ===")
	util.InfoLog("")

	results := []checkResult{checkDriver()}

	st, err := openStore(cmd)
	if err != nil {
		results = append(results, checkResult{
			name:    "Database",
			message: err.Error(),
			error:   true,
		})
		printResults(results)
		return fmt.Errorf("database unusable")
	}
	defer st.Close()

	results = append(results, checkFile(st.Path()))
	results = append(results, checkIntegrity(cmd, st))
	results = append(results, checkHealth(st))

	printResults(results)

	for _, r := range results {
		if r.error {
			return fmt.Errorf("%d check(s) failed", countErrors(results))
		}
	}
	util.SuccessLog("All checks passed")
	return nil
}

func checkDriver() checkResult {
	version := store.DriverVersion()
	if version == "" {
		return checkResult{name: "SQLite driver", message: "driver unavailable", error: true}
	}
	return checkResult{name: "SQLite driver", message: "version " + version}
}

func checkFile(path string) checkResult {
	size, _, err := util.GetFileMetadata(path)
	if err != nil {
		return checkResult{name: "Database file", message: err.Error(), error: true}
	}
	return checkResult{
		name:    "Database file",
		message: fmt.Sprintf("%s (%s)", path, humanize.Bytes(uint64(size))),
	}
}

func checkIntegrity(cmd *cobra.Command, st *store.Store) checkResult {
	result, err := st.CheckIntegrity(cmd.Context())
	if err != nil {
		return checkResult{name: "Integrity", message: err.Error(), error: true}
	}
	if !result.OK {
		return checkResult{
			name:    "Integrity",
			message: fmt.Sprintf("%d problem(s): %v", len(result.Errors), result.Errors),
			error:   true,
		}
	}
	return checkResult{name: "Integrity", message: "ok"}
}

func checkHealth(st *store.Store) checkResult {
	status := st.GetHealthStatus()
	if !status.Initialized || !status.Connected {
		return checkResult{name: "Pool", message: "not initialized", error: true}
	}
	return checkResult{
		name: "Pool",
		message: fmt.Sprintf("%d connections, %d active, %s queries, %d errors",
			status.PoolSize, status.ActiveConnections,
			humanize.Comma(status.Metrics.QueriesExecuted), status.Metrics.Errors),
	}
}

func printResults(results []checkResult) {
	util.InfoLog("")
	util.InfoLog("=== Diagnostic Results ===")
	for _, r := range results {
		switch {
		case r.error:
			util.ErrorLog("%-16s %s", r.name+":", r.message)
		case r.warning:
			util.WarnLog("%-16s %s", r.name+":", r.message)
		default:
			util.SuccessLog("%-16s %s", r.name+":", r.message)
		}
	}
	util.InfoLog("")
}

func countErrors(results []checkResult) int {
	n := 0
	for _, r := range results {
		if r.error {
			n++
		}
	}
	return n
}
