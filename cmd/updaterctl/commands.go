package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Run the scheduler until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := buildManager()
			if err != nil {
				return err
			}
			if err := mgr.Start(); err != nil {
				return err
			}
			fmt.Println("updater scheduler running, Ctrl-C to stop")

			sig := make(chan os.Signal, 1)
			signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
			<-sig

			mgr.Stop()
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "generate but never write")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the status read model",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := buildManager()
			if err != nil {
				return err
			}
			return printJSON(mgr.Status())
		},
	}
}

func newExecuteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute <updater>",
		Short: "Run one updater immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := buildManager()
			if err != nil {
				return err
			}
			var run = mgr.ExecuteUpdater
			if dryRun {
				run = mgr.ExecuteUpdaterDryRun
			}
			result, err := run(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJSON(result)
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "generate but never write")
	return cmd
}

func newTestCmd() *cobra.Command {
	var memory bool
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Dry-run every updater",
		RunE: func(cmd *cobra.Command, args []string) error {
			dryRun = true
			build := buildManager
			if memory {
				build = buildMemoryManager
			}
			mgr, _, err := build()
			if err != nil {
				return err
			}
			results := make(map[string]interface{})
			for _, name := range mgr.Registry().Names() {
				result, err := mgr.ExecuteUpdaterDryRun(cmd.Context(), name)
				if err != nil {
					results[name] = map[string]string{"error": err.Error()}
					continue
				}
				results[name] = result
			}
			return printJSON(results)
		},
	}
	cmd.Flags().BoolVar(&memory, "memory", false, "run against a seeded in-memory store")
	return cmd
}

func newConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := buildManager()
			if err != nil {
				return err
			}
			return printJSON(mgr.Config())
		},
	}
}

func newLogsCmd() *cobra.Command {
	var count int
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Print recent log entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, _, err := buildManager()
			if err != nil {
				return err
			}
			return printJSON(mgr.RecentLogs(count))
		},
	}
	cmd.Flags().IntVar(&count, "count", 50, "number of entries")
	return cmd
}

func printJSON(v interface{}) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
