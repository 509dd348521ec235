package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptest/internal/config"
	"github.com/abhisek/adaptest/internal/store"
)

var resetCmd = &cobra.Command{
	Use:       "reset {exposure|sessions}",
	Short:     "Clear exposure counters or live sessions",
	Long:      "Reset deletes rows from the database. Archived results and the item bank are never touched.",
	Args:      cobra.ExactArgs(1),
	ValidArgs: []string{string(store.ResetExposure), string(store.ResetSessions)},
	RunE: func(cmd *cobra.Command, args []string) error {
		target := store.ResetTarget(args[0])

		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		n, err := rt.store.Reset(cmd.Context(), target)
		if err != nil {
			return err
		}
		fmt.Printf("Removed %d %s rows.\n", n, target)

		backend := rt.cfg.Storage.Sessions
		if target == store.ResetExposure {
			backend = rt.cfg.Storage.Exposure
		}
		if backend == config.BackendRedis {
			fmt.Printf("Live %s are kept in redis and expire on their own.\n", target)
		}
		return nil
	},
}
