package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete expired sessions and exposure counters from past windows",
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		sessions, err := rt.store.SessionRepo(rt.cfg.Session.TTL).PurgeExpired(ctx)
		if err != nil {
			return err
		}
		counters, err := rt.store.ExposureRepo(rt.cfg.Storage.ExposureWindow).Prune(ctx)
		if err != nil {
			return err
		}
		rt.log.Info("pruned database", "sessions", sessions, "exposure_rows", counters)
		fmt.Printf("Removed %d expired sessions and %d stale exposure rows.\n", sessions, counters)
		return nil
	},
}
