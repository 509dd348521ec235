package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptest/internal/config"
	"github.com/abhisek/adaptest/internal/itembank"
	"github.com/abhisek/adaptest/internal/store"
)

var itemsCmd = &cobra.Command{
	Use:   "items",
	Short: "Manage the calibrated item bank",
}

var itemsImportCmd = &cobra.Command{
	Use:   "import FILE",
	Short: "Validate a YAML or JSON bank file and upsert its items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := itembank.LoadBankFile(args[0])
		if err != nil {
			return err
		}

		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		if err := rt.store.ItemRepo().Upsert(cmd.Context(), items...); err != nil {
			return fmt.Errorf("import items: %w", err)
		}
		fmt.Printf("Imported %d items from %s.\n", len(items), args[0])
		return nil
	},
}

var itemsValidateCmd = &cobra.Command{
	Use:   "validate FILE",
	Short: "Check a bank file without importing it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := itembank.LoadBankFile(args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d valid items.\n", args[0], len(items))
		return nil
	},
}

var itemsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored items ordered by difficulty",
	RunE: func(cmd *cobra.Command, args []string) error {
		subject, _ := cmd.Flags().GetString("subject")
		status, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")

		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		items, err := rt.store.ItemRepo().List(cmd.Context(), store.ListOptions{
			Subject: subject,
			Status:  itembank.Status(status),
			Limit:   limit,
		})
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}
		if len(items) == 0 {
			fmt.Println("No items found.")
			return nil
		}

		fmt.Printf("%-16s  %6s  %6s  %5s  %-10s  %-9s  %s\n",
			"ID", "a", "b", "c", "Status", "Format", "Subjects")
		fmt.Println(strings.Repeat("─", 80))
		for _, it := range items {
			fmt.Printf("%-16s  %6.2f  %+6.2f  %5.2f  %-10s  %-9s  %s\n",
				truncate(it.ID, 16), it.A, it.B, it.C, it.Status, it.Format,
				strings.Join(it.Subjects, ","))
		}
		return nil
	},
}

var itemsExportCmd = &cobra.Command{
	Use:   "export [FILE]",
	Short: "Write the stored bank as YAML (stdout when FILE is omitted)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		items, err := rt.store.ItemRepo().List(cmd.Context(), store.ListOptions{})
		if err != nil {
			return fmt.Errorf("list items: %w", err)
		}

		out := os.Stdout
		if len(args) == 1 {
			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("create %s: %w", args[0], err)
			}
			defer f.Close()
			out = f
		}
		return itembank.WriteBank(out, items)
	},
}

var itemsStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show per-item usage and exposure in the current window",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		stats, err := rt.store.ResultRepo().ItemStats(ctx, limit)
		if err != nil {
			return fmt.Errorf("item stats: %w", err)
		}
		served, total, err := rt.store.ExposureRepo(rt.cfg.Storage.ExposureWindow).Snapshot(ctx)
		if err != nil {
			return fmt.Errorf("exposure snapshot: %w", err)
		}
		if len(stats) == 0 {
			fmt.Println("No responses recorded yet.")
			return nil
		}

		fmt.Printf("%-16s  %8s  %8s  %8s  %9s\n", "ID", "Answered", "Correct", "P-value", "Exposure")
		fmt.Println(strings.Repeat("─", 60))
		for _, st := range stats {
			var rate float64
			if total > 0 {
				rate = float64(served[st.ItemID]) / float64(total)
			}
			fmt.Printf("%-16s  %8d  %8d  %8.2f  %8.1f%%\n",
				truncate(st.ItemID, 16), st.Answered, st.Correct,
				float64(st.Correct)/float64(st.Answered), rate*100)
		}
		if rt.cfg.Storage.Exposure != config.BackendSQL {
			fmt.Printf("\nExposure counts come from the database; the live ledger uses %s.\n", rt.cfg.Storage.Exposure)
		}
		return nil
	},
}

func init() {
	itemsListCmd.Flags().String("subject", "", "Only items tagged with this subject")
	itemsListCmd.Flags().String("status", "", "Only items with this status (draft, published, retired)")
	itemsListCmd.Flags().IntP("limit", "n", 50, "Maximum items to show (0 for all)")
	itemsStatsCmd.Flags().IntP("limit", "n", 20, "Maximum items to show (0 for all)")

	itemsCmd.AddCommand(itemsImportCmd)
	itemsCmd.AddCommand(itemsValidateCmd)
	itemsCmd.AddCommand(itemsListCmd)
	itemsCmd.AddCommand(itemsExportCmd)
	itemsCmd.AddCommand(itemsStatsCmd)
}
