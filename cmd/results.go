package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptest/internal/screens/summary"
	"github.com/abhisek/adaptest/internal/store"
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "List archived test results",
	RunE: func(cmd *cobra.Command, args []string) error {
		examinee, _ := cmd.Flags().GetString("examinee")
		limit, _ := cmd.Flags().GetInt("limit")

		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		results, err := rt.store.ResultRepo().List(cmd.Context(), store.ResultQuery{
			ExamineeID: examinee,
			Limit:      limit,
		})
		if err != nil {
			return err
		}
		if len(results) == 0 {
			fmt.Println("No results found.")
			return nil
		}

		fmt.Printf("%-36s  %-16s  %-16s  %7s  %5s  %5s  %s\n",
			"Session", "Examinee", "Ended", "θ", "SE", "Items", "Reason")
		fmt.Println(strings.Repeat("─", 120))
		for _, r := range results {
			fmt.Printf("%-36s  %-16s  %-16s  %+7.2f  %5.2f  %5d  %s\n",
				r.SessionID,
				truncate(r.ExamineeID, 16),
				r.EndedAt.Local().Format("2006-01-02 15:04"),
				r.Theta, r.SE, r.Answered,
				summary.ReasonText(r.Reason),
			)
		}
		return nil
	},
}

var resultsShowCmd = &cobra.Command{
	Use:   "show SESSION_ID",
	Short: "Show one result with its response history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		r, err := rt.store.ResultRepo().Get(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if r == nil {
			return fmt.Errorf("result %s not found", args[0])
		}

		fmt.Printf("Session:   %s\n", r.SessionID)
		fmt.Printf("Examinee:  %s\n", r.ExamineeID)
		fmt.Printf("Status:    %s (%s)\n", r.Status, summary.ReasonText(r.Reason))
		fmt.Printf("Ability:   θ %+.3f  SE %.3f  95%% CI [%+.2f, %+.2f]\n", r.Theta, r.SE, r.CILow, r.CIHigh)
		fmt.Printf("Score:     %d/%d correct (%.0f%%)\n", r.Correct, r.Answered, r.Accuracy*100)
		fmt.Printf("Duration:  %s\n", summary.FormatDuration(r.Duration.Seconds()))
		if r.Relaxed {
			fmt.Println("Note:      content constraints were relaxed when the pool ran out")
		}
		if len(r.Responses) == 0 {
			return nil
		}

		fmt.Println()
		fmt.Printf("%3s  %-16s  %-12s  %-3s  %7s  %7s  %6s\n", "#", "Item", "Answer", "", "θ", "SE", "Secs")
		fmt.Println(strings.Repeat("─", 66))
		for i, resp := range r.Responses {
			mark := "✓"
			if !resp.Correct {
				mark = "✗"
			}
			fmt.Printf("%3d  %-16s  %-12s  %-3s  %+7.2f  %7.2f  %6.1f\n",
				i+1, truncate(resp.ItemID, 16), truncate(resp.Raw, 12), mark,
				resp.ThetaAfter, resp.SEAfter, resp.Latency.Seconds())
		}
		return nil
	},
}

func init() {
	resultsCmd.Flags().StringP("examinee", "e", "", "Only results for this examinee")
	resultsCmd.Flags().IntP("limit", "n", 20, "Maximum results to show (0 for all)")

	resultsCmd.AddCommand(resultsShowCmd)
}
