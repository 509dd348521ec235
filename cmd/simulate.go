package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptest/internal/exposure"
	"github.com/abhisek/adaptest/internal/itembank"
	"github.com/abhisek/adaptest/internal/simulate"
	"github.com/abhisek/adaptest/internal/stopping"
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Run simulated examinees through the engine and report accuracy",
	Long: `Simulate draws examinees with known ability, lets each answer with the
3PL probability of a correct response, and compares the final estimates
with the true abilities. Exposure is counted in memory, so a run never
touches the live exposure ledger.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		flags := cmd.Flags()
		simCfg := simulate.DefaultConfig()
		simCfg.Examinees, _ = flags.GetInt("examinees")
		simCfg.Concurrency, _ = flags.GetInt("concurrency")
		simCfg.Seed, _ = flags.GetUint64("seed")
		simCfg.ThetaMean, _ = flags.GetFloat64("theta-mean")
		simCfg.ThetaSD, _ = flags.GetFloat64("theta-sd")
		bankSize, _ := flags.GetInt("bank-size")
		guessing, _ := flags.GetFloat64("guessing")
		useBank, _ := flags.GetBool("use-bank")
		archive, _ := flags.GetBool("archive")
		asJSON, _ := flags.GetBool("json")
		top, _ := flags.GetInt("top")

		rt, err := openRuntime(cmd, false)
		if err != nil {
			return err
		}
		defer rt.Close()

		eng := simulate.Engine{
			Ledger:     exposure.NewMemory(exposure.WithWindow(rt.cfg.Storage.ExposureWindow)),
			Estimation: rt.cfg.Estimation,
			Selection:  rt.cfg.Selection,
			Session:    rt.cfg.SessionConfig(),
			Logger:     rt.log,
		}
		if useBank {
			eng.Items = rt.store.ItemRepo()
		} else {
			eng.Items = itembank.NewMemoryRepository(itembank.Generate(itembank.GenerateOptions{
				Size:     bankSize,
				Guessing: guessing,
				Seed:     simCfg.Seed,
			})...)
		}
		if archive {
			eng.Results = rt.store.ResultRepo()
		}
		if !asJSON {
			simCfg.Progress = func(done, total int) {
				fmt.Fprintf(os.Stderr, "\r%d/%d examinees", done, total)
				if done == total {
					fmt.Fprintln(os.Stderr)
				}
			}
		}

		report, err := simulate.Run(cmd.Context(), simCfg, eng)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		}
		printReport(report, top)
		return nil
	},
}

func printReport(r *simulate.Report, top int) {
	sep := strings.Repeat("─", 44)
	fmt.Println("Simulation")
	fmt.Println(sep)
	fmt.Printf("%-24s %10d\n", "Examinees", r.Examinees)
	fmt.Printf("%-24s %10.2f\n", "Mean test length", r.MeanLength)
	fmt.Printf("%-24s %10.3f\n", "Mean final SE", r.MeanSE)
	fmt.Printf("%-24s %+10.3f\n", "Bias", r.Bias)
	fmt.Printf("%-24s %10.3f\n", "RMSE", r.RMSE)
	fmt.Printf("%-24s %9.1f%%\n", "Max item exposure", r.MaxExposure*100)

	reasons := make([]stopping.Reason, 0, len(r.ReasonCounts))
	for reason := range r.ReasonCounts {
		reasons = append(reasons, reason)
	}
	slices.Sort(reasons)
	fmt.Println()
	fmt.Println("Stop reasons")
	fmt.Println(sep)
	for _, reason := range reasons {
		fmt.Printf("%-34s %9d\n", reason, r.ReasonCounts[reason])
	}

	if top > 0 {
		fmt.Println()
		fmt.Println("Most exposed items")
		fmt.Println(sep)
		for _, id := range r.TopExposed(top) {
			fmt.Printf("%-34s %8.1f%%\n", truncate(id, 34), r.ExposureByItem[id]*100)
		}
	}
}

func init() {
	f := simulateCmd.Flags()
	f.IntP("examinees", "n", 500, "Number of simulated examinees")
	f.Int("concurrency", 8, "Simulees tested at once")
	f.Uint64("seed", 1, "Random seed")
	f.Float64("theta-mean", 0, "Mean of the true ability distribution")
	f.Float64("theta-sd", 1, "Standard deviation of the true ability distribution")
	f.Int("bank-size", 300, "Size of the synthetic item bank")
	f.Float64("guessing", 0.2, "Guessing parameter of synthetic items")
	f.Bool("use-bank", false, "Use the stored item bank instead of a synthetic one")
	f.Bool("archive", false, "Archive simulated results to the database")
	f.Bool("json", false, "Print the report as JSON")
	f.Int("top", 10, "Number of most exposed items to list")
}
