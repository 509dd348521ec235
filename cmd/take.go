package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/adaptest/internal/app"
	"github.com/abhisek/adaptest/internal/screens/exam"
	"github.com/abhisek/adaptest/internal/selector"
	"github.com/abhisek/adaptest/internal/session"
)

var takeCmd = &cobra.Command{
	Use:   "take",
	Short: "Take an adaptive test in the terminal",
	RunE: func(cmd *cobra.Command, args []string) error {
		examinee, _ := cmd.Flags().GetString("examinee")
		subjects, _ := cmd.Flags().GetStringSlice("subject")
		skills, _ := cmd.Flags().GetStringSlice("skill")
		maxQuestions, _ := cmd.Flags().GetInt("max-questions")

		rt, err := openRuntime(cmd, true)
		if err != nil {
			return err
		}
		defer rt.Close()

		ctx := cmd.Context()
		items := rt.store.ItemRepo()
		n, err := items.Count(ctx)
		if err != nil {
			return fmt.Errorf("count items: %w", err)
		}
		if n == 0 {
			return fmt.Errorf("the item bank is empty; load one with 'adaptest items import FILE'")
		}

		ctrl, err := rt.controller(ctx, items)
		if err != nil {
			return err
		}

		rules := rt.cfg.Stopping
		if cmd.Flags().Changed("max-questions") {
			rules.MaxQuestions = maxQuestions
			rules.MinQuestions = min(rules.MinQuestions, maxQuestions)
		}
		if err := rules.Validate(); err != nil {
			return err
		}

		return app.Run(ctx, exam.Options{
			Engine:     ctrl,
			ExamineeID: examinee,
			Test: session.TestConfig{
				Rules:       rules,
				Constraints: selector.Constraints{Subjects: subjects, Skills: skills},
			},
			TargetSE:  rules.TargetSE,
			TimeLimit: rules.TimeLimit,
		})
	},
}

func init() {
	takeCmd.Flags().StringP("examinee", "e", "", "Examinee id (asked for on screen when omitted)")
	takeCmd.Flags().StringSlice("subject", nil, "Restrict items to these subjects")
	takeCmd.Flags().StringSlice("skill", nil, "Restrict items to these skills")
	takeCmd.Flags().Int("max-questions", 0, "Override the maximum test length")
}
