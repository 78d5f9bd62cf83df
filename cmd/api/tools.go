package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"proposals/api/internal/generation"
	"proposals/api/internal/money"
	"proposals/api/internal/plan"
	"proposals/api/internal/proposal"
	"proposals/api/internal/search"
	"proposals/api/internal/store"
)

func newMigrateCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := rt.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()
			fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
			return nil
		},
	}
}

// proposalFile is the input accepted by reconcile: either a bare array of
// sections or an object with a sections field.
type proposalFile struct {
	Sections []proposal.Section `json:"sections"`
}

func readSections(r io.Reader) ([]proposal.Section, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var sections []proposal.Section
		if err := json.Unmarshal(raw, &sections); err != nil {
			return nil, fmt.Errorf("decode sections: %w", err)
		}
		return sections, nil
	}
	var file proposalFile
	if err := json.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("decode proposal: %w", err)
	}
	return file.Sections, nil
}

func writeResult(w io.Writer, sections []proposal.Section) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(map[string]any{
		"sections": sections,
		"total":    money.Format(proposal.Total(sections)),
	})
}

func newReconcileCmd(rt *runtime) *cobra.Command {
	var budget string
	var rate float64
	var hoursLocked bool

	cmd := &cobra.Command{
		Use:   "reconcile [file]",
		Short: "Rescale a proposal file to a target budget and print it as JSON",
		Long:  "Reads sections from a JSON file (or stdin when the file is omitted or \"-\"), recalculates subtotals and, when --budget is given, rescales every item toward it.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in := cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			sections, err := readSections(in)
			if err != nil {
				return err
			}
			proposal.RecalculateSubtotals(sections)

			if strings.TrimSpace(budget) != "" {
				target := money.ParseString(budget)
				before := proposal.Total(sections)
				proposal.AdjustSectionsToMatchBudget(sections, target, rate, hoursLocked)
				rt.logger.Debug("reconciled",
					zap.String("before", money.Format(before)),
					zap.String("after", money.Format(proposal.Total(sections))),
					zap.String("target", money.Format(target)),
				)
			}
			return writeResult(cmd.OutOrStdout(), sections)
		},
	}

	cmd.Flags().StringVar(&budget, "budget", "", "Target budget, e.g. 5000 or \"$5,000\"")
	cmd.Flags().Float64Var(&rate, "rate", 0, "Hourly rate used to re-derive hours")
	cmd.Flags().BoolVar(&hoursLocked, "hours-locked", false, "Re-derive hours from the rescaled prices")

	return cmd
}

func newGenerateCmd(rt *runtime) *cobra.Command {
	var in generation.Input
	var budget string
	var quiet bool

	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a proposal from a brief and print it as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(in.Prompt) == "" {
				return fmt.Errorf("--prompt is required")
			}
			if strings.TrimSpace(budget) != "" {
				in.ProjectBudget = money.OrZero(money.ParseString(budget))
			}

			progress := cmd.ErrOrStderr()
			sections, err := rt.assembler().Generate(cmd.Context(), in, func(update generation.Update) {
				if quiet {
					return
				}
				fmt.Fprintf(progress, "%3d%%  %d sections  %s\n", update.Progress, len(update.Sections), money.Format(proposal.Total(update.Sections)))
			})
			if err != nil {
				return err
			}
			return writeResult(cmd.OutOrStdout(), sections)
		},
	}

	cmd.Flags().StringVar(&in.Prompt, "prompt", "", "Project brief")
	cmd.Flags().Float64Var(&in.HourlyRate, "rate", 0, "Hourly rate")
	cmd.Flags().StringVar(&budget, "budget", "", "Project budget to reconcile to")
	cmd.Flags().StringSliceVar(&in.UserServices, "service", nil, "Service offered (repeatable)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "Do not print progress")

	return cmd
}

func newPlanCmd(rt *runtime) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Manage user subscription plans",
	}
	cmd.AddCommand(newPlanSetCmd(rt))
	return cmd
}

func newPlanSetCmd(rt *runtime) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "set <email> <free|pro|agency>",
		Short: "Set a user's plan and subscription status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := strings.ToLower(strings.TrimSpace(args[1]))
			if string(plan.Normalize(name)) != name {
				return fmt.Errorf("unknown plan %q", args[1])
			}

			db, err := rt.openDatabase(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			user, err := store.NewPostgresStore(db).UpdateUserPlan(cmd.Context(), strings.ToLower(strings.TrimSpace(args[0])), name, status)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s is now on %s (%s, effective %s)\n",
				user.Email, user.Plan, user.SubscriptionStatus, plan.Effective(user.Plan, user.SubscriptionStatus))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", plan.StatusActive, "Subscription status")
	return cmd
}

func newReindexCmd(rt *runtime) *cobra.Command {
	return &cobra.Command{
		Use:   "reindex",
		Short: "Rebuild the Meilisearch index from the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(rt.cfg.MeiliURL) == "" {
				return fmt.Errorf("MEILI_URL is not set")
			}
			ctx := cmd.Context()
			db, err := rt.openDatabase(ctx)
			if err != nil {
				return err
			}
			defer db.Close()
			dataStore := store.NewPostgresStore(db)

			summaries, err := dataStore.ListAllProposals(ctx)
			if err != nil {
				return err
			}
			records := make([]search.ProposalRecord, 0, len(summaries))
			for _, summary := range summaries {
				sections, err := dataStore.LoadProposalSections(ctx, summary.ID)
				if err != nil {
					return err
				}
				records = append(records, search.NewProposalRecord(summary.Proposal, sections))
			}

			meiliClient := search.NewMeili(rt.cfg.MeiliURL, rt.cfg.MeiliMasterKey, rt.logger)
			defer meiliClient.Close()
			if err := search.NewService(meiliClient, dataStore, rt.logger).Reindex(records); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "indexed %d proposals\n", len(records))
			return nil
		},
	}
}
