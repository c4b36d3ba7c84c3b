package main

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vecna/internal/catalog"
	"vecna/internal/services"
	"vecna/internal/stageexec"
	"vecna/internal/workflow"
)

func newAdvanceCommand(ctx *commandContext) *cobra.Command {
	var family bool
	var once bool

	cmd := &cobra.Command{
		Use:   "advance <id>",
		Short: "Advance an entity (or with --family, a whole family) as far as it can go",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind := "entity"
			if family {
				kind = "family"
			}
			id, err := parseID(kind, args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(mgr *workflow.Manager, _ *catalog.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(out)
				switch {
				case family:
					run, err := mgr.AdvanceFamily(cmd.Context(), id)
					for _, entityID := range run.Order {
						printSteps(out, run.Steps[entityID], colorize)
					}
					if err != nil {
						return err
					}
					fmt.Fprintln(out, renderStatusLine("Progress", statusInfo, fmt.Sprintf("%.1f%% (stage %s)", run.Progress.Percent, run.Progress.CurrentStage), colorize))
					return nil
				case once:
					step, err := mgr.Advance(cmd.Context(), id)
					if err != nil {
						return err
					}
					printSteps(out, []workflow.Step{step}, colorize)
					return nil
				default:
					steps, err := mgr.Drive(cmd.Context(), id)
					printSteps(out, steps, colorize)
					return err
				}
			})
		},
	}
	cmd.Flags().BoolVar(&family, "family", false, "Treat the id as a family id and advance every member")
	cmd.Flags().BoolVar(&once, "once", false, "Perform a single step only")
	return cmd
}

func printSteps(out io.Writer, steps []workflow.Step, colorize bool) {
	for _, step := range steps {
		kind := statusOK
		switch step.Outcome {
		case stageexec.Failed:
			kind = statusError
		case stageexec.Skipped:
			kind = statusInfo
		}
		message := fmt.Sprintf("%s -> %s", step.From, step.To)
		if step.Outcome != stageexec.Succeeded {
			message = fmt.Sprintf("%s %s", step.From, step.Outcome)
		}
		if step.Err != nil {
			message += ": " + services.DiagnosticMessage(step.Err)
		}
		fmt.Fprintln(out, renderStatusLine("Entity "+strconv.FormatInt(step.EntityID, 10), kind, message, colorize))
	}
}

func newAttachRulebookCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "attach-rulebook <entity-id> <url>",
		Short: "Record a rulebook URL and unblock an entity waiting for one",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("entity", args[0])
			if err != nil {
				return err
			}
			url := strings.TrimSpace(args[1])
			if url == "" {
				return errors.New("rulebook url is required")
			}
			return ctx.withManager(func(mgr *workflow.Manager, _ *catalog.Store) error {
				entity, err := mgr.AttachRulebook(cmd.Context(), id, url)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Entity %d rulebook attached (state %s)\n", entity.ID, entity.State)
				return nil
			})
		},
	}
}

func newApproveCommand(ctx *commandContext) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "approve <entity-id>",
		Short: "Publish reviewed content that passes the completeness gate",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("entity", args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(mgr *workflow.Manager, _ *catalog.Store) error {
				out := cmd.OutOrStdout()
				entity, report, err := mgr.Approve(cmd.Context(), id, force)
				if len(report.Categories) > 0 {
					renderQuality(out, report, shouldColorize(out))
				}
				if err != nil {
					if errors.Is(err, services.ErrPrecondition) && !force && len(report.MissingCritical()) == 0 {
						return fmt.Errorf("%w (re-run with --force to publish anyway)", err)
					}
					return err
				}
				fmt.Fprintf(out, "Entity %d published\n", entity.ID)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Publish content that needs attention; missing critical fields still block")
	return cmd
}

func newSuggestionsCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "suggestions <entity-id>",
		Short: "List pending taxonomy suggestions and accepted associations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("entity", args[0])
			if err != nil {
				return err
			}
			return ctx.withStore(func(store *catalog.Store) error {
				cfg, err := ctx.ensureConfig()
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				kinds := make([]catalog.SuggestionKind, 0, len(cfg.Taxonomy.Kinds))
				for _, kind := range cfg.Taxonomy.Kinds {
					kinds = append(kinds, catalog.SuggestionKind(kind))
				}
				pending, err := store.PendingSuggestions(cmd.Context(), id, kinds, 0)
				if err != nil {
					return err
				}
				rows := make([][]string, 0, len(pending))
				for _, sg := range pending {
					name := strconv.FormatInt(sg.ValueID, 10)
					if value, err := store.GetTaxonomyValue(cmd.Context(), sg.ValueID); err == nil && value != nil {
						name = value.Name
					}
					verdict := "review"
					if sg.Confidence >= cfg.Taxonomy.ConfidenceThreshold {
						verdict = "auto"
					}
					rows = append(rows, []string{
						string(sg.Kind),
						name,
						fmt.Sprintf("%.2f", sg.Confidence),
						yesNo(sg.IsPrimary),
						verdict,
					})
				}
				if len(rows) == 0 {
					fmt.Fprintln(out, "No pending suggestions")
				} else {
					fmt.Fprintln(out, renderTable([]column{
						{Title: "Kind"},
						{Title: "Value"},
						{Title: "Confidence", Numeric: true},
						{Title: "Primary"},
						{Title: "Action"},
					}, rows))
				}

				associations, err := store.Associations(cmd.Context(), id)
				if err != nil {
					return err
				}
				if len(associations) == 0 {
					return nil
				}
				rows = rows[:0]
				for _, a := range associations {
					rows = append(rows, []string{string(a.Kind), a.ValueName, yesNo(a.IsPrimary)})
				}
				fmt.Fprintln(out, renderTable(columns("Kind", "Accepted", "Primary"), rows))
				return nil
			})
		},
	}
}

func newReconcileCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Demote entities whose processing lease expired",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withManager(func(mgr *workflow.Manager, _ *catalog.Store) error {
				report, err := mgr.Reconcile(cmd.Context())
				out := cmd.OutOrStdout()
				for _, r := range report.Reclaimed {
					fmt.Fprintf(out, "Entity %d: %s -> %s (lease expired)\n", r.EntityID, r.From, r.To)
				}
				if err != nil {
					return err
				}
				for _, familyID := range report.RebuiltContexts {
					fmt.Fprintf(out, "Family %d: context rebuilt\n", familyID)
				}
				fmt.Fprintf(out, "Reclaimed %d entities, rebuilt %d family contexts, expired %d suggestions\n",
					len(report.Reclaimed), len(report.RebuiltContexts), report.ExpiredSuggestions)
				return nil
			})
		},
	}
}

func newRebuildContextCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "rebuild-context <family-id>",
		Short: "Rebuild a family's shared context from its base entity",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("family", args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(mgr *workflow.Manager, _ *catalog.Store) error {
				fc, err := mgr.RebuildFamily(cmd.Context(), id)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if fc == nil {
					fmt.Fprintf(out, "Family %d: base entity has no enrichment or generated content yet; context unchanged\n", id)
					return nil
				}
				fmt.Fprintf(out, "Family %d: context rebuilt from %s\n", id, fc.BaseName)
				return nil
			})
		},
	}
}
