package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"vecna/internal/catalog"
	"vecna/internal/pipeline"
	"vecna/internal/workflow"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "status [family-id]",
		Short: "Show pipeline counts, or the progress of one family",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return ctx.withStore(func(store *catalog.Store) error {
					stats, err := store.Stats(cmd.Context())
					if err != nil {
						return err
					}
					if jsonOutput {
						return writeJSON(cmd, stats)
					}
					rows := buildStateRows(stats)
					if len(rows) == 0 {
						fmt.Fprintln(cmd.OutOrStdout(), "Catalog is empty")
						return nil
					}
					fmt.Fprintln(cmd.OutOrStdout(), renderTable([]column{{Title: "State"}, {Title: "Count", Numeric: true}}, rows))
					return nil
				})
			}

			familyID, err := parseID("family", args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(mgr *workflow.Manager, store *catalog.Store) error {
				family, err := store.GetFamily(cmd.Context(), familyID)
				if err != nil {
					return err
				}
				if family == nil {
					return fmt.Errorf("family %d not found", familyID)
				}
				entities, err := store.ListFamilyEntities(cmd.Context(), familyID)
				if err != nil {
					return err
				}
				progress, err := mgr.Progress(cmd.Context(), familyID)
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, progress)
				}
				fmt.Fprint(cmd.OutOrStdout(), renderFamilyStatus(family, entities, progress, shouldColorize(cmd.OutOrStdout())))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func buildStateRows(stats map[pipeline.State]int) [][]string {
	var rows [][]string
	for _, state := range pipeline.AllStates() {
		if count := stats[state]; count > 0 {
			rows = append(rows, []string{pipeline.Label(state), strconv.Itoa(count)})
		}
	}
	return rows
}

func renderFamilyStatus(family *catalog.Family, entities []*catalog.Entity, progress pipeline.Progress, colorize bool) string {
	var b strings.Builder
	for _, line := range renderSectionHeader(fmt.Sprintf("%s (family %d)", family.Name, family.ID), colorize) {
		b.WriteString(line + "\n")
	}

	rows := make([][]string, 0, len(entities))
	for _, e := range entities {
		role := "dependent"
		if e.ID == family.BaseEntityID {
			role = "base"
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			e.Name,
			role,
			colorState(e.State, e.LastError, colorize),
			e.LastError,
		})
	}
	b.WriteString(renderTable([]column{
		{Title: "ID", Numeric: true},
		{Title: "Name"},
		{Title: "Role"},
		{Title: "State"},
		{Title: "Last Error", Wrap: 60},
	}, rows))
	b.WriteString("\n")

	kind := statusInfo
	if progress.Percent >= 100 {
		kind = statusOK
	}
	b.WriteString(renderStatusLine("Progress", kind, fmt.Sprintf("%.1f%% (stage %s)", progress.Percent, progress.CurrentStage), colorize) + "\n")
	if n := len(progress.MissingRulebook); n > 0 {
		b.WriteString(renderStatusLine("Missing rulebook", statusWarn, blockerNames(progress.MissingRulebook), colorize) + "\n")
	}
	if n := len(progress.Errored); n > 0 {
		b.WriteString(renderStatusLine("Errored", statusError, blockerNames(progress.Errored), colorize) + "\n")
	}
	ctxState := "not built"
	ctxKind := statusWarn
	if family.Context != nil && !family.Context.IsZero() {
		ctxState = "built"
		if family.ContextBuiltAt != nil {
			ctxState += " " + family.ContextBuiltAt.Format("2006-01-02 15:04")
		}
		ctxKind = statusOK
	}
	b.WriteString(renderStatusLine("Family context", ctxKind, ctxState, colorize) + "\n")
	return b.String()
}

func blockerNames(blockers []pipeline.Blocker) string {
	names := make([]string, 0, len(blockers))
	for _, blocker := range blockers {
		names = append(names, fmt.Sprintf("%s (#%d)", blocker.Name, blocker.ID))
	}
	return strings.Join(names, ", ")
}
