package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"vecna/internal/catalog"
	"vecna/internal/pipeline"
	"vecna/internal/quality"
	"vecna/internal/workflow"
)

type entityView struct {
	Entity  *catalog.Entity `json:"entity"`
	Quality *quality.Report `json:"quality,omitempty"`
}

func newShowCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show <entity-id>",
		Short: "Show an entity's pipeline state, data flags, and content quality",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID("entity", args[0])
			if err != nil {
				return err
			}
			return ctx.withManager(func(mgr *workflow.Manager, store *catalog.Store) error {
				entity, err := store.RequireEntity(cmd.Context(), id)
				if err != nil {
					return err
				}
				view := entityView{Entity: entity}
				if entity.HasGeneratedContent {
					report, err := mgr.Evaluate(cmd.Context(), id)
					if err != nil {
						return err
					}
					view.Quality = &report
				}
				if jsonOutput {
					return writeJSON(cmd, view)
				}
				renderEntity(cmd.OutOrStdout(), view, shouldColorize(cmd.OutOrStdout()))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	return cmd
}

func renderEntity(out io.Writer, view entityView, colorize bool) {
	e := view.Entity
	meta := pipeline.Describe(e.State)
	for _, line := range renderSectionHeader(fmt.Sprintf("%s (#%d)", e.Name, e.ID), colorize) {
		fmt.Fprintln(out, line)
	}
	fmt.Fprintf(out, "State:      %s (%s)\n", colorState(e.State, e.LastError, colorize), meta.Description)
	if meta.Needs != "" {
		fmt.Fprintf(out, "Needs:      %s\n", meta.Needs)
	}
	if e.FamilyID != 0 {
		relation := "base"
		if e.IsDependent() {
			relation = fmt.Sprintf("%s of #%d", e.RelationType, e.BaseEntityID)
		}
		fmt.Fprintf(out, "Family:     %d (%s)\n", e.FamilyID, relation)
	}
	if e.PublicationYear > 0 {
		fmt.Fprintf(out, "Published:  %d\n", e.PublicationYear)
	}
	if e.RulebookURL != "" {
		fmt.Fprintf(out, "Rulebook:   %s\n", e.RulebookURL)
	}
	if e.LastError != "" {
		fmt.Fprintf(out, "Last error: %s\n", e.LastError)
	}
	if e.LeaseExpiresAt != nil {
		fmt.Fprintf(out, "Lease:      until %s\n", e.LeaseExpiresAt.Format(time.RFC3339))
	}
	fmt.Fprintln(out)

	rows := [][]string{
		{"Rulebook", yesNo(e.HasRulebook)},
		{"Enrichment summary", yesNo(e.HasEnrichmentSummary)},
		{"Parsed text", yesNo(e.HasParsedText)},
		{"Taxonomy", yesNo(e.HasTaxonomy)},
		{"Generated content", yesNo(e.HasGeneratedContent)},
	}
	fmt.Fprintln(out, renderTable(columns("Data", "Present"), rows))

	if view.Quality != nil {
		renderQuality(out, *view.Quality, colorize)
	}
}

func renderQuality(out io.Writer, report quality.Report, colorize bool) {
	kind := statusWarn
	switch report.Status {
	case quality.StatusComplete:
		kind = statusOK
	case quality.StatusIncomplete:
		kind = statusError
	}
	fmt.Fprintln(out, renderStatusLine("Quality", kind, fmt.Sprintf("%s (%.1f%%)", report.Status, report.Percent), colorize))

	rows := make([][]string, 0, len(report.Categories))
	for _, category := range report.Categories {
		missing := make([]string, 0, len(category.Missing))
		for _, m := range category.Missing {
			missing = append(missing, fmt.Sprintf("%s (%s)", m.Field, m.Importance))
		}
		sort.Strings(missing)
		rows = append(rows, []string{
			category.Name,
			strconv.Itoa(category.Present) + "/" + strconv.Itoa(category.Expected),
			fmt.Sprintf("%.1f%%", category.Percent),
			strings.Join(missing, ", "),
		})
	}
	fmt.Fprintln(out, renderTable([]column{
		{Title: "Category"},
		{Title: "Fields", Numeric: true},
		{Title: "Score", Numeric: true},
		{Title: "Missing", Wrap: 50},
	}, rows))
}
