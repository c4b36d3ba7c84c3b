package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"vecna/internal/config"
	"vecna/internal/services/jsonapi"
)

func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration utilities",
	}

	configCmd.AddCommand(newConfigValidateCommand(ctx))
	configCmd.AddCommand(newConfigInitCommand())

	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Create a sample configuration file",
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if err != nil && !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Edit the file to set the parse and generate service URLs before running vecna.")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}

func newConfigValidateCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and summarize service wiring",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(strings.TrimSpace(*ctx.configFlag))
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("ensure directories: %w", err)
			}
			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("Configuration", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, line := range configSummary(cfg, path, exists) {
				fmt.Fprintln(out, renderStatusLine(line.label, line.kind, line.message, colorize))
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

type summaryLine struct {
	label   string
	kind    statusKind
	message string
}

func configSummary(cfg *config.Config, path string, exists bool) []summaryLine {
	lines := []summaryLine{{label: "Config file", kind: statusOK, message: path}}
	if !exists {
		lines[0] = summaryLine{label: "Config file", kind: statusWarn, message: "not found at " + path + "; defaults used"}
	}
	lines = append(lines, summaryLine{label: "Catalog database", kind: statusInfo, message: cfg.DatabasePath()})
	lines = append(lines, serviceLine("Parse service", cfg.Services.ParseURL))
	lines = append(lines, serviceLine("Generate service", cfg.Services.GenerateURL))
	if cfg.Services.APIKey == "" {
		lines = append(lines, summaryLine{label: "Service API key", kind: statusInfo, message: "not set"})
	} else {
		lines = append(lines, summaryLine{label: "Service API key", kind: statusOK, message: "set"})
	}

	budget := jsonapi.CallBudget(cfg.Services.RetryAttempts, cfg.ServiceTimeout())
	lines = append(lines, summaryLine{
		label:   "Step budget",
		kind:    statusInfo,
		message: fmt.Sprintf("%s (%d attempt(s) of %s)", budget, cfg.Services.RetryAttempts, cfg.ServiceTimeout()),
	})
	leaseKind := statusInfo
	leaseMessage := cfg.Lease().String()
	if cfg.Lease() < budget {
		leaseKind = statusWarn
		leaseMessage = fmt.Sprintf("%s (raised to the step budget at run time)", cfg.Lease())
	}
	lines = append(lines, summaryLine{label: "Processing lease", kind: leaseKind, message: leaseMessage})
	lines = append(lines, summaryLine{
		label:   "Auto-accept",
		kind:    statusInfo,
		message: fmt.Sprintf("confidence >= %.2f for %s", cfg.Taxonomy.ConfidenceThreshold, strings.Join(cfg.Taxonomy.Kinds, ", ")),
	})

	if topic := strings.TrimSpace(cfg.Notifications.NtfyTopic); topic != "" {
		lines = append(lines, summaryLine{label: "Notifications", kind: statusOK, message: topic})
	} else {
		lines = append(lines, summaryLine{label: "Notifications", kind: statusInfo, message: "disabled (no ntfy_topic)"})
	}
	return lines
}

func serviceLine(label, url string) summaryLine {
	if strings.TrimSpace(url) == "" {
		return summaryLine{label: label, kind: statusError, message: "url not configured"}
	}
	return summaryLine{label: label, kind: statusOK, message: url}
}
