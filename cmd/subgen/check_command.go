package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"subgen/internal/language"
	"subgen/internal/preflight"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	var model string
	var lang string

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify binaries, model files and directories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			opts, err := resolveJobOptions(cfg, runFlags{model: model, language: lang})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			results := preflight.RunAll(cmd.Context(), cfg, opts)

			lines := renderSectionHeader("Configuration", colorize)
			lines = append(lines,
				renderStatusLine("Config file", statusInfo, configLabel(ctx.configPath), colorize),
				renderStatusLine("Model tier", statusInfo, string(opts.Model), colorize),
				renderStatusLine("Language", statusInfo, languageLabel(opts.Language), colorize),
				"",
			)
			lines = append(lines, renderSectionHeader("Preflight", colorize)...)
			for _, r := range results {
				lines = append(lines, renderStatusLine(r.Name, checkStatusKind(r), r.Detail, colorize))
			}
			fmt.Fprintln(out, strings.Join(lines, "\n"))

			if failed := preflight.Failed(results); len(failed) > 0 {
				return fmt.Errorf("%d check(s) failed", len(failed))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&model, "model", "m", "", "Check this model tier instead of the configured one")
	cmd.Flags().StringVarP(&lang, "language", "l", "", "Check this language instead of the configured one")
	return cmd
}

func checkStatusKind(r preflight.Result) statusKind {
	switch {
	case r.Passed:
		return statusOK
	case r.Optional:
		return statusWarn
	default:
		return statusError
	}
}

func configLabel(path string) string {
	if strings.TrimSpace(path) == "" {
		return "defaults"
	}
	return path
}

func languageLabel(code string) string {
	resolved, err := language.Resolve(code)
	if err != nil {
		return code
	}
	if resolved == language.Auto {
		return "auto-detect"
	}
	return fmt.Sprintf("%s (%s)", language.DisplayName(resolved), resolved)
}
