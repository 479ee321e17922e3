package main

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"subgen/internal/transcribe"
)

func newModelsCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "models",
		Short: "List model tiers and whether their files are installed",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			catalog := transcribe.CatalogFromConfig(cfg)
			infos := catalog.List()
			if jsonOutput {
				return writeJSON(cmd, infos)
			}

			rows := make([][]string, 0, len(infos))
			for _, info := range infos {
				tier := string(info.Tier)
				if info.Tier == cfg.ModelTier() {
					tier += " *"
				}
				rows = append(rows, []string{tier, info.Path, modelSize(info), yesNo(info.Present)})
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, renderTable(
				[]string{"Tier", "Path", "Size", "Installed"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft},
			))
			fmt.Fprintf(out, "* configured default; models are read from %s\n", catalog.Dir)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Print as JSON")
	return cmd
}

func modelSize(info transcribe.ModelInfo) string {
	if !info.Present {
		return "-"
	}
	return humanize.IBytes(uint64(info.Size))
}
