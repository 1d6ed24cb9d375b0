/*
Copyright © 2022 Daniils Petrovs <thedanpetrov@gmail.com>

*/
package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/DaniruKun/visuai/config"
	"github.com/DaniruKun/visuai/stage"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a configuration file and print the stages it selects",
	RunE: func(cmd *cobra.Command, args []string) error {
		configPath, _ := cmd.Flags().GetString("config")

		snap, err := config.Load(configPath)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "config: %s\n", snap.Source)
		fmt.Fprintf(out, "stages: %s\n", formatStages(snap))
		fmt.Fprintf(out, "output: %dx%d\n", snap.OutputWidth, snap.OutputHeight)
		if snap.UseGPU() {
			fmt.Fprintf(out, "device: GPU %v\n", snap.GPUIDs)
		} else {
			fmt.Fprintln(out, "device: CPU")
		}
		return nil
	},
}

func formatStages(snap *config.Snapshot) string {
	set, unknown := stage.Parse(snap.StageTokens())
	if len(unknown) > 0 {
		return fmt.Sprintf("%s (unknown: %v)", set, unknown)
	}
	return set.String()
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
