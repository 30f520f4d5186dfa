package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"go.alt-gnome.ru/lesst/suite"
)

var validateCmd = &cobra.Command{
	Use:   "validate <suite.yaml>...",
	Short: "Check suite files without running them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			f, err := suite.Load(path)
			if err != nil {
				return err
			}
			sections, cases := f.Count()
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d sections, %d tests ✅\n", path, sections, cases)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
