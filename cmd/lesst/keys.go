package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"go.alt-gnome.ru/lesst"
	"go.alt-gnome.ru/lesst/suite"
)

var keysCmd = &cobra.Command{
	Use:   "keys",
	Short: "List the key names and step keywords a suite may use",
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintln(out, "Keys:")
		for _, name := range lesst.KeyNames() {
			k, _ := lesst.KeyByName(name)
			fmt.Fprintf(out, "  %-10s %s\n", name, strconv.Quote(string(k)))
		}
		fmt.Fprintln(out, "Steps:")
		for _, name := range suite.StepNames() {
			fmt.Fprintf(out, "  %s\n", name)
		}
	},
}

func init() {
	rootCmd.AddCommand(keysCmd)
}
