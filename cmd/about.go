package cmd

import (
	"github.com/spf13/cobra"
)

func newAboutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "about",
		Short: "List the available commands",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			stdout.Println("Welcome to the Spectrum Archive EE command line interface")
			for _, c := range cmd.Root().Commands() {
				if !c.IsAvailableCommand() {
					continue
				}
				stdout.Printf("%-10s %s\n", c.Name(), c.Short)
			}
		},
	}
}
