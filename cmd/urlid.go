package main

import (
	"fmt"
	"scanrelay/pkg/threatscan/virustotal"

	"github.com/spf13/cobra"
)

func urlIDCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "urlid <url>",
		Short: "Prints the identifier used to look up a URL report",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), virustotal.URLID(args[0]))
		},
	}
}
