package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// GitSHA is set at build time
var GitSHA string

// Version is set at build time
var Version string

func versionString() string {
	if Version == "" {
		return "dev"
	}
	return Version
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version info",
		RunE: func(cmd *cobra.Command, args []string) error {
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 2, 0, 2, ' ', 0)
			fmt.Fprintf(w, "\nsilaevent version:\t%v\n", versionString())
			fmt.Fprintf(w, "silaevent git sha:\t%v\n", GitSHA)
			fmt.Fprintln(w, "")
			return w.Flush()
		},
	}
}
