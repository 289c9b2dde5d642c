package main

import (
	"github.com/spf13/cobra"

	"github.com/mbocsi/silaevents/mcp"
)

func NewMCPCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve the send operations as MCP tools over stdio",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := newClient(configFrom(cmd))
			if err != nil {
				return err
			}
			return mcp.NewMCPServer(c, versionString()).Run()
		},
	}
}
