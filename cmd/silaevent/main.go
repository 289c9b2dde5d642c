package main

import (
	"fmt"
	"os"
)

func main() {
	rootCmd := NewRootCmd()
	rootCmd.AddCommand(
		NewSendCmd(),
		NewReceiveCmd(),
		NewMCPCmd(),
		NewVersionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
