package main

import (
	"fmt"
	"strings"

	"github.com/obeli-sk/webui"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number of webui",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("webui version %s\n", strings.TrimSpace(webui.Version))
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
