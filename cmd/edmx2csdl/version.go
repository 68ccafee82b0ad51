package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	csdl "github.com/agentflare-ai/go-csdl"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  "Display the edmx2csdl version, Git commit, build date, Go version and bundled vocabularies",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("edmx2csdl version: %s\n", Version)
		fmt.Printf("Git commit: %s\n", GitCommit)
		fmt.Printf("Build date: %s\n", BuildDate)
		fmt.Printf("Go version: %s\n", runtime.Version())
		fmt.Printf("Bundled vocabularies: %s\n", strings.Join(csdl.Vocabularies(), ", "))
	},
}
