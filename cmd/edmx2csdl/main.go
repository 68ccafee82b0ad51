package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version information - will be set at build time
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "edmx2csdl",
		Short: "Convert OData EDMX metadata to CSDL JSON",
		Long: `edmx2csdl converts OData v4 EDMX (CSDL XML) metadata documents into CSDL JSON.
Referenced documents are looked up next to the input or in configured locations;
the standard OASIS vocabularies are bundled.`,
		SilenceUsage: true,
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(convertCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
