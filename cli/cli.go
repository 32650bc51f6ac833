package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/javanhut/gitcs-filter/internal/ferrors"
)

const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:   "gitcs-filter",
	Short: "gitcs-filter rewrites git history to move large binaries into external storage",
	Long: `gitcs-filter walks a repository's commit history and rewrites every tree
under a configured trigger directory: binary assets are copied out to an
external object store and replaced in the tree with a small pointer blob,
and a .gitignore is synthesized to keep them out from then on.`,
	Run: func(cmd *cobra.Command, args []string) {
		if version {
			fmt.Printf("gitcs-filter version %s\n", Version)
			os.Exit(0)
		}
		cmd.Help()
	},
}

func Execute() {
	rootCmd.SilenceErrors = true
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, ferrors.Report(err))
		os.Exit(1)
	}
}

var version bool

func init() {
	rootCmd.Flags().BoolVar(&version, "version", false, "print the gitcs-filter version")
}
