// Package cli defines the deployctl command surface.
package cli

import (
	"fmt"
	"os"

	"github.com/get-convex/deployctl/internal/errors"
	"github.com/spf13/cobra"
)

// rootCmd is the base command all subcommands attach to.
var rootCmd = &cobra.Command{
	Use:   "deployctl",
	Short: "Deploy Convex projects from local machines and CI",
	Long: `deployctl pushes Convex backend functions to a remote deployment.

It resolves which deployment (production or preview) the invocation targets
from the deploy key, optionally runs a local build with the deployment URL
injected, and pushes the project's functions.

Examples:
  deployctl deploy
  deployctl deploy --cmd "npm run build"
  deployctl deploy --preview-name my-feature --preview-run setup:init`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command. Every fatal path funnels through here:
// structured errors print their own formatting, and the process exits 1.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		if code, ok := errors.GetExitCode(err); ok {
			// The command already explained itself; just carry the code.
			os.Exit(code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
