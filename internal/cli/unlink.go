package cli

import (
	"fmt"
	"os"

	"github.com/get-convex/deployctl/internal/envfile"
	"github.com/get-convex/deployctl/internal/errors"
	"github.com/get-convex/deployctl/internal/logger"
	"github.com/spf13/cobra"
)

// unlinkCmd removes the recorded deployment from .env.local.
var unlinkCmd = &cobra.Command{
	Use:   "unlink",
	Short: "Remove the recorded deployment from " + envfile.EnvFileName,
	RunE: func(cmd *cobra.Command, args []string) error {
		return unlinkCommand()
	},
}

func init() {
	rootCmd.AddCommand(unlinkCmd)
}

func unlinkCommand() error {
	dir, err := os.Getwd()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Failed to get working directory",
			"Check directory permissions")
	}

	removed, err := envfile.EraseDeploymentEnvVar(logger.Default(), dir)
	if err != nil {
		return err
	}
	if removed {
		fmt.Printf("Removed %s from %s\n", envfile.DeploymentEnvVarName, envfile.EnvFileName)
	} else {
		fmt.Printf("No %s entry in %s\n", envfile.DeploymentEnvVarName, envfile.EnvFileName)
	}
	return nil
}
