package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/get-convex/deployctl/internal/api"
	"github.com/get-convex/deployctl/internal/deployment"
	"github.com/get-convex/deployctl/internal/envfile"
	"github.com/get-convex/deployctl/internal/errors"
	"github.com/get-convex/deployctl/internal/logger"
	"github.com/get-convex/deployctl/internal/project"
	"github.com/spf13/cobra"
)

// linkCmd records the project's dev deployment in .env.local.
var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Record the project's dev deployment in " + envfile.EnvFileName,
	Long: `Resolve the dev deployment for the current project and persist it
into ` + envfile.EnvFileName + ` so other tooling can pick it up.

The file is added to .gitignore on first write unless an existing pattern
already covers it.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return linkCommand(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(linkCmd)
}

func linkCommand(ctx context.Context) error {
	log := logger.Default()

	dir, err := os.Getwd()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Failed to get working directory",
			"Check directory permissions")
	}

	if err := envfile.LoadEnvFile(log, dir); err != nil {
		return err
	}

	sel, err := project.LoadSelection(dir)
	if err != nil {
		return err
	}

	deployKey := os.Getenv(deployment.DeployKeyEnvVarName)
	if deployKey == "" {
		return errors.New(errors.ErrConfig,
			deployment.DeployKeyEnvVarName+" is not set",
			"Generate a deploy key on the dashboard and export it as "+deployment.DeployKeyEnvVarName)
	}

	client := api.NewClient(deployKey, log)
	creds, err := client.ProdDeploymentCredentials(ctx, *sel)
	if err != nil {
		return err
	}
	if creds.DevDeploymentName == "" {
		return errors.New(errors.ErrConfig,
			"No dev deployment exists for this project",
			"Create one from the dashboard first")
	}

	return linkDeployment(log, dir, *sel, creds.DevDeploymentName, os.Stdout)
}

// linkDeployment persists the dev deployment name and reports what changed.
func linkDeployment(log logger.Logger, dir string, sel project.Selection, name string, out io.Writer) error {
	gitignoreUpdated, err := envfile.WriteDeploymentEnvVar(log, dir, "dev", envfile.DeploymentOptions{
		Team:           sel.Team,
		Project:        sel.Project,
		DeploymentName: name,
	})
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Linked to dev deployment %s in %s\n", name, envfile.EnvFileName)
	if gitignoreUpdated {
		fmt.Fprintf(out, "Added %s to %s\n", envfile.EnvFileName, envfile.GitIgnoreFileName)
	}
	return nil
}
