package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/get-convex/deployctl/internal/api"
	"github.com/get-convex/deployctl/internal/deployment"
	"github.com/get-convex/deployctl/internal/envfile"
	"github.com/get-convex/deployctl/internal/errors"
	"github.com/get-convex/deployctl/internal/exec"
	"github.com/get-convex/deployctl/internal/logger"
	"github.com/get-convex/deployctl/internal/project"
	"github.com/get-convex/deployctl/internal/push"
	"github.com/get-convex/deployctl/internal/ui"
	"github.com/spf13/cobra"
)

// deploy command flags
var (
	deployDryRun              bool
	deployVerbose             bool
	deployYes                 bool
	deployTypecheck           string
	deployCodegen             string
	deployCmdFlag             string
	deployCmdURLEnvVarName    string
	deployPreviewName         string
	deployPreviewCreate       string
	deployPreviewRun          string
	deployCheckBuildEnv       string
	deployPrintDeploymentName bool
	deployAdminKey            string
	deployURL                 string
	deployDebugBundlePath     string
)

// deployCmd pushes the project to its resolved deployment.
var deployCmd = &cobra.Command{
	Use:   "deploy",
	Short: "Deploy to a production or preview deployment",
	Long: `Deploy the current project.

The deploy key (CONVEX_DEPLOY_KEY) decides the target: a production key
deploys to the project's production deployment, a preview key claims a fresh
preview deployment named after the current branch.

An optional local build command runs before the push with the deployment URL
injected into its environment.

Examples:
  deployctl deploy
  deployctl deploy --cmd "npm run build"
  deployctl deploy --dry-run
  deployctl deploy --preview-name my-feature`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return deployCommand(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(deployCmd)

	deployCmd.Flags().BoolVar(&deployDryRun, "dry-run", false, "Show what would be deployed without deploying")
	deployCmd.Flags().BoolVarP(&deployVerbose, "verbose", "v", false, "Show detailed push output")
	deployCmd.Flags().BoolVarP(&deployYes, "yes", "y", false, "Skip the production confirmation prompt")
	deployCmd.Flags().StringVar(&deployTypecheck, "typecheck", "try", "Typecheck mode: enable, try, or disable")
	deployCmd.Flags().StringVar(&deployCodegen, "codegen", "enable", "Regenerate code before pushing: enable or disable")
	deployCmd.Flags().StringVar(&deployCmdFlag, "cmd", "", "Build command to run before the push")
	deployCmd.Flags().StringVar(&deployCmdURLEnvVarName, "cmd-url-env-var-name", "", "Env var name the deployment URL is injected under (inferred from the build tool by default)")
	deployCmd.Flags().StringVar(&deployPreviewName, "preview-name", "", "Name for the claimed preview deployment (defaults to the CI branch)")
	deployCmd.Flags().StringVar(&deployPreviewCreate, "preview-create", "", "Deprecated alias for --preview-name")
	deployCmd.Flags().StringVar(&deployPreviewRun, "preview-run", "", "Function to run on the preview deployment after the push")
	deployCmd.Flags().StringVar(&deployCheckBuildEnv, "check-build-environment", "enable", "Check for a production key in a non-production build: enable or disable")
	deployCmd.Flags().BoolVar(&deployPrintDeploymentName, "print-deployment-name", false, "Print the deployment name after a successful deploy")
	deployCmd.Flags().StringVar(&deployAdminKey, "admin-key", "", "Deploy key override")
	deployCmd.Flags().StringVar(&deployURL, "url", "", "Deployment URL override")
	deployCmd.Flags().StringVar(&deployDebugBundlePath, "debug-bundle-path", "", "Write the push request to this directory for inspection")

	deployCmd.Flags().MarkHidden("preview-create")
	deployCmd.Flags().MarkHidden("admin-key")
	deployCmd.Flags().MarkHidden("url")
	deployCmd.Flags().MarkHidden("debug-bundle-path")
}

// DeployOptions are the validated inputs of one deploy invocation.
type DeployOptions struct {
	Dir string

	AdminKey    string
	URLOverride string

	BuildCommand  string
	URLEnvVarName string

	PreviewName   string
	PreviewCreate string
	PreviewRun    string

	Typecheck push.TypecheckMode
	Codegen   bool

	Yes                   bool
	Verbose               bool
	DryRun                bool
	CheckBuildEnvironment bool
	PrintDeploymentName   bool
	DebugBundlePath       string
}

// deployDeps are the deploy workflow's collaborators, injectable for tests.
type deployDeps struct {
	client  api.Client
	pusher  push.Pusher
	display *ui.PhaseDisplay
	log     logger.Logger
	out     io.Writer

	// runner executes the local build command.
	runner func(ctx context.Context, cmd string, opts exec.Options) (int, error)
	// confirm overrides the resolver's interactive prompt when non-nil.
	confirm func(prompt string) (bool, error)
}

// deployCommand validates flags and runs the workflow with real collaborators.
func deployCommand(ctx context.Context) error {
	typecheck, err := push.ParseTypecheckMode(deployTypecheck)
	if err != nil {
		return err
	}
	codegen, err := parseToggle("codegen", deployCodegen)
	if err != nil {
		return err
	}
	checkBuildEnv, err := parseToggle("check-build-environment", deployCheckBuildEnv)
	if err != nil {
		return err
	}

	dir, err := os.Getwd()
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrExec,
			"Failed to get working directory",
			"Check directory permissions")
	}

	log := logger.Default()
	display := ui.NewPhaseDisplay(os.Stdout)

	// Identity persisted by `deployctl link` lives in .env.local; a fresh
	// process has to load it before reading any CONVEX_* variable.
	if err := envfile.LoadEnvFile(log, dir); err != nil {
		return err
	}

	deployKey := deployAdminKey
	if deployKey == "" {
		deployKey = os.Getenv(deployment.DeployKeyEnvVarName)
	}

	deps := deployDeps{
		client:  api.NewClient(deployKey, log),
		pusher:  push.NewPusher(log, display),
		display: display,
		log:     log,
		out:     os.Stdout,
		runner:  exec.RunLocal,
	}

	opts := DeployOptions{
		Dir:                   dir,
		AdminKey:              deployAdminKey,
		URLOverride:           deployURL,
		BuildCommand:          deployCmdFlag,
		URLEnvVarName:         deployCmdURLEnvVarName,
		PreviewName:           deployPreviewName,
		PreviewCreate:         deployPreviewCreate,
		PreviewRun:            deployPreviewRun,
		Typecheck:             typecheck,
		Codegen:               codegen,
		Yes:                   deployYes,
		Verbose:               deployVerbose,
		DryRun:                deployDryRun,
		CheckBuildEnvironment: checkBuildEnv,
		PrintDeploymentName:   deployPrintDeploymentName,
		DebugBundlePath:       deployDebugBundlePath,
	}
	return runDeploy(ctx, opts, deps)
}

// runDeploy is the deploy workflow: resolve the target, optionally run the
// local build with the deployment URL injected, push, then run any
// post-deploy function on preview deployments.
func runDeploy(ctx context.Context, opts DeployOptions, deps deployDeps) error {
	resolver := deployment.NewResolver(deps.client, deps.log, deps.display)
	if deps.confirm != nil {
		resolver.SetConfirm(deps.confirm)
	}

	target, err := resolver.Resolve(ctx, deployment.Options{
		Selection:             optionalSelection(opts.Dir),
		AdminKey:              opts.AdminKey,
		URLOverride:           opts.URLOverride,
		PreviewName:           opts.PreviewName,
		PreviewCreate:         opts.PreviewCreate,
		Yes:                   opts.Yes,
		CheckBuildEnvironment: opts.CheckBuildEnvironment,
		DryRun:                opts.DryRun,
	})
	if err != nil {
		return err
	}

	if opts.PreviewRun != "" && !target.Preview {
		return errors.New(errors.ErrConfig,
			"--preview-run is only supported with preview deploy keys",
			"Remove --preview-run or deploy with a preview key")
	}

	if opts.BuildCommand != "" {
		if err := runBuildCommand(ctx, opts, deps, target.URL); err != nil {
			return err
		}
	}

	if err := deps.pusher.Push(ctx, push.Options{
		AdminKey:        target.Key.Raw,
		URL:             target.URL,
		DeploymentName:  target.DeploymentName,
		Dir:             opts.Dir,
		Typecheck:       opts.Typecheck,
		Codegen:         opts.Codegen,
		Verbose:         opts.Verbose,
		DryRun:          opts.DryRun,
		DebugBundlePath: opts.DebugBundlePath,
	}); err != nil {
		return err
	}

	if target.Preview && opts.PreviewRun != "" {
		deps.display.RenderInfo(fmt.Sprintf("Running function %s", opts.PreviewRun))
		if !opts.DryRun {
			if err := deps.client.RunDeployedFunction(ctx, target.URL, target.Key.Raw, opts.PreviewRun); err != nil {
				return err
			}
		}
	}

	if opts.PrintDeploymentName {
		fmt.Fprintln(deps.out, target.DeploymentName)
	}
	return nil
}

// runBuildCommand runs the local build with the deployment URL injected
// under the resolved env var name. A dry run narrates the command without
// spawning it.
func runBuildCommand(ctx context.Context, opts DeployOptions, deps deployDeps, deploymentURL string) error {
	urlVar := opts.URLEnvVarName
	if urlVar == "" {
		urlVar = project.SuggestedURLEnvVarName(opts.Dir)
	}

	deps.display.Newline()
	deps.display.CommandPrompt(opts.BuildCommand)
	if opts.DryRun {
		deps.display.RenderSkipped("Build", "dry run")
		return nil
	}

	deps.display.Divider()
	start := time.Now()
	code, err := deps.runner(ctx, opts.BuildCommand, exec.Options{
		WorkDir:  opts.Dir,
		ExtraEnv: []string{urlVar + "=" + deploymentURL},
		Stdin:    os.Stdin,
		Stdout:   os.Stdout,
		Stderr:   os.Stderr,
	})
	if err != nil {
		return err
	}
	if code != 0 {
		return errors.New(errors.ErrExec,
			fmt.Sprintf("Command %q exited with status %d", opts.BuildCommand, code),
			"Fix the build failure and deploy again")
	}
	deps.display.ThinDivider()
	deps.display.RenderSuccess("Build", time.Since(start))
	return nil
}

// parseToggle validates an enable/disable flag value.
func parseToggle(flag, value string) (bool, error) {
	switch value {
	case "enable":
		return true, nil
	case "disable":
		return false, nil
	}
	return false, errors.New(errors.ErrConfig,
		fmt.Sprintf("Invalid value %q for --%s", value, flag),
		"Valid values are enable and disable")
}

// optionalSelection loads the convex.json selection when present. Deploy
// keys carry the project identity server-side, so a missing file is fine.
func optionalSelection(dir string) project.Selection {
	sel, err := project.LoadSelection(dir)
	if err != nil {
		return project.Selection{}
	}
	return *sel
}
