// Package deployment decides which remote deployment an invocation targets
// and assembles its credentials. It owns the preview/production mode split,
// the prod-confirmation prompt, and the build-environment safety check.
package deployment

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/huh"
	"github.com/get-convex/deployctl/internal/adminkey"
	"github.com/get-convex/deployctl/internal/api"
	"github.com/get-convex/deployctl/internal/envfile"
	"github.com/get-convex/deployctl/internal/errors"
	"github.com/get-convex/deployctl/internal/logger"
	"github.com/get-convex/deployctl/internal/project"
	"github.com/get-convex/deployctl/internal/ui"
	"golang.org/x/term"
)

// DeployKeyEnvVarName governs which of preview/prod mode is entered.
const DeployKeyEnvVarName = "CONVEX_DEPLOY_KEY"

// dryRunPlaceholderURL stands in for the claimed deployment URL when a
// dry run skips the network claim.
const dryRunPlaceholderURL = "https://preview-deployment.convex.cloud"

// Target is the resolved deployment identity and credentials.
// Never mutated after resolution.
type Target struct {
	Key            adminkey.Key
	URL            string
	DeploymentName string
	Preview        bool
}

// Options carries the flag/env inputs that drive resolution.
type Options struct {
	Selection project.Selection

	AdminKey    string // explicit --admin-key override
	URLOverride string // hidden --url override

	PreviewName   string // --preview-name
	PreviewCreate string // legacy --preview-create (deprecated)

	Yes                   bool // skip interactive confirmation
	CheckBuildEnvironment bool
	DryRun                bool
}

// Resolver resolves deploy targets through the provision API.
type Resolver struct {
	client  api.Client
	log     logger.Logger
	display *ui.PhaseDisplay

	// confirm is injectable for tests; defaults to an interactive prompt.
	confirm func(prompt string) (bool, error)
}

// NewResolver creates a Resolver narrating steps on display.
func NewResolver(client api.Client, log logger.Logger, display *ui.PhaseDisplay) *Resolver {
	return &Resolver{
		client:  client,
		log:     log,
		display: display,
		confirm: interactiveConfirm,
	}
}

// SetConfirm overrides the confirmation prompt. Used in tests.
func (r *Resolver) SetConfirm(fn func(prompt string) (bool, error)) {
	r.confirm = fn
}

// Resolve decides the operation mode and assembles credentials.
func (r *Resolver) Resolve(ctx context.Context, opts Options) (*Target, error) {
	raw := opts.AdminKey
	if raw == "" {
		raw = os.Getenv(DeployKeyEnvVarName)
	}
	if raw == "" {
		return nil, errors.New(errors.ErrConfig,
			DeployKeyEnvVarName+" is not set",
			"Generate a deploy key on the dashboard and export it as "+DeployKeyEnvVarName)
	}
	key := adminkey.Parse(raw)

	if opts.CheckBuildEnvironment && key.Type == adminkey.TypeProd {
		if provider, nonProd := NonProductionBuildEnvironment(); nonProd {
			return nil, errors.New(errors.ErrSafety,
				fmt.Sprintf("Production deploy key detected in a non-production %s build", provider),
				"Use a preview deploy key for preview builds, or pass --check-build-environment disable to override")
		}
	}

	if key.Type == adminkey.TypePreview {
		return r.resolvePreview(ctx, key, opts)
	}
	return r.resolveProd(ctx, key, opts)
}

// resolvePreview claims (or, in dry-run mode, pretends to claim) a preview
// deployment for the branch identifier.
func (r *Resolver) resolvePreview(ctx context.Context, key adminkey.Key, opts Options) (*Target, error) {
	if opts.PreviewName != "" && opts.PreviewCreate != "" {
		return nil, errors.New(errors.ErrConfig,
			"--preview-name and --preview-create cannot be used together",
			"Pass only --preview-name")
	}
	if opts.PreviewCreate != "" {
		return nil, errors.New(errors.ErrConfig,
			"--preview-create is no longer supported",
			"Pass --preview-name instead")
	}

	identifier := opts.PreviewName
	if identifier == "" {
		provider, branch, ok := BranchFromBuildEnvironment()
		if !ok {
			return nil, errors.New(errors.ErrConfig,
				"Could not determine a name for the preview deployment",
				"Pass --preview-name, or run inside a CI provider that exposes the branch name")
		}
		r.log.Debug("using branch %q from %s as preview identifier", branch, provider)
		identifier = branch
	}

	r.display.RenderInfo(fmt.Sprintf("Claiming preview deployment %q", identifier))

	if opts.DryRun {
		r.log.Debug("dry run: skipping preview claim for %q", identifier)
		return &Target{
			Key:            key,
			URL:            dryRunPlaceholderURL,
			DeploymentName: identifier,
			Preview:        true,
		}, nil
	}

	creds, err := r.client.ClaimPreviewDeployment(ctx, opts.Selection, identifier)
	if err != nil {
		return nil, err
	}

	url := creds.URL
	if opts.URLOverride != "" {
		url = opts.URLOverride
	}
	return &Target{
		Key:            adminkey.Parse(creds.AdminKey),
		URL:            url,
		DeploymentName: creds.DeploymentName,
		Preview:        true,
	}, nil
}

// resolveProd fetches production credentials and, when the locally
// configured dev deployment differs from the prod target, asks for
// confirmation before proceeding.
func (r *Resolver) resolveProd(ctx context.Context, key adminkey.Key, opts Options) (*Target, error) {
	if opts.PreviewCreate != "" {
		return nil, errors.New(errors.ErrConfig,
			"--preview-create is no longer supported",
			"Pass --preview-name instead")
	}
	if opts.PreviewName != "" {
		return nil, errors.New(errors.ErrConfig,
			"--preview-name is only supported with preview deploy keys",
			"Remove --preview-name or deploy with a preview key")
	}

	creds, err := r.client.ProdDeploymentCredentials(ctx, opts.Selection)
	if err != nil {
		return nil, err
	}

	prodName := creds.DeploymentName
	if prodName == "" {
		// Fall back to the name embedded in the resolved key.
		prodName, err = adminkey.Parse(creds.AdminKey).DeploymentNameOrErr()
		if err != nil {
			return nil, err
		}
	}

	devName := configuredDevDeployment()
	if devName == "" {
		devName = creds.DevDeploymentName
	}

	if devName != "" && devName != prodName && !opts.Yes {
		prompt := fmt.Sprintf(
			"Your local configuration targets %q but this will deploy to production deployment %q. Continue?",
			devName, prodName)
		confirmed, err := r.confirm(prompt)
		if err != nil {
			return nil, err
		}
		if !confirmed {
			fmt.Println("Aborted.")
			return nil, errors.NewExitError(1)
		}
	}

	url := creds.URL
	if opts.URLOverride != "" {
		url = opts.URLOverride
	}
	return &Target{
		Key:            adminkey.Parse(creds.AdminKey),
		URL:            url,
		DeploymentName: prodName,
	}, nil
}

// configuredDevDeployment reads the locally configured deployment name from
// the CONVEX_DEPLOYMENT env var (mirrored from .env.local).
func configuredDevDeployment() string {
	value := os.Getenv(envfile.DeploymentEnvVarName)
	if value == "" {
		return ""
	}
	return adminkey.StripDeploymentTypePrefix(value)
}

// interactiveConfirm prompts on the terminal. Outside a terminal there is
// nobody to answer, so the caller must pre-confirm with --yes.
func interactiveConfirm(prompt string) (bool, error) {
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return false, errors.New(errors.ErrConfig,
			"Cannot ask for confirmation in a non-interactive context",
			"Pass --yes to confirm deploying to production")
	}

	var confirmed bool
	form := huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(prompt).
				Value(&confirmed),
		),
	)
	if err := form.Run(); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to get user input",
			"Pass --yes to skip the confirmation prompt")
	}
	return confirmed, nil
}
