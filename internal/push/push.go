// Package push sends bundled backend functions to a resolved deployment.
package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/get-convex/deployctl/internal/errors"
	"github.com/get-convex/deployctl/internal/logger"
	"github.com/get-convex/deployctl/internal/ui"
)

// FunctionsDirName is the project subdirectory holding backend functions.
const FunctionsDirName = "convex"

// TypecheckMode controls how type errors are treated during a push.
type TypecheckMode string

const (
	// TypecheckEnable fails the push on type errors.
	TypecheckEnable TypecheckMode = "enable"
	// TypecheckTry reports type errors but pushes anyway.
	TypecheckTry TypecheckMode = "try"
	// TypecheckDisable skips typechecking entirely.
	TypecheckDisable TypecheckMode = "disable"
)

// ParseTypecheckMode validates a --typecheck flag value.
func ParseTypecheckMode(value string) (TypecheckMode, error) {
	switch TypecheckMode(value) {
	case TypecheckEnable, TypecheckTry, TypecheckDisable:
		return TypecheckMode(value), nil
	}
	return "", errors.New(errors.ErrConfig,
		fmt.Sprintf("Invalid typecheck mode %q", value),
		"Valid values are enable, try, and disable")
}

// Options are the resolved parameters for one push. Constructed once per
// deploy and not mutated afterwards.
type Options struct {
	AdminKey       string
	URL            string
	DeploymentName string
	Dir            string // project root containing the functions directory

	Typecheck TypecheckMode
	Codegen   bool
	Verbose   bool
	DryRun    bool

	// DebugBundlePath, when set, dumps the push request to this directory
	// instead of relying on server-side logs.
	DebugBundlePath string
}

// Pusher sends function code to a deployment.
type Pusher interface {
	Push(ctx context.Context, opts Options) error
}

// module is one source file in the push request.
type module struct {
	Path   string `json:"path"`
	Source string `json:"source"`
}

// pushRequest is the wire payload for a config push.
type pushRequest struct {
	Functions []module `json:"functions"`
	Typecheck string   `json:"typecheck"`
	Codegen   bool     `json:"codegen"`
	DryRun    bool     `json:"dryRun"`
}

// httpPusher posts the bundled functions to the deployment URL.
type httpPusher struct {
	hc      *http.Client
	log     logger.Logger
	display *ui.PhaseDisplay
}

// NewPusher creates a Pusher narrating steps on display.
func NewPusher(log logger.Logger, display *ui.PhaseDisplay) Pusher {
	return &httpPusher{
		hc:      &http.Client{Timeout: 120 * time.Second},
		log:     log,
		display: display,
	}
}

// Push bundles the functions directory and sends it to the deployment.
// A dry run narrates the same steps but performs no network I/O.
func (p *httpPusher) Push(ctx context.Context, opts Options) error {
	modules, err := bundleFunctions(opts.Dir)
	if err != nil {
		return err
	}

	req := pushRequest{
		Functions: modules,
		Typecheck: string(opts.Typecheck),
		Codegen:   opts.Codegen,
		DryRun:    opts.DryRun,
	}

	if opts.DebugBundlePath != "" {
		if err := writeDebugBundle(opts.DebugBundlePath, req); err != nil {
			return err
		}
		p.log.Debug("wrote push request to %s", opts.DebugBundlePath)
	}

	p.display.RenderInfo(fmt.Sprintf("Deploying %d functions to %s", len(modules), opts.URL))

	if opts.DryRun {
		p.display.RenderSkipped("Push", "dry run")
		return nil
	}

	spinner := ui.NewSpinner("Pushing functions")
	spinner.Start()
	if err := p.post(ctx, opts, req); err != nil {
		spinner.Fail()
		return err
	}
	spinner.Success()
	return nil
}

func (p *httpPusher) post(ctx context.Context, opts Options, req pushRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrDeploy, "Failed to encode push request", "")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		opts.URL+"/api/push_config", bytes.NewReader(body))
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrDeploy, "Failed to build push request", "")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Convex "+opts.AdminKey)

	resp, err := p.hc.Do(httpReq)
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrDeploy,
			"Failed to push functions to "+opts.URL,
			"Check your network connection and deployment URL")
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return errors.New(errors.ErrDeploy,
			fmt.Sprintf("Push to %s failed with status %d: %s",
				opts.URL, resp.StatusCode, bytes.TrimSpace(detail)),
			"Check the deployment logs on the dashboard")
	}
	return nil
}

// bundleFunctions collects the source files under dir/convex. Bundling
// proper (transpilation, tree shaking) happens server-side.
func bundleFunctions(dir string) ([]module, error) {
	root := filepath.Join(dir, FunctionsDirName)
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.New(errors.ErrDeploy,
			fmt.Sprintf("No %s/ directory found in %s", FunctionsDirName, dir),
			"Run this command from your project root")
	}

	var modules []module
	err = filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			// Generated code is recreated by the push itself.
			if d.Name() == "_generated" || d.Name() == "node_modules" {
				return filepath.SkipDir
			}
			return nil
		}
		switch filepath.Ext(path) {
		case ".ts", ".tsx", ".js", ".jsx":
		default:
			return nil
		}
		source, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		modules = append(modules, module{Path: filepath.ToSlash(rel), Source: string(source)})
		return nil
	})
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrDeploy,
			"Failed to read the functions directory", "")
	}
	return modules, nil
}

// writeDebugBundle dumps the push request as JSON for offline inspection.
func writeDebugBundle(dir string, req pushRequest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.WrapWithCode(err, errors.ErrDeploy,
			"Failed to create debug bundle directory "+dir, "")
	}
	data, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return errors.WrapWithCode(err, errors.ErrDeploy,
			"Failed to encode debug bundle", "")
	}
	path := filepath.Join(dir, "push_request.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return errors.WrapWithCode(err, errors.ErrDeploy,
			"Failed to write debug bundle to "+path, "")
	}
	return nil
}
