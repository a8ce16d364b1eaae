// Package api talks to the provision service. It is a thin JSON-over-HTTP
// wrapper: deployment resolution logic lives in the deployment package, and
// this client only moves requests and responses across the wire.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/get-convex/deployctl/internal/errors"
	"github.com/get-convex/deployctl/internal/logger"
	"github.com/get-convex/deployctl/internal/project"
)

const (
	// DefaultProvisionHost serves deployment provisioning and credentials.
	DefaultProvisionHost = "https://api.convex.dev"

	// ProvisionHostEnvVarName overrides the provision host, for self-hosted
	// and staging setups.
	ProvisionHostEnvVarName = "CONVEX_PROVISION_HOST"
)

// Credentials are freshly minted deployment credentials.
type Credentials struct {
	AdminKey       string `json:"adminKey"`
	URL            string `json:"url"`
	DeploymentName string `json:"deploymentName"`
}

// ProdCredentials extend Credentials with the name of the locally
// configured dev deployment within the same project, used for the
// prod-confirmation check.
type ProdCredentials struct {
	Credentials
	DevDeploymentName string `json:"devDeploymentName"`
}

// Client is the remote API collaborator for deployment resolution.
type Client interface {
	// ClaimPreviewDeployment mints credentials for the preview deployment
	// with the given identifier, creating the deployment if needed.
	ClaimPreviewDeployment(ctx context.Context, sel project.Selection, identifier string) (*Credentials, error)

	// ProdDeploymentCredentials resolves credentials for the production
	// deployment within the selected project.
	ProdDeploymentCredentials(ctx context.Context, sel project.Selection) (*ProdCredentials, error)

	// RunDeployedFunction invokes a function on a deployment after a push.
	RunDeployedFunction(ctx context.Context, deploymentURL, adminKey, functionName string) error
}

// httpClient implements Client against the provision host.
type httpClient struct {
	host      string
	deployKey string
	client    *http.Client
	log       logger.Logger
}

// NewClient creates a Client authenticating with the given deploy key.
// The provision host can be overridden via CONVEX_PROVISION_HOST.
func NewClient(deployKey string, log logger.Logger) Client {
	host := os.Getenv(ProvisionHostEnvVarName)
	if host == "" {
		host = DefaultProvisionHost
	}
	return &httpClient{
		host:      host,
		deployKey: deployKey,
		client:    &http.Client{Timeout: 60 * time.Second},
		log:       log,
	}
}

func (c *httpClient) ClaimPreviewDeployment(ctx context.Context, sel project.Selection, identifier string) (*Credentials, error) {
	req := map[string]string{
		"team":       sel.Team,
		"project":    sel.Project,
		"identifier": identifier,
	}
	creds := &Credentials{}
	if err := c.post(ctx, c.host+"/api/deployment/claim_preview", req, creds); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAPI,
			fmt.Sprintf("Could not claim preview deployment %q", identifier),
			"Check your deploy key and network connection")
	}
	return creds, nil
}

func (c *httpClient) ProdDeploymentCredentials(ctx context.Context, sel project.Selection) (*ProdCredentials, error) {
	req := map[string]string{
		"team":    sel.Team,
		"project": sel.Project,
	}
	creds := &ProdCredentials{}
	if err := c.post(ctx, c.host+"/api/deployment/authorize_prod", req, creds); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrAPI,
			"Could not fetch production deployment credentials",
			"Check your deploy key and network connection")
	}
	return creds, nil
}

func (c *httpClient) RunDeployedFunction(ctx context.Context, deploymentURL, adminKey, functionName string) error {
	req := map[string]interface{}{
		"path": functionName,
		"args": map[string]interface{}{},
	}
	if err := c.postWithKey(ctx, deploymentURL+"/api/run_function", adminKey, req, nil); err != nil {
		return errors.WrapWithCode(err, errors.ErrAPI,
			fmt.Sprintf("Running function %q failed", functionName),
			"Check the function exists on the deployment")
	}
	return nil
}

func (c *httpClient) post(ctx context.Context, url string, body, out interface{}) error {
	return c.postWithKey(ctx, url, c.deployKey, body, out)
}

func (c *httpClient) postWithKey(ctx context.Context, url, key string, body, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	c.log.Debug("POST %s", url)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Convex "+key)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%s returned %d: %s", url, resp.StatusCode, string(data))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
