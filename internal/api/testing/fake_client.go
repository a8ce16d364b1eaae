// Package testing provides test doubles for the api package.
package testing

import (
	"context"
	"sync"

	"github.com/get-convex/deployctl/internal/api"
	"github.com/get-convex/deployctl/internal/project"
)

// ClaimCall records a call to ClaimPreviewDeployment.
type ClaimCall struct {
	Selection  project.Selection
	Identifier string
}

// RunCall records a call to RunDeployedFunction.
type RunCall struct {
	DeploymentURL string
	AdminKey      string
	FunctionName  string
}

// FakeClient simulates the provision API for testing.
// It records calls and returns configured results.
type FakeClient struct {
	mu sync.Mutex

	// Configured results
	PreviewCredentials *api.Credentials
	ProdCredentials    *api.ProdCredentials
	ClaimErr           error
	ProdErr            error
	RunErr             error

	// Call tracking
	ClaimCalls []ClaimCall
	ProdCalls  []project.Selection
	RunCalls   []RunCall
}

// NewFakeClient creates a fake client with plausible default credentials.
func NewFakeClient() *FakeClient {
	return &FakeClient{
		PreviewCredentials: &api.Credentials{
			AdminKey:       "preview:acme:storefront|previewsecret",
			URL:            "https://nimble-badger-123.convex.cloud",
			DeploymentName: "nimble-badger-123",
		},
		ProdCredentials: &api.ProdCredentials{
			Credentials: api.Credentials{
				AdminKey:       "prod:happy-animal-123|prodsecret",
				URL:            "https://happy-animal-123.convex.cloud",
				DeploymentName: "happy-animal-123",
			},
			DevDeploymentName: "tall-forest-456",
		},
	}
}

// ClaimPreviewDeployment records the call and returns configured credentials.
func (f *FakeClient) ClaimPreviewDeployment(_ context.Context, sel project.Selection, identifier string) (*api.Credentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ClaimCalls = append(f.ClaimCalls, ClaimCall{Selection: sel, Identifier: identifier})
	if f.ClaimErr != nil {
		return nil, f.ClaimErr
	}
	return f.PreviewCredentials, nil
}

// ProdDeploymentCredentials records the call and returns configured credentials.
func (f *FakeClient) ProdDeploymentCredentials(_ context.Context, sel project.Selection) (*api.ProdCredentials, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ProdCalls = append(f.ProdCalls, sel)
	if f.ProdErr != nil {
		return nil, f.ProdErr
	}
	return f.ProdCredentials, nil
}

// RunDeployedFunction records the call and returns the configured error.
func (f *FakeClient) RunDeployedFunction(_ context.Context, deploymentURL, adminKey, functionName string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.RunCalls = append(f.RunCalls, RunCall{
		DeploymentURL: deploymentURL,
		AdminKey:      adminKey,
		FunctionName:  functionName,
	})
	return f.RunErr
}

// NetworkCallCount returns the total number of remote calls made.
func (f *FakeClient) NetworkCallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.ClaimCalls) + len(f.ProdCalls) + len(f.RunCalls)
}

// Reset clears all recorded calls.
func (f *FakeClient) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ClaimCalls = nil
	f.ProdCalls = nil
	f.RunCalls = nil
}
