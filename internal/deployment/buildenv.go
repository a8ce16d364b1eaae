package deployment

import "os"

// CI provider detection is policy, not logic: each provider exposes the
// source-control branch and build context under its own env vars. Adding a
// provider means adding a table row.

// branchProvider names the env var a CI provider stores the branch name in.
type branchProvider struct {
	Provider string
	EnvVar   string
}

// branchProviders is checked in order; the first non-empty var wins.
var branchProviders = []branchProvider{
	{"Vercel", "VERCEL_GIT_COMMIT_REF"},
	{"Netlify", "HEAD"},
	{"GitHub Actions", "GITHUB_HEAD_REF"},
	{"GitHub Actions", "GITHUB_REF_NAME"},
	{"Cloudflare Pages", "CF_PAGES_BRANCH"},
}

// BranchFromBuildEnvironment infers the source-control branch from a
// recognized CI provider's environment. Returns the provider name, the
// branch, and whether anything was found.
func BranchFromBuildEnvironment() (provider, branch string, ok bool) {
	for _, p := range branchProviders {
		if value := os.Getenv(p.EnvVar); value != "" {
			return p.Provider, value, true
		}
	}
	return "", "", false
}

// nonProdIndicator describes how a hosting provider marks a non-production
// build stage: the provider is detected via DetectVar, and the build is
// production only when ContextVar equals ProdValue.
type nonProdIndicator struct {
	Provider   string
	DetectVar  string
	ContextVar string
	ProdValue  string
}

var nonProdIndicators = []nonProdIndicator{
	{"Vercel", "VERCEL", "VERCEL_ENV", "production"},
	{"Netlify", "NETLIFY", "CONTEXT", "production"},
}

// NonProductionBuildEnvironment reports whether the process is running
// inside a recognized non-production build stage (e.g. a preview build on a
// hosting provider), and which provider detected it.
func NonProductionBuildEnvironment() (provider string, ok bool) {
	for _, ind := range nonProdIndicators {
		if os.Getenv(ind.DetectVar) == "" {
			continue
		}
		if os.Getenv(ind.ContextVar) != ind.ProdValue {
			return ind.Provider, true
		}
	}
	return "", false
}
