package deployment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// clearBuildEnv unsets every CI-related env var so tests start clean even
// when the suite itself runs in CI.
func clearBuildEnv(t *testing.T) {
	t.Helper()
	vars := []string{
		"VERCEL", "VERCEL_ENV", "VERCEL_GIT_COMMIT_REF",
		"NETLIFY", "CONTEXT", "HEAD",
		"GITHUB_HEAD_REF", "GITHUB_REF_NAME",
		"CF_PAGES_BRANCH",
	}
	for _, v := range vars {
		t.Setenv(v, "")
	}
}

func TestBranchFromBuildEnvironment(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		wantProvider string
		wantBranch   string
		wantOk       bool
	}{
		{
			name:         "vercel",
			env:          map[string]string{"VERCEL_GIT_COMMIT_REF": "feature-x"},
			wantProvider: "Vercel",
			wantBranch:   "feature-x",
			wantOk:       true,
		},
		{
			name:         "netlify",
			env:          map[string]string{"HEAD": "fix-bug"},
			wantProvider: "Netlify",
			wantBranch:   "fix-bug",
			wantOk:       true,
		},
		{
			name:         "github actions pull request",
			env:          map[string]string{"GITHUB_HEAD_REF": "pr-branch"},
			wantProvider: "GitHub Actions",
			wantBranch:   "pr-branch",
			wantOk:       true,
		},
		{
			name:         "github actions push falls back to ref name",
			env:          map[string]string{"GITHUB_REF_NAME": "main"},
			wantProvider: "GitHub Actions",
			wantBranch:   "main",
			wantOk:       true,
		},
		{
			name:         "cloudflare pages",
			env:          map[string]string{"CF_PAGES_BRANCH": "staging"},
			wantProvider: "Cloudflare Pages",
			wantBranch:   "staging",
			wantOk:       true,
		},
		{
			name:   "no provider detected",
			env:    map[string]string{},
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearBuildEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			provider, branch, ok := BranchFromBuildEnvironment()
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.wantProvider, provider)
				assert.Equal(t, tt.wantBranch, branch)
			}
		})
	}
}

func TestNonProductionBuildEnvironment(t *testing.T) {
	tests := []struct {
		name         string
		env          map[string]string
		wantProvider string
		wantOk       bool
	}{
		{
			name:         "vercel preview build",
			env:          map[string]string{"VERCEL": "1", "VERCEL_ENV": "preview"},
			wantProvider: "Vercel",
			wantOk:       true,
		},
		{
			name:   "vercel production build",
			env:    map[string]string{"VERCEL": "1", "VERCEL_ENV": "production"},
			wantOk: false,
		},
		{
			name:         "netlify deploy preview",
			env:          map[string]string{"NETLIFY": "true", "CONTEXT": "deploy-preview"},
			wantProvider: "Netlify",
			wantOk:       true,
		},
		{
			name:   "netlify production build",
			env:    map[string]string{"NETLIFY": "true", "CONTEXT": "production"},
			wantOk: false,
		},
		{
			name:   "no hosting provider",
			env:    map[string]string{},
			wantOk: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearBuildEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			provider, ok := NonProductionBuildEnvironment()
			assert.Equal(t, tt.wantOk, ok)
			if tt.wantOk {
				assert.Equal(t, tt.wantProvider, provider)
			}
		})
	}
}
