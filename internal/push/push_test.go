package push

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/get-convex/deployctl/internal/errors"
	"github.com/get-convex/deployctl/internal/logger"
	"github.com/get-convex/deployctl/internal/ui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeProject lays out a minimal project with a functions directory.
func writeProject(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		path := filepath.Join(dir, FunctionsDirName, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return dir
}

func newTestPusher() (Pusher, *bytes.Buffer) {
	var buf bytes.Buffer
	return NewPusher(logger.Noop(), ui.NewPhaseDisplay(&buf)), &buf
}

func TestParseTypecheckMode(t *testing.T) {
	tests := []struct {
		value   string
		want    TypecheckMode
		wantErr bool
	}{
		{value: "enable", want: TypecheckEnable},
		{value: "try", want: TypecheckTry},
		{value: "disable", want: TypecheckDisable},
		{value: "on", wantErr: true},
		{value: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			got, err := ParseTypecheckMode(tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.IsCode(err, errors.ErrConfig))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPushSendsBundledFunctions(t *testing.T) {
	dir := writeProject(t, map[string]string{
		"messages.ts":            "export const list = query(...);",
		"lib/helpers.ts":         "export const shared = 1;",
		"_generated/api.d.ts":    "declare const api: any;",
		"notes.md":               "not code",
		"node_modules/dep/x.js":  "ignored",
	})

	var gotAuth string
	var gotReq pushRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/push_config", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotReq))
	}))
	defer server.Close()

	pusher, out := newTestPusher()
	err := pusher.Push(context.Background(), Options{
		AdminKey:  "adminkey",
		URL:       server.URL,
		Dir:       dir,
		Typecheck: TypecheckEnable,
		Codegen:   true,
	})
	require.NoError(t, err)

	assert.Equal(t, "Convex adminkey", gotAuth)
	assert.Equal(t, "enable", gotReq.Typecheck)
	assert.True(t, gotReq.Codegen)
	assert.False(t, gotReq.DryRun)

	paths := make([]string, 0, len(gotReq.Functions))
	for _, m := range gotReq.Functions {
		paths = append(paths, m.Path)
	}
	assert.ElementsMatch(t, []string{"messages.ts", "lib/helpers.ts"}, paths)
	assert.Contains(t, out.String(), "Deploying 2 functions")
}

func TestPushDryRunSkipsNetwork(t *testing.T) {
	dir := writeProject(t, map[string]string{"messages.ts": "export const list = 1;"})

	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
	}))
	defer server.Close()

	pusher, out := newTestPusher()
	err := pusher.Push(context.Background(), Options{
		AdminKey:  "adminkey",
		URL:       server.URL,
		Dir:       dir,
		Typecheck: TypecheckEnable,
		DryRun:    true,
	})
	require.NoError(t, err)
	assert.Equal(t, 0, calls)
	assert.Contains(t, out.String(), "Deploying 1 functions")
	assert.Contains(t, out.String(), "dry run")
}

func TestPushWritesDebugBundle(t *testing.T) {
	dir := writeProject(t, map[string]string{"messages.ts": "export const list = 1;"})
	bundleDir := filepath.Join(t.TempDir(), "bundle")

	pusher, _ := newTestPusher()
	err := pusher.Push(context.Background(), Options{
		AdminKey:        "adminkey",
		URL:             "https://nimble-badger-123.convex.cloud",
		Dir:             dir,
		Typecheck:       TypecheckTry,
		DryRun:          true,
		DebugBundlePath: bundleDir,
	})
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(bundleDir, "push_request.json"))
	require.NoError(t, err)

	var req pushRequest
	require.NoError(t, json.Unmarshal(data, &req))
	assert.Equal(t, "try", req.Typecheck)
	require.Len(t, req.Functions, 1)
	assert.Equal(t, "messages.ts", req.Functions[0].Path)
}

func TestPushMissingFunctionsDir(t *testing.T) {
	pusher, _ := newTestPusher()
	err := pusher.Push(context.Background(), Options{
		AdminKey: "adminkey",
		URL:      "https://nimble-badger-123.convex.cloud",
		Dir:      t.TempDir(),
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDeploy))
	assert.Contains(t, err.Error(), FunctionsDirName)
}

func TestPushServerErrorSurfacesDetail(t *testing.T) {
	dir := writeProject(t, map[string]string{"messages.ts": "export const list = 1;"})

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "schema validation failed", http.StatusBadRequest)
	}))
	defer server.Close()

	pusher, _ := newTestPusher()
	err := pusher.Push(context.Background(), Options{
		AdminKey:  "adminkey",
		URL:       server.URL,
		Dir:       dir,
		Typecheck: TypecheckEnable,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrDeploy))
	assert.Contains(t, err.Error(), "schema validation failed")
}
