// Package project reads the local project context: the convex.json project
// selection and the build-tool-specific name of the deployment URL variable.
package project

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/get-convex/deployctl/internal/errors"
	"github.com/spf13/viper"
)

// ConfigFileName is the project selection file at the project root.
const ConfigFileName = "convex.json"

// DefaultURLEnvVarName is used when no build tool is recognized.
const DefaultURLEnvVarName = "CONVEX_URL"

// Selection identifies the team/project pair this checkout belongs to.
type Selection struct {
	Team    string `mapstructure:"team"`
	Project string `mapstructure:"project"`
}

// LoadSelection reads the project selection from convex.json under dir.
func LoadSelection(dir string) (*Selection, error) {
	path := filepath.Join(dir, ConfigFileName)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.ErrConfig,
				ConfigFileName+" not found",
				"Run this command from your project root")
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot access "+ConfigFileName,
			"Check file permissions")
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")

	if err := v.ReadInConfig(); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read "+ConfigFileName,
			"Check the file is valid JSON")
	}

	sel := &Selection{}
	if err := v.Unmarshal(sel); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Invalid "+ConfigFileName+" format",
			"Check the JSON structure in "+path)
	}
	return sel, nil
}

// packageJSON is the subset of package.json used for build tool detection.
type packageJSON struct {
	Dependencies    map[string]string `json:"dependencies"`
	DevDependencies map[string]string `json:"devDependencies"`
}

// urlEnvVarByBuildTool maps a detected build tool dependency to the env var
// name its bundler exposes to client code. Order matters: the first match
// wins.
var urlEnvVarByBuildTool = []struct {
	Dependency string
	EnvVar     string
}{
	{"next", "NEXT_PUBLIC_CONVEX_URL"},
	{"vite", "VITE_CONVEX_URL"},
	{"react-scripts", "REACT_APP_CONVEX_URL"},
}

// SuggestedURLEnvVarName infers the deployment URL variable name from the
// surrounding project's build tool by inspecting package.json dependencies.
// Falls back to DefaultURLEnvVarName when nothing is recognized.
func SuggestedURLEnvVarName(dir string) string {
	data, err := os.ReadFile(filepath.Join(dir, "package.json"))
	if err != nil {
		return DefaultURLEnvVarName
	}

	var pkg packageJSON
	if err := json.Unmarshal(data, &pkg); err != nil {
		return DefaultURLEnvVarName
	}

	for _, tool := range urlEnvVarByBuildTool {
		if _, ok := pkg.Dependencies[tool.Dependency]; ok {
			return tool.EnvVar
		}
		if _, ok := pkg.DevDependencies[tool.Dependency]; ok {
			return tool.EnvVar
		}
	}
	return DefaultURLEnvVarName
}
