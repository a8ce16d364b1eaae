// Package envfile makes minimal, idempotent edits to the project's
// .env.local and .gitignore files. Edits are line-oriented: content is
// parsed into lines, the target line is located and replaced or appended,
// and the file is reserialized. Surrounding content is never rewritten.
package envfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/get-convex/deployctl/internal/errors"
	"github.com/get-convex/deployctl/internal/logger"
	"github.com/joho/godotenv"
)

const (
	// EnvFileName is the dotenv file holding local deployment identity.
	EnvFileName = ".env.local"

	// DeploymentEnvVarName is the variable persisted into EnvFileName.
	DeploymentEnvVarName = "CONVEX_DEPLOYMENT"

	// deploymentComment precedes the variable line on insert.
	deploymentComment = "# Deployment used by `deployctl`"
)

// DeploymentOptions identifies the deployment being persisted.
type DeploymentOptions struct {
	Team           string
	Project        string
	DeploymentName string
}

// ChangesToEnvVarFile computes the new env file content for recording the
// deployment, or nil when the file already records it (idempotent no-op).
// existing is nil when the file does not exist.
func ChangesToEnvVarFile(existing *string, deploymentType string, opts DeploymentOptions) *string {
	value := deploymentType + ":" + opts.DeploymentName

	varLine := DeploymentEnvVarName + "=" + value +
		" # team: " + opts.Team + " project: " + opts.Project

	if existing == nil {
		content := deploymentComment + "\n" + varLine + "\n"
		return &content
	}

	if current, ok := currentValue(*existing); ok && current == value {
		return nil
	}

	lines := strings.Split(*existing, "\n")
	for i, line := range lines {
		if !isDeploymentLine(line) {
			continue
		}
		// Replace in place, adding the explanatory comment above the
		// variable if it is not already there.
		lines[i] = varLine
		if i == 0 || strings.TrimSpace(lines[i-1]) != deploymentComment {
			lines = append(lines[:i], append([]string{deploymentComment}, lines[i:]...)...)
		}
		content := strings.Join(lines, "\n")
		return &content
	}

	// Variable absent: append, preserving all existing content.
	content := *existing
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += deploymentComment + "\n" + varLine + "\n"
	return &content
}

// WriteDeploymentEnvVar persists the deployment identity into .env.local
// under dir, writing only when content changes. The process environment is
// updated immediately since dotenv loaders do not re-read files after first
// load. On the first write (no pre-existing file or entry) the .gitignore
// guard is also applied; the return value reports whether .gitignore was
// modified, for caller notification.
func WriteDeploymentEnvVar(log logger.Logger, dir, deploymentType string, opts DeploymentOptions) (bool, error) {
	path := filepath.Join(dir, EnvFileName)

	existing, err := readIfExists(path)
	if err != nil {
		return false, err
	}

	changes := ChangesToEnvVarFile(existing, deploymentType, opts)
	if changes == nil {
		log.Debug("%s already records %s:%s", EnvFileName, deploymentType, opts.DeploymentName)
		return false, nil
	}

	firstWrite := existing == nil
	if existing != nil {
		_, hadEntry := currentValue(*existing)
		firstWrite = !hadEntry
	}

	if err := os.WriteFile(path, []byte(*changes), 0644); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+EnvFileName,
			"Check directory permissions")
	}

	value := deploymentType + ":" + opts.DeploymentName
	if err := os.Setenv(DeploymentEnvVarName, value); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to update the process environment", "")
	}
	log.Debug("wrote %s=%s to %s", DeploymentEnvVarName, value, path)

	if !firstWrite {
		return false, nil
	}
	return updateGitIgnore(log, dir)
}

// LoadEnvFile loads .env.local under dir into the process environment so a
// fresh invocation sees the identity persisted by an earlier one. Variables
// already set in the environment keep their values; a missing file is not an
// error.
func LoadEnvFile(log logger.Logger, dir string) error {
	path := filepath.Join(dir, EnvFileName)

	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Cannot access "+EnvFileName,
			"Check file permissions")
	}

	if err := godotenv.Load(path); err != nil {
		return errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to load "+EnvFileName,
			"Check the file for malformed lines")
	}
	log.Debug("loaded %s", path)
	return nil
}

// EraseDeploymentEnvVar removes the deployment variable line from .env.local
// under dir. Returns false without error when the file or the variable is
// absent.
func EraseDeploymentEnvVar(log logger.Logger, dir string) (bool, error) {
	path := filepath.Join(dir, EnvFileName)

	existing, err := readIfExists(path)
	if err != nil || existing == nil {
		return false, err
	}

	lines := strings.Split(*existing, "\n")
	kept := lines[:0]
	removed := false
	for _, line := range lines {
		if isDeploymentLine(line) {
			removed = true
			continue
		}
		kept = append(kept, line)
	}
	if !removed {
		return false, nil
	}

	content := strings.Join(kept, "\n")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+EnvFileName,
			"Check directory permissions")
	}
	log.Debug("removed %s from %s", DeploymentEnvVarName, path)
	return true, nil
}

// currentValue extracts the recorded deployment value from env file content.
func currentValue(content string) (string, bool) {
	vars, err := godotenv.Unmarshal(content)
	if err != nil {
		// Unparseable content is treated as not recording the variable;
		// the line editor still replaces any matching assignment line.
		return "", false
	}
	value, ok := vars[DeploymentEnvVarName]
	return value, ok
}

// isDeploymentLine reports whether a line assigns the deployment variable.
func isDeploymentLine(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), DeploymentEnvVarName+"=")
}

// readIfExists returns the file content, or nil when the file is absent.
func readIfExists(path string) (*string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to read "+filepath.Base(path),
			"Check file permissions")
	}
	content := string(data)
	return &content, nil
}
