package envfile

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/get-convex/deployctl/internal/errors"
	"github.com/get-convex/deployctl/internal/logger"
)

// GitIgnoreFileName is the ignore file guarded alongside .env.local.
const GitIgnoreFileName = ".gitignore"

// acceptedIgnorePatterns are the patterns considered to already cover
// .env.local. A file containing any of them is never rewritten.
var acceptedIgnorePatterns = []string{
	".env.local",
	".env.*",
	".env*",
	"*.local",
	".env*.local",
}

// ChangesToGitIgnore computes new .gitignore content guaranteeing that
// .env.local is ignored, or nil when an accepted pattern already covers it.
// existing is nil when no .gitignore exists; the new file then contains
// exactly the tracked file's relative path.
func ChangesToGitIgnore(existing *string) *string {
	if existing == nil {
		content := EnvFileName + "\n"
		return &content
	}

	for _, line := range strings.Split(*existing, "\n") {
		pattern := strings.TrimSpace(line)
		pattern = strings.TrimPrefix(pattern, "/")
		for _, accepted := range acceptedIgnorePatterns {
			if pattern == accepted {
				return nil
			}
		}
	}

	content := *existing
	if content != "" && !strings.HasSuffix(content, "\n") {
		content += "\n"
	}
	content += EnvFileName + "\n"
	return &content
}

// updateGitIgnore applies ChangesToGitIgnore to the .gitignore under dir.
// Returns whether the file was modified.
func updateGitIgnore(log logger.Logger, dir string) (bool, error) {
	path := filepath.Join(dir, GitIgnoreFileName)

	existing, err := readIfExists(path)
	if err != nil {
		return false, err
	}

	changes := ChangesToGitIgnore(existing)
	if changes == nil {
		return false, nil
	}

	if err := os.WriteFile(path, []byte(*changes), 0644); err != nil {
		return false, errors.WrapWithCode(err, errors.ErrConfig,
			"Failed to write "+GitIgnoreFileName,
			"Check directory permissions")
	}
	log.Debug("added %s to %s", EnvFileName, path)
	return true, nil
}
