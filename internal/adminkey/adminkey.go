// Package adminkey parses deploy/admin key strings at the process boundary.
// Keys carry embedded structure: an optional "<type>:" prefix, and for
// production keys a "<deployment-name>|" prefix on the secret part. Parsing
// happens once, into a tagged Key, instead of ad hoc splitting at call sites.
package adminkey

import (
	"strings"

	"github.com/get-convex/deployctl/internal/errors"
)

// DeploymentType classifies the deployment a key is scoped to.
type DeploymentType string

const (
	TypeProd    DeploymentType = "prod"
	TypePreview DeploymentType = "preview"
	TypeDev     DeploymentType = "dev"
)

// Key is a parsed admin key. The raw string is kept verbatim for the API;
// Type and the embedded deployment name are extracted once at parse time.
type Key struct {
	Raw  string
	Type DeploymentType

	name string
}

// Parse decodes the structured admin-key format.
// A key with no ':' separator is implicitly a production key.
// Only production keys embed a deployment name: the last ':'-delimited
// segment of the portion before the first '|'.
func Parse(raw string) Key {
	key := Key{Raw: raw, Type: TypeProd}

	if idx := strings.Index(raw, ":"); idx >= 0 {
		key.Type = DeploymentType(raw[:idx])
	}

	if key.Type != TypeProd {
		return key
	}

	pipe := strings.Index(raw, "|")
	if pipe < 0 {
		// Key carries no embedded name.
		return key
	}

	prefix := raw[:pipe]
	segments := strings.Split(prefix, ":")
	key.name = segments[len(segments)-1]
	return key
}

// DeploymentName returns the deployment name embedded in a production key.
// The second return is false for non-production keys and for keys minted
// without a name.
func (k Key) DeploymentName() (string, bool) {
	if k.name == "" {
		return "", false
	}
	return k.name, true
}

// DeploymentNameOrErr returns the embedded deployment name or a fatal
// configuration error. The operation cannot proceed without the deployment
// identity, so callers surface this error and terminate.
func (k Key) DeploymentNameOrErr() (string, error) {
	name, ok := k.DeploymentName()
	if !ok {
		return "", errors.New(errors.ErrConfig,
			"Deploy key does not name a deployment",
			"Generate a new deploy key from the dashboard and set CONVEX_DEPLOY_KEY to it")
	}
	return name, nil
}

// StripDeploymentTypePrefix removes the "<type>:" prefix from a value,
// returning the substring after the last ':' (or the whole string when no
// ':' is present). Used both for admin keys and for the CONVEX_DEPLOYMENT
// env var format ("dev:my-app-1234" -> "my-app-1234").
func StripDeploymentTypePrefix(value string) string {
	if idx := strings.LastIndex(value, ":"); idx >= 0 {
		return value[idx+1:]
	}
	return value
}
