package bluegreen

import (
	"fmt"
	"strings"

	"lcdp.dev/bluegreen/internal/utils"
)

// DefaultRepositoryPrefix is stripped from repository names to obtain the
// logical service name.
const DefaultRepositoryPrefix = "lcdp-"

// NamingScheme maps repositories and colors to ECS service names.
type NamingScheme interface {
	// BelongsTo reports whether the service identified by serviceID is part
	// of the color's environment.
	BelongsTo(serviceID string, color Color) bool
	// ExpectedSuffix returns the substring a service of repo must contain
	// in the color's environment.
	ExpectedSuffix(repo string, color Color) string
}

// WorkspaceNaming names services [<prefix>]<workspace>-<logical>-service-<color>.
type WorkspaceNaming struct {
	Workspace        string
	RepositoryPrefix string
}

// BelongsTo requires the workspace right after the optional repository
// prefix, so workspace verde does not claim preverde or alpha-verde.
func (n WorkspaceNaming) BelongsTo(serviceID string, color Color) bool {
	name := strings.ToLower(utils.ShortName(serviceID))
	if !strings.HasSuffix(name, "-service-"+color.Lower()) {
		return false
	}
	name = strings.TrimPrefix(name, strings.ToLower(n.prefix()))
	return strings.HasPrefix(name, strings.ToLower(n.Workspace)+"-")
}

func (n WorkspaceNaming) ExpectedSuffix(repo string, color Color) string {
	logical := strings.TrimPrefix(strings.ToLower(repo), strings.ToLower(n.prefix()))
	return fmt.Sprintf("%s-%s-service-%s", strings.ToLower(n.Workspace), logical, color.Lower())
}

func (n WorkspaceNaming) prefix() string {
	if n.RepositoryPrefix == "" {
		return DefaultRepositoryPrefix
	}
	return n.RepositoryPrefix
}

// LegacyNaming names services <repo>-<color>.
type LegacyNaming struct{}

func (LegacyNaming) BelongsTo(serviceID string, color Color) bool {
	return strings.HasSuffix(strings.ToLower(utils.ShortName(serviceID)), "-"+color.Lower())
}

func (LegacyNaming) ExpectedSuffix(repo string, color Color) string {
	return strings.ToLower(repo) + "-" + color.Lower()
}

// matchesAny reports whether serviceID contains one of suffixes, ignoring case.
func matchesAny(serviceID string, suffixes []string) bool {
	id := strings.ToLower(serviceID)
	for _, s := range suffixes {
		if strings.Contains(id, strings.ToLower(s)) {
			return true
		}
	}
	return false
}
