package instance

import (
	"fmt"
	"regexp"
)

// NameRe and VersionRe are the intake-time validation patterns; no
// runtime call is made for a name or version that fails either.
var (
	NameRe    = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{0,30}[a-z0-9]$`)
	VersionRe = regexp.MustCompile(`^(latest|1\.\d{1,3}\.\d{1,3})$`)
)

// ValidName reports whether name is a valid instance name.
func ValidName(name string) bool { return NameRe.MatchString(name) }

// ValidVersion reports whether version is a valid engine version tag.
func ValidVersion(version string) bool { return VersionRe.MatchString(version) }

// ContainerName is the deterministic container name an instance lives
// under.
func ContainerName(name string) string { return "engine-" + name }

// VolumeName is the deterministic named volume an instance's data
// lives on.
func VolumeName(name string) string { return "engine-data-" + name }

// Subdomain is the DNS label an instance is addressable at, under the
// shared base domain.
func Subdomain(name, baseDomain string) string { return fmt.Sprintf("%s.%s", name, baseDomain) }

// URL is the public URL an instance is reachable at, under scheme
// ("https" unless SSL is disabled).
func URL(name, baseDomain, scheme string) string {
	return fmt.Sprintf("%s://%s/", scheme, Subdomain(name, baseDomain))
}
