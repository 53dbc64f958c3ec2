package versions

import "github.com/Masterminds/semver/v3"

// IsNewerVersion reports whether candidate is strictly newer than current.
// Non-semver strings, such as dev build names, compare lexically.
func IsNewerVersion(candidate, current string) bool {
	c, errCandidate := semver.NewVersion(candidate)
	cur, errCurrent := semver.NewVersion(current)
	if errCandidate != nil || errCurrent != nil {
		return candidate > current
	}
	return c.GreaterThan(cur)
}

// WrittenByNewer reports whether a file stamped with version was produced by
// a newer pushd than the running one. Unstamped files never are.
func WrittenByNewer(version string) bool {
	if version == "" {
		return false
	}
	return IsNewerVersion(version, GetVersionInfo().Version)
}
