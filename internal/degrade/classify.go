package degrade

import "strings"

// PathClass is the admission category of a request path while degraded.
type PathClass string

const (
	// ClassCritical paths are always attempted regardless of degradation.
	ClassCritical PathClass = "critical"
	// ClassDeferrable paths are rejected with retry guidance while degraded.
	ClassDeferrable PathClass = "deferrable"
	// ClassUngated paths bypass the gate entirely, used for health probes.
	ClassUngated PathClass = "ungated"
)

var criticalSuffixes = []string{
	"/transactions/validate",
	"/compliance-status",
	"/warehouse/operations/validate",
}

var deferrableSegments = []string{
	"/reports/",
	"/dashboard/",
	"/inspections/",
}

var ungatedPaths = map[string]struct{}{
	"/health/live":  {},
	"/health/ready": {},
	"/metrics":      {},
}

// Classify maps a request path to its admission category. Paths matching
// neither list default to critical: attempting a request under degradation
// is safer than silently dropping it.
func Classify(path string) PathClass {
	if _, ok := ungatedPaths[path]; ok {
		return ClassUngated
	}
	for _, suffix := range criticalSuffixes {
		if strings.HasSuffix(path, suffix) {
			return ClassCritical
		}
	}
	// Deferrable segments match anywhere in the path, including as the
	// trailing segment.
	trailing := path
	if !strings.HasSuffix(trailing, "/") {
		trailing += "/"
	}
	for _, segment := range deferrableSegments {
		if strings.Contains(trailing, segment) {
			return ClassDeferrable
		}
	}
	return ClassCritical
}
