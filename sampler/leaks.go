package sampler

import "sort"

// Reporter is the logging surface ReportLeaks needs. *trace.Logger
// satisfies it.
type Reporter interface {
	Printf(format string, args ...interface{})
}

// ReportLeaks walks extents and, if any scope has a nonzero total,
// writes the leak report produced during teardown:
//
//	Unfreed memory:
//	  <scope> - <bytes>
//	  ...
//
// one line per leaking scope, sorted by name for a deterministic report.
// It returns whether any leak was found.
func ReportLeaks(extents map[string]uint64, r Reporter) bool {
	var leaking []string
	for scope, total := range extents {
		if total != 0 {
			leaking = append(leaking, scope)
		}
	}
	if len(leaking) == 0 {
		return false
	}
	sort.Strings(leaking)

	r.Printf("Unfreed memory:\n")
	for _, scope := range leaking {
		r.Printf("  %s - %d\n", scope, extents[scope])
	}
	return true
}
