// Package invariant holds the one assertion helper used to guard
// conditions the protocol promises will never happen in practice (a
// guest setting NACA, a nonzero group number reaching the executor).
// Violating one of these is a bug in the caller, not a reportable SCSI
// condition, so it panics rather than returning an error.
package invariant

import "fmt"

// Hold panics with the message formatted from format and args if cond
// is false. Named after the property it
// checks, not the code that checks it, so call sites read like
// documentation: invariant.Hold(req.Crn == 0, "nonzero CRN").
func Hold(cond bool, format string, args ...interface{}) {
	if !cond {
		panic(fmt.Sprintf(format, args...))
	}
}
