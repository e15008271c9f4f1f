// Package exitcodes defines the exit codes used by op-lgtm.
package exitcodes

// Exit code constants used by op-lgtm:
//
// * Success (0): report data was found and processed, whatever the backends answered
// * NoData (1): none of the report locations existed
// * RuntimeErr (2): configuration errors, malformed reports or panics
const (
	Success    = 0 // Data processed
	NoData     = 1 // No report found
	RuntimeErr = 2 // Runtime errors
)
