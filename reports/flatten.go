package reports

import (
	"iter"

	"github.com/ethereum-optimism/infra/op-lgtm/types"
)

// Flatten walks the suites depth-first in document order: a suite's own test cases
// are yielded before the test cases of its sub-suites. The sequence can be ranged
// over any number of times.
func Flatten(suites ...types.Suite) iter.Seq[types.TestCase] {
	return func(yield func(types.TestCase) bool) {
		for i := range suites {
			if !walkSuite(&suites[i], yield) {
				return
			}
		}
	}
}

// Cases flattens every root suite of doc
func Cases(doc *types.ReportDocument) iter.Seq[types.TestCase] {
	if doc == nil {
		return Flatten()
	}
	return Flatten(doc.RootSuites...)
}

// walkSuite returns false once yield asks to stop
func walkSuite(s *types.Suite, yield func(types.TestCase) bool) bool {
	for _, tc := range s.TestCases {
		if !yield(tc) {
			return false
		}
	}
	for i := range s.SubSuites {
		if !walkSuite(&s.SubSuites[i], yield) {
			return false
		}
	}
	return true
}
