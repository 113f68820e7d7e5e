package rawobjectid

import (
	"testing"

	"golang.org/x/tools/go/analysis/analysistest"
)

// Test runs the rawobjectid Analyzer against test data using analysistest.
// Package a is expected to be flagged, package objectid is not.
func Test(t *testing.T) {
	analysistest.Run(t, analysistest.TestData(), Analyzer, "a", "objectid")
}
