package testutil

import "testing"

// Given, When, and Then name subtests after lifecycle phases, which reads
// well for the multi-step deletion scenarios. The real BDD suite lives in
// e2e/; these are just labels.

func Given(t *testing.T, desc string, fn func(t *testing.T)) { phase(t, "Given", desc, fn) }
func When(t *testing.T, desc string, fn func(t *testing.T))  { phase(t, "When", desc, fn) }
func Then(t *testing.T, desc string, fn func(t *testing.T))  { phase(t, "Then", desc, fn) }

func phase(t *testing.T, prefix, desc string, fn func(t *testing.T)) {
	t.Helper()
	t.Run(prefix+" "+desc, fn)
}
