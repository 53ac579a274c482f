package cli

// This file contains argument processing utilities for commands that pass
// arguments through to go test.

// removeFirstDashDash drops a leading "--" separator.
func removeFirstDashDash(in []string) []string {
	if len(in) > 0 && in[0] == "--" {
		return in[1:]
	}
	return in
}
