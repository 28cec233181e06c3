// Package stacktrace shortens panic stacks to the frames that belong to this
// module.
package stacktrace

import "strings"

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" entries found in a
// raw stack from runtime/debug.Stack.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.SplitSeq(string(stack), "\n") {
		line = strings.TrimSpace(line)

		idx := strings.Index(line, "/internal/")
		if idx == -1 || !strings.Contains(line, ".go:") {
			continue
		}

		line = line[idx+1:]
		if sp := strings.IndexByte(line, ' '); sp != -1 {
			line = line[:sp]
		}
		paths = append(paths, line)
	}
	return paths
}

// Value is suitable as a log attribute: the internal frames when there are
// any, otherwise the whole stack.
func Value(stack []byte) any {
	if paths := InternalPaths(stack); len(paths) > 0 {
		return paths
	}
	return string(stack)
}
