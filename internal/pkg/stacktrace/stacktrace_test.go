package stacktrace

import "testing"

const sampleStack = `goroutine 7 [running]:
runtime/debug.Stack()
	/usr/local/go/src/runtime/debug/stack.go:26 +0x5e
github.com/shandysiswandi/phonekey/internal/keyaccess/verification.(*Engine).Verify(...)
	/src/phonekey/internal/keyaccess/verification/engine.go:88 +0x1a
net/http.HandlerFunc.ServeHTTP(...)
	/usr/local/go/src/net/http/server.go:2220 +0x29
`

func TestInternalPaths(t *testing.T) {
	got := InternalPaths([]byte(sampleStack))

	if len(got) != 1 {
		t.Fatalf("InternalPaths() = %v, want one frame", got)
	}
	if got[0] != "internal/keyaccess/verification/engine.go:88" {
		t.Fatalf("InternalPaths()[0] = %q", got[0])
	}
}

func TestValueFallsBackToRawStack(t *testing.T) {
	raw := "goroutine 1 [running]:\nmain.main()\n\t/src/main.go:10 +0x1\n"

	if got, ok := Value([]byte(raw)).(string); !ok || got != raw {
		t.Fatalf("Value() = %v, want raw stack", Value([]byte(raw)))
	}
}
