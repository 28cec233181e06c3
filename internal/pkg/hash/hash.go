package hash

// Hash produces and verifies deterministic digests.
type Hash interface {
	Hash(str string) ([]byte, error)
	Verify(hashed, str string) bool
}
