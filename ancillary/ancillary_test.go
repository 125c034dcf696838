package ancillary

import "testing"

func TestMemoryStoreConformance(t *testing.T) {
	Conformance(t, NewMemoryStore())
}
