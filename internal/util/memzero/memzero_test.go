package memzero_test

import (
	"bytes"
	"testing"

	"synapse/internal/util/memzero"
)

func TestZero(t *testing.T) {
	a := []byte{1, 2, 3}
	b := []byte{4, 5}
	memzero.Zero(a, nil, b)
	if !bytes.Equal(a, []byte{0, 0, 0}) || !bytes.Equal(b, []byte{0, 0}) {
		t.Fatalf("buffers not wiped: %v %v", a, b)
	}
}
