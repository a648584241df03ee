package ethercat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewProcessImageEnforcesMinimumSize(t *testing.T) {
	img := NewProcessImage(10)
	assert.Equal(t, IOMAP_MIN, img.Size())
}

func TestNewProcessImageHonorsLargerRequirement(t *testing.T) {
	img := NewProcessImage(IOMAP_MIN * 2)
	assert.Equal(t, IOMAP_MIN*2, img.Size())
}

func TestProcessImageWriteThenReadRoundTrips(t *testing.T) {
	img := NewProcessImage(0)
	w := Window{Offset: 4, Length: 4}
	err := img.Write(w, []byte{1, 2, 3, 4})
	assert.NoError(t, err)

	out, err := img.Read(w)
	assert.NoError(t, err)
	assert.Equal(t, []byte{1, 2, 3, 4}, out)
}

func TestProcessImageWriteOutOfBoundsFails(t *testing.T) {
	img := NewProcessImage(0)
	w := Window{Offset: img.Size() - 2, Length: 4}
	err := img.Write(w, []byte{1, 2, 3, 4})
	assert.Error(t, err)
}

func TestProcessImageWriteWrongLengthFails(t *testing.T) {
	img := NewProcessImage(0)
	w := Window{Offset: 0, Length: 4}
	err := img.Write(w, []byte{1, 2, 3})
	assert.Error(t, err)
}

func TestWindowOverlapDetection(t *testing.T) {
	a := Window{Offset: 0, Length: 4}
	b := Window{Offset: 2, Length: 4}
	c := Window{Offset: 4, Length: 4}
	assert.True(t, a.overlaps(b))
	assert.False(t, a.overlaps(c))
}

func TestProcessImageFreezeIsIdempotent(t *testing.T) {
	img := NewProcessImage(0)
	assert.False(t, img.Frozen())
	img.Freeze()
	img.Freeze()
	assert.True(t, img.Frozen())
}
