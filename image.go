package ethercat

import "fmt"

// Window is a byte-addressable range inside a ProcessImage, identified by
// offset and length. Subdevices hold Windows as non-owning views; the
// Master exclusively owns the backing buffer (spec §3, "Ownership").
type Window struct {
	Offset int
	Length int
}

func (w Window) end() int {
	return w.Offset + w.Length
}

// overlaps reports whether two windows of the same direction share any byte.
func (w Window) overlaps(other Window) bool {
	return w.Offset < other.end() && other.Offset < w.end()
}

// ProcessImage is the single contiguous little-endian byte buffer (the
// IOMAP) holding every subdevice's PDOs for one cycle. Layout is frozen
// once the bus reaches SAFE-OP (spec §3, ProcessImage invariant).
//
// Direction separation (output vs input) is the sole synchronization
// mechanism: a given byte range is written by exactly one cyclic-thread
// caller and read by exactly one other, established once at link time and
// never revisited. ProcessImage itself holds no lock.
type ProcessImage struct {
	buf    []byte
	frozen bool
}

// NewProcessImage allocates a buffer of size max(requiredSize, IOMAP_MIN),
// per spec §3.
func NewProcessImage(requiredSize int) *ProcessImage {
	size := requiredSize
	if size < IOMAP_MIN {
		size = IOMAP_MIN
	}
	return &ProcessImage{buf: make([]byte, size)}
}

// Size returns the allocated buffer length.
func (img *ProcessImage) Size() int {
	return len(img.buf)
}

// Freeze marks the image layout as immutable. Called once SAFE-OP is
// reached. It only records the flag reported by Frozen; neither this type
// nor Subdevice.linkBuffers checks it, and window mutation after Freeze is
// not rejected.
func (img *ProcessImage) Freeze() {
	img.frozen = true
}

func (img *ProcessImage) Frozen() bool {
	return img.frozen
}

// contains reports whether w lies entirely inside the image.
func (img *ProcessImage) contains(w Window) bool {
	return w.Offset >= 0 && w.Length >= 0 && w.end() <= len(img.buf)
}

// Read returns a read-only copy of the bytes backing an input window.
func (img *ProcessImage) Read(w Window) ([]byte, error) {
	if !img.contains(w) {
		return nil, fmt.Errorf("window %+v out of bounds for image of size %d", w, len(img.buf))
	}
	out := make([]byte, w.Length)
	copy(out, img.buf[w.Offset:w.end()])
	return out, nil
}

// Write copies data into an output window. len(data) must equal w.Length.
func (img *ProcessImage) Write(w Window, data []byte) error {
	if !img.contains(w) {
		return fmt.Errorf("window %+v out of bounds for image of size %d", w, len(img.buf))
	}
	if len(data) != w.Length {
		return fmt.Errorf("window %+v expects %d bytes, got %d", w, w.Length, len(data))
	}
	copy(img.buf[w.Offset:w.end()], data)
	return nil
}

// Bytes exposes the whole backing buffer, e.g. to hand to a BusDriver's
// SendProcessData/ConfigMapGroup calls which need the raw DMA-addressable
// slice rather than a per-window copy.
func (img *ProcessImage) Bytes() []byte {
	return img.buf
}
