package udpcam

import "bytes"

var (
	jpegHeader = []byte{0xFF, 0xD8}
	jpegFooter = []byte{0xFF, 0xD9}
)

// Assembler rebuilds JPEG frames from datagrams, one buffer per camera. A
// datagram starting with the JPEG header begins a new frame; one ending with
// the footer completes it. Not safe for concurrent use.
type Assembler struct {
	maxFrame int
	buffers  map[string]*bytes.Buffer
}

// NewAssembler creates an Assembler that discards frames growing beyond
// maxFrame bytes, which happens when a footer datagram is lost.
func NewAssembler(maxFrame int) *Assembler {
	return &Assembler{maxFrame: maxFrame, buffers: make(map[string]*bytes.Buffer)}
}

// Push adds one datagram from camera and returns the completed frame, if any.
// The returned slice is owned by the caller.
func (a *Assembler) Push(camera string, data []byte) ([]byte, bool) {
	buf, ok := a.buffers[camera]
	if !ok {
		buf = new(bytes.Buffer)
		a.buffers[camera] = buf
	}

	if bytes.HasPrefix(data, jpegHeader) {
		buf.Reset()
	} else if buf.Len() == 0 {
		// Mid-frame datagram with no header seen yet.
		return nil, false
	}
	buf.Write(data)

	if a.maxFrame > 0 && buf.Len() > a.maxFrame {
		buf.Reset()
		return nil, false
	}

	if !bytes.HasSuffix(data, jpegFooter) {
		return nil, false
	}
	frame := make([]byte, buf.Len())
	copy(frame, buf.Bytes())
	buf.Reset()
	return frame, true
}
