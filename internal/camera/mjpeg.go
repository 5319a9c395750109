package camera

import (
	"bytes"
	"errors"
	"fmt"
	"io"
)

var (
	jpegSOI = []byte{0xFF, 0xD8}
	jpegEOI = []byte{0xFF, 0xD9}
)

const (
	readChunkSize = 32 * 1024
	maxFrameSize  = 8 << 20
)

// SplitJPEG reads a concatenated JPEG stream and calls emit with a copy of
// every complete image. Bytes outside SOI/EOI pairs are discarded. io.EOF
// ends the stream cleanly.
func SplitJPEG(r io.Reader, emit func([]byte)) error {
	buf := make([]byte, 0, readChunkSize*2)
	chunk := make([]byte, readChunkSize)

	for {
		n, err := r.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
			buf = drainFrames(buf, emit)
			if len(buf) > maxFrameSize {
				return fmt.Errorf("jpeg frame exceeds %d bytes without end marker", maxFrameSize)
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read mjpeg stream: %w", err)
		}
	}
}

// drainFrames emits every complete frame in buf and returns the remainder,
// trimmed to start at the next SOI.
func drainFrames(buf []byte, emit func([]byte)) []byte {
	for {
		start := bytes.Index(buf, jpegSOI)
		if start < 0 {
			// Keep a trailing 0xFF in case it begins the next SOI.
			if len(buf) > 0 && buf[len(buf)-1] == 0xFF {
				return append(buf[:0], 0xFF)
			}
			return buf[:0]
		}
		if start > 0 {
			buf = append(buf[:0], buf[start:]...)
		}

		end := bytes.Index(buf[len(jpegSOI):], jpegEOI)
		if end < 0 {
			return buf
		}
		end += len(jpegSOI) + len(jpegEOI)

		frame := make([]byte, end)
		copy(frame, buf[:end])
		emit(frame)
		buf = append(buf[:0], buf[end:]...)
	}
}
