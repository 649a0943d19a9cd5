// Package stream delivers captured frames to the collector as
// length-prefixed messages over one long-lived TCP connection.
package stream

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
)

// ErrFrameTooLarge is returned for frames above the configured limit or the
// 32-bit length field.
var ErrFrameTooLarge = errors.New("frame too large")

const headerSize = 4

// WriteFrame writes a big-endian uint32 length followed by frame. A
// maxSize of 0 only enforces the 32-bit limit.
func WriteFrame(w io.Writer, frame []byte, maxSize int) error {
	if err := checkSize(uint64(len(frame)), maxSize); err != nil {
		return err
	}

	var hdr [headerSize]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(frame)))

	bufs := net.Buffers{hdr[:], frame}
	if _, err := bufs.WriteTo(w); err != nil {
		return fmt.Errorf("write frame: %w", err)
	}
	return nil
}

// ReadFrame is the inverse of WriteFrame.
func ReadFrame(r io.Reader, maxSize int) ([]byte, error) {
	var hdr [headerSize]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, err
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if err := checkSize(uint64(n), maxSize); err != nil {
		return nil, err
	}

	frame := make([]byte, n)
	if _, err := io.ReadFull(r, frame); err != nil {
		return nil, fmt.Errorf("read frame body: %w", err)
	}
	return frame, nil
}

func checkSize(n uint64, maxSize int) error {
	if n > math.MaxUint32 || (maxSize > 0 && n > uint64(maxSize)) {
		return fmt.Errorf("%w: %d bytes", ErrFrameTooLarge, n)
	}
	return nil
}
