// Package domain contains core concepts of the chat system.
// This file defines the Frame, the length-prefixed unit written on the wire.
// No runtime or network logic should be added here.
package domain

import (
	errs "chat-relay/errors"
	"fmt"
	"io"
)

const (
	// HeaderLength is the size of the ASCII decimal length prefix.
	HeaderLength = 4
	// MaxBodyLength is the largest body a valid frame may carry.
	MaxBodyLength = 512
)

// Frame is HEADER || BODY where HEADER is 4 zero-padded ASCII digits
// holding len(BODY). A Frame may hold an invalid header, it must then be
// rejected by Decode before anything is forwarded.
type Frame struct {
	data []byte
}

// Encode builds a frame from a message body.
// Bodies longer than MaxBodyLength are silently clamped.
func Encode(body []byte) Frame {
	length := min(len(body), MaxBodyLength)
	data := make([]byte, HeaderLength+length)
	copy(data, fmt.Sprintf("%0*d", HeaderLength, length))
	copy(data[HeaderLength:], body[:length])
	return Frame{data: data}
}

// NewFrame wraps raw wire bytes without validating them.
func NewFrame(raw []byte) Frame {
	data := make([]byte, len(raw))
	copy(data, raw)
	return Frame{data: data}
}

// IsTruncated reports whether Encode would clamp the body.
func IsTruncated(body []byte) bool {
	return len(body) > MaxBodyLength
}

// DecodeHeader parses a 4 bytes header into a body length.
// Only ASCII digits are accepted: no sign, no spaces, no exponent.
func DecodeHeader(header []byte) (int, error) {
	if len(header) != HeaderLength {
		return 0, fmt.Errorf("%w: got %d", errs.ErrHeaderLength, len(header))
	}
	length := 0
	for _, b := range header {
		if b < '0' || b > '9' {
			return 0, fmt.Errorf("%w: %q", errs.ErrHeaderNotNumeric, header)
		}
		length = length*10 + int(b-'0')
	}
	if length > MaxBodyLength {
		return 0, fmt.Errorf("%w: %d", errs.ErrHeaderTooLarge, length)
	}
	return length, nil
}

// Header returns the raw header bytes, possibly shorter than HeaderLength.
func (f Frame) Header() []byte {
	return f.data[:min(len(f.data), HeaderLength)]
}

// Decode validates the frame header and checks the body is complete.
func (f Frame) Decode() (int, error) {
	length, err := DecodeHeader(f.Header())
	if err != nil {
		return 0, err
	}
	if len(f.data)-HeaderLength < length {
		return 0, fmt.Errorf("%w: want %d, got %d",
			errs.ErrFrameTruncated, length, len(f.data)-HeaderLength)
	}
	return length, nil
}

// Body returns bytes [4, 4+length) of a valid frame.
func (f Frame) Body() ([]byte, error) {
	length, err := f.Decode()
	if err != nil {
		return nil, err
	}
	return f.data[HeaderLength : HeaderLength+length], nil
}

// Bytes returns the wire form HEADER || BODY of a valid frame.
// Bytes after the body boundary are never transmitted.
func (f Frame) Bytes() ([]byte, error) {
	length, err := f.Decode()
	if err != nil {
		return nil, err
	}
	return f.data[:HeaderLength+length], nil
}

// ReadFrame reads exactly one frame from a stream.
func ReadFrame(r io.Reader) (Frame, error) {
	header := make([]byte, HeaderLength)
	if _, err := io.ReadFull(r, header); err != nil {
		return Frame{}, err
	}
	length, err := DecodeHeader(header)
	if err != nil {
		return Frame{}, err
	}
	data := make([]byte, HeaderLength+length)
	copy(data, header)
	if _, err := io.ReadFull(r, data[HeaderLength:]); err != nil {
		return Frame{}, err
	}
	return Frame{data: data}, nil
}
