package domain

import (
	"bytes"
	errs "chat-relay/errors"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFrame_Encode_RoundTrip(t *testing.T) {
	req := require.New(t)
	bodies := [][]byte{
		{},
		[]byte("hello"),
		[]byte("Un été avec un badger"),
		bytes.Repeat([]byte{'x'}, MaxBodyLength),
		{0x00, 0xff, '\n', '0'},
	}

	for _, body := range bodies {
		// When a body is encoded then decoded
		frame := Encode(body)
		length, err := frame.Decode()
		req.NoError(err)
		decoded, err := frame.Body()
		req.NoError(err)

		// Then the body and its length are preserved
		req.Equal(len(body), length)
		req.Equal(body, decoded)
	}
}

func TestFrame_Encode_Header(t *testing.T) {
	req := require.New(t)

	frame := Encode([]byte("hello"))

	req.Equal([]byte("0005"), frame.Header())
	wire, err := frame.Bytes()
	req.NoError(err)
	req.Equal([]byte("0005hello"), wire)
	req.Equal([]byte("0000"), Encode(nil).Header())
}

func TestFrame_Encode_Truncates_Oversized_Body(t *testing.T) {
	req := require.New(t)
	body := []byte(strings.Repeat("a", MaxBodyLength) + strings.Repeat("b", 100))

	// Given a body longer than the maximum
	req.True(IsTruncated(body))

	// When it is encoded
	frame := Encode(body)

	// Then the body is clamped to the first 512 bytes
	decoded, err := frame.Body()
	req.NoError(err)
	req.Len(decoded, MaxBodyLength)
	req.Equal(body[:MaxBodyLength], decoded)
	req.Equal([]byte("0512"), frame.Header())
}

func TestDecodeHeader(t *testing.T) {
	tests := []struct {
		name     string
		header   string
		expected int
		err      error
	}{
		{name: "Zero", header: "0000", expected: 0},
		{name: "Padded", header: "0042", expected: 42},
		{name: "Maximum", header: "0512", expected: 512},
		{name: "Just above maximum", header: "0513", err: errs.ErrHeaderTooLarge},
		{name: "Above maximum", header: "0600", err: errs.ErrHeaderTooLarge},
		{name: "Largest header", header: "9999", err: errs.ErrHeaderTooLarge},
		{name: "Sign", header: "-001", err: errs.ErrHeaderNotNumeric},
		{name: "Space padded", header: "  12", err: errs.ErrHeaderNotNumeric},
		{name: "Letters", header: "00a1", err: errs.ErrHeaderNotNumeric},
		{name: "Too short", header: "012", err: errs.ErrHeaderLength},
		{name: "Too long", header: "00012", err: errs.ErrHeaderLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := require.New(t)
			length, err := DecodeHeader([]byte(tt.header))
			if tt.err != nil {
				req.ErrorIs(err, tt.err)
				req.ErrorIs(err, errs.ErrFraming)
				return
			}
			req.NoError(err)
			req.Equal(tt.expected, length)
		})
	}
}

func TestFrame_Decode_Rejects_Invalid_Frames(t *testing.T) {
	req := require.New(t)

	// Given a frame announcing 600 bytes
	frame := NewFrame(append([]byte("0600"), bytes.Repeat([]byte{'x'}, 600)...))

	// Then no body can be extracted
	_, err := frame.Decode()
	req.ErrorIs(err, errs.ErrHeaderTooLarge)
	body, err := frame.Body()
	req.ErrorIs(err, errs.ErrFraming)
	req.Nil(body)
	wire, err := frame.Bytes()
	req.ErrorIs(err, errs.ErrFraming)
	req.Nil(wire)

	// Given a frame announcing more bytes than it carries
	_, err = NewFrame([]byte("0010short")).Body()
	req.ErrorIs(err, errs.ErrFrameTruncated)

	// Given an empty frame
	_, err = Frame{}.Decode()
	req.ErrorIs(err, errs.ErrHeaderLength)
}

func TestFrame_Body_Ignores_Trailing_Bytes(t *testing.T) {
	req := require.New(t)

	frame := NewFrame([]byte("0002hi-and-more"))

	body, err := frame.Body()
	req.NoError(err)
	req.Equal([]byte("hi"), body)
	wire, err := frame.Bytes()
	req.NoError(err)
	req.Equal([]byte("0002hi"), wire)
}

func TestNewFrame_Copies_Input(t *testing.T) {
	req := require.New(t)
	raw := []byte("0002hi")

	frame := NewFrame(raw)
	raw[4] = 'X'

	body, err := frame.Body()
	req.NoError(err)
	req.Equal([]byte("hi"), body)
}

func TestReadFrame(t *testing.T) {
	req := require.New(t)
	var stream bytes.Buffer
	for _, body := range []string{"hello", "", "world"} {
		wire, err := Encode([]byte(body)).Bytes()
		req.NoError(err)
		stream.Write(wire)
	}

	// When frames are read back from the stream
	var bodies []string
	for {
		frame, err := ReadFrame(&stream)
		if err == io.EOF {
			break
		}
		req.NoError(err)
		body, err := frame.Body()
		req.NoError(err)
		bodies = append(bodies, string(body))
	}

	// Then they come out in order
	req.Equal([]string{"hello", "", "world"}, bodies)
}

func TestReadFrame_Errors(t *testing.T) {
	req := require.New(t)

	_, err := ReadFrame(strings.NewReader("9999"))
	req.ErrorIs(err, errs.ErrHeaderTooLarge)

	_, err = ReadFrame(strings.NewReader("0005hel"))
	req.ErrorIs(err, io.ErrUnexpectedEOF)

	_, err = ReadFrame(strings.NewReader("00"))
	req.ErrorIs(err, io.ErrUnexpectedEOF)
}
