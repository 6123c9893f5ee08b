package protocol

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
)

// Frame layout constants
const (
	LengthPrefixSize = 2      // uint16 little-endian length
	MaxPayloadSize   = 0xFFFF // largest payload a uint16 prefix can describe
)

// Frame errors
var (
	// ErrMalformedFrame indicates the length prefix disagrees with the bytes supplied.
	ErrMalformedFrame = errors.New("malformed frame")

	// ErrPayloadTooLarge indicates a payload that cannot be described by the length prefix.
	ErrPayloadTooLarge = errors.New("payload too large")
)

// Frame is one length-prefixed unit of the wire protocol.
type Frame struct {
	Length  uint16 // count of bytes following the length field
	Payload []byte
}

// String returns a debug representation of the frame
func (f *Frame) String() string {
	return fmt.Sprintf("Frame{length=%d, payload=%d bytes}", f.Length, len(f.Payload))
}

// EncodeFrame prepends the little-endian length prefix to payload.
func EncodeFrame(payload []byte) ([]byte, error) {
	if len(payload) > MaxPayloadSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrPayloadTooLarge, len(payload), MaxPayloadSize)
	}

	frame := make([]byte, LengthPrefixSize+len(payload))
	binary.LittleEndian.PutUint16(frame[0:2], uint16(len(payload)))
	copy(frame[LengthPrefixSize:], payload)

	return frame, nil
}

// DecodeFrame validates exactly one frame's bytes and returns its payload.
//
// raw must contain the prefix and nothing but the payload it announces; any
// disagreement yields ErrMalformedFrame. The returned payload aliases raw.
func DecodeFrame(raw []byte) (*Frame, error) {
	if len(raw) < LengthPrefixSize {
		return nil, fmt.Errorf("%w: %d bytes is shorter than the length prefix", ErrMalformedFrame, len(raw))
	}

	length := binary.LittleEndian.Uint16(raw[0:2])
	if int(length) != len(raw)-LengthPrefixSize {
		return nil, fmt.Errorf("%w: prefix announces %d bytes, got %d", ErrMalformedFrame, length, len(raw)-LengthPrefixSize)
	}

	return &Frame{
		Length:  length,
		Payload: raw[LengthPrefixSize:],
	}, nil
}

// ReadFrame reads exactly one frame from a byte stream.
//
// The prefix is read first and then exactly the number of bytes it announces,
// so frames split or coalesced by TCP are delimited correctly. The result is
// already validated and never needs DecodeFrame.
func ReadFrame(r io.Reader) (*Frame, error) {
	var prefix [LengthPrefixSize]byte
	if _, err := io.ReadFull(r, prefix[:]); err != nil {
		if err == io.EOF {
			return nil, err
		}
		return nil, fmt.Errorf("failed to read length prefix: %w", err)
	}

	length := binary.LittleEndian.Uint16(prefix[:])
	payload := make([]byte, length)
	if length > 0 {
		if _, err := io.ReadFull(r, payload); err != nil {
			return nil, fmt.Errorf("failed to read %d byte payload: %w", length, err)
		}
	}

	return &Frame{Length: length, Payload: payload}, nil
}

// WriteFrame encodes payload and writes it to w in a single call.
func WriteFrame(w io.Writer, payload []byte) error {
	frame, err := EncodeFrame(payload)
	if err != nil {
		return err
	}
	if _, err := w.Write(frame); err != nil {
		return fmt.Errorf("failed to write frame: %w", err)
	}
	return nil
}
