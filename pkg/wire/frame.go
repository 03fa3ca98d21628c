package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/mnohosten/laura-remotex/pkg/node"
)

// Frame is one decoded backend message: a one-byte
// tag followed by a length-prefixed payload (the length prefix itself
// is not part of Payload).
type Frame struct {
	Tag     Tag
	Payload []byte
}

// headerSize is tag (1 byte) + length (4 bytes, big-endian, includes
// itself but not the tag — matching the real PostgreSQL v3 framing).
const headerSize = 5

// ReadFrame attempts to decode one frame from buf starting at its
// current cursor. It returns ok=false (not an error) when fewer bytes
// are buffered than the frame needs — the caller should read more off
// the socket and retry. buf's cursor is only advanced past a frame
// that was fully decoded.
func ReadFrame(buf *node.Buffer) (Frame, bool, error) {
	avail := buf.Unread()
	if len(avail) < headerSize {
		return Frame{}, false, nil
	}
	tag := Tag(avail[0])
	length := binary.BigEndian.Uint32(avail[1:5])
	if length < 4 {
		return Frame{}, false, fmt.Errorf("wire: invalid frame length %d for tag %q", length, tag)
	}
	total := 1 + int(length) // tag byte + length-prefixed body (length includes itself)
	if len(avail) < total {
		return Frame{}, false, nil
	}
	payload := avail[headerSize:total]
	if err := buf.Advance(total); err != nil {
		return Frame{}, false, err
	}
	return Frame{Tag: tag, Payload: payload}, true, nil
}

// WriteFrame appends a length-prefixed frame to buf.
func WriteFrame(buf *node.Buffer, tag Tag, payload []byte) {
	length := uint32(4 + len(payload))
	header := make([]byte, headerSize)
	header[0] = byte(tag)
	binary.BigEndian.PutUint32(header[1:5], length)
	_, _ = buf.Write(header)
	_, _ = buf.Write(payload)
}

// WriteUntaggedFrame writes a frame with no leading type byte, used
// for the startup packet and a handful of other protocol messages
// that have no tag. Kept separate so callers can't accidentally send
// a tag of 0.
func WriteUntaggedFrame(buf *node.Buffer, payload []byte) {
	length := uint32(4 + len(payload))
	header := make([]byte, 4)
	binary.BigEndian.PutUint32(header, length)
	_, _ = buf.Write(header)
	_, _ = buf.Write(payload)
}
