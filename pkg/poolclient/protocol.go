// Package poolclient implements the session side of the pool-manager
// wire protocol (SPEC_FULL.md §6): one-byte message types over a
// length-prefixed Unix-domain socket, with backend connection file
// descriptors handed over via SCM_RIGHTS.
package poolclient

import (
	"encoding/binary"
	"fmt"
	"io"
)

// MsgType is the pool manager's one-byte request/reply discriminator.
type MsgType byte

const (
	MsgConnect        MsgType = 'c'
	MsgDisconnect      MsgType = 'd'
	MsgGetConnections MsgType = 'g'
	MsgRelease        MsgType = 'r'
	MsgCancel         MsgType = 'h'
	MsgSet            MsgType = 's'
	MsgAbort          MsgType = 'a'
	MsgClean          MsgType = 'f'
)

// SET command sub-types (§6: "cmd_type ∈ {LOCAL_SET, GLOBAL_SET, TEMP_MARK}").
const (
	SetLocal uint32 = iota
	SetGlobal
	SetTempMark
)

// writeFrame writes a length-prefixed message: a 4-byte big-endian
// length (covering msgType + payload) followed by msgType and payload.
func writeFrame(w io.Writer, msgType MsgType, payload []byte) error {
	length := make([]byte, 4)
	binary.BigEndian.PutUint32(length, uint32(len(payload)+1))
	if _, err := w.Write(length); err != nil {
		return fmt.Errorf("poolclient: write length: %w", err)
	}
	if _, err := w.Write([]byte{byte(msgType)}); err != nil {
		return fmt.Errorf("poolclient: write type: %w", err)
	}
	if len(payload) > 0 {
		if _, err := w.Write(payload); err != nil {
			return fmt.Errorf("poolclient: write payload: %w", err)
		}
	}
	return nil
}

// readFrame reads one length-prefixed message.
func readFrame(r io.Reader) (MsgType, []byte, error) {
	lenBuf := make([]byte, 4)
	if _, err := io.ReadFull(r, lenBuf); err != nil {
		return 0, nil, err
	}
	length := binary.BigEndian.Uint32(lenBuf)
	if length == 0 {
		return 0, nil, fmt.Errorf("poolclient: empty frame")
	}
	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return 0, nil, fmt.Errorf("poolclient: read body: %w", err)
	}
	return MsgType(body[0]), body[1:], nil
}

func putU32(b []byte, v uint32) []byte {
	tmp := make([]byte, 4)
	binary.BigEndian.PutUint32(tmp, v)
	return append(b, tmp...)
}

func putString(b []byte, s string) []byte {
	b = putU32(b, uint32(len(s)))
	return append(b, s...)
}

func getU32(b []byte) (uint32, []byte, error) {
	if len(b) < 4 {
		return 0, nil, fmt.Errorf("poolclient: short read for u32")
	}
	return binary.BigEndian.Uint32(b), b[4:], nil
}

func getString(b []byte) (string, []byte, error) {
	n, rest, err := getU32(b)
	if err != nil {
		return "", nil, err
	}
	if uint32(len(rest)) < n {
		return "", nil, fmt.Errorf("poolclient: short read for string of length %d", n)
	}
	return string(rest[:n]), rest[n:], nil
}

func putU32Array(b []byte, vals []uint32) []byte {
	b = putU32(b, uint32(len(vals)))
	for _, v := range vals {
		b = putU32(b, v)
	}
	return b
}

func getU32Array(b []byte) ([]uint32, []byte, error) {
	n, rest, err := getU32(b)
	if err != nil {
		return nil, nil, err
	}
	out := make([]uint32, n)
	for i := range out {
		v, r, err := getU32(rest)
		if err != nil {
			return nil, nil, err
		}
		out[i] = v
		rest = r
	}
	return out, rest, nil
}
