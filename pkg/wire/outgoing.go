package wire

import (
	"encoding/binary"

	"github.com/mnohosten/laura-remotex/pkg/node"
)

// Outgoing frontend message tags (distinct byte-space from the
// backend tags in tags.go; the protocol is asymmetric).
const (
	FrontendQuery    byte = 'Q'
	FrontendParse    byte = 'P'
	FrontendBind     byte = 'B'
	FrontendDescribe byte = 'D'
	FrontendExecute  byte = 'E'
	FrontendSync     byte = 'S'
	FrontendClose    byte = 'C'
	FrontendCopyFail byte = 'f'
	FrontendCopyData byte = 'd'
	FrontendCopyDone byte = 'c'
)

func cstring(s string) []byte {
	b := make([]byte, len(s)+1)
	copy(b, s)
	return b
}

// WriteQuery appends a simple-query message.
func WriteQuery(buf *node.Buffer, sql string) {
	WriteFrame(buf, Tag(FrontendQuery), cstring(sql))
}

// ExtendedQueryParams describes the parse/bind/execute sequence for
// an extended-query dispatch (§4.2, §6). WriteExtendedQuery sends no
// Close for a named statement or portal; WriteClose is a separate call.
type ExtendedQueryParams struct {
	Statement  string // empty = unnamed statement
	Portal     string // empty = unnamed portal
	SQL        string
	ParamTypes []uint32
	Params     [][]byte // nil element = SQL NULL
	MaxRows    int32    // 0 = fetch all
}

// WriteExtendedQuery appends the full Parse/Bind/Describe/Execute/
// Sync sequence for p.
func WriteExtendedQuery(buf *node.Buffer, p ExtendedQueryParams) {
	writeParse(buf, p)
	writeBind(buf, p)
	WriteFrame(buf, Tag(FrontendDescribe), append([]byte{'P'}, cstring(p.Portal)...))
	writeExecute(buf, p)
	WriteFrame(buf, Tag(FrontendSync), nil)
}

func writeParse(buf *node.Buffer, p ExtendedQueryParams) {
	payload := cstring(p.Statement)
	payload = append(payload, cstring(p.SQL)...)
	nTypes := make([]byte, 2)
	binary.BigEndian.PutUint16(nTypes, uint16(len(p.ParamTypes)))
	payload = append(payload, nTypes...)
	for _, t := range p.ParamTypes {
		b := make([]byte, 4)
		binary.BigEndian.PutUint32(b, t)
		payload = append(payload, b...)
	}
	WriteFrame(buf, Tag(FrontendParse), payload)
}

func writeBind(buf *node.Buffer, p ExtendedQueryParams) {
	payload := cstring(p.Portal)
	payload = append(payload, cstring(p.Statement)...)
	// Zero format codes: all parameters sent as text, matching the
	// teacher's document-as-text wire convention elsewhere.
	payload = append(payload, 0, 0)
	nParams := make([]byte, 2)
	binary.BigEndian.PutUint16(nParams, uint16(len(p.Params)))
	payload = append(payload, nParams...)
	for _, v := range p.Params {
		if v == nil {
			payload = append(payload, 0xFF, 0xFF, 0xFF, 0xFF) // -1 length == NULL
			continue
		}
		l := make([]byte, 4)
		binary.BigEndian.PutUint32(l, uint32(len(v)))
		payload = append(payload, l...)
		payload = append(payload, v...)
	}
	payload = append(payload, 0, 0) // zero result-format codes (text)
	WriteFrame(buf, Tag(FrontendBind), payload)
}

func writeExecute(buf *node.Buffer, p ExtendedQueryParams) {
	payload := cstring(p.Portal)
	maxRows := make([]byte, 4)
	binary.BigEndian.PutUint32(maxRows, uint32(p.MaxRows))
	payload = append(payload, maxRows...)
	WriteFrame(buf, Tag(FrontendExecute), payload)
}

// WriteClose appends a Close message for a portal ('P') or statement
// ('S') by name.
func WriteClose(buf *node.Buffer, kind byte, name string) {
	payload := append([]byte{kind}, cstring(name)...)
	WriteFrame(buf, Tag(FrontendClose), payload)
}

// WriteCopyFail appends a CopyFail message, used by the pre-abort
// cleanup pass to unwind a handle stuck in COPY_IN (§4.2).
func WriteCopyFail(buf *node.Buffer, reason string) {
	WriteFrame(buf, Tag(FrontendCopyFail), cstring(reason))
}
