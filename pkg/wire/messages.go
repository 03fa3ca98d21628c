package wire

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strconv"
)

// TupleDesc is a simplified RowDescription: just the column names, in
// order. The Combiner only needs the column count and, for the
// merge-sort comparator, names/order — type OIDs are not modeled
// since type-aware comparison lives in the executor, out of scope
// here (§1).
type TupleDesc struct {
	Columns []string
}

// ParseRowDescription decodes a 'T' message payload.
func ParseRowDescription(payload []byte) (*TupleDesc, error) {
	r := bytes.NewReader(payload)
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("wire: RowDescription: %w", err)
	}
	cols := make([]string, 0, count)
	for i := 0; i < int(count); i++ {
		name, err := readCString(r)
		if err != nil {
			return nil, fmt.Errorf("wire: RowDescription column %d: %w", i, err)
		}
		// Skip the fixed-width remainder of the field descriptor
		// (table oid, attnum, type oid, typlen, typmod, format) —
		// 18 bytes in the real protocol — since this package doesn't
		// model per-column types (see TupleDesc doc comment).
		skip := make([]byte, 18)
		if _, err := r.Read(skip); err != nil {
			return nil, fmt.Errorf("wire: RowDescription column %d descriptor: %w", i, err)
		}
		cols = append(cols, name)
	}
	return &TupleDesc{Columns: cols}, nil
}

// Row is a single DataRow's column values, NULL represented as a nil
// slice per column.
type Row struct {
	Values [][]byte
}

// ParseDataRow decodes a 'D' message payload.
func ParseDataRow(payload []byte) (*Row, error) {
	r := bytes.NewReader(payload)
	var count uint16
	if err := binary.Read(r, binary.BigEndian, &count); err != nil {
		return nil, fmt.Errorf("wire: DataRow: %w", err)
	}
	vals := make([][]byte, count)
	for i := 0; i < int(count); i++ {
		var n int32
		if err := binary.Read(r, binary.BigEndian, &n); err != nil {
			return nil, fmt.Errorf("wire: DataRow column %d length: %w", i, err)
		}
		if n < 0 {
			vals[i] = nil // SQL NULL
			continue
		}
		buf := make([]byte, n)
		if _, err := r.Read(buf); err != nil {
			return nil, fmt.Errorf("wire: DataRow column %d value: %w", i, err)
		}
		vals[i] = buf
	}
	return &Row{Values: vals}, nil
}

// CommandComplete carries the parsed row count from a 'C' message
// ("INSERT 0 1", "UPDATE 3", ...). Processed is -1 when the command
// tag has no row count (e.g. "BEGIN").
type CommandComplete struct {
	Tag       string
	Processed int64
}

// ParseCommandComplete decodes a 'C' message payload.
func ParseCommandComplete(payload []byte) (*CommandComplete, error) {
	s := string(bytes.TrimRight(payload, "\x00"))
	fields := splitFields(s)
	if len(fields) == 0 {
		return nil, fmt.Errorf("wire: empty CommandComplete tag")
	}
	cc := &CommandComplete{Tag: s, Processed: -1}
	last := fields[len(fields)-1]
	if n, err := strconv.ParseInt(last, 10, 64); err == nil {
		cc.Processed = n
	}
	return cc, nil
}

func splitFields(s string) []string {
	var fields []string
	start := -1
	for i, c := range s {
		if c == ' ' {
			if start >= 0 {
				fields = append(fields, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		fields = append(fields, s[start:])
	}
	return fields
}

// ErrorFields is the subset of an ErrorResponse's sub-fields the
// Combiner cares about: Code (SQLSTATE), Message, Detail.
type ErrorFields struct {
	Code    string
	Message string
	Detail  string
}

// ParseErrorResponse decodes an 'E' message payload: a sequence of
// (byte field-code, C-string value) pairs terminated by a nul byte.
func ParseErrorResponse(payload []byte) (*ErrorFields, error) {
	ef := &ErrorFields{}
	i := 0
	for i < len(payload) {
		code := payload[i]
		i++
		if code == 0 {
			break
		}
		end := bytes.IndexByte(payload[i:], 0)
		if end < 0 {
			return nil, fmt.Errorf("wire: ErrorResponse: unterminated field %q", code)
		}
		val := string(payload[i : i+end])
		i += end + 1
		switch code {
		case 'C':
			ef.Code = val
		case 'M':
			ef.Message = val
		case 'D':
			ef.Detail = val
		}
	}
	return ef, nil
}

// ReadyStatus is the backend's post-query transaction_status byte.
type ReadyStatus byte

const (
	ReadyIdle       ReadyStatus = 'I'
	ReadyInTxn      ReadyStatus = 'T'
	ReadyInErrorTxn ReadyStatus = 'E'
)

// ParseReadyForQuery decodes a 'Z' message payload.
func ParseReadyForQuery(payload []byte) (ReadyStatus, error) {
	if len(payload) != 1 {
		return 0, fmt.Errorf("wire: ReadyForQuery: want 1 byte, got %d", len(payload))
	}
	return ReadyStatus(payload[0]), nil
}

func readCString(r *bytes.Reader) (string, error) {
	var buf bytes.Buffer
	for {
		b, err := r.ReadByte()
		if err != nil {
			return "", err
		}
		if b == 0 {
			return buf.String(), nil
		}
		buf.WriteByte(b)
	}
}
