package combiner

import (
	"encoding/binary"
	"testing"

	"github.com/mnohosten/laura-remotex/pkg/node"
	"github.com/mnohosten/laura-remotex/pkg/wire"
)

func cstr(s string) []byte { return append([]byte(s), 0) }

func writeRowDesc(buf *node.Buffer, cols []string) {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, uint16(len(cols)))
	for _, c := range cols {
		payload = append(payload, cstr(c)...)
		payload = append(payload, make([]byte, 18)...)
	}
	wire.WriteFrame(buf, wire.TagRowDescription, payload)
}

func writeDataRow(buf *node.Buffer, vals ...string) {
	payload := make([]byte, 2)
	binary.BigEndian.PutUint16(payload, uint16(len(vals)))
	for _, v := range vals {
		l := make([]byte, 4)
		binary.BigEndian.PutUint32(l, uint32(len(v)))
		payload = append(payload, l...)
		payload = append(payload, []byte(v)...)
	}
	wire.WriteFrame(buf, wire.TagDataRow, payload)
}

func writeCommandComplete(buf *node.Buffer, tag string) {
	wire.WriteFrame(buf, wire.TagCommandComplete, cstr(tag))
}

func writeReady(buf *node.Buffer, status byte) {
	wire.WriteFrame(buf, wire.TagReadyForQuery, []byte{status})
}

func writeErrorResponse(buf *node.Buffer, code, msg string) {
	payload := append([]byte{'C'}, cstr(code)...)
	payload = append(payload, 'M')
	payload = append(payload, cstr(msg)...)
	payload = append(payload, 0)
	wire.WriteFrame(buf, wire.TagErrorResponse, payload)
}

func newTestHandle(num int32) *node.Handle {
	return node.NewHandle(node.ID{Role: node.RoleData, Num: num}, node.NoopCancelToken{})
}

func TestDispatchAttachesOwnershipAndMarksQuery(t *testing.T) {
	h1, h2 := newTestHandle(1), newTestHandle(2)
	c := New(2, CombineSum)
	if err := c.Dispatch([]*node.Handle{h1, h2}, Query{SQL: "select 1"}); err != nil {
		t.Fatal(err)
	}
	if h1.Owner() == nil || h1.Owner().OwnerID() != c.OwnerID() {
		t.Fatal("h1 not attached to combiner")
	}
	if h1.ConnState() != node.ConnQuery {
		t.Fatalf("h1 conn state = %v, want query", h1.ConnState())
	}
	if c.RequestType() != RequestQuery {
		t.Fatalf("request type = %v, want query", c.RequestType())
	}
}

func TestDispatchRejectsNonIdleHandle(t *testing.T) {
	h1 := newTestHandle(1)
	h1.SetConnState(node.ConnQuery)
	c := New(1, CombineSum)
	if err := c.Dispatch([]*node.Handle{h1}, Query{SQL: "select 1"}); err == nil {
		t.Fatal("expected error dispatching to a non-idle handle")
	}
}

func TestOwnershipConflictAcrossCombiners(t *testing.T) {
	h1 := newTestHandle(1)
	c1 := New(1, CombineSum)
	c2 := New(1, CombineSum)
	if err := c1.Dispatch([]*node.Handle{h1}, Query{SQL: "select 1"}); err != nil {
		t.Fatal(err)
	}
	h1.SetConnState(node.ConnIdle) // pretend idle again, ownership still held by c1
	if err := c2.Dispatch([]*node.Handle{h1}, Query{SQL: "select 1"}); err == nil {
		t.Fatal("expected ownership conflict error")
	}
}

func TestReceiveLoopSimpleQueryCombinesCommandComplete(t *testing.T) {
	h1, h2 := newTestHandle(1), newTestHandle(2)
	c := New(2, CombineSum)
	if err := c.Dispatch([]*node.Handle{h1, h2}, Query{SQL: "insert into t values (1)"}); err != nil {
		t.Fatal(err)
	}

	writeCommandComplete(h1.In, "INSERT 0 1")
	writeReady(h1.In, 'I')
	writeCommandComplete(h2.In, "INSERT 0 2")
	writeReady(h2.In, 'I')

	if err := c.ReceiveLoop([]*node.Handle{h1, h2}); err != nil {
		t.Fatal(err)
	}
	if c.CommandCompleteCount() != 2 {
		t.Fatalf("command_complete_count = %d, want 2 (<= node_count)", c.CommandCompleteCount())
	}
	if c.Processed() != 3 {
		t.Fatalf("processed = %d, want 3", c.Processed())
	}
	if h1.Owner() != nil || h2.Owner() != nil {
		t.Fatal("handles should be detached after ReadyForQuery")
	}
}

func TestCombineSameAgreesAcrossNodes(t *testing.T) {
	h1, h2 := newTestHandle(1), newTestHandle(2)
	c := New(2, CombineSame)
	if err := c.Dispatch([]*node.Handle{h1, h2}, Query{SQL: "update t set x=1"}); err != nil {
		t.Fatal(err)
	}
	writeCommandComplete(h1.In, "UPDATE 5")
	writeReady(h1.In, 'I')
	writeCommandComplete(h2.In, "UPDATE 5")
	writeReady(h2.In, 'I')

	if err := c.ReceiveLoop([]*node.Handle{h1, h2}); err != nil {
		t.Fatal(err)
	}
	if c.Processed() != 5 {
		t.Fatalf("processed = %d, want 5", c.Processed())
	}
}

func TestCombineSameDisagreementIsDataCorrupted(t *testing.T) {
	h1, h2 := newTestHandle(1), newTestHandle(2)
	c := New(2, CombineSame)
	if err := c.Dispatch([]*node.Handle{h1, h2}, Query{SQL: "update t set x=1"}); err != nil {
		t.Fatal(err)
	}
	writeCommandComplete(h1.In, "UPDATE 5")
	writeCommandComplete(h2.In, "UPDATE 6")

	if err := c.ReceiveLoop([]*node.Handle{h1, h2}); err == nil {
		t.Fatal("expected DATA_CORRUPTED on disagreeing SAME row counts")
	}
}

// TestErrorResponseRecordedFirstWins exercises the "first error wins"
// rule: once one node's ErrorResponse has been recorded, a later
// ErrorResponse from another node must not overwrite it (§4.2).
func TestErrorResponseRecordedFirstWins(t *testing.T) {
	h1, h2 := newTestHandle(1), newTestHandle(2)
	c := New(2, CombineSum)
	if err := c.Dispatch([]*node.Handle{h1, h2}, Query{SQL: "select 1/0"}); err != nil {
		t.Fatal(err)
	}
	writeErrorResponse(h1.In, "22012", "division by zero")
	writeReady(h1.In, 'E')
	writeErrorResponse(h2.In, "22023", "invalid parameter value")
	writeReady(h2.In, 'E')

	if err := c.ReceiveLoop([]*node.Handle{h1, h2}); err != nil {
		t.Fatal(err)
	}
	if c.Err() == nil {
		t.Fatal("expected a recorded remote error")
	}
	if c.Err().Message != "division by zero" {
		t.Fatalf("err message = %q, want the first node's error to win", c.Err().Message)
	}
	if c.CommandCompleteCount() > 2 {
		t.Fatalf("command_complete_count = %d, must be <= node_count (2)", c.CommandCompleteCount())
	}
}

func TestDataRowBufferedAndFetchedFIFO(t *testing.T) {
	h1 := newTestHandle(1)
	c := New(1, CombineSum)
	if err := c.Dispatch([]*node.Handle{h1}, Query{SQL: "select * from t"}); err != nil {
		t.Fatal(err)
	}
	writeDataRow(h1.In, "1", "a")
	writeDataRow(h1.In, "2", "b")
	writeCommandComplete(h1.In, "SELECT 2")
	writeReady(h1.In, 'I')

	if err := c.ReceiveLoop([]*node.Handle{h1}); err != nil {
		t.Fatal(err)
	}
	_, row, ok := c.FetchTuple()
	if !ok || string(row.Values[0]) != "1" {
		t.Fatalf("first fetch = %+v, ok=%v", row, ok)
	}
	_, row, ok = c.FetchTuple()
	if !ok || string(row.Values[0]) != "2" {
		t.Fatalf("second fetch = %+v, ok=%v", row, ok)
	}
	if _, _, ok = c.FetchTuple(); ok {
		t.Fatal("expected row buffer exhausted")
	}
}

func TestMergeSortAcrossTapes(t *testing.T) {
	h1, h2 := newTestHandle(1), newTestHandle(2)
	c := New(2, CombineSum)
	less := func(a, b *wire.Row) bool { return string(a.Values[0]) < string(b.Values[0]) }
	c.EnableMergeSort(less)
	if err := c.Dispatch([]*node.Handle{h1, h2}, Query{SQL: "select * from t order by x"}); err != nil {
		t.Fatal(err)
	}
	// h1's tape is already sorted: 1, 3, 5. h2's tape: 2, 4.
	writeDataRow(h1.In, "1")
	writeDataRow(h1.In, "3")
	writeDataRow(h1.In, "5")
	writeCommandComplete(h1.In, "SELECT 3")
	writeReady(h1.In, 'I')
	writeDataRow(h2.In, "2")
	writeDataRow(h2.In, "4")
	writeCommandComplete(h2.In, "SELECT 2")
	writeReady(h2.In, 'I')

	if err := c.ReceiveLoop([]*node.Handle{h1, h2}); err != nil {
		t.Fatal(err)
	}

	var got []string
	for {
		_, row, ok := c.FetchTuple()
		if !ok {
			break
		}
		got = append(got, string(row.Values[0]))
	}
	want := []string{"1", "2", "3", "4", "5"}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestBufferConnectionClearsOwnership(t *testing.T) {
	h1 := newTestHandle(1)
	c1 := New(1, CombineSum)
	if err := c1.Dispatch([]*node.Handle{h1}, Query{SQL: "select 1"}); err != nil {
		t.Fatal(err)
	}
	if err := c1.BufferConnection(h1); err != nil {
		t.Fatal(err)
	}
	if h1.Owner() != nil {
		t.Fatal("expected handle to be unowned after BufferConnection")
	}
	if h1.ConnState() == node.ConnQuery {
		t.Fatal("expected conn state to leave QUERY after BufferConnection")
	}

	c2 := New(1, CombineSum)
	if err := c2.Dispatch([]*node.Handle{h1}, Query{SQL: "select 2"}); err != nil {
		t.Fatal(err)
	}
	if h1.Owner() == nil || h1.Owner().OwnerID() != c2.OwnerID() {
		t.Fatal("expected a fresh combiner to be able to claim the released handle")
	}
}

func TestPreAbortUnwindsCopyIn(t *testing.T) {
	h1 := newTestHandle(1)
	c := New(1, CombineSum)
	if err := c.Dispatch([]*node.Handle{h1}, Query{SQL: "copy t from stdin"}); err != nil {
		t.Fatal(err)
	}
	h1.SetConnState(node.ConnCopyIn)
	if err := c.PreAbort([]*node.Handle{h1}); err != nil {
		t.Fatal(err)
	}
	if h1.Out.Len() == 0 {
		t.Fatal("expected a CopyFail message written to h1.Out")
	}
	writeReady(h1.In, 'I')
	if err := c.PreAbort([]*node.Handle{h1}); err != nil {
		t.Fatal(err)
	}
	if h1.ConnState() != node.ConnIdle {
		t.Fatalf("conn state = %v, want idle after pre-abort drain", h1.ConnState())
	}
}
