// Package combiner implements the Remote Response Combiner
// (SPEC_FULL.md §4.2): the state machine that drives one logical
// query across N backend handles, merging their row streams, copy
// streams, and command results into a single logical result.
package combiner

import (
	"sync"
	"sync/atomic"

	"github.com/mnohosten/laura-remotex/pkg/node"
	"github.com/mnohosten/laura-remotex/pkg/wire"
	"github.com/mnohosten/laura-remotex/pkg/xfabric"
)

// RequestType tracks what kind of exchange is in flight. ERROR is
// absorbing; any other transition is applied as requested, and a
// request type that disagrees with the previous one is not reported as
// DATA_CORRUPTED (§3).
type RequestType int

const (
	RequestUndefined RequestType = iota
	RequestCommand
	RequestQuery
	RequestCopyIn
	RequestCopyOut
	RequestError
)

func (r RequestType) String() string {
	switch r {
	case RequestUndefined:
		return "undefined"
	case RequestCommand:
		return "command"
	case RequestQuery:
		return "query"
	case RequestCopyIn:
		return "copy_in"
	case RequestCopyOut:
		return "copy_out"
	case RequestError:
		return "error"
	default:
		return "unknown"
	}
}

// CombineType controls how CommandComplete row counts from replicas
// are merged.
type CombineType int

const (
	CombineNone CombineType = iota
	CombineSum
	CombineSame
)

// Result is what handleResponse/Pump returns after processing one
// frame, matching the table in SPEC_FULL.md §4.2.
type Result int

const (
	ResultEOF Result = iota
	ResultComplete
	ResultReady
	ResultSuspended
	ResultTupDesc
	ResultDataRow
	ResultCopy
	ResultError
	ResultBarrierOK
	// ResultSilent marks a message consumed without any state change
	// visible to the caller (Parse/Bind/Close complete, NoData, async
	// notices, SetComplete) — distinct from ResultEOF, which means "no
	// full frame buffered yet, read more."
	ResultSilent
)

func (r Result) String() string {
	switch r {
	case ResultEOF:
		return "EOF"
	case ResultComplete:
		return "COMPLETE"
	case ResultReady:
		return "READY"
	case ResultSuspended:
		return "SUSPENDED"
	case ResultTupDesc:
		return "TUPDESC"
	case ResultDataRow:
		return "DATAROW"
	case ResultCopy:
		return "COPY"
	case ResultError:
		return "ERROR"
	case ResultBarrierOK:
		return "BARRIER_OK"
	default:
		return "UNKNOWN"
	}
}

// rowEntry is one FIFO cell of row_buffer: a deferred row tagged with
// its origin node.
type rowEntry struct {
	origin node.ID
	row    *wire.Row
}

// connState is the per-connection bookkeeping a Combiner keeps while
// a query is in flight: whether the connection has reported COMPLETE/
// READY yet, and (for merge-sort) its tape mark into row_buffer.
type connState struct {
	handle   *node.Handle
	done     bool // saw COMPLETE (extended) or READY (simple)
	tapeMark int  // index into row_buffer this tape has consumed up to
	nilTape  bool // tape slot set to nil: exhausted, index held stable
}

// Combiner drives one logical remote query across N handles.
type Combiner struct {
	mu sync.Mutex

	id uintptr // opaque identity for node.CombinerOwner

	conns      []*connState
	connCount  int
	currentIdx int // current_conn cursor (round-robin / simple-protocol default)

	requestType RequestType
	combineType CombineType

	commandCompleteCount int
	descriptionCount     int
	copyInCount          int
	copyOutCount         int
	processed            int64
	processedSet         bool // has a CommandComplete row count been recorded yet (for SAME)

	tupleDesc    *wire.TupleDesc
	currentRow   *rowEntry
	rowBuffer    []rowEntry
	lastCopyData []byte

	mergeSort   bool
	less        func(a, b *wire.Row) bool // executor-supplied comparator
	fetchCursor int                       // non-merge-sort FIFO read position into row_buffer

	cursorName string
	cursorConn []*connState

	err *xfabric.RemoteError

	closed bool
}

var idCounter uint64

// New constructs a Combiner for nodeCount handles with the given
// combine_type, zeroing all counters and setting request_type to
// UNDEFINED (§4.2 init()).
func New(nodeCount int, combineType CombineType) *Combiner {
	return &Combiner{
		id:          uintptr(atomic.AddUint64(&idCounter, 1)),
		connCount:   nodeCount,
		combineType: combineType,
		requestType: RequestUndefined,
	}
}

// OwnerID implements node.CombinerOwner.
func (c *Combiner) OwnerID() uintptr { return c.id }

// RequestType returns the current request_type.
func (c *Combiner) RequestType() RequestType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.requestType
}

// CommandCompleteCount, Processed and friends expose the counters for
// tests and for the executor's final accounting.
func (c *Combiner) CommandCompleteCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.commandCompleteCount
}

func (c *Combiner) Processed() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.processed
}

func (c *Combiner) TupleDesc() *wire.TupleDesc {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tupleDesc
}

// Err returns the first recorded backend error, if any.
func (c *Combiner) Err() *xfabric.RemoteError {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// setRequestType records rt unless the current type is ERROR, which is
// absorbing (once set, further transitions are ignored). No other
// transition is checked: any non-ERROR type may replace any other.
func (c *Combiner) setRequestType(rt RequestType) {
	if c.requestType == RequestError {
		return
	}
	c.requestType = rt
}
