// Package node defines the data model shared by the remote execution
// fabric: node identity, the per-connection handle, and the relation
// distribution descriptor (SPEC_FULL.md §3).
package node

import (
	"fmt"
	"sync"
)

// Role distinguishes data nodes from coordinator nodes. A NodeID is
// unique within its role for the lifetime of a session.
type Role int

const (
	RoleData Role = iota
	RoleCoord
)

func (r Role) String() string {
	switch r {
	case RoleData:
		return "data"
	case RoleCoord:
		return "coord"
	default:
		return "unknown"
	}
}

// ID identifies a backend node of a given role.
type ID struct {
	Role Role
	Num  int32
}

func (id ID) String() string { return fmt.Sprintf("%s:%d", id.Role, id.Num) }

// TxnStatus mirrors the backend's reported transaction_status.
type TxnStatus int

const (
	TxnIdle TxnStatus = iota
	TxnInTxn
	TxnInErrorTxn
)

func (s TxnStatus) String() string {
	switch s {
	case TxnIdle:
		return "idle"
	case TxnInTxn:
		return "in_txn"
	case TxnInErrorTxn:
		return "in_error_txn"
	default:
		return "unknown"
	}
}

// ConnState is the handle's protocol-level state.
type ConnState int

const (
	ConnIdle ConnState = iota
	ConnQuery
	ConnErrorFatal
	ConnCopyIn
	ConnCopyOut
)

func (s ConnState) String() string {
	switch s {
	case ConnIdle:
		return "idle"
	case ConnQuery:
		return "query"
	case ConnErrorFatal:
		return "error_fatal"
	case ConnCopyIn:
		return "copy_in"
	case ConnCopyOut:
		return "copy_out"
	default:
		return "unknown"
	}
}

// CombinerOwner is the minimal surface a Handle needs from whatever
// Combiner currently owns it — just enough to let Handle assert the
// single-owner invariant without importing the combiner package (which
// itself imports node), avoiding an import cycle.
type CombinerOwner interface {
	// OwnerID is an opaque, comparable identity for the owning Combiner.
	OwnerID() uintptr
}

// Handle owns one connection (TCP or Unix-socket) to one backend.
// Exactly one Combiner may own a Handle at any instant; ownership is
// transferred, never shared (§3, §8).
type Handle struct {
	mu sync.Mutex

	id     ID
	txn    TxnStatus
	conn   ConnState
	owner  CombinerOwner // nil when unowned
	cancel CancelToken

	// In and Out are the growable byte buffers backing the wire codec.
	// Bounds invariant: 0 <= start <= cursor <= end <= len(buf).
	In  *Buffer
	Out *Buffer
}

// NewHandle constructs an idle, unowned handle for the given node id.
func NewHandle(id ID, cancel CancelToken) *Handle {
	return &Handle{
		id:     id,
		txn:    TxnIdle,
		conn:   ConnIdle,
		cancel: cancel,
		In:     NewBuffer(4096),
		Out:    NewBuffer(4096),
	}
}

func (h *Handle) ID() ID { return h.id }

func (h *Handle) TxnStatus() TxnStatus {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.txn
}

func (h *Handle) SetTxnStatus(s TxnStatus) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.txn = s
}

func (h *Handle) ConnState() ConnState {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.conn
}

func (h *Handle) SetConnState(s ConnState) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conn = s
}

// Owner returns the Combiner that currently owns this handle, or nil.
func (h *Handle) Owner() CombinerOwner {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.owner
}

// Attach assigns ownership to owner. It returns an error if the handle
// is already owned by a different Combiner (the single-owner invariant
// in §3/§8); re-attaching the same owner is a no-op.
func (h *Handle) Attach(owner CombinerOwner) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.owner != nil && h.owner.OwnerID() != owner.OwnerID() {
		return fmt.Errorf("node %s: already owned", h.id)
	}
	h.owner = owner
	return nil
}

// Detach clears ownership unconditionally. Used both by the normal
// "query finished, ReadyForQuery seen" path and by BufferConnection
// when ownership is being transferred mid-query (§4.2).
func (h *Handle) Detach() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.owner = nil
}

// Cancel returns the out-of-band cancel token for this handle's
// in-flight query, usable from any goroutine (§3, §5).
func (h *Handle) Cancel() CancelToken { return h.cancel }

// CancelToken interrupts an in-flight query on a backend by sending a
// single "cancel query" message over a secondary socket obtained from
// the pool (§5 Cancellation).
type CancelToken interface {
	Cancel() error
}

// NoopCancelToken is used in tests and for handles that have no
// separate cancel channel configured.
type NoopCancelToken struct{}

func (NoopCancelToken) Cancel() error { return nil }
