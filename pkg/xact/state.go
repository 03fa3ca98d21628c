// Package xact implements the Distributed Transaction Coordinator
// (SPEC_FULL.md §4.3): read/write node registration, the BEGIN
// broadcast, the two-phase-commit decision and drive (whose commit
// window holds the barrier lock against external checkpoint/snapshot
// requests), and the abort protocol.
//
// Unlike the combiner, which fans a single query out across N handles
// and merges heterogeneous row/command streams, every exchange here is
// a bare command (PREPARE/COMMIT/ROLLBACK) with no rows and no COPY —
// so the Coordinator talks the wire protocol directly rather than
// routing through a combiner.Combiner built for a different job.
package xact

import "github.com/mnohosten/laura-remotex/pkg/node"

// NodeStatus is a handle's 2PC status within one RemoteXactState.
type NodeStatus int

const (
	NodeNone NodeStatus = iota
	NodePrepareSent
	NodePrepareFailed
	NodePrepared
	NodeCommitSent
	NodeCommitFailed
	NodeCommitted
	NodeAbortSent
	NodeAbortFailed
	NodeAborted
)

func (s NodeStatus) String() string {
	switch s {
	case NodeNone:
		return "none"
	case NodePrepareSent:
		return "prepare_sent"
	case NodePrepareFailed:
		return "prepare_failed"
	case NodePrepared:
		return "prepared"
	case NodeCommitSent:
		return "commit_sent"
	case NodeCommitFailed:
		return "commit_failed"
	case NodeCommitted:
		return "committed"
	case NodeAbortSent:
		return "abort_sent"
	case NodeAbortFailed:
		return "abort_failed"
	case NodeAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// Status is the session-wide outcome of one RemoteXactState.
type Status int

const (
	StatusNone Status = iota
	StatusPrepareFailed
	StatusPrepared
	StatusCommitFailed
	StatusPartCommitted
	StatusCommitted
	StatusAbortFailed
	StatusPartAborted
	StatusAborted
)

func (s Status) String() string {
	switch s {
	case StatusNone:
		return "none"
	case StatusPrepareFailed:
		return "prepare_failed"
	case StatusPrepared:
		return "prepared"
	case StatusCommitFailed:
		return "commit_failed"
	case StatusPartCommitted:
		return "part_committed"
	case StatusCommitted:
		return "committed"
	case StatusAbortFailed:
		return "abort_failed"
	case StatusPartAborted:
		return "part_aborted"
	case StatusAborted:
		return "aborted"
	default:
		return "unknown"
	}
}

// RemoteXactState is the per-session transaction record (§4.3): which
// handles are readers vs writers, each handle's node_status, and the
// identifiers (prepare_gid, commit_xid) the 2PC drive assigns. It is
// owned exclusively by the session task and needs no internal locking
// (§5's shared-resource policy).
type RemoteXactState struct {
	Status Status

	WriteHandles []*node.Handle
	ReadHandles  []*node.Handle

	NodeStatus map[node.ID]NodeStatus

	PrepareGID    string
	CommitXID     uint64
	PreparedLocal bool
}

// New returns a fresh RemoteXactState for a session about to touch its
// first backend.
func New() *RemoteXactState {
	return &RemoteXactState{
		Status:     StatusNone,
		NodeStatus: make(map[node.ID]NodeStatus),
	}
}

func containsHandle(list []*node.Handle, h *node.Handle) bool {
	for _, x := range list {
		if x == h {
			return true
		}
	}
	return false
}

func removeHandle(list []*node.Handle, h *node.Handle) []*node.Handle {
	out := list[:0:0]
	for _, x := range list {
		if x != h {
			out = append(out, x)
		}
	}
	return out
}

// RegisterTransactionNode implements register_transaction_node(handle,
// writing?) (§4.3): a write registration promotes a handle out of
// read_handles; a read registration never demotes an existing writer.
// Membership is by handle identity, each list holding a handle at most
// once.
func RegisterTransactionNode(s *RemoteXactState, h *node.Handle, writing bool) {
	if writing {
		if containsHandle(s.ReadHandles, h) {
			s.ReadHandles = removeHandle(s.ReadHandles, h)
		}
		if !containsHandle(s.WriteHandles, h) {
			s.WriteHandles = append(s.WriteHandles, h)
		}
		return
	}
	if containsHandle(s.WriteHandles, h) {
		return
	}
	if !containsHandle(s.ReadHandles, h) {
		s.ReadHandles = append(s.ReadHandles, h)
	}
}
