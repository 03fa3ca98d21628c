package xact

import (
	"context"
	"fmt"

	"github.com/mnohosten/laura-remotex/pkg/xfabric"
)

// IsTwoPCRequired implements the is_2pc_required decision table
// (§4.3): any use of temp objects forces the single-phase fast path
// regardless of writer count, since temp objects don't survive a
// PREPARE on most backends.
func IsTwoPCRequired(writerCount int, localWrites, tempObjectsUsed bool) bool {
	if tempObjectsUsed {
		return false
	}
	if writerCount == 0 {
		return false
	}
	if writerCount == 1 && !localWrites {
		return false
	}
	return true
}

// Prepare runs 2PC phase 1: PREPARE TRANSACTION '<gid>' to every
// writer, in insertion order. It sends to every writer before
// inspecting any response, matching §8 scenario 4 (a crashed node is
// detected only after its peers have already been asked to prepare).
// A single failure sets Status to PREPARE_FAILED and returns an error;
// the caller's abort path is responsible for rolling back whichever
// writers did reach PREPARED.
func Prepare(ctx context.Context, s *RemoteXactState, gid string) error {
	s.PrepareGID = gid
	for _, h := range s.WriteHandles {
		s.NodeStatus[h.ID()] = NodePrepareSent
		sendCommand(h, fmt.Sprintf("PREPARE TRANSACTION '%s';", gid))
	}

	var firstErr error
	for _, h := range s.WriteHandles {
		out, done, err := awaitCommand(h)
		if err != nil || !done {
			s.NodeStatus[h.ID()] = NodePrepareFailed
			if firstErr == nil {
				if err == nil {
					err = fmt.Errorf("xact: node %s: prepare response not buffered", h.ID())
				}
				firstErr = err
			}
			continue
		}
		if out.remoteErr != nil {
			s.NodeStatus[h.ID()] = NodePrepareFailed
			if firstErr == nil {
				firstErr = out.remoteErr
			}
			continue
		}
		s.NodeStatus[h.ID()] = NodePrepared
	}

	if firstErr != nil {
		s.Status = StatusPrepareFailed
		return &xfabric.TxnError{Phase: "prepare", GID: gid, Err: firstErr}
	}
	s.Status = StatusPrepared
	return nil
}
