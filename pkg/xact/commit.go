package xact

import (
	"context"
	"fmt"

	"github.com/mnohosten/laura-remotex/pkg/node"
	"github.com/mnohosten/laura-remotex/pkg/xfabric"
)

// commitOrder returns the handles to send commit commands to, in the
// deterministic order §4.3/§5 require: writers before readers, each
// group in its own insertion order (so partial-failure analysis is
// reproducible run to run).
func commitOrder(s *RemoteXactState) []*node.Handle {
	order := make([]*node.Handle, 0, len(s.WriteHandles)+len(s.ReadHandles))
	order = append(order, s.WriteHandles...)
	order = append(order, s.ReadHandles...)
	return order
}

// Commit runs 2PC phase 2. For a prepared writer it sends COMMIT
// PREPARED '<gid>'; for everyone else (readers, and any writer that
// never reached PREPARED because 2PC wasn't required) it sends COMMIT
// TRANSACTION. The whole window from the first commit send to the last
// response is held under barrier's shared lock (§4.3 "Cross-node
// ordering & the barrier lock").
func Commit(ctx context.Context, s *RemoteXactState, oracle Oracle, registry InDoubtRegistry, barrier *Barrier) error {
	commitXID, err := oracle.NewXID(ctx)
	if err != nil {
		return fmt.Errorf("xact: commit: acquire commit xid: %w", err)
	}
	s.CommitXID = commitXID

	barrier.SharedLock()
	defer barrier.SharedUnlock()

	order := commitOrder(s)
	var (
		sentAny  bool
		anyFail  bool
		failedID []node.ID
		firstErr error
	)

	for _, h := range order {
		var sql string
		if s.NodeStatus[h.ID()] == NodePrepared {
			sql = fmt.Sprintf("COMMIT PREPARED '%s';", s.PrepareGID)
			s.NodeStatus[h.ID()] = NodeCommitSent
		} else {
			sql = "COMMIT TRANSACTION;"
		}

		out, runErr := runCommand(h, sql)
		sentAny = true
		if runErr != nil || out.remoteErr != nil {
			anyFail = true
			failedID = append(failedID, h.ID())
			if s.NodeStatus[h.ID()] == NodeCommitSent {
				s.NodeStatus[h.ID()] = NodeCommitFailed
			}
			if firstErr == nil {
				if runErr != nil {
					firstErr = runErr
				} else {
					firstErr = out.remoteErr
				}
			}
			continue
		}
		if s.NodeStatus[h.ID()] == NodeCommitSent {
			s.NodeStatus[h.ID()] = NodeCommitted
		}
	}

	if !anyFail {
		s.Status = StatusCommitted
		return nil
	}

	if !sentAny || len(failedID) == len(order) {
		// Nothing actually reached the wire as committed: safe to fall
		// back to the ordinary abort path.
		s.Status = StatusCommitFailed
		return &xfabric.TxnError{Phase: "commit", GID: s.PrepareGID, Err: firstErr}
	}

	// Some succeeded, some failed: in-doubt until the external registry
	// resolves it. Do not roll back — the session must not issue
	// ROLLBACK PREPARED against a node whose own status is unknown.
	s.Status = StatusPartCommitted
	nodes := make([]string, 0, len(failedID))
	for _, id := range failedID {
		nodes = append(nodes, id.String())
	}
	if regErr := registry.RegisterInDoubt(s.PrepareGID, nodes); regErr != nil {
		return fmt.Errorf("xact: commit: part_committed but failed to register in-doubt gid %q: %w", s.PrepareGID, regErr)
	}
	return &xfabric.TxnError{Phase: "commit", GID: s.PrepareGID, Err: firstErr}
}
