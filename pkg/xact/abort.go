package xact

import (
	"context"
	"fmt"
	"log"

	"github.com/mnohosten/laura-remotex/pkg/node"
)

// Abort runs the abort protocol (§4.3): handles that reached PREPARED
// or PREPARE_SENT get an aux GXID and ROLLBACK PREPARED '<gid>';
// everything else gets a plain ROLLBACK TRANSACTION. Every failure here
// is logged, never raised — an abort that itself failed must not throw
// the session into another recovery loop. Calling Abort a second time
// on an already-ABORTED state is a no-op (§8's idempotence law).
func Abort(ctx context.Context, s *RemoteXactState, oracle Oracle, preAbort func() error) {
	if s.Status == StatusAborted {
		return
	}
	if preAbort != nil {
		if err := preAbort(); err != nil {
			log.Printf("xact: abort: pre-abort cleanup: %v", err)
		}
	}

	anyFail := false
	for _, h := range commitOrder(s) {
		ns := s.NodeStatus[h.ID()]
		if ns == NodePrepared || ns == NodePrepareSent {
			abortWithGXID(ctx, s, h, oracle, &anyFail)
			continue
		}
		s.NodeStatus[h.ID()] = NodeAbortSent
		_, err := runCommand(h, "ROLLBACK TRANSACTION;")
		if err != nil {
			anyFail = true
			s.NodeStatus[h.ID()] = NodeAbortFailed
			log.Printf("xact: abort: node %s: %v", h.ID(), err)
			continue
		}
		s.NodeStatus[h.ID()] = NodeAborted
	}

	if anyFail {
		s.Status = StatusPartAborted
		return
	}
	s.Status = StatusAborted
}

func abortWithGXID(ctx context.Context, s *RemoteXactState, h *node.Handle, oracle Oracle, anyFail *bool) {
	auxXID, err := oracle.NewXID(ctx)
	if err != nil {
		*anyFail = true
		s.NodeStatus[h.ID()] = NodeAbortFailed
		log.Printf("xact: abort: node %s: acquire aux gxid: %v", h.ID(), err)
		return
	}
	s.NodeStatus[h.ID()] = NodeAbortSent
	sql := fmt.Sprintf("SET GLOBAL_TRANSACTION_ID = %d; ROLLBACK PREPARED '%s';", auxXID, s.PrepareGID)
	_, err = runCommand(h, sql)
	if err != nil {
		*anyFail = true
		s.NodeStatus[h.ID()] = NodeAbortFailed
		log.Printf("xact: abort: node %s: rollback prepared %q: %v", h.ID(), s.PrepareGID, err)
		return
	}
	s.NodeStatus[h.ID()] = NodeAborted
}
