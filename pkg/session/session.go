// Package session wires the locator, combiner, and transaction
// coordinator packages together into the single explicit object a
// client connection owns for its lifetime (SPEC_FULL.md §3, §5): one
// Session per connection, holding its own handle set and
// RemoteXactState; Combiners are created per call and are not kept on
// the Session.
package session

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/net/trace"

	"github.com/mnohosten/laura-remotex/pkg/combiner"
	"github.com/mnohosten/laura-remotex/pkg/fabricmetrics"
	"github.com/mnohosten/laura-remotex/pkg/node"
	"github.com/mnohosten/laura-remotex/pkg/xact"
)

// Config carries the per-session settings the original's GUCs would
// have supplied: the local isolation level and whether the session's
// own statements are read-only.
type Config struct {
	IsolationLevel string
	ReadOnly       bool
	TempObjectsUsed bool
}

// Session is the coordinator-side state for one client connection.
type Session struct {
	cfg Config

	oracle   xact.Oracle
	registry xact.InDoubtRegistry
	barrier  *xact.Barrier

	xactState *xact.RemoteXactState

	handles map[node.ID]*node.Handle

	metrics *fabricmetrics.Collector
}

// New creates an empty Session. barrier is shared process-wide across
// sessions (§4.3's barrier lock is "process-wide and reader/writer
// fair"); metrics is likewise shared so /metrics reports fabric-wide
// totals, not just one connection's; everything else is owned
// exclusively by this Session.
func New(cfg Config, oracle xact.Oracle, registry xact.InDoubtRegistry, barrier *xact.Barrier, metrics *fabricmetrics.Collector) *Session {
	return &Session{
		cfg:       cfg,
		oracle:    oracle,
		registry:  registry,
		barrier:   barrier,
		xactState: xact.New(),
		handles:   make(map[node.ID]*node.Handle),
		metrics:   metrics,
	}
}

// AddHandle registers a just-acquired handle with the session and
// records whether the statement that acquired it writes.
func (s *Session) AddHandle(h *node.Handle, writing bool) {
	s.handles[h.ID()] = h
	xact.RegisterTransactionNode(s.xactState, h, writing)
}

// EnsureBegun sends the BEGIN broadcast to any handle in this
// transaction that hasn't seen one yet.
func (s *Session) EnsureBegun(ctx context.Context) error {
	all := append(append([]*node.Handle{}, s.xactState.WriteHandles...), s.xactState.ReadHandles...)
	return xact.BeginBroadcast(ctx, all, s.oracle, s.cfg.IsolationLevel, s.cfg.ReadOnly)
}

// Dispatch runs one query across handles through a fresh Combiner and
// drains it to completion (or to the first DATA_CORRUPTED/protocol
// error).
func (s *Session) Dispatch(handles []*node.Handle, sql string, combine combiner.CombineType) (*combiner.Combiner, error) {
	tr := trace.New("remotex.query", sql)
	defer tr.Finish()
	tr.LazyPrintf("dispatch to %d node(s)", len(handles))

	if s.metrics != nil {
		s.metrics.IncDispatch()
	}

	c := combiner.New(len(handles), combine)
	if err := c.Dispatch(handles, combiner.Query{SQL: sql}); err != nil {
		tr.SetError()
		tr.LazyPrintf("dispatch failed: %v", err)
		if s.metrics != nil {
			s.metrics.IncDispatchError()
		}
		return nil, fmt.Errorf("session: dispatch: %w", err)
	}
	if err := c.ReceiveLoop(handles); err != nil {
		tr.SetError()
		tr.LazyPrintf("receive failed: %v", err)
		if s.metrics != nil {
			s.metrics.IncDispatchError()
		}
		return nil, fmt.Errorf("session: receive: %w", err)
	}
	if re := c.Err(); re != nil {
		tr.SetError()
		tr.LazyPrintf("remote error: %v", re)
		if s.metrics != nil {
			s.metrics.IncDispatchError()
		}
		return c, re
	}
	tr.LazyPrintf("ok")
	return c, nil
}

// Finish ends the transaction: it picks between the 2PC drive and a
// plain one-shot commit per is_2pc_required (§4.3), falling back to
// Abort on any prepare/commit failure.
func (s *Session) Finish(ctx context.Context) error {
	writers := len(s.xactState.WriteHandles)
	localWrites := writers > 0 && !s.cfg.ReadOnly
	if !xact.IsTwoPCRequired(writers, localWrites, s.cfg.TempObjectsUsed) {
		return s.commitOneShot(ctx)
	}

	gid := fmt.Sprintf("remotex_%p_%d", s, s.xactState.CommitXID+1)
	if err := xact.Prepare(ctx, s.xactState, gid); err != nil {
		s.Abort(ctx)
		return err
	}
	if err := xact.Commit(ctx, s.xactState, s.oracle, s.registry, s.barrier); err != nil {
		if s.xactState.Status == xact.StatusPartCommitted {
			// In-doubt: the abort path must not run, per §4.3 outcome 3.
			if s.metrics != nil {
				s.metrics.IncInDoubt()
			}
			return err
		}
		s.Abort(ctx)
		return err
	}
	if s.metrics != nil {
		s.metrics.IncCommit()
	}
	return nil
}

// commitOneShot sends a plain COMMIT TRANSACTION to every handle when
// 2PC isn't required. The whole window from the first commit send to
// the last response is held under barrier's shared lock, exactly as
// the 2PC path holds it in xact.Commit (§4.3 "Cross-node ordering &
// the barrier lock" applies to every commit drive, not just the
// prepared one).
func (s *Session) commitOneShot(ctx context.Context) error {
	if err := s.driveCommitOneShot(ctx); err != nil {
		s.Abort(ctx)
		return err
	}
	s.xactState.Status = xact.StatusCommitted
	if s.metrics != nil {
		s.metrics.IncCommit()
	}
	return nil
}

// driveCommitOneShot sends COMMIT TRANSACTION to every handle under
// barrier's shared lock; it does not itself run Abort on failure, so
// the lock is released before any recovery attempt starts.
func (s *Session) driveCommitOneShot(ctx context.Context) error {
	s.barrier.SharedLock()
	defer s.barrier.SharedUnlock()

	all := append(append([]*node.Handle{}, s.xactState.WriteHandles...), s.xactState.ReadHandles...)
	for _, h := range all {
		c := combiner.New(1, combiner.CombineNone)
		if err := c.Dispatch([]*node.Handle{h}, combiner.Query{SQL: "COMMIT TRANSACTION;"}); err != nil {
			return fmt.Errorf("session: commit: %w", err)
		}
		if err := c.ReceiveLoop([]*node.Handle{h}); err != nil {
			return fmt.Errorf("session: commit: %w", err)
		}
		if re := c.Err(); re != nil {
			return re
		}
	}
	return nil
}

// Abort runs the Combiner cleanup pass over every dirty handle, then
// the abort protocol. Errors are logged, never returned, matching
// §4.3's "all errors during ABORT are log-only".
func (s *Session) Abort(ctx context.Context) {
	preAbort := func() error {
		all := make([]*node.Handle, 0, len(s.handles))
		for _, h := range s.handles {
			all = append(all, h)
		}
		c := combiner.New(len(all), combiner.CombineNone)
		return c.PreAbort(all)
	}
	xact.Abort(ctx, s.xactState, s.oracle, preAbort)
	if s.metrics != nil {
		s.metrics.IncAbort()
	}
	if s.xactState.Status != xact.StatusAborted {
		log.Printf("session: abort finished with status %v", s.xactState.Status)
	}
}
