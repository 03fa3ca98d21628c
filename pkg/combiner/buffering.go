package combiner

import (
	"fmt"

	"github.com/mnohosten/laura-remotex/pkg/node"
	"github.com/mnohosten/laura-remotex/pkg/wire"
)

// BufferConnection releases this Combiner's ownership of h without
// touching h.In/h.Out: the handle's buffered bytes stay put, nothing is
// copied. After it returns, h is unowned and no longer mid-query
// (h.Owner() == nil, h.ConnState() != ConnQuery), ready for whatever
// hands it off next — the transaction coordinator, a fresh Combiner, or
// the pool manager — to Attach it itself. Used when a query's Combiner
// is done pulling rows but the handle still has an in-flight COPY or
// needs to hand off to the transaction coordinator mid-query.
func (c *Combiner) BufferConnection(h *node.Handle) error {
	owner := h.Owner()
	if owner == nil || owner.OwnerID() != c.OwnerID() {
		return fmt.Errorf("combiner: cannot release node %s: not owned by this combiner", h.ID())
	}
	h.Detach()
	if h.ConnState() == node.ConnQuery {
		h.SetConnState(node.ConnIdle)
	}
	return nil
}

// PreAbort drives every handle still mid-query back to IDLE so an abort
// can proceed cleanly: COPY_IN connections are unwound with CopyFail,
// and anything else is drained through Pump until the handle is IDLE
// again, which CommandComplete, ErrorResponse or ReadyForQuery all
// produce (§4.2). It only processes bytes already buffered on h.In; if a handle
// is still waiting on its backend, the caller must read more bytes and
// call PreAbort again — repeated calls are idempotent since handles
// already IDLE are skipped outright.
func (c *Combiner) PreAbort(handles []*node.Handle) error {
	c.mu.Lock()
	if c.conns == nil {
		c.conns = make([]*connState, 0, len(handles))
	}
	for _, h := range handles {
		if c.findConnLocked(h) == nil {
			c.conns = append(c.conns, &connState{handle: h})
		}
	}
	c.mu.Unlock()

	for _, h := range handles {
		switch h.ConnState() {
		case node.ConnIdle, node.ConnErrorFatal:
			continue
		case node.ConnCopyIn:
			wire.WriteCopyFail(h.Out, "transaction aborted")
			h.SetConnState(node.ConnQuery)
		}
	}

	for _, h := range handles {
		for h.ConnState() != node.ConnIdle && h.ConnState() != node.ConnErrorFatal {
			res, err := c.Pump(h)
			if err != nil {
				return err
			}
			if res == ResultEOF {
				break
			}
		}
	}
	return nil
}

// Close releases ownership of every connection this Combiner still
// holds and marks it unusable for further dispatch.
func (c *Combiner) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, cs := range c.conns {
		cs.handle.Detach()
	}
	c.closed = true
}
