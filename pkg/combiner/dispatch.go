package combiner

import (
	"fmt"

	"github.com/mnohosten/laura-remotex/pkg/node"
	"github.com/mnohosten/laura-remotex/pkg/wire"
	"github.com/mnohosten/laura-remotex/pkg/xfabric"
)

// Query describes a simple-protocol query dispatch.
type Query struct {
	SQL string
}

// Dispatch sends a simple-protocol query to every handle. Each handle
// must already be IDLE (a non-idle handle fails the dispatch); this
// Combiner is attached as owner and the handle moves to QUERY (§4.2
// dispatch()).
func (c *Combiner) Dispatch(handles []*node.Handle, q Query) error {
	return c.dispatchCommon(handles, func(h *node.Handle) {
		wire.WriteQuery(h.Out, q.SQL)
	})
}

// DispatchExtended sends the Parse/Bind/Describe/Execute/Sync
// sequence to every handle.
func (c *Combiner) DispatchExtended(handles []*node.Handle, p wire.ExtendedQueryParams) error {
	return c.dispatchCommon(handles, func(h *node.Handle) {
		wire.WriteExtendedQuery(h.Out, p)
	})
}

func (c *Combiner) dispatchCommon(handles []*node.Handle, write func(*node.Handle)) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("combiner: dispatch on closed combiner")
	}

	c.conns = make([]*connState, 0, len(handles))
	for _, h := range handles {
		if h.ConnState() != node.ConnIdle {
			return fmt.Errorf("combiner: node %s (state=%s): %w", h.ID(), h.ConnState(), xfabric.ErrHandleNotIdle)
		}
		if err := h.Attach(c); err != nil {
			return fmt.Errorf("combiner: attach node %s: %w: %w", h.ID(), xfabric.ErrOwnershipConflict, err)
		}
		write(h)
		h.SetConnState(node.ConnQuery)
		c.conns = append(c.conns, &connState{handle: h})
	}
	c.connCount = len(c.conns)
	c.currentIdx = 0
	c.setRequestType(RequestQuery)
	return nil
}
