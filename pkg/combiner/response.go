package combiner

import (
	"fmt"

	"github.com/mnohosten/laura-remotex/pkg/node"
	"github.com/mnohosten/laura-remotex/pkg/wire"
	"github.com/mnohosten/laura-remotex/pkg/xfabric"
)

// Pump reads and applies at most one framed message buffered in h.In,
// implementing the message-tag dispatch table of SPEC_FULL.md §4.2.
// It returns ResultEOF, nil when h.In does not yet hold a complete
// frame — the caller (the session's socket poller) should read more
// bytes onto h.In and call Pump again.
//
// A returned error is always a protocol-level failure (DATA_CORRUPTED,
// ownership loss): backend-reported SQL errors are not returned here,
// they are recorded via c.err and surfaced through ResultError/Err().
func (c *Combiner) Pump(h *node.Handle) (Result, error) {
	frame, ok, err := wire.ReadFrame(h.In)
	if err != nil {
		return ResultError, err
	}
	if !ok {
		return ResultEOF, nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	cs := c.findConn(h)
	if cs == nil {
		return ResultError, fmt.Errorf("combiner: pump: node %s has no connection state", h.ID())
	}

	switch frame.Tag {
	case wire.TagRowDescription:
		return c.onRowDescription(h, frame.Payload)
	case wire.TagDataRow:
		return c.onDataRow(h, frame.Payload)
	case wire.TagCommandComplete:
		return c.onCommandComplete(h, cs, frame.Payload)
	case wire.TagPortalSuspended:
		h.SetConnState(node.ConnIdle)
		return ResultSuspended, nil
	case wire.TagCopyInResponse:
		h.SetConnState(node.ConnCopyIn)
		c.copyInCount++
		c.setRequestType(RequestCopyIn)
		return ResultCopy, nil
	case wire.TagCopyOutResponse:
		h.SetConnState(node.ConnCopyOut)
		c.copyOutCount++
		c.setRequestType(RequestCopyOut)
		return ResultCopy, nil
	case wire.TagCopyData:
		c.lastCopyData = frame.Payload
		return ResultCopy, nil
	case wire.TagCopyDone:
		c.lastCopyData = nil
		return ResultCopy, nil
	case wire.TagErrorResponse:
		return c.onErrorResponse(h, cs, frame.Payload)
	case wire.TagReadyForQuery:
		return c.onReadyForQuery(h, cs, frame.Payload)
	case wire.TagBarrierOK:
		h.SetConnState(node.ConnIdle)
		return ResultBarrierOK, nil
	default:
		if wire.Silent[frame.Tag] {
			return ResultSilent, nil
		}
		h.SetConnState(node.ConnErrorFatal)
		return ResultError, &xfabric.ProtocolError{
			NodeID: int64(h.ID().Num),
			Detail: fmt.Sprintf("unexpected message tag %q for request_type %s", frame.Tag, c.requestType),
		}
	}
}

func (c *Combiner) findConn(h *node.Handle) *connState {
	return c.findConnLocked(h)
}

// findConnLocked assumes c.mu is already held by the caller.
func (c *Combiner) findConnLocked(h *node.Handle) *connState {
	for _, cs := range c.conns {
		if cs.handle == h {
			return cs
		}
	}
	return nil
}

func (c *Combiner) onRowDescription(h *node.Handle, payload []byte) (Result, error) {
	td, err := wire.ParseRowDescription(payload)
	if err != nil {
		return ResultError, &xfabric.ProtocolError{NodeID: int64(h.ID().Num), Detail: err.Error()}
	}
	if c.tupleDesc == nil {
		c.tupleDesc = td
	} else if len(td.Columns) != len(c.tupleDesc.Columns) {
		return ResultError, &xfabric.ProtocolError{
			NodeID: int64(h.ID().Num),
			Detail: fmt.Sprintf("row description column count changed: %d -> %d", len(c.tupleDesc.Columns), len(td.Columns)),
		}
	}
	c.descriptionCount++
	return ResultTupDesc, nil
}

func (c *Combiner) onDataRow(h *node.Handle, payload []byte) (Result, error) {
	row, err := wire.ParseDataRow(payload)
	if err != nil {
		return ResultError, &xfabric.ProtocolError{NodeID: int64(h.ID().Num), Detail: err.Error()}
	}
	entry := rowEntry{origin: h.ID(), row: row}
	if c.err != nil {
		// An error is already recorded for this query: subsequent rows
		// from other producers are discarded rather than buffered, but
		// still observed (the caller's wait loop still advances).
		c.currentRow = &entry
		return ResultDataRow, nil
	}
	c.currentRow = &entry
	c.rowBuffer = append(c.rowBuffer, entry)
	return ResultDataRow, nil
}

func (c *Combiner) onCommandComplete(h *node.Handle, cs *connState, payload []byte) (Result, error) {
	cc, err := wire.ParseCommandComplete(payload)
	if err != nil {
		return ResultError, &xfabric.ProtocolError{NodeID: int64(h.ID().Num), Detail: err.Error()}
	}
	switch c.combineType {
	case CombineSum:
		if cc.Processed >= 0 {
			c.processed += cc.Processed
		}
	case CombineSame:
		if !c.processedSet {
			c.processed = cc.Processed
			c.processedSet = true
		} else if cc.Processed != c.processed {
			return ResultError, &xfabric.ProtocolError{
				NodeID: int64(h.ID().Num),
				Detail: fmt.Sprintf("combine_type SAME: row counts disagree (%d vs %d)", c.processed, cc.Processed),
			}
		}
	case CombineNone:
		// Row count is not meaningful across replicas; nothing to combine.
	}
	c.commandCompleteCount++
	cs.done = true
	h.SetConnState(node.ConnIdle)
	c.setRequestType(RequestCommand)
	return ResultComplete, nil
}

func (c *Combiner) onErrorResponse(h *node.Handle, cs *connState, payload []byte) (Result, error) {
	ef, err := wire.ParseErrorResponse(payload)
	if err != nil {
		return ResultError, &xfabric.ProtocolError{NodeID: int64(h.ID().Num), Detail: err.Error()}
	}
	re := &xfabric.RemoteError{NodeID: int64(h.ID().Num), Message: ef.Message, Detail: ef.Detail}
	copy(re.SQLState[:], ef.Code)
	if c.err == nil {
		c.err = re
	}
	c.commandCompleteCount++
	cs.done = true
	h.SetConnState(node.ConnIdle)
	c.setRequestType(RequestError)
	return ResultError, nil
}

func (c *Combiner) onReadyForQuery(h *node.Handle, cs *connState, payload []byte) (Result, error) {
	rs, err := wire.ParseReadyForQuery(payload)
	if err != nil {
		return ResultError, &xfabric.ProtocolError{NodeID: int64(h.ID().Num), Detail: err.Error()}
	}
	switch rs {
	case wire.ReadyIdle:
		h.SetTxnStatus(node.TxnIdle)
	case wire.ReadyInTxn:
		h.SetTxnStatus(node.TxnInTxn)
	case wire.ReadyInErrorTxn:
		h.SetTxnStatus(node.TxnInErrorTxn)
	}
	h.SetConnState(node.ConnIdle)
	h.Detach()
	cs.done = true
	return ResultReady, nil
}

// CurrentRow returns the most recently buffered row along with the
// node it came from.
func (c *Combiner) CurrentRow() (node.ID, *wire.Row, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentRow == nil {
		return node.ID{}, nil, false
	}
	return c.currentRow.origin, c.currentRow.row, true
}

// LastCopyData returns the payload of the most recent CopyData message,
// if any has been seen since the last call.
func (c *Combiner) LastCopyData() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := c.lastCopyData
	c.lastCopyData = nil
	return d
}

// ReceiveLoop drains already-buffered frames from every handle until
// each has reported ReadyForQuery, or until no handle has any complete
// frame left to process. A false-ish "no progress" return isn't
// reported as an error: the caller's poller is expected to read more
// bytes from the sockets and invoke ReceiveLoop again (§5's cooperative
// single-threaded multiplexing model).
func (c *Combiner) ReceiveLoop(handles []*node.Handle) error {
	pending := make(map[node.ID]bool, len(handles))
	for _, h := range handles {
		pending[h.ID()] = true
	}

	for len(pending) > 0 {
		progressed := false
		for _, h := range handles {
			if !pending[h.ID()] {
				continue
			}
			for {
				res, err := c.Pump(h)
				if err != nil {
					return err
				}
				if res == ResultEOF {
					break
				}
				progressed = true
				if res == ResultReady {
					delete(pending, h.ID())
					break
				}
			}
		}
		if !progressed {
			return nil
		}
	}
	return nil
}
