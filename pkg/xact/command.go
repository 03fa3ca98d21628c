package xact

import (
	"fmt"

	"github.com/mnohosten/laura-remotex/pkg/node"
	"github.com/mnohosten/laura-remotex/pkg/wire"
	"github.com/mnohosten/laura-remotex/pkg/xfabric"
)

// sendCommand writes a simple-query control message (BEGIN, PREPARE
// TRANSACTION, COMMIT PREPARED, ROLLBACK, ...) to h.Out.
func sendCommand(h *node.Handle, sql string) {
	wire.WriteQuery(h.Out, sql)
}

// commandOutcome is the result of draining one handle's response to a
// control command.
type commandOutcome struct {
	remoteErr *xfabric.RemoteError
}

// awaitCommand drains frames already buffered on h.In until
// ReadyForQuery, treating any CommandComplete as success and recording
// the first ErrorResponse seen. It returns done=false when h.In runs
// out of buffered bytes before ReadyForQuery arrives — the caller (the
// session's socket poller) must read more bytes and call again.
func awaitCommand(h *node.Handle) (outcome commandOutcome, done bool, err error) {
	for {
		frame, ok, rerr := wire.ReadFrame(h.In)
		if rerr != nil {
			return commandOutcome{}, false, rerr
		}
		if !ok {
			return outcome, false, nil
		}
		switch frame.Tag {
		case wire.TagCommandComplete:
			// Content isn't needed for a control command; keep reading
			// for the ReadyForQuery that always follows.
		case wire.TagErrorResponse:
			ef, perr := wire.ParseErrorResponse(frame.Payload)
			if perr != nil {
				return commandOutcome{}, false, perr
			}
			if outcome.remoteErr == nil {
				re := &xfabric.RemoteError{NodeID: int64(h.ID().Num), Message: ef.Message, Detail: ef.Detail}
				copy(re.SQLState[:], ef.Code)
				outcome.remoteErr = re
			}
		case wire.TagReadyForQuery:
			rs, perr := wire.ParseReadyForQuery(frame.Payload)
			if perr != nil {
				return commandOutcome{}, false, perr
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
			return outcome, true, nil
		default:
			if !wire.Silent[frame.Tag] {
				return commandOutcome{}, false, fmt.Errorf("xact: unexpected message tag %q from node %s", frame.Tag, h.ID())
			}
		}
	}
}

// runCommand sends sql to h and reads its response. Every call site in
// this package is driven either by a test that has pre-filled h.In, or
// by the session loop only after its socket poller has confirmed a
// full response is buffered — so a single awaitCommand pass always
// suffices here, unlike the combiner's ReceiveLoop which tolerates
// partial buffers across many handles at once.
func runCommand(h *node.Handle, sql string) (commandOutcome, error) {
	sendCommand(h, sql)
	out, done, err := awaitCommand(h)
	if err != nil {
		return commandOutcome{}, err
	}
	if !done {
		return out, fmt.Errorf("xact: node %s: response not yet buffered", h.ID())
	}
	return out, nil
}
