package xact

import (
	"context"
	"fmt"

	"github.com/mnohosten/laura-remotex/pkg/node"
)

// BeginBroadcast sends the GXID/snapshot/START TRANSACTION preamble to
// every handle not already inside a transaction (§4.3 "BEGIN
// broadcast"). isolation is the level name (e.g. "READ COMMITTED")
// inherited from the local session; readOnly selects READ ONLY vs READ
// WRITE.
func BeginBroadcast(ctx context.Context, handles []*node.Handle, oracle Oracle, isolation string, readOnly bool) error {
	for _, h := range handles {
		if h.TxnStatus() != node.TxnIdle {
			continue // already in a transaction on this handle
		}
		gxid, err := oracle.NewXID(ctx)
		if err != nil {
			return fmt.Errorf("xact: begin: node %s: acquire gxid: %w", h.ID(), err)
		}
		ts, err := oracle.NewTimestamp(ctx)
		if err != nil {
			return fmt.Errorf("xact: begin: node %s: acquire snapshot timestamp: %w", h.ID(), err)
		}

		mode := "READ WRITE"
		if readOnly {
			mode = "READ ONLY"
		}
		sql := fmt.Sprintf(
			"SET GLOBAL_TRANSACTION_ID = %d, SNAPSHOT_TIMESTAMP = %d; START TRANSACTION ISOLATION LEVEL %s %s;",
			gxid, ts, isolation, mode,
		)
		out, err := runCommand(h, sql)
		if err != nil {
			return fmt.Errorf("xact: begin: node %s: %w", h.ID(), err)
		}
		if out.remoteErr != nil {
			return fmt.Errorf("xact: begin: node %s: %w", h.ID(), out.remoteErr)
		}
	}
	return nil
}
