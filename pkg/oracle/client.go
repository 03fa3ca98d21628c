package oracle

import (
	"context"
	"fmt"

	"google.golang.org/grpc"
)

// Client calls the external sequencer over gRPC using the gob codec
// registered in codec.go. It implements xact.Oracle without importing
// pkg/xact, keeping the dependency direction one-way (session wires
// the two together).
type Client struct {
	conn *grpc.ClientConn
}

// Dial opens a gRPC connection to the sequencer at target (host:port).
func Dial(ctx context.Context, target string, opts ...grpc.DialOption) (*Client, error) {
	conn, err := grpc.NewClient(target, opts...)
	if err != nil {
		return nil, fmt.Errorf("oracle: dial %q: %w", target, err)
	}
	return &Client{conn: conn}, nil
}

// Close tears down the underlying gRPC connection.
func (c *Client) Close() error { return c.conn.Close() }

func (c *Client) invoke(ctx context.Context, method string, req, reply interface{}) error {
	return c.conn.Invoke(ctx, method, req, reply, grpc.CallContentSubtype(codecName))
}

func (c *Client) NewXID(ctx context.Context) (uint64, error) {
	var resp NewXIDResponse
	if err := c.invoke(ctx, "/sequencer.Sequencer/NewXID", &NewXIDRequest{}, &resp); err != nil {
		return 0, fmt.Errorf("oracle: new_xid: %w", err)
	}
	return resp.XID, nil
}

func (c *Client) NewTimestamp(ctx context.Context) (uint64, error) {
	var resp NewTimestampResponse
	if err := c.invoke(ctx, "/sequencer.Sequencer/NewTimestamp", &NewTimestampRequest{}, &resp); err != nil {
		return 0, fmt.Errorf("oracle: new_timestamp: %w", err)
	}
	return resp.Timestamp, nil
}

func (c *Client) StartPrepared(ctx context.Context, xid uint64, gid, nodeListCSV string) error {
	req := &StartPreparedRequest{XID: xid, GID: gid, NodeListCSV: nodeListCSV}
	var resp StartPreparedResponse
	if err := c.invoke(ctx, "/sequencer.Sequencer/StartPrepared", req, &resp); err != nil {
		return fmt.Errorf("oracle: start_prepared: %w", err)
	}
	return nil
}

func (c *Client) FinishPrepared(ctx context.Context, xid uint64) error {
	req := &FinishPreparedRequest{XID: xid}
	var resp FinishPreparedResponse
	if err := c.invoke(ctx, "/sequencer.Sequencer/FinishPrepared", req, &resp); err != nil {
		return fmt.Errorf("oracle: finish_prepared: %w", err)
	}
	return nil
}

func (c *Client) Rollback(ctx context.Context, xid uint64) error {
	req := &RollbackRequest{XID: xid}
	var resp RollbackResponse
	if err := c.invoke(ctx, "/sequencer.Sequencer/Rollback", req, &resp); err != nil {
		return fmt.Errorf("oracle: rollback: %w", err)
	}
	return nil
}

func (c *Client) CommitPrepared(ctx context.Context, prepareXID, finalXID uint64) error {
	req := &CommitPreparedRequest{PrepareXID: prepareXID, FinalXID: finalXID}
	var resp CommitPreparedResponse
	if err := c.invoke(ctx, "/sequencer.Sequencer/CommitPrepared", req, &resp); err != nil {
		return fmt.Errorf("oracle: commit_prepared: %w", err)
	}
	return nil
}

func (c *Client) LookupGID(ctx context.Context, gid string) (uint64, uint64, string, error) {
	req := &LookupGIDRequest{GID: gid}
	var resp LookupGIDResponse
	if err := c.invoke(ctx, "/sequencer.Sequencer/LookupGID", req, &resp); err != nil {
		return 0, 0, "", fmt.Errorf("oracle: lookup_gid: %w", err)
	}
	return resp.XID, resp.PrepareXID, resp.NodeListCSV, nil
}
