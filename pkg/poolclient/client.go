package poolclient

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// Client is a session's connection to the pool manager.
type Client struct {
	conn *net.UnixConn
}

// Dial connects to the pool manager listening on a Unix-domain socket.
func Dial(socketPath string) (*Client, error) {
	addr, err := net.ResolveUnixAddr("unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("poolclient: resolve %q: %w", socketPath, err)
	}
	conn, err := net.DialUnix("unix", nil, addr)
	if err != nil {
		return nil, fmt.Errorf("poolclient: dial %q: %w", socketPath, err)
	}
	return &Client{conn: conn}, nil
}

// Connect sends CONNECT. There is no reply (§6).
func (c *Client) Connect(pid uint32, db, user string) error {
	payload := putU32(nil, pid)
	payload = putString(payload, db)
	payload = putString(payload, user)
	return writeFrame(c.conn, MsgConnect, payload)
}

// Disconnect sends DISCONNECT and closes the socket.
func (c *Client) Disconnect() error {
	if err := writeFrame(c.conn, MsgDisconnect, nil); err != nil {
		return err
	}
	return c.conn.Close()
}

// GetConnections requests backend connections for the given data and
// coordinator node ids and returns the file descriptors handed back
// via SCM_RIGHTS, data nodes first, in request order.
func (c *Client) GetConnections(dataIDs, coordIDs []uint32) ([]int, error) {
	payload := putU32Array(nil, dataIDs)
	payload = putU32Array(payload, coordIDs)
	if err := writeFrame(c.conn, MsgGetConnections, payload); err != nil {
		return nil, err
	}
	want := len(dataIDs) + len(coordIDs)
	return c.recvFDs(want)
}

// Release returns handles to the pool (or tells it to discard them),
// same wire layout as GetConnections, no fds in the reply.
func (c *Client) Release(dataIDs, coordIDs []uint32) error {
	payload := putU32Array(nil, dataIDs)
	payload = putU32Array(payload, coordIDs)
	return writeFrame(c.conn, MsgRelease, payload)
}

// Cancel issues PQcancel on every listed handle.
func (c *Client) Cancel(dataIDs, coordIDs []uint32) error {
	payload := putU32Array(nil, dataIDs)
	payload = putU32Array(payload, coordIDs)
	return writeFrame(c.conn, MsgCancel, payload)
}

// Set applies a LOCAL_SET/GLOBAL_SET/TEMP_MARK command, returning the
// pool manager's result code.
func (c *Client) Set(cmdType uint32, cmd string) (int32, error) {
	payload := putU32(nil, cmdType)
	payload = putString(payload, cmd)
	if err := writeFrame(c.conn, MsgSet, payload); err != nil {
		return 0, err
	}
	_, reply, err := readFrame(c.conn)
	if err != nil {
		return 0, err
	}
	code, _, err := getU32(reply)
	return int32(code), err
}

// Abort signals every backend process for (db, user) and returns the
// list of PIDs that were sent a signal.
func (c *Client) Abort(db, user string) ([]uint32, error) {
	payload := putString(nil, db)
	payload = putString(payload, user)
	if err := writeFrame(c.conn, MsgAbort, payload); err != nil {
		return nil, err
	}
	_, reply, err := readFrame(c.conn)
	if err != nil {
		return nil, err
	}
	pids, _, err := getU32Array(reply)
	return pids, err
}

// Clean requests the pool manager clean the listed nodes for (db,
// user); result 0 means complete, nonzero means not yet complete.
func (c *Client) Clean(nodes []uint32, db, user string) (int32, error) {
	payload := putU32Array(nil, nodes)
	payload = putString(payload, db)
	payload = putString(payload, user)
	if err := writeFrame(c.conn, MsgClean, payload); err != nil {
		return 0, err
	}
	_, reply, err := readFrame(c.conn)
	if err != nil {
		return 0, err
	}
	code, _, err := getU32(reply)
	return int32(code), err
}

// recvFDs reads one SCM_RIGHTS control message carrying exactly want
// file descriptors.
func (c *Client) recvFDs(want int) ([]int, error) {
	// unix.CmsgSpace accounts for alignment padding around the control
	// message header, matching how the pool manager must have sized its
	// sendmsg buffer.
	oob := make([]byte, unix.CmsgSpace(want*4))
	msgBuf := make([]byte, 1)

	rawConn, err := c.conn.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("poolclient: syscall conn: %w", err)
	}

	var n, oobn int
	var rerr error
	cerr := rawConn.Read(func(fd uintptr) bool {
		n, oobn, _, _, rerr = unix.Recvmsg(int(fd), msgBuf, oob, 0)
		return true
	})
	if cerr != nil {
		return nil, fmt.Errorf("poolclient: recvmsg: %w", cerr)
	}
	if rerr != nil {
		return nil, fmt.Errorf("poolclient: recvmsg: %w", rerr)
	}
	_ = n

	cmsgs, err := unix.ParseSocketControlMessage(oob[:oobn])
	if err != nil {
		return nil, fmt.Errorf("poolclient: parse control message: %w", err)
	}
	var fds []int
	for _, cmsg := range cmsgs {
		parsed, err := unix.ParseUnixRights(&cmsg)
		if err != nil {
			continue
		}
		fds = append(fds, parsed...)
	}
	if len(fds) != want {
		return nil, fmt.Errorf("poolclient: expected %d fds, got %d", want, len(fds))
	}
	return fds, nil
}
