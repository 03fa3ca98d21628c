package poolclient

import (
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

// SendFDs writes a single dummy byte plus a SCM_RIGHTS control message
// carrying fds. The pool-manager process itself is out of scope here,
// but tests (and any future in-process pool manager) use this to
// exercise the client's receive path realistically over a real
// socketpair rather than a mock.
func SendFDs(conn *net.UnixConn, fds []int) error {
	oob := unix.UnixRights(fds...)
	_, _, err := conn.WriteMsgUnix([]byte{0}, oob, nil)
	if err != nil {
		return fmt.Errorf("poolclient: sendmsg: %w", err)
	}
	return nil
}
