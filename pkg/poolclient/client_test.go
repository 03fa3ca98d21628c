package poolclient

import (
	"net"
	"os"
	"testing"

	"golang.org/x/sys/unix"
)

func socketpairConns(t *testing.T) (*net.UnixConn, *net.UnixConn) {
	t.Helper()
	fds, err := unix.Socketpair(unix.AF_UNIX, unix.SOCK_STREAM, 0)
	if err != nil {
		t.Fatal(err)
	}
	f0 := os.NewFile(uintptr(fds[0]), "pair0")
	f1 := os.NewFile(uintptr(fds[1]), "pair1")
	defer f0.Close()
	defer f1.Close()

	c0, err := net.FileConn(f0)
	if err != nil {
		t.Fatal(err)
	}
	c1, err := net.FileConn(f1)
	if err != nil {
		t.Fatal(err)
	}
	u0, ok := c0.(*net.UnixConn)
	if !ok {
		t.Fatalf("expected *net.UnixConn, got %T", c0)
	}
	u1, ok := c1.(*net.UnixConn)
	if !ok {
		t.Fatalf("expected *net.UnixConn, got %T", c1)
	}
	return u0, u1
}

func TestGetConnectionsReceivesFDs(t *testing.T) {
	clientConn, serverConn := socketpairConns(t)
	defer clientConn.Close()
	defer serverConn.Close()

	client := &Client{conn: clientConn}

	backendR1, backendW1, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer backendR1.Close()
	defer backendW1.Close()
	backendR2, backendW2, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	defer backendR2.Close()
	defer backendW2.Close()

	serverDone := make(chan error, 1)
	go func() {
		mt, payload, err := readFrame(serverConn)
		if err != nil {
			serverDone <- err
			return
		}
		if mt != MsgGetConnections {
			serverDone <- err
			return
		}
		_ = payload
		serverDone <- SendFDs(serverConn, []int{int(backendR1.Fd()), int(backendR2.Fd())})
	}()

	fds, err := client.GetConnections([]uint32{1, 2}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(fds) != 2 {
		t.Fatalf("got %d fds, want 2", len(fds))
	}
	for _, fd := range fds {
		unix.Close(fd)
	}
	if err := <-serverDone; err != nil {
		t.Fatal(err)
	}
}
