package tcpserver

import (
	"io"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aledsdavies/corelib/pkg/buffer"
	"github.com/aledsdavies/corelib/pkg/reactor"
)

// echoHandler implements ConnectionHandler by copying every unread byte
// straight to the write buffer.
type echoHandler struct{}

func (echoHandler) Poll(read, write *buffer.ByteBuffer) {
	for {
		slice, ok := read.GetSlice(4096)
		if !ok {
			return
		}
		write.Append(slice)
	}
}

// TestEchoRoundTrip is testable property 9: binding a server
// with an echo handler, connecting, writing m bytes, and reading m bytes
// yields exactly the bytes written.
func TestEchoRoundTrip(t *testing.T) {
	re, err := reactor.New(nil)
	require.NoError(t, err)

	srv := New(re, echoHandler{}, nil)
	addr, err := ParseIPv4("127.0.0.1")
	require.NoError(t, err)

	require.NoError(t, srv.Serve(addr, 18732))
	defer srv.Deinit()

	conn, err := net.DialTimeout("tcp", "127.0.0.1:18732", time.Second)
	require.NoError(t, err)
	defer conn.Close()

	want := []byte("hello, reactor")
	require.NoError(t, conn.SetDeadline(time.Now().Add(2*time.Second)))

	_, err = conn.Write(want)
	require.NoError(t, err)

	got := make([]byte, len(want))
	_, err = io.ReadFull(conn, got)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestServeRejectsAddressInUse(t *testing.T) {
	re1, err := reactor.New(nil)
	require.NoError(t, err)
	srv1 := New(re1, echoHandler{}, nil)
	addr, err := ParseIPv4("127.0.0.1")
	require.NoError(t, err)
	require.NoError(t, srv1.Serve(addr, 18731))
	defer srv1.Deinit()

	re2, err := reactor.New(nil)
	require.NoError(t, err)
	srv2 := New(re2, echoHandler{}, nil)
	err = srv2.Serve(addr, 18731)
	require.Error(t, err)
}

func TestParseIPv4(t *testing.T) {
	addr, err := ParseIPv4("127.0.0.1")
	require.NoError(t, err)
	require.Equal(t, [4]byte{127, 0, 0, 1}, addr)

	_, err = ParseIPv4("not-an-ip")
	require.Error(t, err)

	_, err = ParseIPv4("256.0.0.1")
	require.Error(t, err)
}
