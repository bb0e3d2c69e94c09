// Package tcpserver implements the accept loop and per-connection I/O
// pumping: a non-blocking STREAM listener bound to a reactor.Instance,
// with one Connection per accepted socket and a single user-supplied
// ConnectionHandler driving all of them.
package tcpserver

import (
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/aledsdavies/corelib/internal/corerr"
	"github.com/aledsdavies/corelib/pkg/buffer"
	"github.com/aledsdavies/corelib/pkg/reactor"
)

// ConnectionHandler is the user contract: Poll may consume any
// prefix of read and append any bytes to write. It must not block, runs on
// the reactor thread, and is called at most once per read-readiness event.
type ConnectionHandler interface {
	Poll(read, write *buffer.ByteBuffer)
}

// scratchSize bounds the stack buffer read_handler loops with; large
// enough that a handful of iterations drains typical bursts without
// repeated syscalls, small enough to stay off the heap.
const scratchSize = 64 * 1024

// listenBacklog is the fixed listen(2) backlog.
const listenBacklog = 128

// Connection is owned by the Server and keyed by its socket descriptor.
// The handler never retains read or write past a Poll call.
type Connection struct {
	fd      int
	read    *buffer.ByteBuffer
	write   *buffer.ByteBuffer
	handler ConnectionHandler
}

// Server accepts connections on a listening socket and pumps them through
// a reactor, invoking a single ConnectionHandler for every connection.
type Server struct {
	logger  *slog.Logger
	handler ConnectionHandler
	re      reactor.Instance

	listenFD int

	mu    sync.RWMutex
	conns map[int]*Connection
}

// New constructs a Server bound to re, ready for Serve. re must not
// already be spawned.
func New(re reactor.Instance, handler ConnectionHandler, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		logger: logger,
		handler: handler,
		re: re,
		listenFD: -1,
		conns: make(map[int]*Connection),
	}
}

// Serve creates a non-blocking IPv4 STREAM socket with CLOEXEC, binds it
// to addr:port, listens with a backlog of 128, registers the accept
// handler, and spawns the reactor.
func (s *Server) Serve(addr [4]byte, port int) error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM|unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC, 0)
	if err != nil {
		return corerr.Wrap(corerr.CodeSocketError, "socket", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return corerr.Wrap(corerr.CodeSocketError, "setsockopt SO_REUSEADDR", err)
	}

	sa := &unix.SockaddrInet4{Port: port, Addr: addr}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		if err == unix.EADDRINUSE {
			return corerr.Wrap(corerr.CodeAddressInUse, "bind", err)
		}
		if err == unix.EACCES {
			return corerr.Wrap(corerr.CodePermissionDenied, "bind", err)
		}
		return corerr.Wrap(corerr.CodeSocketError, "bind", err)
	}

	if err := unix.Listen(fd, listenBacklog); err != nil {
		unix.Close(fd)
		return corerr.Wrap(corerr.CodeSocketError, "listen", err)
	}

	s.listenFD = fd

	if err := s.re.Register(fd, reactor.FilterRead, nil, s.acceptHandler); err != nil {
		unix.Close(fd)
		return corerr.Wrap(corerr.CodeSocketError, "register listen fd", err)
	}

	s.re.Spawn()
	return nil
}

// Join delegates to the reactor.
func (s *Server) Join() {
	s.re.Join()
}

// Deinit joins the reactor, tears down every open connection, and closes
// the listening socket.
func (s *Server) Deinit() {
	s.re.Join()

	s.mu.Lock()
	conns := s.conns
	s.conns = make(map[int]*Connection)
	s.mu.Unlock()

	for fd, c := range conns {
		s.closeConnection(fd, c)
	}

	if s.listenFD >= 0 {
		unix.Close(s.listenFD)
		s.listenFD = -1
	}
}

// acceptHandler accepts every pending connection on the listen
// descriptor, constructing a Connection and registering it for both read
// and write readiness.
func (s *Server) acceptHandler(h reactor.Handle, ev reactor.Event, userData interface{}) {
	for {
		fd, _, err := unix.Accept4(s.listenFD, unix.SOCK_NONBLOCK|unix.SOCK_CLOEXEC)
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				return
			}
			s.logger.Warn("tcpserver: accept4 failed", "error", err)
			return
		}

		c := &Connection{
			fd: fd,
			read: buffer.NewByteBuffer(),
			write: buffer.NewByteBuffer(),
			handler: s.handler,
		}

		s.mu.Lock()
		s.conns[fd] = c
		s.mu.Unlock()

		if err := h.Register(fd, reactor.FilterRead, nil, s.readHandler); err != nil {
			s.logger.Warn("tcpserver: register read failed", "fd", fd, "error", err)
			s.dropConnection(fd)
			continue
		}
		if err := h.Register(fd, reactor.FilterWrite, nil, s.writeHandler); err != nil {
			s.logger.Warn("tcpserver: register write failed", "fd", fd, "error", err)
			s.dropConnection(fd)
			continue
		}
	}
}

// readHandler drains the socket into the connection's read buffer, polls
// the user handler exactly once, then drains the write buffer back to the
// socket.
func (s *Server) readHandler(h reactor.Handle, ev reactor.Event, userData interface{}) {
	s.mu.RLock()
	c, ok := s.conns[ev.FD]
	s.mu.RUnlock()
	if !ok {
		return
	}

	var scratch [scratchSize]byte
	closed := false

	for {
		n, err := unix.Read(c.fd, scratch[:])
		if n > 0 {
			c.read.Append(scratch[:n])
		}
		if n == 0 {
			closed = true
			break
		}
		if err != nil {
			if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
				break
			}
			closed = true
			break
		}
		if n < len(scratch) {
			// Short read: the socket buffer is drained for now.
			break
		}
	}

	if closed {
		s.closeConnection(c.fd, c)
		return
	}

	c.handler.Poll(c.read, c.write)
	s.drainWrite(c)
}

// writeHandler is a no-op placeholder: write draining happens inside
// readHandler.
func (s *Server) writeHandler(h reactor.Handle, ev reactor.Event, userData interface{}) {}

// drainWrite flushes the connection's write buffer to the socket via
// successive GetSlice calls until it is empty or the kernel rejects
// further writes.
func (s *Server) drainWrite(c *Connection) {
	for {
		slice, ok := c.write.GetSlice(scratchSize)
		if !ok {
			return
		}
		written := 0
		for written < len(slice) {
			n, err := unix.Write(c.fd, slice[written:])
			if err != nil {
				if err == unix.EAGAIN || err == unix.EWOULDBLOCK {
					return
				}
				s.logger.Warn("tcpserver: write failed", "fd", c.fd, "error", err)
				return
			}
			written += n
		}
	}
}

// closeConnection removes fd from the connection table and closes the
// socket. Safe to call once per connection lifetime.
func (s *Server) closeConnection(fd int, c *Connection) {
	s.dropConnection(fd)
	unix.Close(fd)
}

func (s *Server) dropConnection(fd int) {
	s.mu.Lock()
	delete(s.conns, fd)
	s.mu.Unlock()
}

// ConnectionCount reports the number of open connections, for
// debugsnap's read-only accessor.
func (s *Server) ConnectionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.conns)
}

// ConnectionFDs returns the descriptors of every currently open
// connection, for debugsnap's read-only accessor. The slice is a snapshot; it does not alias server state.
func (s *Server) ConnectionFDs() []int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	fds := make([]int, 0, len(s.conns))
	for fd := range s.conns {
		fds = append(fds, fd)
	}
	return fds
}

// ParseIPv4 parses a dotted-quad string into the 4-byte form Serve wants.
func ParseIPv4(s string) (addr [4]byte, err error) {
	var a, b, c, d int
	n, scanErr := fmt.Sscanf(s, "%d.%d.%d.%d", &a, &b, &c, &d)
	if scanErr != nil || n != 4 {
		return addr, fmt.Errorf("tcpserver: invalid IPv4 address %q", s)
	}
	for _, v := range []int{a, b, c, d} {
		if v < 0 || v > 255 {
			return addr, fmt.Errorf("tcpserver: invalid IPv4 address %q", s)
		}
	}
	addr = [4]byte{byte(a), byte(b), byte(c), byte(d)}
	return addr, nil
}
