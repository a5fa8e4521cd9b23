package wire

import (
	"errors"
	"fmt"
	"net"

	"golang.org/x/sys/unix"
)

const maxMessageSize = 64 * 1024

var (
	ErrConnClosed  = errors.New("wire: connection closed")
	ErrNoMessage   = errors.New("wire: no message available")
	ErrTooManyFDs  = errors.New("wire: too many file descriptors in one message")
	maxFDsPerRecvm = 28
)

// Conn wraps one inner-display client socket: the raw fd, a read buffer for
// partial messages, and the send/receive primitives used by Client.
type Conn struct {
	fd       int
	file     *net.UnixConn
	readBuf  []byte
	pending  []byte // bytes read but not yet a complete message
	closed   bool
}

// NewConn takes ownership of an accepted client socket.
func NewConn(c *net.UnixConn) (*Conn, error) {
	raw, err := c.SyscallConn()
	if err != nil {
		return nil, fmt.Errorf("wire: syscall conn: %w", err)
	}
	var fd int
	if err := raw.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return nil, fmt.Errorf("wire: control: %w", err)
	}
	return &Conn{
		fd:      fd,
		file:    c,
		readBuf: make([]byte, maxMessageSize),
	}, nil
}

func (c *Conn) Fd() int { return c.fd }

// Send writes one complete message (header already encoded in data) to the
// client, optionally passing fds via SCM_RIGHTS.
func (c *Conn) Send(data []byte, fds []int) error {
	if c.closed {
		return ErrConnClosed
	}
	if len(fds) == 0 {
		_, err := c.file.Write(data)
		return err
	}
	if len(fds) > maxFDsPerRecvm {
		return ErrTooManyFDs
	}
	rights := unix.UnixRights(fds...)
	return unix.Sendmsg(c.fd, data, rights, nil, 0)
}

// Recv reads from the socket and returns every fully-buffered message. It is
// non-blocking-aware: EAGAIN/EWOULDBLOCK surfaces as ErrNoMessage so the
// event loop can treat it as "try again after the next poll wakeup".
func (c *Conn) Recv() ([]Message, error) {
	if c.closed {
		return nil, ErrConnClosed
	}

	oob := make([]byte, unix.CmsgSpace(maxFDsPerRecvm*4))
	n, oobn, _, _, err := unix.Recvmsg(c.fd, c.readBuf, oob, 0)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return nil, ErrNoMessage
		}
		return nil, fmt.Errorf("wire: recvmsg: %w", err)
	}
	if n == 0 {
		c.closed = true
		return nil, ErrConnClosed
	}

	fds, err := parseFDs(oob[:oobn])
	if err != nil {
		return nil, err
	}

	c.pending = append(c.pending, c.readBuf[:n]...)

	var out []Message
	for {
		m, consumed, ok := Decode(c.pending)
		if !ok {
			break
		}
		c.pending = c.pending[consumed:]
		out = append(out, m)
	}
	if len(fds) > 0 && len(out) > 0 {
		out[len(out)-1].FDs = fds
	}
	return out, nil
}

func (c *Conn) Close() error {
	if c.closed {
		return nil
	}
	c.closed = true
	return c.file.Close()
}

func parseFDs(oob []byte) ([]int, error) {
	if len(oob) == 0 {
		return nil, nil
	}
	scms, err := unix.ParseSocketControlMessage(oob)
	if err != nil {
		return nil, fmt.Errorf("wire: parse control message: %w", err)
	}
	var fds []int
	for _, scm := range scms {
		if scm.Header.Level != unix.SOL_SOCKET || scm.Header.Type != unix.SCM_RIGHTS {
			continue
		}
		got, err := unix.ParseUnixRights(&scm)
		if err != nil {
			return nil, fmt.Errorf("wire: parse unix rights: %w", err)
		}
		fds = append(fds, got...)
	}
	return fds, nil
}
