package wire

import (
	"fmt"
	"net"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

// Display is the inner Wayland socket: a listener plus the lock file that
// keeps a second waywall instance from clobbering the same socket name,
// matching the locking convention every Wayland compositor follows
// (wl_socket_lock in libwayland-server).
type Display struct {
	Name string
	Path string

	listener *net.UnixListener
	lockFile *os.File
}

// Listen binds the inner display socket under $XDG_RUNTIME_DIR. If name is
// empty, a free "wayland-waywall-N" name is chosen automatically.
func Listen(name string) (*Display, error) {
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return nil, fmt.Errorf("wire: XDG_RUNTIME_DIR is not set")
	}

	if name == "" {
		for i := 0; i < 32; i++ {
			candidate := fmt.Sprintf("wayland-waywall-%d", i)
			if d, err := tryListen(runtimeDir, candidate); err == nil {
				return d, nil
			}
		}
		return nil, fmt.Errorf("wire: could not find a free display name after 32 attempts")
	}
	return tryListen(runtimeDir, name)
}

func tryListen(runtimeDir, name string) (*Display, error) {
	sockPath := filepath.Join(runtimeDir, name)
	lockPath := sockPath + ".lock"

	lockFile, err := os.OpenFile(lockPath, os.O_CREATE|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("wire: open lock file: %w", err)
	}

	flock := unix.Flock_t{Type: unix.F_WRLCK, Whence: 0, Start: 0, Len: 0}
	if err := unix.FcntlFlock(lockFile.Fd(), unix.F_SETLK, &flock); err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("wire: %s is already in use: %w", name, err)
	}

	// A stale socket file with no live listener on it is safe to remove;
	// holding the lock above proves no other compositor owns it.
	_ = os.Remove(sockPath)

	addr := &net.UnixAddr{Name: sockPath, Net: "unix"}
	ln, err := net.ListenUnix("unix", addr)
	if err != nil {
		lockFile.Close()
		return nil, fmt.Errorf("wire: listen on %s: %w", sockPath, err)
	}

	if err := os.Setenv("WAYLAND_DISPLAY", name); err != nil {
		ln.Close()
		lockFile.Close()
		return nil, fmt.Errorf("wire: setenv WAYLAND_DISPLAY: %w", err)
	}

	return &Display{
		Name:     name,
		Path:     sockPath,
		listener: ln,
		lockFile: lockFile,
	}, nil
}

// Fd returns the listener's file descriptor, for registration with the
// server's poll loop. Unlike (*net.UnixListener).File, this does not
// flip the listener into blocking mode: the poll loop drives readiness
// and then calls Accept, rather than using the stdlib's own poller.
func (d *Display) Fd() (int, error) {
	raw, err := d.listener.SyscallConn()
	if err != nil {
		return -1, err
	}
	var fd int
	if err := raw.Control(func(f uintptr) { fd = int(f) }); err != nil {
		return -1, err
	}
	return fd, nil
}

// Accept accepts one pending client connection.
func (d *Display) Accept() (*Conn, error) {
	c, err := d.listener.AcceptUnix()
	if err != nil {
		return nil, err
	}
	return NewConn(c)
}

// Close removes the socket and lock file and stops accepting connections.
func (d *Display) Close() error {
	err := d.listener.Close()
	d.lockFile.Close()
	_ = os.Remove(d.Path)
	_ = os.Remove(d.Path + ".lock")
	return err
}
