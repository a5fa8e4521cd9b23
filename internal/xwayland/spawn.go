package xwayland

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"golang.org/x/sys/unix"
)

// xwaylandStartTimeout bounds how long Spawn waits for the Xwayland ready
// byte on the display pipe before treating startup as failed, mirroring
// the original's compositor.c timer (spec.md §7, "Startup missing
// requirement"; SPEC_FULL.md §12, "Xwayland ready-signal timeout").
const xwaylandStartTimeoutMillis = 10000

// Process is a running Xwayland instance: its os/exec handle and the
// display number it reported ready on.
type Process struct {
	cmd     *exec.Cmd
	Display string // e.g. ":42"
}

// Spawn starts the Xwayland binary in rootless mode and blocks until it
// signals readiness on its display pipe, per spec §4.9.1.
//
// jezek/xgb exposes no equivalent of xcb_connect_to_fd: its connection
// constructors always dial a named display socket. So unlike the original
// C implementation (which hands Xwayland's -wm descriptor straight to
// xcb_connect_to_fd), waywall lets Xwayland pick its own display number via
// -displayfd and then dials that display by name once ready. The -wm
// descriptor is still passed, purely so Xwayland withholds client
// connections until a window manager is attached; waywall never reads or
// writes on it directly.
func Spawn(binary string) (*Process, error) {
	if binary == "" {
		binary = "Xwayland"
	}

	displayR, displayW, err := os.Pipe()
	if err != nil {
		return nil, fmt.Errorf("xwayland: create display pipe: %w", err)
	}
	defer displayR.Close()

	wmR, wmW, err := os.Pipe()
	if err != nil {
		displayW.Close()
		return nil, fmt.Errorf("xwayland: create wm pipe: %w", err)
	}
	defer wmW.Close()

	cmd := exec.Command(binary,
		"-rootless",
		"-core",
		"-noreset",
		"-displayfd", "3",
		"-wm", "4",
	)
	cmd.ExtraFiles = []*os.File{displayW, wmR}
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		displayW.Close()
		wmR.Close()
		return nil, fmt.Errorf("xwayland: start %s: %w", binary, err)
	}
	displayW.Close()
	wmR.Close()

	num, err := waitForDisplay(displayR)
	if err != nil {
		_ = cmd.Process.Kill()
		_, _ = cmd.Process.Wait()
		return nil, err
	}

	display := ":" + strconv.Itoa(num)
	if err := os.Setenv("DISPLAY", display); err != nil {
		_ = cmd.Process.Kill()
		return nil, fmt.Errorf("xwayland: setenv DISPLAY: %w", err)
	}

	return &Process{cmd: cmd, Display: display}, nil
}

// waitForDisplay polls the display-ready pipe with a bounded timeout and
// parses the ASCII display number Xwayland writes once listening.
func waitForDisplay(r *os.File) (int, error) {
	fd := int(r.Fd())
	if err := unix.SetNonblock(fd, true); err != nil {
		return 0, fmt.Errorf("xwayland: set displayfd nonblocking: %w", err)
	}

	fds := []unix.PollFd{{Fd: int32(fd), Events: unix.POLLIN}}
	n, err := unix.Poll(fds, xwaylandStartTimeoutMillis)
	if err != nil {
		return 0, fmt.Errorf("xwayland: poll displayfd: %w", err)
	}
	if n == 0 {
		return 0, fmt.Errorf("xwayland: timed out waiting for ready signal")
	}

	buf := make([]byte, 16)
	nRead, err := r.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("xwayland: read displayfd: %w", err)
	}

	numStr := strings.TrimSpace(string(buf[:nRead]))
	num, err := strconv.Atoi(numStr)
	if err != nil {
		return 0, fmt.Errorf("xwayland: malformed display number %q: %w", numStr, err)
	}
	return num, nil
}

// Kill terminates the Xwayland process.
func (p *Process) Kill() error {
	if p.cmd.Process == nil {
		return nil
	}
	_ = p.cmd.Process.Kill()
	_, err := p.cmd.Process.Wait()
	return err
}
