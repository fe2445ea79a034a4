package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"os/exec"
	"runtime"
	"time"

	"sfcourt-backend/lib/waitutil"

	gopsnet "github.com/shirou/gopsutil/v4/net"
	"github.com/shirou/gopsutil/v4/process"
)

var chromeCandidates = []string{
	"google-chrome",
	"google-chrome-stable",
	"chromium",
	"chromium-browser",
	"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
}

// Launcher starts (and later kills) a real, headed Chrome with remote
// debugging enabled. A persistent profile directory keeps the anti-bot
// clearance cookies across restarts.
type Launcher struct {
	Port       int
	ProfileDir string
	// explicit path to the Chrome binary, otherwise well-known names are
	// searched
	ChromePath string

	cmd *exec.Cmd
}

func (l *Launcher) DebugURL() string {
	return fmt.Sprintf("http://127.0.0.1:%d", l.Port)
}

func (l *Launcher) listening() bool {
	conn, err := net.DialTimeout("tcp", fmt.Sprintf("127.0.0.1:%d", l.Port), time.Millisecond*250)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

func (l *Launcher) binary() (string, error) {
	if l.ChromePath != "" {
		return l.ChromePath, nil
	}
	for _, candidate := range chromeCandidates {
		if runtime.GOOS != "darwin" && candidate[0] == '/' {
			continue
		}
		path, err := exec.LookPath(candidate)
		if err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no chrome binary found, set the chrome path explicitly")
}

// Start launches Chrome unless something is already listening on the debug
// port, in which case the running instance is reused.
func (l *Launcher) Start(ctx context.Context) error {
	if l.listening() {
		slog.Info("chrome already running on debug port", "port", l.Port)
		return nil
	}

	bin, err := l.binary()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(l.ProfileDir, 0755); err != nil {
		return err
	}

	cmd := exec.Command(
		bin,
		fmt.Sprintf("--user-data-dir=%s", l.ProfileDir),
		fmt.Sprintf("--remote-debugging-port=%d", l.Port),
		"--no-first-run",
		"--no-default-browser-check",
	)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch chrome: %w", err)
	}
	l.cmd = cmd
	slog.Info("launched chrome", "pid", cmd.Process.Pid, "port", l.Port, "profile", l.ProfileDir)

	err = waitutil.Poll(ctx, waitutil.Options{
		Interval: time.Millisecond * 500,
		Timeout:  time.Second * 15,
	}, func(ctx context.Context) (bool, error) {
		return l.listening(), nil
	})
	if err != nil {
		return fmt.Errorf("chrome did not open its debug port: %w", err)
	}
	return nil
}

// Kill terminates whatever Chrome serves the debug port. A stuck browser
// must die on restart even when this launcher only attached to an already
// running instance, so when no child process is held the owner of the
// port is looked up and killed instead.
func (l *Launcher) Kill() error {
	if l.cmd != nil && l.cmd.Process != nil {
		pid := l.cmd.Process.Pid
		if err := l.cmd.Process.Kill(); err != nil {
			return err
		}
		l.cmd.Wait()
		l.cmd = nil
		slog.Info("killed chrome", "pid", pid)
		return nil
	}

	pid, err := PidListeningOn(l.Port)
	if err != nil {
		return err
	}
	if pid == 0 {
		return nil
	}
	proc, err := process.NewProcess(pid)
	if err != nil {
		return nil
	}
	if err := proc.Kill(); err != nil {
		return fmt.Errorf("kill chrome on port %d: %w", l.Port, err)
	}
	slog.Info("killed chrome found on debug port", "pid", pid, "port", l.Port)
	return nil
}

// PidListeningOn reports the pid of the process listening on a local TCP
// port, or 0 when the port is free.
func PidListeningOn(port int) (int32, error) {
	conns, err := gopsnet.Connections("tcp")
	if err != nil {
		return 0, err
	}
	for _, conn := range conns {
		if conn.Status == "LISTEN" && int(conn.Laddr.Port) == port && conn.Pid != 0 {
			return conn.Pid, nil
		}
	}
	return 0, nil
}

// ChromeSession ties a Launcher and a CDP attachment together into the
// restartable browser session the scrape engine consumes.
type ChromeSession struct {
	Launcher *Launcher

	attached *RemoteBrowser
}

func (s *ChromeSession) Open(ctx context.Context) (Browser, error) {
	if err := s.Launcher.Start(ctx); err != nil {
		return nil, err
	}
	// give a cold-started Chrome a moment before attaching
	time.Sleep(time.Second)

	b, err := Attach(ctx, s.Launcher.DebugURL())
	if err != nil {
		return nil, err
	}
	s.attached = b
	return b, nil
}

func (s *ChromeSession) Shutdown(ctx context.Context) error {
	if s.attached != nil {
		s.attached.Close(ctx)
		s.attached = nil
	}
	return s.Launcher.Kill()
}
