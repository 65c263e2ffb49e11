package proc

import (
	"errors"
	"os"
	"os/exec"

	"github.com/creack/pty"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// Shell starts an interactive session on a PTY. Stdout and stderr
// arrive merged as "out" chunks; keystrokes come back through shell_in.
// Sessions live in the same table as exec processes, so kill and cancel
// work on them unchanged.
func (s *Supervisor) Shell(id uint64, p protocol.Params) (protocol.Result, error) {
	name := p.OptStr("cmd", "")
	if name == "" {
		name = s.shell
	}

	cmd := exec.Command(name, p.OptStrSlice("args")...)
	if raw := p.OptStr("cwd", ""); raw != "" {
		cwd, err := s.resolver.Resolve(raw)
		if err != nil {
			return nil, err
		}
		cmd.Dir = cwd
	}
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")

	cols, rows := winSize(p)
	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: rows, Cols: cols})
	if err != nil {
		return nil, startError(name, err)
	}

	m := &managed{
		cmd:  cmd,
		ptmx: ptmx,
		// The master read erroring out (EIO) is the session's EOF.
		outputs: []stream{{"out", ptmx}},
		drained: make(chan struct{}),
	}
	s.register(id, m)
	s.log.Debug("shell started",
		zap.Uint64("id", id),
		zap.String("cmd", name),
		zap.Int("pid", cmd.Process.Pid))

	s.pumps.Add(1)
	go s.supervise(id, m)
	return nil, nil
}

// ShellIn writes peer keystrokes to the session's PTY.
func (s *Supervisor) ShellIn(id uint64, p protocol.Params) (protocol.Result, error) {
	target, err := p.ID("id")
	if err != nil {
		return nil, err
	}
	data, err := p.Bytes("data")
	if err != nil {
		return nil, err
	}

	m := s.lookup(target)
	if m == nil || m.ptmx == nil {
		return nil, errors.New("process not found")
	}
	if _, err := m.ptmx.Write(data); err != nil {
		return nil, err
	}
	return protocol.Result{}, nil
}

// ShellResize adjusts the PTY window so full-screen programs reflow.
func (s *Supervisor) ShellResize(id uint64, p protocol.Params) (protocol.Result, error) {
	target, err := p.ID("id")
	if err != nil {
		return nil, err
	}

	m := s.lookup(target)
	if m == nil || m.ptmx == nil {
		return nil, errors.New("process not found")
	}

	cols, rows := winSize(p)
	if err := pty.Setsize(m.ptmx, &pty.Winsize{Rows: rows, Cols: cols}); err != nil {
		return nil, err
	}
	return protocol.Result{}, nil
}

func winSize(p protocol.Params) (cols, rows uint16) {
	cols, rows = 80, 24
	if c, ok := p.OptInt64("cols"); ok && c > 0 {
		cols = uint16(c)
	}
	if r, ok := p.OptInt64("rows"); ok && r > 0 {
		rows = uint16(r)
	}
	return cols, rows
}
