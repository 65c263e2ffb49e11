package proc

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// Exec starts a command with piped stdout/stderr. The terminal response
// is deferred: once the process is registered the request loop moves
// on, and the pump streams output until exit. Terminal lines for exec
// arrive out of order with respect to later requests.
func (s *Supervisor) Exec(id uint64, p protocol.Params) (protocol.Result, error) {
	name, err := p.Str("cmd")
	if err != nil {
		return nil, err
	}

	cmd := exec.Command(name, p.OptStrSlice("args")...)
	if raw := p.OptStr("cwd", ""); raw != "" {
		cwd, rerr := s.resolver.Resolve(raw)
		if rerr != nil {
			return nil, rerr
		}
		cmd.Dir = cwd
	}

	outR, outW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	errR, errW, err := os.Pipe()
	if err != nil {
		outR.Close()
		outW.Close()
		return nil, err
	}
	cmd.Stdout = outW
	cmd.Stderr = errW

	err = cmd.Start()
	// The child holds its own copies; ours would keep the read ends
	// from ever seeing EOF.
	outW.Close()
	errW.Close()
	if err != nil {
		outR.Close()
		errR.Close()
		return nil, startError(name, err)
	}

	m := &managed{
		cmd:     cmd,
		outputs: []stream{{"out", outR}, {"err", errR}},
		drained: make(chan struct{}),
	}
	s.register(id, m)
	s.log.Debug("process started",
		zap.Uint64("id", id),
		zap.String("cmd", name),
		zap.Int("pid", cmd.Process.Pid))

	s.pumps.Add(1)
	go s.supervise(id, m)
	return nil, nil
}

// supervise pumps output and emits exactly one terminal line once the
// process settles: the exit code, "cancelled", or a drain failure.
func (s *Supervisor) supervise(id uint64, m *managed) {
	defer s.pumps.Done()
	defer s.release(id)

	var streams sync.WaitGroup
	for _, st := range m.outputs {
		streams.Add(1)
		go func(st stream) {
			defer streams.Done()
			s.copyStream(id, st)
		}(st)
	}
	go func() {
		streams.Wait()
		close(m.drained)
	}()

	waitCh := make(chan error, 1)
	go func() { waitCh <- m.cmd.Wait() }()

	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()

	for {
		select {
		case <-waitCh:
			select {
			case <-m.drained:
			case <-time.After(s.drain):
				// Descendants still hold the output; cut them loose.
				m.closeOutputs()
				<-m.drained
				s.writer.Error(id, "output drain timed out")
				return
			}
			m.closeOutputs()
			s.writer.Result(id, protocol.Result{"code": exitCode(m.cmd)})
			return

		case <-ticker.C:
			if !s.isCancelled(id) {
				continue
			}
			s.terminate(m, waitCh)
			m.closeOutputs()
			<-m.drained
			s.writer.Error(id, "cancelled")
			return
		}
	}
}

// copyStream forwards one output stream in bounded chunks. A read or
// write error ends the stream; the pump owns the terminal line.
func (s *Supervisor) copyStream(id uint64, st stream) {
	buf := make([]byte, ioChunk)
	for {
		n, err := st.f.Read(buf)
		if n > 0 {
			chunk := map[string]interface{}{st.key: protocol.Encode64(buf[:n])}
			if werr := s.writer.Data(id, chunk); werr != nil {
				return
			}
		}
		if err != nil {
			return
		}
	}
}

// terminate mirrors kill's escalation but leans on the pump's Wait.
func (s *Supervisor) terminate(m *managed, waitCh <-chan error) {
	if proc := m.cmd.Process; proc != nil {
		proc.Signal(syscall.SIGTERM)
	}
	select {
	case <-waitCh:
	case <-time.After(s.grace):
		if proc := m.cmd.Process; proc != nil {
			proc.Kill()
		}
		<-waitCh
	}
}

// exitCode reports the shell-style status: N for a normal exit,
// -signal when a signal ended the process.
func exitCode(cmd *exec.Cmd) int {
	state := cmd.ProcessState
	if state == nil {
		return -1
	}
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return -int(ws.Signal())
	}
	return state.ExitCode()
}

// startError shapes spawn failures the way peers expect. Anything else
// passes through to the shared error taxonomy.
func startError(name string, err error) error {
	switch {
	case errors.Is(err, exec.ErrNotFound), errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("command not found: %s", name)
	case errors.Is(err, fs.ErrPermission):
		return fmt.Errorf("permission denied: %s", name)
	}
	return err
}
