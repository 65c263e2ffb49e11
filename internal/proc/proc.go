// Package proc supervises spawned processes: piped commands with
// streamed output and interactive PTY sessions. Supervised requests
// defer their terminal response; pump goroutines emit output chunks and
// the exit line while the request loop keeps serving, so kill and
// cancel can act on a process mid-flight.
package proc

import (
	"errors"
	"os"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"github.com/GriffinCanCode/HostLink/internal/config"
	"github.com/GriffinCanCode/HostLink/internal/logging"
	"github.com/GriffinCanCode/HostLink/internal/monitoring"
	"github.com/GriffinCanCode/HostLink/internal/paths"
	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// ioChunk bounds a single output read so one chatty process cannot
// starve the shared writer.
const ioChunk = 4096

// stream pairs an output file with its chunk key on the wire.
type stream struct {
	key string
	f   *os.File
}

// managed is one live supervised process.
type managed struct {
	cmd  *exec.Cmd
	ptmx *os.File // PTY master for shell sessions, nil for piped commands

	outputs []stream
	drained chan struct{}
	closer  sync.Once
}

// closeOutputs releases the parent-side read ends (and the PTY master).
// Multiple teardown paths call it; only the first close runs.
func (m *managed) closeOutputs() {
	m.closer.Do(func() {
		for _, st := range m.outputs {
			st.f.Close()
		}
	})
}

// Supervisor owns every spawned process and the bookkeeping kill and
// cancel act on.
type Supervisor struct {
	writer   *protocol.Writer
	resolver *paths.Resolver
	log      *logging.Logger
	metrics  *monitoring.Metrics

	poll  time.Duration
	grace time.Duration
	drain time.Duration
	shell string

	mu        sync.Mutex
	procs     map[uint64]*managed
	cancelled map[uint64]struct{}

	pumps sync.WaitGroup
}

// New creates a supervisor. The default shell comes from config, then
// $SHELL, then /bin/sh.
func New(writer *protocol.Writer, resolver *paths.Resolver, cfg *config.Config, log *logging.Logger, metrics *monitoring.Metrics) *Supervisor {
	shell := cfg.Proc.Shell
	if shell == "" {
		shell = os.Getenv("SHELL")
	}
	if shell == "" {
		shell = "/bin/sh"
	}

	return &Supervisor{
		writer:    writer,
		resolver:  resolver,
		log:       log,
		metrics:   metrics,
		poll:      cfg.Proc.PollInterval,
		grace:     cfg.Proc.KillGrace,
		drain:     cfg.Proc.DrainTimeout,
		shell:     shell,
		procs:     make(map[uint64]*managed),
		cancelled: make(map[uint64]struct{}),
	}
}

// Kill terminates another request's process: SIGTERM, a bounded wait,
// then SIGKILL. The supervised request still emits its own exit line.
func (s *Supervisor) Kill(id uint64, p protocol.Params) (protocol.Result, error) {
	target, err := p.ID("id")
	if err != nil {
		return nil, err
	}

	m := s.lookup(target)
	if m == nil {
		return nil, errors.New("process not found")
	}
	s.stopWithGrace(m)
	return protocol.Result{}, nil
}

// Cancel marks a request cancelled and nudges its process with SIGTERM.
// Always succeeds, even for unknown or already-finished ids.
func (s *Supervisor) Cancel(id uint64, p protocol.Params) (protocol.Result, error) {
	target, err := p.ID("id")
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.cancelled[target] = struct{}{}
	m := s.procs[target]
	s.mu.Unlock()

	if m != nil && m.cmd.Process != nil {
		m.cmd.Process.Signal(syscall.SIGTERM)
	}
	return protocol.Result{}, nil
}

// Count reports live supervised processes.
func (s *Supervisor) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.procs)
}

// Shutdown terminates every live process and waits for the pumps to
// finish their terminal lines. Called when the request stream closes.
func (s *Supervisor) Shutdown() {
	s.mu.Lock()
	live := make([]*managed, 0, len(s.procs))
	for _, m := range s.procs {
		live = append(live, m)
	}
	s.mu.Unlock()

	for _, m := range live {
		s.stopWithGrace(m)
	}
	s.pumps.Wait()
}

func (s *Supervisor) register(id uint64, m *managed) {
	s.mu.Lock()
	s.procs[id] = m
	s.mu.Unlock()
	s.metrics.ProcStarted()
}

func (s *Supervisor) release(id uint64) {
	s.mu.Lock()
	_, ok := s.procs[id]
	delete(s.procs, id)
	delete(s.cancelled, id)
	s.mu.Unlock()
	if ok {
		s.metrics.ProcEnded()
	}
}

func (s *Supervisor) lookup(id uint64) *managed {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.procs[id]
}

func (s *Supervisor) isCancelled(id uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.cancelled[id]
	return ok
}

// stopWithGrace asks a process to exit and escalates to SIGKILL after
// the grace period. The pump goroutine owns Wait, so liveness is probed
// with signal 0; the probe starts failing once the process is reaped.
func (s *Supervisor) stopWithGrace(m *managed) {
	proc := m.cmd.Process
	if proc == nil {
		return
	}
	if proc.Signal(syscall.SIGTERM) != nil {
		return
	}

	deadline := time.Now().Add(s.grace)
	for time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
		if proc.Signal(syscall.Signal(0)) != nil {
			return
		}
	}
	proc.Kill()
}
