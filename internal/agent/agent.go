// Package agent wires the whole pipeline: banner, request loop, and
// the shutdown sweep when the peer goes away.
package agent

import (
	"errors"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/HostLink/internal/config"
	"github.com/GriffinCanCode/HostLink/internal/dispatch"
	"github.com/GriffinCanCode/HostLink/internal/fsops"
	"github.com/GriffinCanCode/HostLink/internal/logging"
	"github.com/GriffinCanCode/HostLink/internal/monitoring"
	"github.com/GriffinCanCode/HostLink/internal/paths"
	"github.com/GriffinCanCode/HostLink/internal/proc"
	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// Agent serves one peer over a request/response byte stream, normally
// stdin/stdout under an SSH session.
type Agent struct {
	reader  *protocol.Reader
	writer  *protocol.Writer
	disp    *dispatch.Dispatcher
	sup     *proc.Supervisor
	log     *logging.Logger
	metrics *monitoring.Metrics
}

// New assembles the agent over the given streams.
func New(in io.Reader, out io.Writer, cfg *config.Config, log *logging.Logger) (*Agent, error) {
	resolver, err := paths.NewResolver()
	if err != nil {
		return nil, err
	}

	metrics := monitoring.NewMetrics()
	writer := protocol.NewWriter(monitoring.NewCountingWriter(out, metrics))
	files := fsops.New(resolver, writer, cfg, log)
	sup := proc.New(writer, resolver, cfg, log, metrics)

	return &Agent{
		reader:  protocol.NewReader(in),
		writer:  writer,
		disp:    dispatch.New(writer, log, metrics, files, sup),
		sup:     sup,
		log:     log,
		metrics: metrics,
	}, nil
}

// Run announces readiness and serves requests until the stream closes,
// then sweeps any processes still running.
func (a *Agent) Run() error {
	if err := a.writer.Ready(); err != nil {
		return err
	}
	a.log.Info("agent ready",
		zap.Int("protocol", protocol.Version),
		zap.Int("pid", os.Getpid()))

	for {
		line, err := a.reader.Next()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				a.log.Warn("request stream failed", zap.Error(err))
			}
			break
		}
		a.metrics.AddBytesIn(len(line))
		a.disp.Dispatch(line)
	}

	a.log.Info("request stream closed, sweeping processes",
		zap.Int("live", a.sup.Count()))
	a.sup.Shutdown()
	return nil
}

// Close terminates supervised processes without waiting for stream EOF.
// Signal handlers use it so a SIGTERM to the agent does not orphan
// children.
func (a *Agent) Close() {
	a.sup.Shutdown()
}
