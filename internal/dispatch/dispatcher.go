// Package dispatch routes decoded request lines to their handlers and
// shapes handler errors for the wire.
package dispatch

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/GriffinCanCode/HostLink/internal/fsops"
	"github.com/GriffinCanCode/HostLink/internal/logging"
	"github.com/GriffinCanCode/HostLink/internal/monitoring"
	"github.com/GriffinCanCode/HostLink/internal/proc"
	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// Handler serves one method. A nil result with a nil error means the
// terminal response is deferred to a pump goroutine (exec, shell).
type Handler func(id uint64, p protocol.Params) (protocol.Result, error)

// Dispatcher owns the immutable method table.
type Dispatcher struct {
	writer  *protocol.Writer
	log     *logging.Logger
	metrics *monitoring.Metrics
	methods map[string]Handler
}

// New builds the method table over the filesystem handlers and the
// process supervisor.
func New(writer *protocol.Writer, log *logging.Logger, metrics *monitoring.Metrics, files *fsops.Ops, sup *proc.Supervisor) *Dispatcher {
	d := &Dispatcher{
		writer:  writer,
		log:     log,
		metrics: metrics,
	}

	d.methods = map[string]Handler{
		"read":       files.Read,
		"write":      files.Write,
		"sudo_write": files.SudoWrite,
		"stat":       files.Stat,
		"ls":         files.Ls,
		"rm":         files.Rm,
		"rmdir":      files.Rmdir,
		"mkdir":      files.Mkdir,
		"mv":         files.Mv,
		"cp":         files.Cp,
		"realpath":   files.Realpath,
		"chmod":      files.Chmod,
		"append":     files.Append,
		"truncate":   files.Truncate,
		"patch":      files.Patch,
		"exists":     files.Exists,
		"info":       files.Info,
		"find":       files.Find,
		"grep":       files.Grep,
		"hash":       files.Hash,
		"archive":    files.Archive,
		"unarchive":  files.Unarchive,

		"exec":         sup.Exec,
		"kill":         sup.Kill,
		"cancel":       sup.Cancel,
		"shell":        sup.Shell,
		"shell_in":     sup.ShellIn,
		"shell_resize": sup.ShellResize,

		"stats": d.stats,
	}
	return d
}

// Dispatch handles one request line end to end: decode, route, respond.
func (d *Dispatcher) Dispatch(line []byte) {
	req, err := protocol.ParseRequest(line)
	if err != nil {
		// No usable id; the reserved one tags the complaint.
		d.writer.Error(0, "parse error: "+err.Error())
		return
	}

	handler, ok := d.methods[req.Method]
	if !ok {
		d.writer.Error(req.ID, fmt.Sprintf("unknown method: %s", req.Method))
		d.metrics.RecordRequest("unknown", true, 0)
		return
	}

	start := time.Now()
	res, err := handler(req.ID, req.Params)
	d.metrics.RecordRequest(req.Method, err != nil, time.Since(start))

	if err != nil {
		msg := Translate(err)
		d.log.Debug("request failed",
			zap.Uint64("id", req.ID),
			zap.String("method", req.Method),
			zap.String("error", msg))
		d.writer.Error(req.ID, msg)
		return
	}
	d.log.Debug("request handled",
		zap.Uint64("id", req.ID),
		zap.String("method", req.Method),
		zap.Duration("took", time.Since(start)))
	if res == nil {
		// Deferred terminal; a pump goroutine owns this id now.
		return
	}
	d.writer.Result(req.ID, res)
}

// stats reports agent health counters. Peers poll it to decide whether
// a sluggish connection is the link or the host.
func (d *Dispatcher) stats(id uint64, p protocol.Params) (protocol.Result, error) {
	snap := d.metrics.GetSnapshot()
	return protocol.Result{
		"uptime_secs":  snap.UptimeSecs,
		"requests":     snap.TotalRequests,
		"errors":       snap.TotalErrors,
		"active_procs": snap.ActiveProcs,
		"bytes_in":     snap.BytesIn,
		"bytes_out":    snap.BytesOut,
		"go_version":   runtime.Version(),
		"pid":          os.Getpid(),
		"version":      protocol.Version,
	}, nil
}
