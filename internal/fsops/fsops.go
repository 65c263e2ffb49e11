// Package fsops implements the filesystem half of the method catalogue.
// Handlers take the request id and params and return a terminal result;
// streaming handlers (read) emit progress chunks through the writer
// before returning.
package fsops

import (
	"github.com/GriffinCanCode/HostLink/internal/config"
	"github.com/GriffinCanCode/HostLink/internal/logging"
	"github.com/GriffinCanCode/HostLink/internal/paths"
	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// Ops holds the shared state of all filesystem handlers.
type Ops struct {
	resolver *paths.Resolver
	writer   *protocol.Writer
	log      *logging.Logger

	chunk     int
	sudoCmd   string
	findLimit int
	grepLimit int
}

// New creates the filesystem handler set.
func New(resolver *paths.Resolver, writer *protocol.Writer, cfg *config.Config, log *logging.Logger) *Ops {
	return &Ops{
		resolver:  resolver,
		writer:    writer,
		log:       log,
		chunk:     cfg.Stream.ChunkSize,
		sudoCmd:   cfg.Proc.SudoCmd,
		findLimit: cfg.Search.FindLimit,
		grepLimit: cfg.Search.GrepLimit,
	}
}

// resolvePath fetches a path parameter and canonicalizes it.
func (o *Ops) resolvePath(p protocol.Params, key string) (string, error) {
	raw, err := p.Str(key)
	if err != nil {
		return "", err
	}
	return o.resolver.Resolve(raw)
}
