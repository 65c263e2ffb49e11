package fsops

import (
	"errors"
	"io"
	"os"

	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// Patch builds a new file from an original plus edits, so saves ship
// only changed bytes. Ops apply in order: copy pulls a window from the
// original, insert writes literal content. The output replaces dst
// with the same atomic discipline as write, preserving dst's mode.
func (o *Ops) Patch(id uint64, p protocol.Params) (protocol.Result, error) {
	src, err := o.resolvePath(p, "src")
	if err != nil {
		return nil, err
	}
	dst := src
	if raw := p.OptStr("dst", ""); raw != "" {
		dst, err = o.resolver.Resolve(raw)
		if err != nil {
			return nil, err
		}
	}
	ops, err := p.List("ops")
	if err != nil {
		return nil, err
	}

	orig, err := os.Open(src)
	if err != nil {
		return nil, err
	}
	defer orig.Close()

	if err := atomicReplace(dst, func(out *os.File) error {
		return applyOps(orig, out, ops)
	}); err != nil {
		return nil, err
	}

	return protocol.Result{}, nil
}

func applyOps(orig *os.File, out *os.File, ops []interface{}) error {
	for _, rawOp := range ops {
		op, ok := rawOp.(map[string]interface{})
		if !ok {
			return errors.New("invalid patch op")
		}

		if rawCopy, ok := op["copy"]; ok {
			spec, ok := rawCopy.(map[string]interface{})
			if !ok {
				return errors.New("invalid copy op")
			}
			off, err := protocol.Params(spec).Int64("off")
			if err != nil {
				return err
			}
			length, err := protocol.Params(spec).Int64("len")
			if err != nil {
				return err
			}
			if _, err := orig.Seek(off, io.SeekStart); err != nil {
				return err
			}
			// A window past EOF copies what exists, like a short read.
			if _, err := io.CopyN(out, orig, length); err != nil && err != io.EOF {
				return err
			}
			continue
		}

		if rawInsert, ok := op["insert"]; ok {
			spec, ok := rawInsert.(map[string]interface{})
			if !ok {
				return errors.New("invalid insert op")
			}
			data, err := protocol.Params(spec).Bytes("data")
			if err != nil {
				return err
			}
			if _, err := out.Write(data); err != nil {
				return err
			}
		}
	}
	return nil
}
