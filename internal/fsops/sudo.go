package fsops

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"github.com/GriffinCanCode/HostLink/internal/protocol"
)

// SudoWrite writes a root-owned file by piping content through
// `sudo tee`, then restores mode and ownership when the peer supplies
// them. Editors use this for /etc saves after a plain write fails with
// permission denied.
func (o *Ops) SudoWrite(id uint64, p protocol.Params) (protocol.Result, error) {
	path, err := o.resolvePath(p, "path")
	if err != nil {
		return nil, err
	}
	data, err := p.Bytes("data")
	if err != nil {
		return nil, err
	}

	tee := exec.Command(o.sudoCmd, "tee", path)
	tee.Stdin = bytes.NewReader(data)
	var stderr bytes.Buffer
	tee.Stderr = &stderr
	if err := tee.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return nil, fmt.Errorf("sudo tee failed: %s", strings.TrimSpace(stderr.String()))
		}
		return nil, err
	}

	if mode, ok := p.OptInt64("mode"); ok {
		if err := o.runSudo("chmod", strconv.FormatInt(mode, 8), path); err != nil {
			return nil, err
		}
	}

	uid, hasUID := p.OptInt64("uid")
	gid, hasGID := p.OptInt64("gid")
	if hasUID && hasGID {
		if err := o.runSudo("chown", fmt.Sprintf("%d:%d", uid, gid), path); err != nil {
			return nil, err
		}
	}

	return protocol.Result{"size": len(data)}, nil
}

func (o *Ops) runSudo(args ...string) error {
	cmd := exec.Command(o.sudoCmd, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("sudo %s failed: %s", args[0], strings.TrimSpace(stderr.String()))
		}
		return err
	}
	return nil
}
