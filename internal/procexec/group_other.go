//go:build !unix

package procexec

import (
	"errors"
	"io/fs"
	"os/exec"
	"time"
)

type groupKiller struct{}

func configureProcessGroup(cmd *exec.Cmd, grace time.Duration) *groupKiller {
	cmd.WaitDelay = grace
	return &groupKiller{}
}

func (*groupKiller) stop() {}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}
