//go:build unix

package procexec

import (
	"errors"
	"io/fs"
	"os/exec"
	"sync"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

type groupKiller struct {
	mu    sync.Mutex
	timer *time.Timer
}

// configureProcessGroup puts the child in a fresh process group. On context
// cancellation the group receives SIGTERM; if it is still alive after grace
// the group receives SIGKILL.
func configureProcessGroup(cmd *exec.Cmd, grace time.Duration) *groupKiller {
	k := &groupKiller{}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		pid := cmd.Process.Pid
		k.mu.Lock()
		k.timer = time.AfterFunc(grace, func() {
			_ = unix.Kill(-pid, unix.SIGKILL)
		})
		k.mu.Unlock()
		if err := unix.Kill(-pid, unix.SIGTERM); err != nil && !errors.Is(err, unix.ESRCH) {
			return err
		}
		return nil
	}
	// Leaves room for the group-wide SIGKILL before Wait gives up on pipes.
	cmd.WaitDelay = grace + time.Second
	return k
}

func (k *groupKiller) stop() {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.timer != nil {
		k.timer.Stop()
	}
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist) || errors.Is(err, fs.ErrPermission)
}
