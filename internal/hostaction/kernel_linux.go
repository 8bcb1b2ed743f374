//go:build linux

package hostaction

import (
	"context"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/jerkytreats/nwwatchdog/internal/logging"
)

// KernelReboot flushes filesystems and reboots through reboot(2), bypassing
// systemd. It is the last resort when the init system is wedged.
type KernelReboot struct {
	sync   func()
	reboot func(cmd int) error
}

// NewKernelReboot creates a kernel-reboot effect.
func NewKernelReboot() *KernelReboot {
	return &KernelReboot{sync: unix.Sync, reboot: unix.Reboot}
}

func (k *KernelReboot) Apply(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	logging.Warn("Rebooting through the kernel")
	logging.Sync()

	k.sync()
	if err := k.reboot(unix.LINUX_REBOOT_CMD_RESTART); err != nil {
		return fmt.Errorf("reboot(2): %w", err)
	}
	return nil
}
