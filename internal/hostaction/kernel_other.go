//go:build !linux

package hostaction

import (
	"context"
	"fmt"
	"runtime"
)

// KernelReboot is only available on linux.
type KernelReboot struct{}

// NewKernelReboot creates a kernel-reboot effect.
func NewKernelReboot() *KernelReboot {
	return &KernelReboot{}
}

func (k *KernelReboot) Apply(ctx context.Context) error {
	return fmt.Errorf("kernel reboot is not supported on %s", runtime.GOOS)
}
