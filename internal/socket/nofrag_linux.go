package socket

import (
	"os"

	"golang.org/x/sys/unix"
)

// configureNoFragment asks the kernel to set DF and ignore any cached path
// MTU for the destination, so an earlier "too big" cannot poison later
// probes at the same size
func configureNoFragment(fd int) error {
	err := unix.SetsockoptInt(fd, unix.IPPROTO_IP, unix.IP_MTU_DISCOVER, unix.IP_PMTUDISC_PROBE)

	if err != nil {
		return os.NewSyscallError("setsockopt IP_MTU_DISCOVER IP_PMTUDISC_PROBE", err)
	}

	return nil
}
