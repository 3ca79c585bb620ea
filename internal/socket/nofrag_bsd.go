//go:build darwin || freebsd || netbsd || openbsd

package socket

// BSD raw sockets take DF straight from the IP_HDRINCL header and expose no
// option to bypass the per destination path MTU cache
func configureNoFragment(fd int) error {
	return ErrNoFragmentUnsupported
}
