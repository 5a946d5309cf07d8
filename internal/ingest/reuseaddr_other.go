//go:build !unix

package ingest

import "syscall"

// reuseAddrControl is a no-op where x/sys/unix is unavailable.
func reuseAddrControl(network, address string, c syscall.RawConn) error {
	return nil
}
