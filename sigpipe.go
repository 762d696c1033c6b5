package adns

import (
	"os"
	"os/signal"
	"sync"

	"golang.org/x/sys/unix"
)

// protectSigpipe and unprotectSigpipe bracket a region that writes to a
// TCP socket which may have been closed by the peer, so the process
// doesn't die from an unhandled SIGPIPE (spec §4.6's sigpipe handling).
// Go's runtime already ignores SIGPIPE for non-fd-2 writers on most
// platforms, but a caller embedding this resolver inside a program that
// has reset that disposition (or that wants the classic adns guarantee
// explicitly) can still rely on these to bracket sendTCP.
var sigpipeMu sync.Mutex
var sigpipeDepth int
var sigpipeCh chan os.Signal

// protectSigpipe installs an ignore handler for SIGPIPE, nesting safely
// with concurrent protected regions: the handler is only uninstalled
// once the outermost region calls unprotectSigpipe.
func protectSigpipe() {
	sigpipeMu.Lock()
	defer sigpipeMu.Unlock()
	if sigpipeDepth == 0 {
		sigpipeCh = make(chan os.Signal, 1)
		signal.Notify(sigpipeCh, unix.SIGPIPE)
		go func() {
			for range sigpipeCh {
			}
		}()
	}
	sigpipeDepth++
}

// unprotectSigpipe restores SIGPIPE's default disposition once every
// nested protected region has exited.
func unprotectSigpipe() {
	sigpipeMu.Lock()
	defer sigpipeMu.Unlock()
	sigpipeDepth--
	if sigpipeDepth <= 0 {
		sigpipeDepth = 0
		if sigpipeCh != nil {
			signal.Stop(sigpipeCh)
			close(sigpipeCh)
			sigpipeCh = nil
		}
	}
}
