package httpcache

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/AdguardTeam/golibs/log"
)

// signalCleanup mirrors libdap4's HTTPCacheInterruptHandler: on SIGINT,
// SIGTERM or SIGPIPE it unlinks every file still in the open-files list
// (partially written bodies/metadata) and removes the single-writer
// lockfile, so a killed process never leaves the persistent store in a
// state with a dangling index entry or an orphaned lockfile.
//
// Go does not let arbitrary cleanup code run inside an async-signal-safe
// handler the way the C++ original's SignalHandler does; os/signal
// delivers signals to a regular goroutine instead. That goroutine is
// started the same way bboehmke-gitmproxy's main() drains its shutdown
// channel (signal.Notify + a receiving goroutine), adapted here to run
// cleanup instead of initiating an orderly shutdown.
type signalCleanup struct {
	mu       sync.Mutex
	stopCh   chan struct{}
	stopOnce sync.Once
}

func startSignalCleanup(root string, openFiles *openFileList) *signalCleanup {
	sc := &signalCleanup{stopCh: make(chan struct{})}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, os.Interrupt, syscall.SIGTERM, syscall.SIGPIPE)

	go func() {
		select {
		case sig := <-ch:
			log.Error("httpcache: received %v, cleaning up cache root %s", sig, root)
			for _, path := range openFiles.snapshot() {
				os.Remove(path)
			}
			releaseSingleUserLock(root)
			os.Exit(1)
		case <-sc.stopCh:
			signal.Stop(ch)
		}
	}()

	return sc
}

// stop deregisters the signal handler, used when a Cache is closed in an
// orderly fashion (its own teardown already does the same cleanup work
// deliberately rather than via the signal path).
func (sc *signalCleanup) stop() {
	sc.stopOnce.Do(func() {
		close(sc.stopCh)
	})
}
