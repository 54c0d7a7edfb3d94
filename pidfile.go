package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
)

const pidFilePermissions = 0o644

// errNoWatcher means no watch process holds the PID file.
var errNoWatcher = errors.New("no running watch")

// writePIDFile writes the current process ID to path and takes an exclusive
// flock on it. The returned cleanup removes the file and releases the lock.
// Failure to lock means another watch is running.
func writePIDFile(path string) (cleanup func(), err error) {
	if path == "" {
		return nil, fmt.Errorf("PID file path is empty, cannot determine data directory")
	}

	if err := os.MkdirAll(filepath.Dir(path), dataDirPermissions); err != nil {
		return nil, fmt.Errorf("creating PID file directory: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_RDWR, pidFilePermissions)
	if err != nil {
		return nil, fmt.Errorf("opening PID file: %w", err)
	}

	if err := syscall.Flock(int(f.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		f.Close()

		return nil, fmt.Errorf("another watch is already running (could not lock %s)", path)
	}

	if err := f.Truncate(0); err != nil {
		f.Close()

		return nil, fmt.Errorf("truncating PID file: %w", err)
	}

	if _, err := fmt.Fprintf(f, "%d\n", os.Getpid()); err != nil {
		f.Close()

		return nil, fmt.Errorf("writing PID file: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()

		return nil, fmt.Errorf("syncing PID file: %w", err)
	}

	return func() {
		os.Remove(path)
		f.Close()
	}, nil
}

// readPIDFile reads the PID from the given file path.
func readPIDFile(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("reading PID file: %w", err)
	}

	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, fmt.Errorf("invalid PID in %s: %w", path, err)
	}

	return pid, nil
}

// findWatcher returns the running watch process recorded in pidPath. A PID
// file left by a dead process is removed.
func findWatcher(pidPath string) (*os.Process, error) {
	pid, err := readPIDFile(pidPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, errNoWatcher
		}

		return nil, err
	}

	proc, err := os.FindProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("finding process %d: %w", pid, err)
	}

	// Signal 0 probes liveness.
	if err := proc.Signal(syscall.Signal(0)); err != nil {
		os.Remove(pidPath)

		return nil, fmt.Errorf("%w: watch (PID %d) is gone, stale PID file removed", errNoWatcher, pid)
	}

	return proc, nil
}

// notifyWatcher sends SIGHUP to a running watch so it reloads and refreshes.
func notifyWatcher(pidPath string) error {
	proc, err := findWatcher(pidPath)
	if err != nil {
		return err
	}

	if err := proc.Signal(syscall.SIGHUP); err != nil {
		return fmt.Errorf("sending SIGHUP to watch (PID %d): %w", proc.Pid, err)
	}

	return nil
}

// notifyWatcherIfRunning is notifyWatcher for commands that change the
// store: a missing watch is not an error.
func notifyWatcherIfRunning(cc *CLIContext) {
	err := notifyWatcher(cc.Holder.Config().PIDFilePath())

	switch {
	case err == nil:
		cc.Statusf("Notified running watch.\n")
	case errors.Is(err, errNoWatcher):
	default:
		cc.Logger.Warn("notifying watch", slog.String("error", err.Error()))
	}
}
