package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/tonimelisma/iptv-sync/internal/config"
	"github.com/tonimelisma/iptv-sync/internal/sync"
)

// reloadDebounce coalesces the burst of events editors produce on save.
const reloadDebounce = 500 * time.Millisecond

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep catalogs fresh in the background",
		Long: `Run until interrupted, refreshing every kind once at start and then every
refresh_interval. Failed rounds are retried sooner with backoff.

Editing the config file or sending SIGHUP reloads sources and network
settings and triggers an immediate refresh. Sync tuning ([sync]) needs a
restart.`,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	cc := mustCLIContext(cmd.Context())
	logger := cc.Logger
	cfg := cc.Holder.Config()

	cleanup, err := writePIDFile(cfg.PIDFilePath())
	if err != nil {
		return err
	}
	defer cleanup()

	// Canceled on return so the signal handler goes away with the command.
	cmdCtx, stop := context.WithCancel(cmd.Context())
	defer stop()

	ctx := shutdownContext(cmdCtx, logger)

	a, err := openApp(ctx, cc)
	if err != nil {
		return err
	}
	defer a.Close()

	sched := sync.NewScheduler(a.orch, cfg.Sync.RefreshIntervalDuration(), logger)

	reloads := make(chan struct{}, 1)
	requestReload := func() {
		select {
		case reloads <- struct{}{}:
		default:
		}
	}

	stopWatch, err := watchConfigFile(ctx, cc.Holder.Path(), requestReload, logger)
	if err != nil {
		// Reloading by file change is a convenience; SIGHUP still works.
		logger.Warn("config file watch unavailable", slog.String("error", err.Error()))
	} else {
		defer stopWatch()
	}

	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				logger.Info("received SIGHUP")
				requestReload()
			case <-reloads:
				reloadAndKick(cc.Holder, sched, logger)
			}
		}
	}()

	cc.Statusf("Watching (refresh every %s). Press Ctrl-C to stop.\n", cfg.Sync.RefreshIntervalDuration())

	err = sched.Run(ctx)
	if errors.Is(err, context.Canceled) {
		logger.Info("watch stopped")
		return nil
	}

	return err
}

// reloadAndKick re-reads the config and starts a refresh round. A broken
// file keeps the previous config.
func reloadAndKick(holder *config.Holder, sched *sync.Scheduler, logger *slog.Logger) {
	if err := holder.Reload(); err != nil {
		logger.Error("config reload failed, keeping previous config", slog.String("error", err.Error()))
		return
	}

	logger.Info("config reloaded", slog.String("path", holder.Path()))
	sched.Kick()
}

// watchConfigFile calls onChange (debounced) whenever the config file is
// written, created, or replaced. The directory is watched so editors that
// save by rename are seen.
func watchConfigFile(
	ctx context.Context, path string, onChange func(), logger *slog.Logger,
) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating config watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, fmt.Errorf("watching %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	done := make(chan struct{})

	go func() {
		defer close(done)

		var debounce <-chan time.Time

		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}

				if filepath.Clean(ev.Name) != target {
					continue
				}

				if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
					logger.Debug("config file changed", slog.String("op", ev.Op.String()))
					debounce = time.After(reloadDebounce)
				}
			case werr, ok := <-w.Errors:
				if !ok {
					return
				}

				logger.Warn("config watcher error", slog.String("error", werr.Error()))
			case <-debounce:
				debounce = nil
				onChange()
			}
		}
	}()

	return func() {
		w.Close()
		<-done
	}, nil
}
