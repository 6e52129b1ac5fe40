// =============================================================================
// EPCIS Converter - Watch Command
// =============================================================================
//
// This file defines the 'watch' command, which converts EPCIS documents as
// they appear in the input directory.
//
// COMMAND USAGE:
//   epcis watch [flags]
//
// FLAGS:
//   --existing : Convert documents already in the input directory first
//
// A document is converted once it has not changed for watch_debounce. The
// command runs until interrupted.
//
// =============================================================================

package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ginjaninja78/epcis-converter/internal/converter"
	"github.com/ginjaninja78/epcis-converter/pkg/utils"
)

var watchExisting bool

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Convert EPCIS documents as they arrive in the input directory",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		fm := converter.NewFileManager(mainConfig)
		if err := fm.EnsureDirectories(); err != nil {
			return err
		}

		convert := func(path string) {
			res := converter.New(path, mainConfig,
				converter.WithLogger(logger),
				converter.WithFileManager(fm),
			).Run(ctx)
			if !res.Success {
				writeWatchError(res, mainConfig.OutputDir)
				return
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s\n",
				successStyle.Render("✓"), filepath.Base(path), filepath.Base(res.OutputFile))
		}

		if watchExisting {
			existing, err := fm.DiscoverInputFiles(utils.DefaultInputPattern)
			if err != nil {
				return err
			}
			for _, path := range existing {
				convert(path)
			}
		}

		w, err := newDirWatcher(mainConfig.InputDir, mainConfig.WatchDebounce, logger)
		if err != nil {
			return err
		}
		w.OnFile = convert

		logger.Info("watching for EPCIS documents", zap.String("dir", mainConfig.InputDir))
		if err := w.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().BoolVar(&watchExisting, "existing", true, "Convert documents already in the input directory first")
}

func writeWatchError(res converter.Result, outputDir string) {
	entry := utils.ErrorLogEntry{
		Timestamp:    time.Now(),
		FileName:     res.FilePath,
		ErrorType:    res.ErrorType,
		ErrorMessage: res.Error.Error(),
	}
	if _, err := utils.WriteErrorLog([]utils.ErrorLogEntry{entry}, outputDir); err != nil {
		logger.Error("failed to write error log", zap.Error(err))
	}
}

// =============================================================================
// DIRECTORY WATCHER
// =============================================================================

// dirWatcher reports input documents in one directory once they have stopped
// changing for the debounce interval.
type dirWatcher struct {
	watcher  *fsnotify.Watcher
	debounce time.Duration
	log      *zap.Logger

	// OnFile is called from its own goroutine. Calls for the same path never
	// overlap.
	OnFile func(path string)

	mu      sync.Mutex
	timers  map[string]*time.Timer
	running map[string]bool
	closed  bool
	wg      sync.WaitGroup
}

func newDirWatcher(dir string, debounce time.Duration, log *zap.Logger) (*dirWatcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := fw.Add(dir); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	return &dirWatcher{
		watcher:  fw,
		debounce: debounce,
		log:      log,
		timers:   make(map[string]*time.Timer),
		running:  make(map[string]bool),
	}, nil
}

// Run blocks until ctx is done, then waits for in-flight callbacks.
func (w *dirWatcher) Run(ctx context.Context) error {
	defer w.wg.Wait()
	defer w.stopTimers()
	defer w.watcher.Close()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 || !utils.IsInputFile(event.Name) {
				continue
			}
			w.schedule(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("watch error", zap.Error(err))
		}
	}
}

func (w *dirWatcher) schedule(path string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.timers[path]; ok {
		t.Stop()
	}
	w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
}

func (w *dirWatcher) fire(path string) {
	w.mu.Lock()
	delete(w.timers, path)
	if w.closed {
		w.mu.Unlock()
		return
	}
	if w.running[path] {
		// Still converting the previous version; try again after it settles.
		w.timers[path] = time.AfterFunc(w.debounce, func() { w.fire(path) })
		w.mu.Unlock()
		return
	}
	w.running[path] = true
	w.wg.Add(1)
	w.mu.Unlock()

	defer func() {
		w.mu.Lock()
		delete(w.running, path)
		w.mu.Unlock()
		w.wg.Done()
	}()

	if _, err := os.Stat(path); err != nil {
		// Moved away or deleted before it settled.
		return
	}
	if w.OnFile != nil {
		w.OnFile(path)
	}
}

func (w *dirWatcher) stopTimers() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closed = true
	for path, t := range w.timers {
		t.Stop()
		delete(w.timers, path)
	}
}
