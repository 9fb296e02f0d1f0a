package main

import (
	"context"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newWatchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Regenerate the schema whenever a source changes",
		Long: `Render the schema once, then watch the package directories and the
manifest and render again after every change. Directories can be set
explicitly with watch.dirs in the config file or FBSGEN_WATCH_DIRS.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return newWatcher(a.generator(), cmd.OutOrStdout()).run(ctx)
		},
	}
}

// watcher regenerates on source changes, collapsing bursts of events
// within the debounce period into one run.
type watcher struct {
	g     *generator
	out   io.Writer
	regen chan struct{}

	mu    sync.Mutex
	timer *time.Timer
}

func newWatcher(g *generator, out io.Writer) *watcher {
	return &watcher{g: g, out: out, regen: make(chan struct{}, 1)}
}

func (w *watcher) run(ctx context.Context) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "failed to create fsnotify watcher")
	}
	defer fsw.Close()

	dirs, err := w.g.watchDirs()
	if err != nil {
		return err
	}

	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			return errors.Wrapf(err, "failed to watch %s", dir)
		}
	}

	w.g.log.Info("watching for changes", zap.Strings("dirs", dirs))
	w.regenerate(ctx)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			return nil

		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}

			if !isSourceEvent(event) {
				continue
			}

			w.g.log.Debug("source changed", zap.String("file", event.Name), zap.String("op", event.Op.String()))
			w.schedule()

		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}

			w.g.log.Warn("watcher error", zap.Error(err))

		case <-w.regen:
			w.regenerate(ctx)
		}
	}
}

func (w *watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}

	w.timer = time.AfterFunc(w.g.cfg.Watch.Debounce, func() {
		select {
		case w.regen <- struct{}{}:
		default:
		}
	})
}

func (w *watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
}

// regenerate logs failures instead of returning them; a broken source is
// expected while it is being edited.
func (w *watcher) regenerate(ctx context.Context) {
	files, _, err := w.g.generate(ctx)
	if err == nil {
		err = w.g.write(w.out, files)
	}

	if err != nil {
		w.g.log.Error("generation failed", zap.Error(err))
		return
	}

	w.g.log.Info("schema regenerated", zap.Int("files", len(files)))
}

// isSourceEvent reports whether an event touches a Go source or a manifest.
// Generated .fbs files never match, so writing output does not retrigger.
func isSourceEvent(e fsnotify.Event) bool {
	if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) && !e.Has(fsnotify.Remove) && !e.Has(fsnotify.Rename) {
		return false
	}

	switch filepath.Ext(e.Name) {
	case ".go":
		return !strings.HasSuffix(e.Name, "_test.go")
	case ".yaml", ".yml":
		return true
	default:
		return false
	}
}

// watchDirs returns the configured directories, or derives them from local
// package patterns and the manifest location.
func (g *generator) watchDirs() ([]string, error) {
	if len(g.cfg.Watch.Dirs) > 0 {
		return g.cfg.Watch.Dirs, nil
	}

	seen := map[string]bool{}

	add := func(dir string) {
		seen[filepath.Clean(dir)] = true
	}

	if g.cfg.Manifest != "" {
		add(filepath.Dir(g.cfg.Manifest))
	}

	for _, pattern := range g.cfg.Packages {
		if !isLocalPattern(pattern) {
			g.log.Warn("cannot watch import path pattern; set watch.dirs", zap.String("pattern", pattern))
			continue
		}

		root, recursive := strings.CutSuffix(pattern, "/...")
		if !recursive {
			add(root)
			continue
		}

		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if !d.IsDir() {
				return nil
			}

			name := d.Name()
			if path != root && (name == "testdata" || strings.HasPrefix(name, ".") || strings.HasPrefix(name, "_")) {
				return filepath.SkipDir
			}

			add(path)

			return nil
		})
		if err != nil {
			return nil, errors.Wrapf(err, "walking %s", root)
		}
	}

	if len(seen) == 0 {
		add(".")
	}

	dirs := make([]string, 0, len(seen))
	for dir := range seen {
		dirs = append(dirs, dir)
	}

	sort.Strings(dirs)

	return dirs, nil
}

func isLocalPattern(p string) bool {
	return p == "." || p == "./..." || strings.HasPrefix(p, "./") || strings.HasPrefix(p, "../") || filepath.IsAbs(p)
}
