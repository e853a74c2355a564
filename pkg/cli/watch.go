package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/JuanMarchetto/truss/pkg/console"
	"github.com/JuanMarchetto/truss/pkg/fileutil"
	"github.com/JuanMarchetto/truss/pkg/logger"
)

var watchLog = logger.NewSlogLogger("cli:watch")

// watchDebounce collapses bursts of events, such as an editor's
// write-rename-chmod sequence, into one revalidation.
var watchDebounce = 300 * time.Millisecond

// watchSet decides which file system events concern the validated paths.
type watchSet struct {
	// dirs are handed to fsnotify, which does not recurse.
	dirs []string
	// roots are directory arguments: any YAML file below them counts.
	roots []string
	// files are the explicitly named or glob-matched files.
	files map[string]bool
}

func newWatchSet(paths, files []string) (watchSet, error) {
	ws := watchSet{files: make(map[string]bool)}
	dirs := make(map[string]bool)

	for _, p := range paths {
		if !fileutil.DirExists(p) {
			continue
		}
		root := filepath.Clean(p)
		ws.roots = append(ws.roots, root)
		err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				dirs[path] = true
			}
			return nil
		})
		if err != nil {
			return ws, fmt.Errorf("failed to walk directory '%s': %w", root, err)
		}
	}
	for _, f := range files {
		f = filepath.Clean(f)
		ws.files[f] = true
		dirs[filepath.Dir(f)] = true
	}
	ws.dirs = slices.Sorted(maps.Keys(dirs))
	return ws, nil
}

func (ws watchSet) matches(name string) bool {
	name = filepath.Clean(name)
	if ws.files[name] {
		return true
	}
	if !fileutil.IsYAMLFile(name) {
		return false
	}
	for _, root := range ws.roots {
		if root == "." || strings.HasPrefix(name, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// watch revalidates changed files until ctx is cancelled.
func (v *validator) watch(ctx context.Context, files []string) error {
	ws, err := newWatchSet(v.opts.Paths, files)
	if err != nil {
		return ioError(err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return ioError(fmt.Errorf("failed to create file watcher: %w", err))
	}
	defer watcher.Close()

	for _, dir := range ws.dirs {
		if err := watcher.Add(dir); err != nil {
			return ioError(fmt.Errorf("failed to watch directory %s: %w", dir, err))
		}
	}
	watchLog.Info("watching", "dirs", len(ws.dirs), "files", len(ws.files))
	fmt.Fprintln(v.opts.Stderr, console.FormatInfoMessage("Watching for changes (press Ctrl+C to stop)"))

	pending := make(map[string]bool)
	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			watchLog.Info("stopping")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return ioError(errors.New("watcher channel closed"))
			}
			if !ws.matches(event.Name) || v.cfg.IsIgnored(event.Name) {
				continue
			}
			watchLog.Debug("event", "name", event.Name, "op", event.Op.String())
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			pending[filepath.Clean(event.Name)] = true
			if timer == nil {
				timer = time.NewTimer(watchDebounce)
			} else {
				timer.Reset(watchDebounce)
			}
			fire = timer.C

		case <-fire:
			fire = nil
			changed := slices.Sorted(maps.Keys(pending))
			clear(pending)
			changed = slices.DeleteFunc(changed, func(f string) bool { return !fileutil.FileExists(f) })
			if len(changed) == 0 {
				continue
			}
			watchLog.Info("revalidating", "files", len(changed))
			if err := v.report(v.validateFiles(ctx, changed)); err != nil {
				return err
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return ioError(errors.New("watcher error channel closed"))
			}
			watchLog.Warn("watcher error", "error", err)
		}
	}
}
