package build

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"hinc/state"
)

// Watch is the action of the "watch" subcommand: build once, then rebuild on
// every change under the source directory. Each rebuild constructs a fresh
// builder - an in-flight build is cancelled simply by discarding its
// registry and starting over, there is no incremental recomputation.
func Watch(ctx context.Context, cmd *cli.Command) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("watch")

	src, dst, err := sourceAndDestination(cmd, &env.Cfg.Build)
	if err != nil {
		return err
	}
	env.Overwrite = true // rebuilds always rewrite previous outputs
	if d := cmd.String("data"); d != "" {
		env.Cfg.Build.DataPath = d
	}

	rebuild := func() {
		b, err := newBuilder(env, src, dst, log)
		if err != nil {
			log.Error("Unable to prepare build", zap.Error(err))
			return
		}
		if err := b.run(ctx); err != nil && ctx.Err() == nil {
			log.Error("Build ended with error", zap.Error(err))
		}
	}
	rebuild()

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := watchTree(w, src); err != nil {
		return err
	}
	log.Info("Watching for changes", zap.String("source", src))

	debounce := time.Duration(env.Cfg.Build.DebounceMsec) * time.Millisecond
	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// start watching directories created after us
			if ev.Op.Has(fsnotify.Create) {
				if fi, err := os.Stat(ev.Name); err == nil && fi.IsDir() {
					if err := watchTree(w, ev.Name); err != nil {
						log.Warn("Unable to watch new directory", zap.String("dir", ev.Name), zap.Error(err))
					}
				}
			}
			log.Debug("Change detected", zap.String("path", ev.Name), zap.Stringer("op", ev.Op))
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("Watcher error", zap.Error(err))
		case <-timer.C:
			rebuild()
		}
	}
}

func watchTree(w *fsnotify.Watcher, root string) error {
	return filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if info.IsDir() {
			return w.Add(path)
		}
		return nil
	})
}
