package rythm

import (
	"context"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay groups the bursts of events editors produce on save.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the templates whenever a file under the engine directory
// changes, until ctx is done. Reload errors are logged and the previously
// loaded templates stay in use. Watch needs an engine created with
// NewEngine.
func (e *Engine) Watch(ctx context.Context) error {
	if e.dir == "" {
		return errors.New("watch needs an engine created with NewEngine")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	err = filepath.WalkDir(e.dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return w.Add(p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	e.opts.logger.Info().Str("dir", e.dir).Msg("watching templates")

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = w.Add(ev.Name)
				}
			}
			if ev.Has(fsnotify.Chmod) && !ev.Has(fsnotify.Write) {
				continue
			}
			e.opts.logger.Debug().Str("file", ev.Name).Stringer("op", ev.Op).Msg("template change")
			timer.Reset(reloadDelay)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			e.opts.logger.Warn().Err(err).Msg("template watcher error")
		case <-timer.C:
			if err := e.Load(); err != nil {
				e.opts.logger.Error().Err(err).Msg("template reload failed")
				continue
			}
			e.opts.logger.Info().Msg("templates reloaded")
		}
	}
}
