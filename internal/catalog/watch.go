package catalog

import (
	"context"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Watch reloads the catalog on filesystem events for the tracked price
// lists, complementing the mtime poll in MaybeReload for deployments that
// want immediate pickup. Blocks until ctx is canceled. Watches each
// file's parent directory so replace-by-rename (the common editor and
// atomic-write pattern) is observed.
func (c *Catalog) Watch(ctx context.Context) error {
	if len(c.files) == 0 {
		<-ctx.Done()
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return eris.Wrap(err, "catalog: create watcher")
	}
	defer watcher.Close()

	tracked := make(map[string]struct{}, len(c.files))
	dirs := make(map[string]struct{})
	for _, path := range c.files {
		abs := path
		if !filepath.IsAbs(abs) {
			if wd, wdErr := os.Getwd(); wdErr == nil {
				abs = filepath.Join(wd, abs)
			}
		}
		tracked[abs] = struct{}{}
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return eris.Wrapf(err, "catalog: watch %s", dir)
		}
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if _, want := tracked[event.Name]; !want {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename|fsnotify.Remove) == 0 {
				continue
			}
			zap.L().Info("catalog: price list changed, reloading",
				zap.String("file", event.Name),
				zap.String("op", event.Op.String()),
			)
			c.Reload()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			zap.L().Warn("catalog: watcher error", zap.Error(err))
		}
	}
}
