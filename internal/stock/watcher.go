package stock

import (
	"context"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	logx "github.com/agente-usados/server/pkg/logger"
)

// debounce window: spreadsheet exports write the file in several bursts.
const reloadDelay = 2 * time.Second

// Watcher reloads the repository whenever the stock export file changes, so
// a fresh upload reaches customers without a restart.
type Watcher struct {
	repo *Repository
	path string
	fsw  *fsnotify.Watcher
}

// NewWatcher watches the directory containing the stock file.
func NewWatcher(repo *Repository, path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}
	return &Watcher{repo: repo, path: path, fsw: fsw}, nil
}

// Run blocks until the context is cancelled, reloading on write/create
// events for the stock file.
func (w *Watcher) Run(ctx context.Context) {
	defer w.fsw.Close()

	var timer *time.Timer
	reload := make(chan struct{}, 1)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(reloadDelay, func() {
				select {
				case reload <- struct{}{}:
				default:
				}
			})
		case <-reload:
			n, err := LoadCSV(ctx, w.repo, w.path)
			if err != nil {
				logx.Error().Err(err).Str("path", w.path).Msg("Stock reload failed")
				continue
			}
			logx.Info().Int("vehicles", n).Str("path", w.path).Msg("Stock reloaded from file")
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			logx.Warn().Err(err).Msg("Stock watcher error")
		}
	}
}
