package watcher

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/juparave/commitreminder/internal/logging"
)

const defaultDebounce = 500 * time.Millisecond

// Service watches workspaces and reports saves, debounced per workspace.
type Service struct {
	mu       sync.Mutex
	watchers map[string]*fsnotify.Watcher
	timers   map[string]*time.Timer
	onSave   func(workspace string)
	ignore   map[string]bool
	logger   logging.Logger
	debounce time.Duration
}

// New creates a Service that calls onSave after a burst of changes settles.
// ignore lists directory names that never trigger a check.
func New(onSave func(workspace string), ignore []string, debounce time.Duration, logger logging.Logger) *Service {
	if logger == nil {
		logger = logging.Nop()
	}
	if debounce <= 0 {
		debounce = defaultDebounce
	}
	ig := map[string]bool{".git": true}
	for _, name := range ignore {
		if name = strings.TrimSpace(name); name != "" {
			ig[name] = true
		}
	}
	return &Service{
		watchers: map[string]*fsnotify.Watcher{},
		timers:   map[string]*time.Timer{},
		onSave:   onSave,
		ignore:   ig,
		logger:   logger,
		debounce: debounce,
	}
}

// Add starts watching workspace recursively. Adding twice is a no-op.
func (s *Service) Add(workspace string) error {
	s.mu.Lock()
	if _, ok := s.watchers[workspace]; ok {
		s.mu.Unlock()
		return nil
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		s.mu.Unlock()
		return err
	}
	s.watchers[workspace] = w
	s.mu.Unlock()

	if err := s.addRecursive(w, workspace); err != nil {
		s.logger.Warn("watcher setup error", "workspace", workspace, "error", err)
	}
	go s.observe(workspace, w)
	return nil
}

// Stop closes every watcher and cancels pending notifications
func (s *Service) Stop() {
	s.mu.Lock()
	timers := make([]*time.Timer, 0, len(s.timers))
	for _, t := range s.timers {
		timers = append(timers, t)
	}
	ws := make([]*fsnotify.Watcher, 0, len(s.watchers))
	for _, w := range s.watchers {
		ws = append(ws, w)
	}
	s.timers = map[string]*time.Timer{}
	s.watchers = map[string]*fsnotify.Watcher{}
	s.mu.Unlock()

	for _, t := range timers {
		t.Stop()
	}
	for _, w := range ws {
		_ = w.Close()
	}
}

func (s *Service) addRecursive(w *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && s.ignore[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.Add(path); err != nil {
			s.logger.Debug("watch add failed", "path", path, "error", err)
		}
		return nil
	})
}

func (s *Service) observe(workspace string, w *fsnotify.Watcher) {
	for {
		select {
		case ev, ok := <-w.Events:
			if !ok {
				return
			}
			if !isSave(ev) || s.isIgnored(workspace, ev.Name) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					_ = s.addRecursive(w, ev.Name)
				}
			}
			s.schedule(workspace)
		case err, ok := <-w.Errors:
			if !ok {
				return
			}
			s.logger.Warn("watcher error", "workspace", workspace, "error", err)
		}
	}
}

func isSave(ev fsnotify.Event) bool {
	return ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) ||
		ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

// isIgnored reports whether any path element below workspace is ignored
func (s *Service) isIgnored(workspace, path string) bool {
	if path == "" {
		return false
	}
	rel, err := filepath.Rel(workspace, path)
	if err != nil || strings.HasPrefix(rel, "..") {
		rel = path
	}
	for _, part := range strings.Split(filepath.ToSlash(rel), "/") {
		if s.ignore[part] {
			return true
		}
	}
	return false
}

func (s *Service) schedule(workspace string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.timers[workspace]; ok {
		t.Stop()
	}
	var t *time.Timer
	t = time.AfterFunc(s.debounce, func() {
		s.mu.Lock()
		if cur, ok := s.timers[workspace]; ok && cur == t {
			delete(s.timers, workspace)
		}
		fn := s.onSave
		s.mu.Unlock()
		if fn != nil {
			fn(workspace)
		}
	})
	s.timers[workspace] = t
}
