package serve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"sitegen/internal/build"
	"sitegen/internal/domain/config"
	"sitegen/internal/logfields"
)

const debounceDelay = 200 * time.Millisecond

// Server previews the output tree and rebuilds it when sources change.
// Rebuilds run on the watcher goroutine only, so builds never overlap.
type Server struct {
	cfg config.Config
	log *slog.Logger

	mu      sync.RWMutex
	lastErr error

	sseMu    sync.Mutex
	sseConns map[chan string]struct{}

	watcher   *fsnotify.Watcher
	watchOnce sync.Once
}

func New(cfg config.Config, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, log: logger, sseConns: make(map[chan string]struct{})}
}

func (s *Server) Close() error {
	if s.watcher != nil {
		return s.watcher.Close()
	}
	return nil
}

func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	if err := s.rebuild(ctx); err != nil {
		return err
	}
	if err := s.startWatch(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("serving", slog.String("addr", addr), logfields.Path(s.cfg.Build.OutputRoot))
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Handler serves the output root with caching disabled and the live reload
// endpoint. While the last rebuild is failing every page request gets the
// error instead of stale pages.
func (s *Server) Handler() http.Handler {
	root := s.cfg.Build.OutputRoot
	files := http.FileServer(http.Dir(root))

	mux := http.NewServeMux()
	mux.HandleFunc(EventsPath, s.handleEvents)
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		s.mu.RLock()
		lastErr := s.lastErr
		s.mu.RUnlock()
		if lastErr != nil {
			http.Error(w, "build failed: "+lastErr.Error(), http.StatusInternalServerError)
			return
		}

		// no directory listings: a directory needs an index.html
		if strings.HasSuffix(r.URL.Path, "/") && r.URL.Path != "/" {
			p := filepath.Join(root, filepath.FromSlash(r.URL.Path), "index.html")
			if _, err := os.Stat(p); err != nil {
				http.NotFound(w, r)
				return
			}
		}
		if s.servePage(w, r) {
			return
		}
		w.Header().Set("Cache-Control", "no-cache, no-store, must-revalidate")
		files.ServeHTTP(w, r)
	})
	return mux
}

func (s *Server) rebuild(ctx context.Context) error {
	// a fresh builder picks up edited templates
	res, err := build.New(s.cfg, s.log).Run(ctx)
	s.mu.Lock()
	s.lastErr = err
	s.mu.Unlock()
	// failed builds reload too, so open pages show the error
	defer s.broadcast("reload")
	if err != nil {
		return fmt.Errorf("build: %w", err)
	}
	for _, w := range res.Warnings {
		s.log.Warn(w.Msg, logfields.Path(w.Path))
	}
	return nil
}

// watchPaths lists every directory whose changes should trigger a rebuild.
func (s *Server) watchPaths() ([]string, error) {
	var dirs []string
	add := func(dir string) error {
		return filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				dirs = append(dirs, p)
			}
			return nil
		})
	}
	for _, coll := range s.cfg.Collections {
		if err := add(coll.Source); err != nil {
			return nil, fmt.Errorf("watch %s: %w", coll.Source, err)
		}
	}
	dirs = append(dirs, filepath.Dir(s.cfg.Home.Source))
	if d := s.cfg.Build.TemplateDir; d != "" {
		dirs = append(dirs, d)
	}
	return dirs, nil
}

func (s *Server) startWatch(ctx context.Context) error {
	var err error
	s.watchOnce.Do(func() {
		w, e := fsnotify.NewWatcher()
		if e != nil {
			err = e
			return
		}
		s.watcher = w

		dirs, e := s.watchPaths()
		if e != nil {
			err = e
			return
		}
		for _, d := range dirs {
			if e := w.Add(d); e != nil {
				err = fmt.Errorf("watch %s: %w", d, e)
				return
			}
		}
		go s.watchLoop(ctx)
	})
	return err
}

// ignored filters events the build itself causes, so writing into an
// output root that sits inside a watched directory does not loop.
func (s *Server) ignored(name string) bool {
	abs, err := filepath.Abs(name)
	if err != nil {
		return false
	}
	for _, p := range []string{s.cfg.Build.OutputRoot, filepath.Dir(s.cfg.Build.ManifestPath)} {
		if p == "" || p == "." {
			continue
		}
		root, err := filepath.Abs(p)
		if err != nil {
			continue
		}
		if abs == root || strings.HasPrefix(abs, root+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

func (s *Server) watchLoop(ctx context.Context) {
	s.log.Info("watching for changes")
	debounce := time.NewTimer(time.Hour)
	debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return
		case ev, ok := <-s.watcher.Events:
			if !ok {
				return
			}
			if s.ignored(ev.Name) {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if ev.Has(fsnotify.Create) {
				if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
					if err := s.watcher.Add(ev.Name); err != nil {
						s.log.Warn("watch new directory", logfields.Path(ev.Name), logfields.Error(err))
					}
				}
			}
			s.log.Debug("change detected", logfields.Path(ev.Name), slog.String("op", ev.Op.String()))
			debounce.Reset(debounceDelay)
		case err, ok := <-s.watcher.Errors:
			if !ok {
				return
			}
			s.log.Warn("watcher error", logfields.Error(err))
		case <-debounce.C:
			if err := s.rebuild(ctx); err != nil {
				s.log.Error("rebuild failed", logfields.Error(err))
				continue
			}
			s.log.Info("rebuilt")
		}
	}
}
