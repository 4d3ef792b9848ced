package ingest

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/tradedocs/internal/common"
)

type WatchConfig struct {
	Root        string              // inbox directory, watched recursively
	AllowedExts map[string]struct{} // nil means the default set
	InitialScan bool                // emit files already present under Root
	Debounce    time.Duration       // coalesce rapid write bursts
}

// StartWatcher emits paths of allowed files created or written under
// cfg.Root until ctx is done. Both channels are closed on exit.
func StartWatcher(ctx context.Context, cfg WatchConfig, logger *slog.Logger) (<-chan string, <-chan error, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Root == "" {
		return nil, nil, errors.New("no inbox root provided")
	}
	if cfg.AllowedExts == nil {
		cfg.AllowedExts = extSet(nil)
	}
	if err := os.MkdirAll(cfg.Root, 0o755); err != nil {
		return nil, nil, err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Error("failed to create fsnotify watcher", "error", err)
		return nil, nil, err
	}

	// addDir watches root and every directory below it, collecting the
	// allowed files already present.
	addDir := func(root string, found *[]string) error {
		return filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
			if walkErr != nil {
				return walkErr
			}
			if d.IsDir() {
				return w.Add(path)
			}
			if allowedExt(path, cfg.AllowedExts) && !isHidden(path) {
				*found = append(*found, path)
			}
			return nil
		})
	}
	var initial []string
	if err := addDir(cfg.Root, &initial); err != nil {
		logger.Error("failed to add inbox directory", "root", cfg.Root, "error", err)
		_ = w.Close()
		return nil, nil, err
	}

	if !cfg.InitialScan {
		initial = nil
	}

	evCh := make(chan string, 256)
	errCh := make(chan error, 1)

	go func() {
		defer close(evCh)
		defer close(errCh)
		defer func() {
			if err := w.Close(); err != nil {
				logger.Warn("failed to close watcher", "error", err)
			}
		}()

		emit := func(p string) bool {
			select {
			case evCh <- p:
				return true
			case <-ctx.Done():
				return false
			}
		}
		for _, p := range initial {
			if !emit(p) {
				return
			}
		}

		pending := map[string]struct{}{}
		var timer *time.Timer
		var fire <-chan time.Time
		flush := func() bool {
			for p := range pending {
				delete(pending, p)
				if !emit(p) {
					return false
				}
			}
			return true
		}

		for {
			select {
			case <-ctx.Done():
				return
			case e, ok := <-w.Events:
				if !ok {
					return
				}
				// a rename is reported for the old name; the new one arrives as create
				if !e.Has(fsnotify.Create) && !e.Has(fsnotify.Write) {
					continue
				}
				fi, err := os.Stat(e.Name)
				if err != nil {
					continue
				}
				if fi.IsDir() {
					if !e.Has(fsnotify.Create) {
						continue
					}
					// files moved in together with their folder produce no
					// events of their own
					var found []string
					if err := addDir(e.Name, &found); err != nil {
						logger.Warn("failed to watch new directory", "path", e.Name, "error", err)
					}
					if len(found) == 0 {
						continue
					}
					for _, p := range found {
						pending[p] = struct{}{}
					}
				} else {
					if !allowedExt(e.Name, cfg.AllowedExts) || isHidden(e.Name) {
						continue
					}
					pending[e.Name] = struct{}{}
				}
				if cfg.Debounce <= 0 {
					if !flush() {
						return
					}
					continue
				}
				if timer == nil {
					timer = time.NewTimer(cfg.Debounce)
				} else {
					timer.Reset(cfg.Debounce)
				}
				fire = timer.C
			case <-fire:
				fire = nil
				if !flush() {
					return
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Error("watcher error", "error", err)
				select {
				case errCh <- err:
				default:
				}
			}
		}
	}()

	return evCh, errCh, nil
}

// Inbox ingests files dropped under <root>/<case reference>/ into the case
// with that reference and hands new documents to enqueue.
type Inbox struct {
	svc     *Service
	root    string
	enqueue func(ctx context.Context, documentID uuid.UUID) error
	logger  *slog.Logger
}

func NewInbox(svc *Service, root string, enqueue func(ctx context.Context, documentID uuid.UUID) error, logger *slog.Logger) *Inbox {
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{svc: svc, root: root, enqueue: enqueue, logger: logger}
}

// Run watches the inbox until ctx is done. Files that fail to ingest are
// logged and left in place.
func (in *Inbox) Run(ctx context.Context, debounce time.Duration) error {
	events, errs, err := StartWatcher(ctx, WatchConfig{Root: in.root, InitialScan: true, Debounce: debounce}, in.logger)
	if err != nil {
		return err
	}
	in.logger.Info("ingest.inbox.started", "root", in.root)
	for {
		select {
		case p, ok := <-events:
			if !ok {
				return ctx.Err()
			}
			if _, err := in.Handle(ctx, p); err != nil {
				in.logger.Warn("ingest.inbox.failed", "path", p, "error", err)
			}
		case err, ok := <-errs:
			if !ok {
				errs = nil
				continue
			}
			in.logger.Warn("ingest.inbox.watch_error", "error", err)
		}
	}
}

// Handle ingests one inbox file. A duplicate is not queued again.
func (in *Inbox) Handle(ctx context.Context, path string) (*Result, error) {
	ref, err := in.caseReference(path)
	if err != nil {
		return nil, err
	}
	c, err := in.svc.EnsureCase(ctx, ref)
	if err != nil {
		return nil, err
	}
	res, err := in.svc.IngestPath(ctx, c.ID, path)
	if err != nil {
		return nil, err
	}
	if res.Deduplicated {
		in.logger.Info("ingest.inbox.duplicate", "path", path, "document_id", res.Document.ID)
		return res, nil
	}
	if in.enqueue != nil {
		if err := in.enqueue(ctx, res.Document.ID); err != nil {
			return res, err
		}
	}
	in.logger.Info("ingest.inbox.ok", "path", path, "case_reference", ref, "document_id", res.Document.ID)
	return res, nil
}

// caseReference is the first directory below the inbox root.
func (in *Inbox) caseReference(path string) (string, error) {
	rel, err := filepath.Rel(in.root, path)
	if err != nil {
		return "", err
	}
	parts := strings.Split(filepath.ToSlash(rel), "/")
	if len(parts) < 2 || parts[0] == ".." || parts[0] == "" {
		return "", common.InvalidInputf("%s is not inside a case folder of the inbox", path)
	}
	return parts[0], nil
}
