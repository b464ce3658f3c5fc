package promotion

import (
	"context"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/relgov/gateway/internal/observability"
)

// PolicyWatcher reloads the policy file into a PolicyStore when it changes
// on disk. A reload that fails to parse keeps the previous policy active.
type PolicyWatcher struct {
	path    string
	store   *PolicyStore
	watcher *fsnotify.Watcher
	logger  observability.Logger
}

// NewPolicyWatcher creates a watcher for the given policy file. The watch is
// registered on the parent directory so editors that replace the file
// atomically still trigger a reload.
func NewPolicyWatcher(path string, store *PolicyStore, logger observability.Logger) (*PolicyWatcher, error) {
	if logger == nil {
		logger = observability.NopLogger()
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}

	return &PolicyWatcher{
		path:    path,
		store:   store,
		watcher: w,
		logger:  logger,
	}, nil
}

// Run processes file events until the context is cancelled.
func (pw *PolicyWatcher) Run(ctx context.Context) {
	defer func() { _ = pw.watcher.Close() }()

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(pw.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			pw.reload()
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}
			pw.logger.Error("policy watcher error", observability.Error(err))
		}
	}
}

func (pw *PolicyWatcher) reload() {
	policy, err := LoadPolicy(pw.path)
	if err != nil {
		pw.logger.Error("policy reload failed, keeping previous policy",
			observability.String("path", pw.path),
			observability.Error(err),
		)
		return
	}

	pw.store.Set(policy)
	pw.logger.Info("promotion policy reloaded",
		observability.String("path", pw.path),
		observability.Float64("min_score", policy.MinScore),
		observability.Int("min_approvals", policy.MinApprovals),
	)
}
