// Package resolver turns a share link or content id into a flat list of file descriptors.
//
// A folder is expanded by one metadata lookup per node. Sibling sub-folders are resolved
// in parallel with provider calls bounded by a semaphore; results are merged back in the
// order the provider listed the children. Password and exclusion settings apply at every
// level. Password mismatches and provider errors only drop the affected subtree; auth
// failures, transport failures and structural problems abort the whole resolution.
package resolver

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/nahucai95/GoFile-Direct-Link/internal/errs"
	"github.com/nahucai95/GoFile-Direct-Link/internal/gofile"
	"github.com/nahucai95/GoFile-Direct-Link/internal/logging"
	"github.com/nahucai95/GoFile-Direct-Link/internal/metrics"
	"github.com/nahucai95/GoFile-Direct-Link/internal/session"
	"github.com/nahucai95/GoFile-Direct-Link/pkg/models"
)

// ContentSource fetches one content node.
type ContentSource interface {
	GetContent(ctx context.Context, id, token, wt, passwordHash string) (gofile.Node, error)
}

// CredentialSource supplies populated session credentials.
type CredentialSource interface {
	Ensure(ctx context.Context) (session.Credentials, error)
}

// Config holds resolver settings.
type Config struct {
	SharePrefix string
	Concurrency int
	MaxDepth    int
}

// Request describes one resolution. ContentID wins over ShareURL when both are set.
// DestDir is percent-decoded like the names joined onto it.
type Request struct {
	DestDir   string
	ContentID string
	ShareURL  string
	Password  string
	Excludes  []string
}

// Result is the outcome of a resolution that was not aborted.
type Result struct {
	ContentID string
	Files     []models.FileDescriptor
	// Failures lists the node-local errors (*errs.PasswordError, *errs.ProviderError)
	// whose subtrees contributed nothing.
	Failures []error
}

// Resolver resolves shares against a ContentSource.
type Resolver struct {
	source   ContentSource
	session  CredentialSource
	prefix   string
	maxDepth int
	sem      *semaphore.Weighted
}

// New creates a resolver.
func New(source ContentSource, sess CredentialSource, cfg Config) *Resolver {
	if cfg.SharePrefix == "" {
		cfg.SharePrefix = "https://gofile.io/d/"
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}
	if cfg.MaxDepth < 1 {
		cfg.MaxDepth = 64
	}
	return &Resolver{
		source:   source,
		session:  sess,
		prefix:   cfg.SharePrefix,
		maxDepth: cfg.MaxDepth,
		sem:      semaphore.NewWeighted(int64(cfg.Concurrency)),
	}
}

// Resolve resolves req into file descriptors.
//
// Invalid input returns an empty Result together with an *errs.InvalidInputError.
// Any other error means the resolution was aborted and the Result is empty.
func (r *Resolver) Resolve(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	res, err := r.resolve(ctx, req)
	metrics.RecordResolution(time.Since(start), len(res.Files), err == nil)

	log := logging.WithContext(ctx)
	if err != nil {
		log.Error("resolution failed", zap.String("content_id", res.ContentID), zap.Error(err))
		return res, err
	}
	log.Info("resolved",
		zap.String("content_id", res.ContentID),
		zap.Int("files", len(res.Files)),
		zap.Int("failures", len(res.Failures)),
		zap.Duration("duration", time.Since(start)))
	return res, nil
}

func (r *Resolver) resolve(ctx context.Context, req Request) (*Result, error) {
	id, err := r.contentID(req)
	if err != nil {
		return &Result{}, err
	}

	filter, err := NewExclusionSet(req.Excludes)
	if err != nil {
		return &Result{ContentID: id}, err
	}

	creds, err := r.session.Ensure(ctx)
	if err != nil {
		return &Result{ContentID: id}, err
	}

	w := &walk{
		Resolver:     r,
		creds:        creds,
		passwordHash: gofile.HashPassword(req.Password),
		filter:       filter,
		visited:      make(map[string]bool),
	}

	b, err := w.node(ctx, id, decodePercent(req.DestDir), 0)
	if err != nil {
		return &Result{ContentID: id}, err
	}

	return &Result{
		ContentID: id,
		Files:     dedupe(b.files),
		Failures:  b.failures,
	}, nil
}

func (r *Resolver) contentID(req Request) (string, error) {
	if id := strings.TrimSpace(req.ContentID); id != "" {
		return id, nil
	}
	if strings.TrimSpace(req.ShareURL) == "" {
		return "", &errs.InvalidInputError{Msg: "invalid parameters"}
	}
	return ParseShareURL(r.prefix, req.ShareURL)
}

// branch is the contribution of one subtree.
type branch struct {
	files    []models.FileDescriptor
	failures []error
}

func (b *branch) merge(o branch) {
	b.files = append(b.files, o.files...)
	b.failures = append(b.failures, o.failures...)
}

// walk carries the per-resolution state shared by all branches.
type walk struct {
	*Resolver
	creds        session.Credentials
	passwordHash string
	filter       ExclusionSet

	mu      sync.Mutex
	visited map[string]bool
}

func (w *walk) node(ctx context.Context, id, dir string, depth int) (branch, error) {
	if depth > w.maxDepth {
		return branch{}, &errs.StructuralError{ContentID: id, Depth: w.maxDepth}
	}

	node, err := w.fetch(ctx, id)
	if err != nil {
		if errs.IsNodeLocal(err) {
			w.nodeFailure(ctx, id, err)
			return branch{failures: []error{err}}, nil
		}
		return branch{}, err
	}

	switch n := node.(type) {
	case *gofile.FileNode:
		metrics.RecordNodeFetched(gofile.TypeFile)
		var b branch
		w.addFile(ctx, &b, n, dir)
		return b, nil

	case *gofile.FolderNode:
		metrics.RecordNodeFetched(gofile.TypeFolder)
		if !w.visit(n.ID) {
			return branch{}, &errs.StructuralError{ContentID: n.ID, Cycle: true}
		}
		return w.folder(ctx, n, dir, depth)

	default:
		return branch{}, &errs.ProviderError{ContentID: id, Err: errors.New("unsupported node")}
	}
}

func (w *walk) folder(ctx context.Context, n *gofile.FolderNode, dir string, depth int) (branch, error) {
	folderDir := joinPath(dir, SanitizeName(n.Name))
	slots := make([]branch, len(n.Children))

	g, gctx := errgroup.WithContext(ctx)
	for i, child := range n.Children {
		switch c := child.(type) {
		case *gofile.FileNode:
			w.addFile(ctx, &slots[i], c, folderDir)
		case *gofile.FolderRef:
			g.Go(func() error {
				b, err := w.node(gctx, c.ID, folderDir, depth+1)
				if err != nil {
					return err
				}
				slots[i] = b
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return branch{}, err
	}

	var out branch
	for _, s := range slots {
		out.merge(s)
	}
	return out, nil
}

func (w *walk) fetch(ctx context.Context, id string) (gofile.Node, error) {
	if err := w.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer w.sem.Release(1)
	return w.source.GetContent(ctx, id, w.creds.APIToken, w.creds.VerificationToken, w.passwordHash)
}

func (w *walk) addFile(ctx context.Context, b *branch, f *gofile.FileNode, dir string) {
	if w.filter.Match(f.Name) {
		metrics.RecordFileExcluded()
		logging.WithContext(ctx).Debug("excluded file", zap.String("name", f.Name), zap.String("id", f.ID))
		return
	}
	b.files = append(b.files, models.FileDescriptor{
		Link:            DecodeLink(f.Link),
		DestinationPath: joinPath(dir, SanitizeName(f.Name)),
	})
}

func (w *walk) visit(id string) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.visited[id] {
		return false
	}
	w.visited[id] = true
	return true
}

func (w *walk) nodeFailure(ctx context.Context, id string, err error) {
	log := logging.WithContext(ctx)
	if pe, ok := errs.AsPassword(err); ok {
		metrics.RecordNodeFailure("password")
		log.Error("invalid password", zap.String("content_id", id), zap.String("password_status", pe.Status))
		return
	}
	if pe, ok := errs.AsProvider(err); ok && pe.Timeout {
		metrics.RecordNodeFailure("timeout")
	} else {
		metrics.RecordNodeFailure("provider")
	}
	log.Warn("provider error", zap.String("content_id", id), zap.Error(err))
}

// dedupe drops repeated links, keeping the first occurrence.
func dedupe(files []models.FileDescriptor) []models.FileDescriptor {
	seen := make(map[string]bool, len(files))
	out := files[:0]
	for _, f := range files {
		if seen[f.Link] {
			continue
		}
		seen[f.Link] = true
		out = append(out, f)
	}
	return out
}
