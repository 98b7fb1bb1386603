package search

import (
	"context"
	"errors"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
)

var ErrClosed = errors.New("search engine closed")

type Engine interface {
	Index(ctx context.Context, doc VoiceDoc) error
	IndexBatch(ctx context.Context, docs []VoiceDoc) error
	Delete(ctx context.Context, id uint) error
	Search(ctx context.Context, req Query) (Result, error)
	Count() (uint64, error)
	Close() error
}

type bleveEngine struct {
	cfg    Config
	index  bleve.Index
	mu     sync.RWMutex
	closed bool
}

// New opens the index at cfg.IndexPath, creating it when missing.
func New(cfg Config) (Engine, error) {
	var idx bleve.Index
	if _, err := os.Stat(cfg.IndexPath); err == nil {
		i, e := bleve.Open(cfg.IndexPath)
		if e != nil {
			return nil, e
		}
		idx = i
	} else if os.IsNotExist(err) {
		i, e := bleve.New(cfg.IndexPath, BuildIndexMapping(cfg.DefaultAnalyzer))
		if e != nil {
			return nil, e
		}
		idx = i
	} else {
		return nil, err
	}
	return &bleveEngine{cfg: cfg, index: idx}, nil
}

// NewMemOnly builds an index that lives only in memory.
func NewMemOnly(cfg Config) (Engine, error) {
	idx, err := bleve.NewMemOnly(BuildIndexMapping(cfg.DefaultAnalyzer))
	if err != nil {
		return nil, err
	}
	return &bleveEngine{cfg: cfg, index: idx}, nil
}

func docID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func (e *bleveEngine) guard() error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	return nil
}

func (e *bleveEngine) withDeadline(ctx context.Context, d time.Duration, fn func(context.Context) error) error {
	if d <= 0 {
		return fn(ctx)
	}
	c, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	ch := make(chan error, 1)
	go func() { ch <- fn(c) }()
	select {
	case <-c.Done():
		return c.Err()
	case err := <-ch:
		return err
	}
}

func (e *bleveEngine) Index(ctx context.Context, doc VoiceDoc) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.withDeadline(ctx, e.cfg.QueryTimeout, func(ctx context.Context) error {
		return e.index.Index(docID(doc.ID), doc.fields())
	})
}

func (e *bleveEngine) IndexBatch(ctx context.Context, docs []VoiceDoc) error {
	if err := e.guard(); err != nil {
		return err
	}
	bs := e.cfg.BatchSize
	if bs <= 0 {
		bs = 200
	}
	for i := 0; i < len(docs); i += bs {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := i + bs
		if end > len(docs) {
			end = len(docs)
		}
		b := e.index.NewBatch()
		for _, d := range docs[i:end] {
			if err := b.Index(docID(d.ID), d.fields()); err != nil {
				return err
			}
		}
		if err := e.index.Batch(b); err != nil {
			return err
		}
	}
	return nil
}

func (e *bleveEngine) Delete(ctx context.Context, id uint) error {
	if err := e.guard(); err != nil {
		return err
	}
	return e.withDeadline(ctx, e.cfg.QueryTimeout, func(ctx context.Context) error {
		return e.index.Delete(docID(id))
	})
}

func (e *bleveEngine) Search(ctx context.Context, req Query) (Result, error) {
	if err := e.guard(); err != nil {
		return Result{}, err
	}

	sr := bleve.NewSearchRequest(buildQuery(req))
	if req.Size <= 0 {
		req.Size = 20
	}
	if req.From < 0 {
		req.From = 0
	}
	sr.Size = req.Size
	sr.From = req.From
	sr.SortBy([]string{"-_score", "-created_at"})
	if req.Highlight {
		sr.Highlight = bleve.NewHighlightWithStyle("html")
	}

	var res *bleve.SearchResult
	err := e.withDeadline(ctx, e.cfg.QueryTimeout, func(ctx context.Context) error {
		r, e2 := e.index.SearchInContext(ctx, sr)
		if e2 != nil {
			return e2
		}
		res = r
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	out := Result{
		Total: res.Total,
		Took:  res.Took,
		Hits:  make([]Hit, 0, len(res.Hits)),
	}
	for _, h := range res.Hits {
		id, err := strconv.ParseUint(h.ID, 10, 64)
		if err != nil {
			continue
		}
		out.Hits = append(out.Hits, Hit{
			ID:        uint(id),
			Score:     h.Score,
			Fragments: h.Fragments,
		})
	}
	return out, nil
}

func (e *bleveEngine) Count() (uint64, error) {
	if err := e.guard(); err != nil {
		return 0, err
	}
	return e.index.DocCount()
}

func (e *bleveEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.index.Close()
}
