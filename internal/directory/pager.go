package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	v1 "github.com/jolla3/maziwa-smart-sub000/internal/api/v1"
	"github.com/jolla3/maziwa-smart-sub000/internal/cache"
	"github.com/jolla3/maziwa-smart-sub000/internal/core/storage"
	"github.com/jolla3/maziwa-smart-sub000/internal/metrics"
)

// PageState is what a table's pagination controls bind to. TotalCount is the
// last count the source reported and may lag.
type PageState struct {
	Kind       v1.DirectoryKind `json:"kind"`
	Filter     string           `json:"filter"`
	PageIndex  int              `json:"page_index"`
	PageSize   int              `json:"page_size"`
	TotalCount int              `json:"total_count"`

	// Loading is set while the latest navigation is fetching.
	Loading bool `json:"loading"`
}

// ErrSuperseded is returned by a navigation whose result was dropped because
// a later one started before it finished.
var ErrSuperseded = errors.New("directory: navigation superseded")

// Pager walks a server-paginated directory through a page cache. Fetches run
// outside mu, so State, Rows and Pages never wait on the network.
type Pager struct {
	source Source
	pages  *cache.Cache[v1.Page]

	mu    sync.Mutex
	state PageState
	rows  []v1.Party
	seq   uint64
}

// NewPager panics when pageSize <= 0.
func NewPager(source Source, pages *cache.Cache[v1.Page], kind v1.DirectoryKind, pageSize int) *Pager {
	mustPageSize(pageSize)
	return &Pager{
		source: source,
		pages:  pages,
		state:  PageState{Kind: kind, PageSize: pageSize},
	}
}

func mustPageSize(n int) {
	if n <= 0 {
		panic(fmt.Sprintf("directory: page size must be positive, got %d", n))
	}
}

// PageKey is the cache key for one page query.
func PageKey(q storage.DirectoryQuery) string {
	return fmt.Sprintf("directory:%s:%d:%d:%s", q.Kind, q.PageSize, q.Page, q.Filter)
}

// State returns a copy of the current page state.
func (p *Pager) State() PageState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Rows returns the rows of the current page.
func (p *Pager) Rows() []v1.Party {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.rows)
}

// Pages is the page count implied by the last reported total, 0 when empty.
func (p *Pager) Pages() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return (p.state.TotalCount + p.state.PageSize - 1) / p.state.PageSize
}

// GoToPage loads page i. An empty page past the first means rows were
// removed under us, so the previous page is loaded instead, repeatedly, until
// a page has rows or page 0 is reached. Page 0 empty is "no results".
func (p *Pager) GoToPage(ctx context.Context, i int) error {
	return p.run(ctx, p.begin(cache.ReadOptions{}, func(*PageState) int { return i }))
}

func (p *Pager) Next(ctx context.Context) error {
	return p.run(ctx, p.begin(cache.ReadOptions{}, func(s *PageState) int { return s.PageIndex + 1 }))
}

// Prev is a no-op on the first page.
func (p *Pager) Prev(ctx context.Context) error {
	if p.State().PageIndex == 0 {
		return nil
	}
	return p.run(ctx, p.begin(cache.ReadOptions{}, func(s *PageState) int { return s.PageIndex - 1 }))
}

// Reload drops the cached copy of the current page and fetches it again.
func (p *Pager) Reload(ctx context.Context) error {
	return p.run(ctx, p.begin(cache.ReadOptions{Force: true}, func(s *PageState) int {
		p.pages.Invalidate(PageKey(queryFor(*s, s.PageIndex)))
		return s.PageIndex
	}))
}

// SetFilter resets to the first page before fetching.
func (p *Pager) SetFilter(ctx context.Context, filter string) error {
	return p.run(ctx, p.begin(cache.ReadOptions{}, func(s *PageState) int {
		s.Filter = filter
		s.PageIndex = 0
		return 0
	}))
}

// SetPageSize resets to the first page before fetching. It panics when n <= 0.
func (p *Pager) SetPageSize(ctx context.Context, n int) error {
	mustPageSize(n)
	return p.run(ctx, p.begin(cache.ReadOptions{}, func(s *PageState) int {
		s.PageSize = n
		s.PageIndex = 0
		return 0
	}))
}

// pageRequest is one navigation captured under mu. The fetch runs without
// the lock; seq decides whether its result may still be applied.
type pageRequest struct {
	seq   uint64
	state PageState
	page  int
	opts  cache.ReadOptions
}

func (p *Pager) begin(opts cache.ReadOptions, target func(s *PageState) int) pageRequest {
	p.mu.Lock()
	defer p.mu.Unlock()

	page := max(target(&p.state), 0)
	p.seq++
	p.state.Loading = true
	return pageRequest{seq: p.seq, state: p.state, page: page, opts: opts}
}

func (p *Pager) run(ctx context.Context, req pageRequest) error {
	i := req.page
	for {
		q := queryFor(req.state, i)
		page, err := p.fetch(ctx, q, req.opts)
		if err != nil {
			return p.finish(req, i, v1.Page{}, err)
		}
		if len(page.Items) == 0 && i > 0 {
			metrics.DirectoryStepBacks.Inc()
			i--
			continue
		}

		if i != req.page {
			slog.Debug("[Pager] Stepped back from empty page",
				"kind", q.Kind, "requested", req.page, "landed", i, "total_count", page.TotalCount)
		}
		return p.finish(req, i, page, nil)
	}
}

// finish applies a completed request unless a newer one has started.
func (p *Pager) finish(req pageRequest, i int, page v1.Page, err error) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if req.seq != p.seq {
		slog.Debug("[Pager] Discarding superseded page", "kind", req.state.Kind, "page", i)
		return ErrSuperseded
	}
	p.state.Loading = false
	if err != nil {
		return err
	}
	p.state.PageIndex = i
	p.state.TotalCount = page.TotalCount
	p.rows = slices.Clone(page.Items)
	return nil
}

func (p *Pager) fetch(ctx context.Context, q storage.DirectoryQuery, opts cache.ReadOptions) (v1.Page, error) {
	e, err := p.pages.Get(ctx, PageKey(q), func(ctx context.Context, _ string) (v1.Page, error) {
		return p.source.ListDirectory(ctx, q)
	}, opts)
	if err != nil {
		return v1.Page{}, fmt.Errorf("load %s page %d: %w", q.Kind, q.Page, err)
	}
	return e.Value, nil
}

func queryFor(s PageState, i int) storage.DirectoryQuery {
	return storage.DirectoryQuery{
		Kind:     s.Kind,
		Filter:   s.Filter,
		Page:     i,
		PageSize: s.PageSize,
	}
}
