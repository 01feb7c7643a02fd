package listctl

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"sync/atomic"
	"time"
)

// Source is the paginated list endpoint of one entity.
type Source[T any] interface {
	List(ctx context.Context, req Request) (PageResult[T], error)
	Delete(ctx context.Context, id string) error
}

// OptionSource lists the choices of a filter level.
type OptionSource interface {
	Options(ctx context.Context, q OptionQuery) ([]Option, error)
}

// Status is the fetch state of a controller.
type Status int

const (
	StatusIdle Status = iota
	StatusLoading
	StatusError
)

// RenderState tells a view which of the disjoint list renderings applies.
type RenderState int

const (
	RenderLoading RenderState = iota
	RenderFailed
	RenderEmpty
	RenderPopulated
)

// String returns the name used by templates and JSON.
func (r RenderState) String() string {
	switch r {
	case RenderLoading:
		return "loading"
	case RenderFailed:
		return "error"
	case RenderEmpty:
		return "empty"
	default:
		return "populated"
	}
}

// LevelOptions is the dropdown state of one filter level.
type LevelOptions struct {
	Items    []Option
	Loading  bool
	Disabled bool
	// Degraded is set when the options could not be fetched.
	Degraded bool
}

// Config wires a controller to its screen and collaborators.
type Config[T any] struct {
	Screen   Screen
	Source   Source[T]
	Options  OptionSource
	Location Location
	Observer Observer
	Logger   *slog.Logger
	// Initial is the external representation read when the screen mounts.
	Initial url.Values
}

var ownerSeq atomic.Uint64

// Controller owns the query and result state of one list screen. It is not
// safe for concurrent use: all methods must run on the owner's event loop,
// while the returned commands may run anywhere.
type Controller[T any] struct {
	owner    uint64
	screen   Screen
	codec    Codec
	source   Source[T]
	options  OptionSource
	location Location
	observer Observer
	logger   *slog.Logger
	ctx      context.Context

	query     Query
	search    SearchBuffer
	result    PageResult[T]
	status    Status
	err       string
	deleteErr string
	levels    []LevelOptions

	seq         uint64
	cancelList  context.CancelFunc
	optionSeq   []uint64
	cancelOpts  []context.CancelFunc
	cancelTimer context.CancelFunc
}

// New builds a controller whose query is decoded from cfg.Initial.
func New[T any](cfg Config[T]) (*Controller[T], error) {
	if err := cfg.Screen.Validate(); err != nil {
		return nil, err
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("listctl: %s: source is required", cfg.Screen.Name)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	codec := NewCodec(cfg.Screen)
	q := codec.Decode(cfg.Initial)
	n := len(cfg.Screen.Levels)
	c := &Controller[T]{
		owner:      ownerSeq.Add(1),
		screen:     cfg.Screen,
		codec:      codec,
		source:     cfg.Source,
		options:    cfg.Options,
		location:   cfg.Location,
		observer:   cfg.Observer,
		logger:     logger.With(slog.String("screen", cfg.Screen.Name)),
		ctx:        context.Background(),
		query:      q,
		search:     NewSearchBuffer(q.Search),
		levels:     make([]LevelOptions, n),
		optionSeq:  make([]uint64, n),
		cancelOpts: make([]context.CancelFunc, n),
		status:     StatusLoading,
	}
	for i := range c.levels {
		c.levels[i].Disabled = true
	}
	return c, nil
}

// Init publishes the canonical location and issues the first list fetch
// together with the option fetches of every reachable level.
func (c *Controller[T]) Init(ctx context.Context) Cmd {
	if ctx != nil {
		c.ctx = ctx
	}
	c.publish()
	cmds := []Cmd{c.fetchList()}
	for i := range c.screen.Levels {
		if ParentSelected(c.query, i) {
			cmds = append(cmds, c.fetchOptions(i))
		}
	}
	return Batch(cmds...)
}

// Close cancels every outstanding fetch and timer.
func (c *Controller[T]) Close() {
	if c.cancelList != nil {
		c.cancelList()
	}
	if c.cancelTimer != nil {
		c.cancelTimer()
	}
	for _, cancel := range c.cancelOpts {
		if cancel != nil {
			cancel()
		}
	}
}

// Type records a keystroke in the search box and schedules the debounced
// commit, cancelling the previous timer.
func (c *Controller[T]) Type(text string) Cmd {
	version := c.search.Type(text)
	if c.cancelTimer != nil {
		c.cancelTimer()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelTimer = cancel
	return waitQuiet(ctx, c.screen.DebounceOrDefault(), searchSettledMsg{owner: c.owner, version: version})
}

// CommitSearch applies the typed text immediately, as on Enter.
func (c *Controller[T]) CommitSearch() Cmd {
	if c.cancelTimer != nil {
		c.cancelTimer()
		c.cancelTimer = nil
	}
	term, ok := c.search.Commit()
	if !ok {
		return nil
	}
	return c.applySearch(term)
}

// SetFilter selects value for level i; lower levels reset to "all" and
// their options are cleared until refetched for the new parent.
func (c *Controller[T]) SetFilter(i int, value string) Cmd {
	if i < 0 || i >= len(c.screen.Levels) {
		return nil
	}
	next := SetFilter(c.query, i, value)
	if next.Equal(c.query) {
		return nil
	}
	for j := i + 1; j < len(c.levels); j++ {
		c.clearLevel(j)
	}
	var optionsCmd Cmd
	if i+1 < len(c.levels) && next.Filter(i) != AllValue {
		c.query = next
		optionsCmd = c.fetchOptions(i + 1)
	}
	return Batch(c.apply(next), optionsCmd)
}

// SetFilterByKey is SetFilter addressed by level key.
func (c *Controller[T]) SetFilterByKey(key, value string) Cmd {
	return c.SetFilter(c.screen.LevelIndex(key), value)
}

// SetSort toggles the direction of field or activates it ascending.
func (c *Controller[T]) SetSort(field string) Cmd {
	next := ToggleSort(c.screen, c.query, field)
	if next.Equal(c.query) {
		return nil
	}
	return c.apply(next)
}

// SetPage moves to page n, clamped to the known page range.
func (c *Controller[T]) SetPage(n int) Cmd {
	n = ClampPage(n, c.result.TotalPages)
	if n == c.query.Page {
		return nil
	}
	next := c.query.Clone()
	next.Page = n
	return c.apply(next)
}

// JumpToPage validates manually entered page text, as on Enter or blur.
func (c *Controller[T]) JumpToPage(text string) Cmd {
	return c.SetPage(ParsePageInput(text, c.query.Page, c.result.TotalPages))
}

// SetPageSize changes the page size and returns to the first page.
func (c *Controller[T]) SetPageSize(size int) Cmd {
	if !allowedPageSize(c.screen, size) || size == c.query.PageSize {
		return nil
	}
	next := c.query.Clone()
	next.PageSize = size
	next.Page = 1
	return c.apply(next)
}

// Refresh re-issues the list fetch for the current query.
func (c *Controller[T]) Refresh() Cmd {
	return c.fetchList()
}

// Delete removes the record id and refreshes the current page on success.
func (c *Controller[T]) Delete(id string) Cmd {
	c.deleteErr = ""
	ctx := c.ctx
	owner := c.owner
	source := c.source
	return func() Msg {
		return deleteFinishedMsg{owner: owner, id: id, err: source.Delete(ctx, id)}
	}
}

// Mutated refreshes the current page after a record was created or updated
// elsewhere.
func (c *Controller[T]) Mutated() Cmd {
	return c.Refresh()
}

// DismissError clears the page-level error banner.
func (c *Controller[T]) DismissError() {
	c.err = ""
	c.deleteErr = ""
}

// Update folds a completed command back into the controller state.
func (c *Controller[T]) Update(msg Msg) Cmd {
	switch m := msg.(type) {
	case listLoadedMsg[T]:
		return c.onListLoaded(m)
	case optionsLoadedMsg:
		c.onOptionsLoaded(m)
	case searchSettledMsg:
		if m.owner != c.owner {
			return nil
		}
		if term, ok := c.search.Settle(m.version); ok {
			c.cancelTimer = nil
			return c.applySearch(term)
		}
	case deleteFinishedMsg:
		if m.owner != c.owner {
			return nil
		}
		if m.err != nil {
			c.deleteErr = Message(m.err, GenericDeleteFailure)
			c.logger.Warn("delete failed", slog.String("id", m.id), slog.Any("error", m.err))
			return nil
		}
		return c.Refresh()
	}
	return nil
}

// Settle runs cmd and everything it leads to on the calling goroutine until
// no work remains. Commands are executed one after another.
func (c *Controller[T]) Settle(ctx context.Context, cmd Cmd) error {
	queue := []Cmd{cmd}
	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return err
		}
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch m := next().(type) {
		case nil:
		case BatchMsg:
			queue = append(queue, m...)
		default:
			queue = append(queue, c.Update(m))
		}
	}
	return nil
}

func (c *Controller[T]) applySearch(term string) Cmd {
	next := c.query.Clone()
	next.Search = term
	next.Page = 1
	if next.Equal(c.query) {
		return nil
	}
	return c.apply(next)
}

func (c *Controller[T]) apply(next Query) Cmd {
	c.query = next
	c.publish()
	return c.fetchList()
}

func (c *Controller[T]) publish() {
	if c.location != nil {
		c.location.Replace(c.codec.Encode(c.query))
	}
}

func (c *Controller[T]) fetchList() Cmd {
	if c.cancelList != nil {
		c.cancelList()
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelList = cancel
	c.seq++
	c.status = StatusLoading

	seq := c.seq
	owner := c.owner
	source := c.source
	req := RequestFor(c.screen, c.query)
	return func() Msg {
		start := time.Now()
		result, err := source.List(ctx, req)
		return listLoadedMsg[T]{owner: owner, seq: seq, result: result, err: err, elapsed: time.Since(start)}
	}
}

func (c *Controller[T]) onListLoaded(m listLoadedMsg[T]) Cmd {
	if m.owner != c.owner {
		return nil
	}
	if m.seq != c.seq {
		c.observe(OutcomeStale, m.elapsed)
		c.logger.Debug("discarded stale list response", slog.Uint64("seq", m.seq), slog.Uint64("current", c.seq))
		return nil
	}
	c.cancelList = nil
	if m.err != nil {
		if errors.Is(m.err, context.Canceled) {
			// Abandoned, not failed: keep the last result on screen.
			c.status = StatusIdle
			return nil
		}
		c.status = StatusError
		c.err = Message(m.err, GenericLoadFailure)
		c.result = PageResult[T]{}
		c.observe(OutcomeError, m.elapsed)
		c.logger.Warn("list fetch failed", slog.Any("error", m.err))
		return nil
	}

	result := m.result
	if result.Total < 0 {
		result.Total = 0
	}
	if result.TotalPages <= 0 && result.Total > 0 {
		result.TotalPages = TotalPages(result.Total, c.query.PageSize)
	}
	c.result = result
	c.status = StatusIdle
	c.err = ""
	if result.Total == 0 && len(result.Items) == 0 {
		c.observe(OutcomeEmpty, m.elapsed)
	} else {
		c.observe(OutcomeSuccess, m.elapsed)
	}

	if last := LastPage(result.TotalPages); c.query.Page > last {
		next := c.query.Clone()
		next.Page = last
		return c.apply(next)
	}
	return nil
}

func (c *Controller[T]) fetchOptions(i int) Cmd {
	if c.cancelOpts[i] != nil {
		c.cancelOpts[i]()
	}
	c.optionSeq[i]++
	seq := c.optionSeq[i]
	q := OptionQuery{Resource: c.screen.Levels[i].Resource}
	if i > 0 {
		q.ParentParam = c.screen.Levels[i-1].Param
		q.ParentID = c.query.Filter(i - 1)
	}
	if c.options == nil {
		c.levels[i] = LevelOptions{Disabled: true, Degraded: true}
		return nil
	}
	ctx, cancel := context.WithCancel(c.ctx)
	c.cancelOpts[i] = cancel
	c.levels[i] = LevelOptions{Loading: true, Disabled: true}

	owner := c.owner
	options := c.options
	return func() Msg {
		opts, err := options.Options(ctx, q)
		return optionsLoadedMsg{owner: owner, level: i, seq: seq, options: opts, err: err}
	}
}

func (c *Controller[T]) onOptionsLoaded(m optionsLoadedMsg) {
	if m.owner != c.owner || m.level < 0 || m.level >= len(c.levels) || m.seq != c.optionSeq[m.level] {
		return
	}
	c.cancelOpts[m.level] = nil
	if m.err != nil {
		c.levels[m.level] = LevelOptions{Disabled: true, Degraded: true}
		c.logger.Warn("filter options unavailable",
			slog.String("level", c.screen.Levels[m.level].Key),
			slog.Any("error", m.err))
		return
	}
	c.levels[m.level] = LevelOptions{Items: m.options}
}

func (c *Controller[T]) clearLevel(i int) {
	if c.cancelOpts[i] != nil {
		c.cancelOpts[i]()
		c.cancelOpts[i] = nil
	}
	c.optionSeq[i]++
	c.levels[i] = LevelOptions{Disabled: true}
}

func (c *Controller[T]) observe(outcome Outcome, elapsed time.Duration) {
	if c.observer != nil {
		c.observer.ObserveList(c.screen.Name, outcome, elapsed)
	}
}

// Screen returns the screen descriptor.
func (c *Controller[T]) Screen() Screen { return c.screen }

// Codec returns the codec of the screen.
func (c *Controller[T]) Codec() Codec { return c.codec }

// Query returns a copy of the current query.
func (c *Controller[T]) Query() Query { return c.query.Clone() }

// Values returns the current external representation.
func (c *Controller[T]) Values() url.Values { return c.codec.Encode(c.query) }

// RawSearch returns the search text as typed.
func (c *Controller[T]) RawSearch() string { return c.search.Raw() }

// Result returns the last successful page, empty after a failure.
func (c *Controller[T]) Result() PageResult[T] { return c.result }

// Items returns the records of the current page.
func (c *Controller[T]) Items() []T { return c.result.Items }

// Pagination returns the page metadata of the current result.
func (c *Controller[T]) Pagination() Pagination {
	return Pagination{
		Page:       c.query.Page,
		PageSize:   c.query.PageSize,
		Total:      c.result.Total,
		TotalPages: c.result.TotalPages,
	}
}

// Status returns the fetch state.
func (c *Controller[T]) Status() Status { return c.status }

// RenderState returns which list rendering applies.
func (c *Controller[T]) RenderState() RenderState {
	switch {
	case c.status == StatusLoading:
		return RenderLoading
	case c.status == StatusError:
		return RenderFailed
	case len(c.result.Items) == 0:
		return RenderEmpty
	default:
		return RenderPopulated
	}
}

// Err returns the page-level error banner text.
func (c *Controller[T]) Err() string { return c.err }

// DeleteErr returns the message of the last failed delete.
func (c *Controller[T]) DeleteErr() string { return c.deleteErr }

// LevelOptions returns the dropdown state of level i.
func (c *Controller[T]) LevelOptions(i int) LevelOptions {
	if i < 0 || i >= len(c.levels) {
		return LevelOptions{Disabled: true}
	}
	return c.levels[i]
}
