package feed

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	commonlog "eventgallery/server/common/log"
	"eventgallery/server/common/metrics"
	"eventgallery/server/gallery/domain"
)

const (
	DefaultPageSize         = 4
	DefaultProbeConcurrency = 8
	DefaultVideoWidth       = 1280
	DefaultVideoHeight      = 720
)

type MediaQuery struct {
	EventID    string
	PublicOnly bool
	After      *Cursor
	Limit      int
}

type Store interface {
	QueryMedia(ctx context.Context, q MediaQuery) ([]domain.MediaRecord, error)
}

// Prober reports the natural pixel size of the image behind url.
type Prober interface {
	Probe(ctx context.Context, url string) (width, height int, err error)
}

type Config struct {
	PageSize         int
	Admin            bool
	ProbeConcurrency int
	VideoWidth       int
	VideoHeight      int
}

func (c Config) withDefaults() Config {
	if c.PageSize <= 0 {
		c.PageSize = DefaultPageSize
	}
	if c.ProbeConcurrency <= 0 {
		c.ProbeConcurrency = DefaultProbeConcurrency
	}
	if c.VideoWidth <= 0 || c.VideoHeight <= 0 {
		c.VideoWidth, c.VideoHeight = DefaultVideoWidth, DefaultVideoHeight
	}
	return c
}

type Outcome string

const (
	OutcomeLoaded    Outcome = "loaded"
	OutcomeBusy      Outcome = "busy"
	OutcomeExhausted Outcome = "exhausted"
	OutcomeNoEvent   Outcome = "no_event"
	OutcomeClosed    Outcome = "closed"
	OutcomeFailed    Outcome = "failed"
	OutcomeStale     Outcome = "stale"
)

type PageResult struct {
	Outcome  Outcome            `json:"outcome"`
	Fetched  int                `json:"fetched"`
	Appended []domain.MediaItem `json:"appended"`
	Skipped  []domain.Skip      `json:"skipped"`
	HasMore  bool               `json:"has_more"`
}

type State struct {
	Items   []domain.MediaItem `json:"items"`
	Loading bool               `json:"loading"`
	HasMore bool               `json:"has_more"`
}

// Feed is a paginated, duplicate-free media list for one event. At most one
// page fetch is in flight at a time; overlapping requests are refused.
type Feed struct {
	store  Store
	prober Prober
	cfg    Config

	mu         sync.Mutex
	eventID    string
	items      []domain.MediaItem
	ids        map[string]struct{}
	cursor     *Cursor
	exhausted  bool
	inFlight   bool
	generation uint64
	cancel     context.CancelFunc
	closed     bool
}

func New(store Store, prober Prober, cfg Config) *Feed {
	return &Feed{
		store:  store,
		prober: prober,
		cfg:    cfg.withDefaults(),
		ids:    map[string]struct{}{},
	}
}

func (f *Feed) Config() Config {
	return f.cfg
}

// Reset points the feed at eventID and starts over from the newest record.
// A fetch still running for the previous state is cancelled and its result
// discarded.
func (f *Feed) Reset(eventID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supersedeLocked()
	f.eventID = strings.TrimSpace(eventID)
	f.items = nil
	f.ids = map[string]struct{}{}
	f.cursor = nil
	f.exhausted = false
}

// Seek resumes the ordering after c without touching the loaded items.
func (f *Feed) Seek(c Cursor) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cursor = &c
}

func (f *Feed) Cursor() (Cursor, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.cursor == nil {
		return Cursor{}, false
	}
	return *f.cursor, true
}

func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.supersedeLocked()
	f.closed = true
}

func (f *Feed) supersedeLocked() {
	f.generation++
	if f.cancel != nil {
		f.cancel()
		f.cancel = nil
	}
	f.inFlight = false
}

func (f *Feed) Snapshot() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshotLocked()
}

func (f *Feed) snapshotLocked() State {
	items := make([]domain.MediaItem, len(f.items))
	copy(items, f.items)
	return State{Items: items, Loading: f.inFlight, HasMore: !f.exhausted}
}

// FetchNextPage loads and appends the next page. Guard conditions are
// reported through PageResult.Outcome; only a failed store query returns an
// error, in which case the feed state is left unchanged.
func (f *Feed) FetchNextPage(ctx context.Context) (PageResult, error) {
	mode := metrics.Mode(f.cfg.Admin)

	f.mu.Lock()
	if outcome, blocked := f.guardLocked(); blocked {
		hasMore := !f.exhausted
		f.mu.Unlock()
		metrics.FeedPages.WithLabelValues(mode, string(outcome)).Inc()
		return PageResult{Outcome: outcome, HasMore: hasMore}, nil
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	f.inFlight = true
	f.cancel = cancel
	gen := f.generation
	q := MediaQuery{
		EventID:    f.eventID,
		PublicOnly: !f.cfg.Admin,
		Limit:      f.cfg.PageSize,
	}
	if f.cursor != nil {
		after := *f.cursor
		q.After = &after
	}
	f.mu.Unlock()
	defer cancel()

	start := time.Now()
	records, err := f.store.QueryMedia(fetchCtx, q)
	if err == nil {
		err = fetchCtx.Err()
	}
	var resolved []resolution
	if err == nil {
		resolved = f.resolvePage(fetchCtx, records)
		err = fetchCtx.Err()
	}
	metrics.FeedPageLatency.WithLabelValues(mode).Observe(time.Since(start).Seconds())

	f.mu.Lock()
	defer f.mu.Unlock()
	if gen != f.generation {
		metrics.FeedPages.WithLabelValues(mode, string(OutcomeStale)).Inc()
		return PageResult{Outcome: OutcomeStale, HasMore: !f.exhausted}, nil
	}
	f.inFlight = false
	f.cancel = nil
	if err != nil {
		commonlog.Errorf("event=feed_page action=query status=failed event_id=%s admin=%t err=%v", q.EventID, f.cfg.Admin, err)
		metrics.FeedPages.WithLabelValues(mode, string(OutcomeFailed)).Inc()
		return PageResult{Outcome: OutcomeFailed, HasMore: !f.exhausted}, fmt.Errorf("fetch media page: %w", err)
	}

	result := f.applyLocked(records, resolved)
	metrics.FeedPages.WithLabelValues(mode, string(result.Outcome)).Inc()
	for _, skip := range result.Skipped {
		metrics.FeedSkipped.WithLabelValues(string(skip.Reason)).Inc()
	}
	commonlog.Debugf("event=feed_page action=apply status=ok event_id=%s fetched=%d appended=%d skipped=%d has_more=%t",
		q.EventID, result.Fetched, len(result.Appended), len(result.Skipped), result.HasMore)
	return result, nil
}

func (f *Feed) guardLocked() (Outcome, bool) {
	switch {
	case f.closed:
		return OutcomeClosed, true
	case f.eventID == "":
		return OutcomeNoEvent, true
	case f.inFlight:
		return OutcomeBusy, true
	case f.exhausted:
		return OutcomeExhausted, true
	}
	return "", false
}

func (f *Feed) applyLocked(records []domain.MediaRecord, resolved []resolution) PageResult {
	result := PageResult{
		Outcome:  OutcomeLoaded,
		Fetched:  len(records),
		Appended: []domain.MediaItem{},
		Skipped:  []domain.Skip{},
	}
	for _, r := range resolved {
		if r.skip != "" {
			result.Skipped = append(result.Skipped, domain.Skip{ID: r.id, Reason: r.skip})
			continue
		}
		if _, dup := f.ids[r.item.ID]; dup {
			result.Skipped = append(result.Skipped, domain.Skip{ID: r.id, Reason: domain.SkipDuplicate})
			continue
		}
		f.ids[r.item.ID] = struct{}{}
		f.items = append(f.items, r.item)
		result.Appended = append(result.Appended, r.item)
	}
	if len(records) < f.cfg.PageSize {
		f.exhausted = true
	}
	if len(records) > 0 {
		last := records[len(records)-1]
		f.cursor = &Cursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
	result.HasMore = !f.exhausted
	return result
}

type resolution struct {
	id   string
	item domain.MediaItem
	skip domain.SkipReason
}

// resolvePage resolves every record concurrently and returns the outcomes in
// record order.
func (f *Feed) resolvePage(ctx context.Context, records []domain.MediaRecord) []resolution {
	out := make([]resolution, len(records))
	var g errgroup.Group
	g.SetLimit(f.cfg.ProbeConcurrency)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			out[i] = f.resolve(ctx, rec)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (f *Feed) resolve(ctx context.Context, rec domain.MediaRecord) resolution {
	res := resolution{id: rec.ID}
	if strings.TrimSpace(rec.ID) == "" || strings.TrimSpace(rec.URL) == "" || strings.TrimSpace(rec.Type) == "" {
		res.skip = domain.SkipMissingField
		return res
	}
	item := domain.MediaItem{
		ID:         rec.ID,
		Src:        rec.URL,
		SenderName: rec.SenderName,
		CreatedAt:  rec.CreatedAt,
	}
	if f.cfg.Admin {
		item.Visibility = rec.Visibility
	}
	switch domain.MediaKind(rec.Type) {
	case domain.KindImage:
		w, h, err := f.prober.Probe(ctx, rec.URL)
		if err != nil {
			commonlog.Debugf("event=feed_page action=probe status=failed media_id=%s err=%v", rec.ID, err)
			res.skip = domain.SkipProbeFailed
			return res
		}
		item.Kind, item.Width, item.Height = domain.KindImage, w, h
	case domain.KindVideo:
		if strings.TrimSpace(rec.Thumbnail) == "" {
			res.skip = domain.SkipMissingThumbnail
			return res
		}
		item.Kind, item.Thumbnail = domain.KindVideo, rec.Thumbnail
		item.Width, item.Height = f.cfg.VideoWidth, f.cfg.VideoHeight
	default:
		res.skip = domain.SkipUnknownType
		return res
	}
	res.item = item
	return res
}

// SetVisibility mirrors a moderation toggle into the loaded list. In public
// mode an item made private is removed.
func (f *Feed) SetVisibility(id string, v domain.Visibility) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.cfg.Admin && v != domain.VisibilityPublic {
		return f.removeLocked(id)
	}
	for i := range f.items {
		if f.items[i].ID == id {
			if f.cfg.Admin {
				f.items[i].Visibility = v
			}
			return true
		}
	}
	return false
}

func (f *Feed) Remove(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.removeLocked(id)
}

func (f *Feed) removeLocked(id string) bool {
	for i := range f.items {
		if f.items[i].ID == id {
			f.items = append(f.items[:i], f.items[i+1:]...)
			return true
		}
	}
	return false
}
