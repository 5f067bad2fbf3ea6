// Package selection drives the source selection overlay: list the sources
// that can scrape the loaded media, resolve the chosen one to a stream or a
// set of embeds, resolve an embed, and commit the first stream to the
// player state.
//
// A Flow is owned by one event loop. Blocking work is split out as
// RunSource and RunEmbed, which only touch the registry and may run on any
// goroutine; their outcomes are handed back to ApplySource and ApplyEmbed
// on the loop. Every request carries the token current when it was issued,
// and outcomes whose token is no longer current are dropped.
package selection

import (
	"context"
	"errors"
	"slices"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"reel/internal/log"
	"reel/internal/media"
	"reel/internal/overlay"
	"reel/internal/state"
)

// Overlay routes.
const (
	RouteRoot    = overlay.Root
	RouteSources = "/source"
	RouteEmbeds  = "/source/embeds"
)

// UnknownName is shown for an embed the registry has no metadata for.
const UnknownName = "..."

// Registry is the scraper registry the flow resolves against.
type Registry interface {
	ListSources() []media.Source
	GetMetadata(id string) mo.Option[media.Source]
	RunSourceScraper(ctx context.Context, id string, m media.ScrapeMedia) (media.ScrapeResult, error)
	RunEmbedScraper(ctx context.Context, id, url string) (*media.Stream, error)
}

// PlayerState is the part of the player state the flow reads and commits to.
type PlayerState interface {
	Snapshot() state.Snapshot
	SetSource(src state.Source, startAt float64)
	SetSourceID(id mo.Option[string])
}

// Router is the overlay navigation the flow drives.
type Router interface {
	Open(path string)
	Navigate(path string)
	Close()
	Current() string
	IsOpen() bool
}

// Status is the state of the embed view.
type Status int

const (
	Idle     Status = iota
	Loading         // source scrape in flight
	Listed          // embeds shown
	NoEmbeds        // source returned no embeds
	Failed          // source scrape rejected
	Resolved        // a stream was committed
)

func (s Status) String() string {
	switch s {
	case Loading:
		return "loading"
	case Listed:
		return "listed"
	case NoEmbeds:
		return "no embeds"
	case Failed:
		return "failed"
	case Resolved:
		return "resolved"
	default:
		return "idle"
	}
}

// RowStatus is the state of one embed row.
type RowStatus int

const (
	RowIdle RowStatus = iota
	RowLoading
	RowFailed
	RowResolved
)

// SourceItem is a row of the source list.
type SourceItem struct {
	media.Source
	Selected bool // the id currently committed to the player
}

// EmbedRow is a row of the embed list. Rows never share state.
type EmbedRow struct {
	Embed  media.Embed
	Name   string
	Status RowStatus
	Err    error
}

// SourceRequest identifies one source resolution.
type SourceRequest struct {
	Token    uint64
	SourceID string
	Media    media.ScrapeMedia
}

// SourceOutcome is what RunSource produced for a request.
type SourceOutcome struct {
	Request SourceRequest
	Result  media.ScrapeResult
	Err     error
}

// EmbedRequest identifies one embed resolution. Token is the token of the
// source resolution that listed the embed.
type EmbedRequest struct {
	Token    uint64
	Index    int
	SourceID string
	Embed    media.Embed
}

// EmbedOutcome is what RunEmbed produced for a request.
type EmbedOutcome struct {
	Request EmbedRequest
	Stream  *media.Stream
	Err     error
}

// Option customises New.
type Option func(*Flow)

// WithOnChoose registers a callback run with the id of every chosen source.
func WithOnChoose(fn func(id string)) Option {
	return func(f *Flow) { f.onChoose = mo.Some(fn) }
}

// WithQuality sets the preferred rendition for file streams.
func WithQuality(q string) Option {
	return func(f *Flow) { f.quality = q }
}

// Flow is the source selection state machine.
type Flow struct {
	reg      Registry
	player   PlayerState
	router   Router
	onChoose mo.Option[func(string)]
	quality  string
	log      *logrus.Entry

	chosen        string
	lastAttempted mo.Option[string]
	token         uint64
	status        Status
	err           error
	rows          []EmbedRow
}

// New creates a flow over the given collaborators.
func New(reg Registry, player PlayerState, router Router, opts ...Option) *Flow {
	f := &Flow{
		reg:    reg,
		player: player,
		router: router,
		log:    log.With("selection"),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Sources lists the registry sources that support the loaded media's type,
// in registry order. With no media loaded the list is empty.
func (f *Flow) Sources() []SourceItem {
	snap := f.player.Snapshot()
	meta, ok := snap.Meta.Get()
	if !ok {
		return nil
	}
	current := snap.SourceID.OrEmpty()

	supported := lo.Filter(f.reg.ListSources(), func(s media.Source, _ int) bool {
		return s.Supports(meta.Type)
	})
	return lo.Map(supported, func(s media.Source, _ int) SourceItem {
		return SourceItem{Source: s, Selected: snap.SourceID.IsPresent() && s.ID == current}
	})
}

// ChooseSource picks a source and moves to the embed view.
func (f *Flow) ChooseSource(id string) {
	if fn, ok := f.onChoose.Get(); ok {
		fn(id)
	}
	f.chosen = id
	f.router.Navigate(RouteEmbeds)
}

// EnterEmbeds is evaluated on every entry into the embed view. It returns a
// request only when the chosen source differs from the last one attempted.
func (f *Flow) EnterEmbeds() (SourceRequest, bool) {
	if f.chosen == "" {
		return SourceRequest{}, false
	}
	if last, ok := f.lastAttempted.Get(); ok && last == f.chosen {
		return SourceRequest{}, false
	}
	return f.startSource()
}

// Retry re-issues the resolution of the chosen source after a failure.
func (f *Flow) Retry() (SourceRequest, bool) {
	if f.status != Failed || f.chosen == "" {
		return SourceRequest{}, false
	}
	return f.startSource()
}

func (f *Flow) startSource() (SourceRequest, bool) {
	f.lastAttempted = mo.Some(f.chosen)
	f.token++
	f.rows = nil
	f.err = nil

	meta, ok := f.player.Snapshot().Meta.Get()
	if !ok {
		f.status = Failed
		f.err = &ResolutionError{SourceID: f.chosen, Err: ErrNoMedia}
		return SourceRequest{}, false
	}

	f.status = Loading
	req := SourceRequest{
		Token:    f.token,
		SourceID: f.chosen,
		Media:    media.ScrapeMediaFromMeta(meta),
	}
	f.log.WithFields(logrus.Fields{"source": req.SourceID, "token": req.Token}).Debug("resolving source")
	return req, true
}

// RunSource performs the scrape for req. It blocks and may run off the loop.
func (f *Flow) RunSource(ctx context.Context, req SourceRequest) SourceOutcome {
	res, err := f.reg.RunSourceScraper(ctx, req.SourceID, req.Media)
	return SourceOutcome{Request: req, Result: res, Err: err}
}

// ApplySource applies an outcome from RunSource and reports whether it was
// current. Outcomes for a superseded request or a closed overlay are
// dropped without touching any state.
func (f *Flow) ApplySource(out SourceOutcome) bool {
	entry := f.log.WithFields(logrus.Fields{"source": out.Request.SourceID, "token": out.Request.Token})
	if !f.current(out.Request.Token) {
		entry.Debug("dropping stale source result")
		return false
	}

	switch {
	case out.Err != nil:
		f.status = Failed
		f.err = &ResolutionError{SourceID: out.Request.SourceID, Err: out.Err}
		entry.WithError(out.Err).Warn("source resolution failed")
	case out.Result.Stream != nil:
		f.commit(out.Request.SourceID, out.Result.Stream)
		entry.Info("source resolved to a stream")
	case len(out.Result.Embeds) == 0:
		f.status = NoEmbeds
		entry.Info("source returned no embeds")
	default:
		f.rows = lo.Map(out.Result.Embeds, func(e media.Embed, _ int) EmbedRow {
			return EmbedRow{Embed: e, Name: f.embedName(e.EmbedID)}
		})
		f.status = Listed
		entry.WithField("embeds", len(f.rows)).Info("source listed embeds")
	}
	return true
}

// ActivateEmbed starts the resolution of row index. A row that is already
// loading is not started again; a failed row may be retried.
func (f *Flow) ActivateEmbed(index int) (EmbedRequest, bool) {
	if f.status != Listed || index < 0 || index >= len(f.rows) || !f.router.IsOpen() {
		return EmbedRequest{}, false
	}
	row := &f.rows[index]
	if row.Status == RowLoading {
		return EmbedRequest{}, false
	}
	row.Status = RowLoading
	row.Err = nil

	req := EmbedRequest{
		Token:    f.token,
		Index:    index,
		SourceID: f.chosen,
		Embed:    row.Embed,
	}
	f.log.WithFields(logrus.Fields{"source": req.SourceID, "embed": req.Embed.EmbedID, "token": req.Token}).Debug("resolving embed")
	return req, true
}

// RunEmbed performs the embed scrape for req. It blocks and may run off the loop.
func (f *Flow) RunEmbed(ctx context.Context, req EmbedRequest) EmbedOutcome {
	stream, err := f.reg.RunEmbedScraper(ctx, req.Embed.EmbedID, req.Embed.URL)
	return EmbedOutcome{Request: req, Stream: stream, Err: err}
}

// ApplyEmbed applies an outcome from RunEmbed to its own row and reports
// whether it was current.
func (f *Flow) ApplyEmbed(out EmbedOutcome) bool {
	req := out.Request
	entry := f.log.WithFields(logrus.Fields{"source": req.SourceID, "embed": req.Embed.EmbedID, "token": req.Token})
	if !f.current(req.Token) || req.Index < 0 || req.Index >= len(f.rows) {
		entry.Debug("dropping stale embed result")
		return false
	}

	row := &f.rows[req.Index]
	if out.Err != nil || out.Stream == nil {
		err := out.Err
		if err == nil {
			err = errors.New("embed returned no stream")
		}
		row.Status = RowFailed
		row.Err = &EmbedResolutionError{SourceID: req.SourceID, EmbedID: req.Embed.EmbedID, Err: err}
		entry.WithError(err).Warn("embed resolution failed")
		return true
	}

	row.Status = RowResolved
	f.commit(req.SourceID, out.Stream)
	entry.Info("embed resolved to a stream")
	return true
}

// commit writes the stream and its originating source id, then closes the
// overlay. The stream starts at the current playback position.
func (f *Flow) commit(sourceID string, stream *media.Stream) {
	progress := f.player.Snapshot().Progress.Time
	f.player.SetSource(state.FromStream(stream, f.quality), progress)
	f.player.SetSourceID(mo.Some(sourceID))
	f.status = Resolved
	f.router.Close()
}

func (f *Flow) current(token uint64) bool {
	return token == f.token && f.router.IsOpen()
}

func (f *Flow) embedName(id string) string {
	if meta, ok := f.reg.GetMetadata(id).Get(); ok {
		return meta.Name
	}
	return UnknownName
}

// Back returns from the embed list to the source list.
func (f *Flow) Back() {
	if f.router.Current() == RouteEmbeds {
		f.router.Navigate(RouteSources)
	}
}

// Leave exits the source list to the overlay root.
func (f *Flow) Leave() {
	if f.router.Current() == RouteSources {
		f.router.Navigate(RouteRoot)
	}
}

// Reset forgets the chosen source and every in-flight request, ready for
// the overlay to be opened again.
func (f *Flow) Reset() {
	f.chosen = ""
	f.lastAttempted = mo.None[string]()
	f.token++
	f.status = Idle
	f.err = nil
	f.rows = nil
}

// Chosen returns the id of the chosen source, or "".
func (f *Flow) Chosen() string { return f.chosen }

// ChosenName returns the display name of the chosen source.
func (f *Flow) ChosenName() string {
	if meta, ok := f.reg.GetMetadata(f.chosen).Get(); ok {
		return meta.Name
	}
	return UnknownName
}

// Status returns the embed view state.
func (f *Flow) Status() Status { return f.status }

// Err returns the source resolution error when Status is Failed.
func (f *Flow) Err() error { return f.err }

// Rows returns a copy of the embed rows.
func (f *Flow) Rows() []EmbedRow { return slices.Clone(f.rows) }

// ResolveFirst walks the sources in order, and each source's embeds in
// order, until one commits a stream. It drives the same requests as the
// overlay and leaves the overlay closed. The committed source id is
// returned.
func (f *Flow) ResolveFirst(ctx context.Context) (string, error) {
	f.Reset()
	f.router.Open(RouteSources)
	defer f.router.Close()

	sources := f.Sources()
	if len(sources) == 0 {
		if !f.player.Snapshot().Meta.IsPresent() {
			return "", ErrNoMedia
		}
		return "", ErrNoStream
	}

	var errs []error
	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		f.ChooseSource(src.ID)
		req, ok := f.EnterEmbeds()
		if !ok {
			errs = append(errs, f.err)
			continue
		}
		f.ApplySource(f.RunSource(ctx, req))

		switch f.status {
		case Resolved:
			return src.ID, nil
		case Failed:
			errs = append(errs, f.err)
			continue
		case NoEmbeds:
			continue
		}

		for i := range f.rows {
			ereq, ok := f.ActivateEmbed(i)
			if !ok {
				continue
			}
			f.ApplyEmbed(f.RunEmbed(ctx, ereq))
			if f.status == Resolved {
				return src.ID, nil
			}
			errs = append(errs, f.rows[i].Err)
		}
		f.Back()
	}

	return "", errors.Join(append([]error{ErrNoStream}, errs...)...)
}
