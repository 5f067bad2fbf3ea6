package selection

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/samber/mo"

	"reel/internal/media"
	"reel/internal/overlay"
	"reel/internal/state"
)

type fakeRegistry struct {
	mu      sync.Mutex
	sources []media.Source
	embeds  map[string]media.Source

	sourceResults map[string]media.ScrapeResult
	sourceErrs    map[string]error
	embedStreams  map[string]*media.Stream // keyed by URL
	embedErrs     map[string]error         // keyed by URL

	sourceCalls []string
	embedCalls  []string
}

func (r *fakeRegistry) ListSources() []media.Source { return slices.Clone(r.sources) }

func (r *fakeRegistry) GetMetadata(id string) mo.Option[media.Source] {
	for _, s := range r.sources {
		if s.ID == id {
			return mo.Some(s)
		}
	}
	if e, ok := r.embeds[id]; ok {
		return mo.Some(e)
	}
	return mo.None[media.Source]()
}

func (r *fakeRegistry) RunSourceScraper(ctx context.Context, id string, m media.ScrapeMedia) (media.ScrapeResult, error) {
	r.mu.Lock()
	r.sourceCalls = append(r.sourceCalls, id)
	r.mu.Unlock()
	if err := r.sourceErrs[id]; err != nil {
		return media.ScrapeResult{}, err
	}
	return r.sourceResults[id], nil
}

func (r *fakeRegistry) RunEmbedScraper(ctx context.Context, id, url string) (*media.Stream, error) {
	r.mu.Lock()
	r.embedCalls = append(r.embedCalls, id+"@"+url)
	r.mu.Unlock()
	if err := r.embedErrs[url]; err != nil {
		return nil, err
	}
	return r.embedStreams[url], nil
}

// countingState wraps a real store and counts commits.
type countingState struct {
	*state.Store
	setSource   int
	setSourceID int
}

func (s *countingState) SetSource(src state.Source, startAt float64) {
	s.setSource++
	s.Store.SetSource(src, startAt)
}

func (s *countingState) SetSourceID(id mo.Option[string]) {
	s.setSourceID++
	s.Store.SetSourceID(id)
}

// countingRouter wraps a real router and counts closes.
type countingRouter struct {
	*overlay.Router
	closes int
}

func (r *countingRouter) Close() {
	r.closes++
	r.Router.Close()
}

var (
	hls     = &media.Stream{Type: media.HLS, Playlist: "https://cdn.example/master.m3u8"}
	movie   = media.Meta{ID: "movie/free-heat-hd-18901", Title: "Heat", Type: media.Movie, Year: 1995}
	sourceA = media.Source{ID: "a", Name: "Alpha", MediaTypes: []media.MediaType{media.Movie, media.Show}}
	sourceB = media.Source{ID: "b", Name: "Bravo", MediaTypes: []media.MediaType{media.Show}}
	sourceC = media.Source{ID: "c", Name: "Charlie", MediaTypes: []media.MediaType{media.Movie}}
)

type harness struct {
	reg    *fakeRegistry
	player *countingState
	router *countingRouter
	flow   *Flow
}

func newHarness(t *testing.T, reg *fakeRegistry, opts ...Option) *harness {
	t.Helper()
	if reg.embeds == nil {
		reg.embeds = map[string]media.Source{}
	}
	h := &harness{
		reg:    reg,
		player: &countingState{Store: state.New()},
		router: &countingRouter{Router: overlay.New()},
	}
	h.player.Store.SetMeta(movie)
	h.flow = New(reg, h.player, h.router, opts...)
	h.router.Open(RouteSources)
	return h
}

// choose selects id and performs the resolution synchronously.
func (h *harness) choose(t *testing.T, id string) bool {
	t.Helper()
	h.flow.ChooseSource(id)
	req, ok := h.flow.EnterEmbeds()
	if !ok {
		return false
	}
	h.flow.ApplySource(h.flow.RunSource(context.Background(), req))
	return true
}

func sourceIDs(items []SourceItem) []string {
	ids := make([]string, len(items))
	for i, it := range items {
		ids[i] = it.ID
	}
	return ids
}

func TestSourcesFilterByMediaType(t *testing.T) {
	reg := &fakeRegistry{sources: []media.Source{sourceA, sourceB, sourceC}}
	h := newHarness(t, reg)

	if got := sourceIDs(h.flow.Sources()); !slices.Equal(got, []string{"a", "c"}) {
		t.Errorf("movie sources = %v, want [a c]", got)
	}

	h.player.Store.SetMeta(media.Meta{Title: "Severance", Type: media.Show})
	if got := sourceIDs(h.flow.Sources()); !slices.Equal(got, []string{"a", "b"}) {
		t.Errorf("show sources = %v, want [a b]", got)
	}

	if len(reg.sourceCalls) != 0 {
		t.Errorf("listing must not scrape, got %v", reg.sourceCalls)
	}
}

func TestSourcesScenarioMovieOnlyA(t *testing.T) {
	reg := &fakeRegistry{sources: []media.Source{sourceA, sourceB}}
	h := newHarness(t, reg)

	if got := sourceIDs(h.flow.Sources()); !slices.Equal(got, []string{"a"}) {
		t.Errorf("Sources() = %v, want [a]", got)
	}
}

func TestSourcesFilterPreservesOrder(t *testing.T) {
	types := [][]media.MediaType{
		{media.Movie}, {media.Show}, {media.Movie, media.Show}, nil, {media.Show, media.Movie},
	}
	var all []media.Source
	for i, mt := range types {
		all = append(all, media.Source{ID: string(rune('a' + i)), MediaTypes: mt})
	}

	for _, mt := range []media.MediaType{media.Movie, media.Show} {
		reg := &fakeRegistry{sources: all}
		h := newHarness(t, reg)
		h.player.Store.SetMeta(media.Meta{Title: "x", Type: mt})

		var want []string
		for _, s := range all {
			if s.Supports(mt) {
				want = append(want, s.ID)
			}
		}
		if got := sourceIDs(h.flow.Sources()); !slices.Equal(got, want) {
			t.Errorf("%s: Sources() = %v, want %v", mt, got, want)
		}
	}
}

func TestSourcesWithoutMedia(t *testing.T) {
	reg := &fakeRegistry{sources: []media.Source{sourceA}}
	h := newHarness(t, reg)
	h.player.Store = state.New()
	h.flow = New(reg, h.player, h.router)

	if got := h.flow.Sources(); len(got) != 0 {
		t.Errorf("Sources() without media = %v", got)
	}

	h.flow.ChooseSource("a")
	if _, ok := h.flow.EnterEmbeds(); ok {
		t.Fatal("no request should be issued without media")
	}
	if h.flow.Status() != Failed || !errors.Is(h.flow.Err(), ErrNoMedia) {
		t.Errorf("status = %v, err = %v, want failed with ErrNoMedia", h.flow.Status(), h.flow.Err())
	}
	if len(reg.sourceCalls) != 0 {
		t.Errorf("no scrape expected, got %v", reg.sourceCalls)
	}
}

func TestSourcesMarksCommittedID(t *testing.T) {
	reg := &fakeRegistry{sources: []media.Source{sourceA, sourceC}}
	h := newHarness(t, reg)

	for _, it := range h.flow.Sources() {
		if it.Selected {
			t.Errorf("%s selected before any commit", it.ID)
		}
	}

	h.player.SetSourceID(mo.Some("c"))
	for _, it := range h.flow.Sources() {
		if it.Selected != (it.ID == "c") {
			t.Errorf("%s Selected = %v", it.ID, it.Selected)
		}
	}
}

func TestChooseSourceCallbackAndNavigation(t *testing.T) {
	reg := &fakeRegistry{sources: []media.Source{sourceA}}
	var chosen []string
	h := newHarness(t, reg, WithOnChoose(func(id string) { chosen = append(chosen, id) }))

	h.flow.ChooseSource("a")

	if !slices.Equal(chosen, []string{"a"}) {
		t.Errorf("callback got %v, want [a]", chosen)
	}
	if got := h.router.Current(); got != RouteEmbeds {
		t.Errorf("route = %q, want %q", got, RouteEmbeds)
	}
	if len(reg.sourceCalls) != 0 {
		t.Errorf("choosing must not scrape by itself, got %v", reg.sourceCalls)
	}
}

func TestChooseSourceWithoutCallback(t *testing.T) {
	h := newHarness(t, &fakeRegistry{sources: []media.Source{sourceA}})
	h.flow.ChooseSource("a")
	if h.flow.Chosen() != "a" {
		t.Errorf("Chosen() = %q", h.flow.Chosen())
	}
}

func TestEnterEmbedsOncePerSourceID(t *testing.T) {
	reg := &fakeRegistry{
		sources:       []media.Source{sourceA, sourceC},
		sourceResults: map[string]media.ScrapeResult{"a": {Embeds: []media.Embed{{EmbedID: "e1", URL: "u1"}}}},
	}
	h := newHarness(t, reg)

	if !h.choose(t, "a") {
		t.Fatal("first entry should issue a request")
	}
	if h.choose(t, "a") {
		t.Error("re-entering with the same id must not issue a request")
	}
	h.flow.Back()
	if h.choose(t, "a") {
		t.Error("coming back to the same id must not issue a request")
	}
	if !slices.Equal(reg.sourceCalls, []string{"a"}) {
		t.Errorf("scrapes = %v, want exactly one", reg.sourceCalls)
	}

	if !h.choose(t, "c") {
		t.Error("a different id should issue a request")
	}
	if !h.choose(t, "a") {
		t.Error("switching back to a after c is a new id change")
	}
	if len(reg.sourceCalls) != 3 {
		t.Errorf("scrapes = %v, want 3", reg.sourceCalls)
	}
}

func TestSourceResolvesToStream(t *testing.T) {
	reg := &fakeRegistry{
		sources:       []media.Source{sourceA},
		sourceResults: map[string]media.ScrapeResult{"a": {Stream: hls}},
	}
	h := newHarness(t, reg)
	h.player.Store.SetProgress(state.Progress{Time: 125})

	h.choose(t, "a")

	if h.player.setSource != 1 || h.player.setSourceID != 1 {
		t.Errorf("commits = %d/%d, want exactly one pair", h.player.setSource, h.player.setSourceID)
	}
	if h.router.closes != 1 || h.router.IsOpen() {
		t.Errorf("closes = %d, open = %v; want one close", h.router.closes, h.router.IsOpen())
	}
	if h.flow.Status() != Resolved || len(h.flow.Rows()) != 0 {
		t.Errorf("status = %v, rows = %v; want resolved without embed rows", h.flow.Status(), h.flow.Rows())
	}

	snap := h.player.Snapshot()
	if snap.SourceID.OrEmpty() != "a" {
		t.Errorf("SourceID = %v, want a", snap.SourceID)
	}
	if src := snap.Source.MustGet(); src.URL != hls.Playlist {
		t.Errorf("Source = %+v", src)
	}
	if snap.Progress.Time != 125 {
		t.Errorf("stream should start at current progress, got %v", snap.Progress.Time)
	}
}

func TestSourceNoEmbeds(t *testing.T) {
	reg := &fakeRegistry{
		sources:       []media.Source{sourceA},
		sourceResults: map[string]media.ScrapeResult{"a": {Embeds: []media.Embed{}}},
	}
	h := newHarness(t, reg)
	before := h.player.Snapshot()

	h.choose(t, "a")

	if h.flow.Status() != NoEmbeds {
		t.Errorf("status = %v, want no embeds", h.flow.Status())
	}
	if h.player.setSource != 0 || h.player.setSourceID != 0 || h.router.closes != 0 {
		t.Error("no embeds must not commit or close")
	}
	after := h.player.Snapshot()
	if after.SourceID != before.SourceID || after.Source.IsPresent() {
		t.Errorf("player state changed: %+v", after)
	}
	if h.router.Current() != RouteEmbeds {
		t.Errorf("route = %q", h.router.Current())
	}
}

func TestSourceFailure(t *testing.T) {
	boom := errors.New("status 503")
	reg := &fakeRegistry{
		sources:    []media.Source{sourceA, sourceC},
		sourceErrs: map[string]error{"a": boom},
	}
	h := newHarness(t, reg)

	h.choose(t, "a")

	if h.flow.Status() != Failed {
		t.Fatalf("status = %v, want failed", h.flow.Status())
	}
	var rerr *ResolutionError
	if !errors.As(h.flow.Err(), &rerr) || rerr.SourceID != "a" || !errors.Is(rerr, boom) {
		t.Errorf("Err() = %v, want ResolutionError for a wrapping the cause", h.flow.Err())
	}
	if !h.router.IsOpen() || h.player.setSource != 0 {
		t.Error("failure must leave the overlay open and the state untouched")
	}

	h.flow.Back()
	if h.router.Current() != RouteSources {
		t.Errorf("Back() route = %q, want %q", h.router.Current(), RouteSources)
	}
}

func TestRetryAfterFailure(t *testing.T) {
	reg := &fakeRegistry{
		sources:    []media.Source{sourceA},
		sourceErrs: map[string]error{"a": errors.New("timeout")},
	}
	h := newHarness(t, reg)

	if _, ok := h.flow.Retry(); ok {
		t.Error("Retry with nothing attempted should do nothing")
	}
	h.choose(t, "a")

	reg.sourceErrs = nil
	reg.sourceResults = map[string]media.ScrapeResult{"a": {Stream: hls}}
	req, ok := h.flow.Retry()
	if !ok {
		t.Fatal("Retry after failure should issue a request")
	}
	h.flow.ApplySource(h.flow.RunSource(context.Background(), req))

	if h.flow.Status() != Resolved || len(reg.sourceCalls) != 2 {
		t.Errorf("status = %v, calls = %v", h.flow.Status(), reg.sourceCalls)
	}
}

func TestStaleSourceResultDropped(t *testing.T) {
	reg := &fakeRegistry{
		sources: []media.Source{sourceA, sourceC},
		sourceResults: map[string]media.ScrapeResult{
			"a": {Stream: hls},
			"c": {Embeds: []media.Embed{{EmbedID: "e1", URL: "u1"}}},
		},
	}
	h := newHarness(t, reg)

	h.flow.ChooseSource("a")
	reqA, _ := h.flow.EnterEmbeds()
	h.flow.Back()
	h.flow.ChooseSource("c")
	reqC, _ := h.flow.EnterEmbeds()

	// a's scrape finishes after c was chosen.
	outA := h.flow.RunSource(context.Background(), reqA)
	outC := h.flow.RunSource(context.Background(), reqC)

	if h.flow.ApplySource(outA) {
		t.Error("result for a superseded request must be dropped")
	}
	if h.player.setSource != 0 || !h.router.IsOpen() {
		t.Error("stale stream must not commit or close")
	}
	if !h.flow.ApplySource(outC) || h.flow.Status() != Listed {
		t.Errorf("current result should apply, status = %v", h.flow.Status())
	}
}

func TestResultAfterCloseIsNoOp(t *testing.T) {
	reg := &fakeRegistry{
		sources:       []media.Source{sourceA},
		sourceResults: map[string]media.ScrapeResult{"a": {Stream: hls}},
	}
	h := newHarness(t, reg)

	h.flow.ChooseSource("a")
	req, _ := h.flow.EnterEmbeds()
	h.router.Close()
	closes := h.router.closes

	if h.flow.ApplySource(h.flow.RunSource(context.Background(), req)) {
		t.Error("result after close must be dropped")
	}
	if h.player.setSource != 0 || h.player.setSourceID != 0 || h.router.closes != closes {
		t.Error("result after close must not touch state")
	}
}

func TestEmbedRows(t *testing.T) {
	reg := &fakeRegistry{
		sources: []media.Source{sourceA},
		embeds:  map[string]media.Source{"vidcloud": {ID: "vidcloud", Name: "Vidcloud"}},
		sourceResults: map[string]media.ScrapeResult{"a": {Embeds: []media.Embed{
			{EmbedID: "vidcloud", URL: "u1"},
			{EmbedID: "mystery", URL: "u2"},
		}}},
	}
	h := newHarness(t, reg)
	h.choose(t, "a")

	rows := h.flow.Rows()
	if h.flow.Status() != Listed || len(rows) != 2 {
		t.Fatalf("status = %v, rows = %d", h.flow.Status(), len(rows))
	}
	if rows[0].Name != "Vidcloud" || rows[1].Name != UnknownName {
		t.Errorf("names = %q, %q", rows[0].Name, rows[1].Name)
	}
	if h.player.setSource != 0 || h.router.closes != 0 {
		t.Error("listing embeds must not commit")
	}
}

func TestEmbedSuccessCommitsOriginatingSource(t *testing.T) {
	reg := &fakeRegistry{
		sources:       []media.Source{sourceA},
		sourceResults: map[string]media.ScrapeResult{"a": {Embeds: []media.Embed{{EmbedID: "e1", URL: "u"}}}},
		embedStreams:  map[string]*media.Stream{"u": hls},
	}
	h := newHarness(t, reg)
	h.choose(t, "a")

	req, ok := h.flow.ActivateEmbed(0)
	if !ok {
		t.Fatal("ActivateEmbed(0) should start a request")
	}
	h.flow.ApplyEmbed(h.flow.RunEmbed(context.Background(), req))

	snap := h.player.Snapshot()
	if snap.SourceID.OrEmpty() != "a" {
		t.Errorf("SourceID = %v, want the originating source a", snap.SourceID)
	}
	if snap.Source.MustGet().URL != hls.Playlist {
		t.Errorf("Source = %+v", snap.Source)
	}
	if h.router.IsOpen() || h.router.closes != 1 {
		t.Error("embed success should close the overlay once")
	}
	if !slices.Equal(reg.embedCalls, []string{"e1@u"}) {
		t.Errorf("embed calls = %v", reg.embedCalls)
	}
}

func TestEmbedRowsIndependent(t *testing.T) {
	reg := &fakeRegistry{
		sources: []media.Source{sourceA},
		sourceResults: map[string]media.ScrapeResult{"a": {Embeds: []media.Embed{
			{EmbedID: "e1", URL: "u1"},
			{EmbedID: "e2", URL: "u2"},
			{EmbedID: "e3", URL: "u3"},
		}}},
		embedErrs:    map[string]error{"u1": errors.New("encrypted")},
		embedStreams: map[string]*media.Stream{"u3": hls},
	}
	h := newHarness(t, reg)
	h.choose(t, "a")

	req1, _ := h.flow.ActivateEmbed(0)
	req2, _ := h.flow.ActivateEmbed(1)
	if got := statuses(h.flow.Rows()); !slices.Equal(got, []RowStatus{RowLoading, RowLoading, RowIdle}) {
		t.Fatalf("statuses = %v", got)
	}

	h.flow.ApplyEmbed(h.flow.RunEmbed(context.Background(), req1))
	rows := h.flow.Rows()
	if got := statuses(rows); !slices.Equal(got, []RowStatus{RowFailed, RowLoading, RowIdle}) {
		t.Fatalf("after row 0 failed: %v", got)
	}
	var eerr *EmbedResolutionError
	if !errors.As(rows[0].Err, &eerr) || eerr.EmbedID != "e1" || eerr.SourceID != "a" {
		t.Errorf("row 0 err = %v", rows[0].Err)
	}
	if rows[1].Err != nil || rows[2].Err != nil {
		t.Error("sibling rows must not see the failure")
	}
	if !h.router.IsOpen() {
		t.Error("embed failure must keep the overlay open")
	}

	// Row 1's scraper returned no stream.
	h.flow.ApplyEmbed(h.flow.RunEmbed(context.Background(), req2))
	if got := statuses(h.flow.Rows()); !slices.Equal(got, []RowStatus{RowFailed, RowFailed, RowIdle}) {
		t.Fatalf("after row 1 failed: %v", got)
	}

	req3, ok := h.flow.ActivateEmbed(2)
	if !ok {
		t.Fatal("row 2 should still be actionable")
	}
	h.flow.ApplyEmbed(h.flow.RunEmbed(context.Background(), req3))
	if h.flow.Status() != Resolved || h.player.Snapshot().SourceID.OrEmpty() != "a" {
		t.Errorf("row 2 should commit, status = %v", h.flow.Status())
	}
}

func statuses(rows []EmbedRow) []RowStatus {
	out := make([]RowStatus, len(rows))
	for i, r := range rows {
		out[i] = r.Status
	}
	return out
}

func TestActivateEmbedGuards(t *testing.T) {
	reg := &fakeRegistry{
		sources:       []media.Source{sourceA},
		sourceResults: map[string]media.ScrapeResult{"a": {Embeds: []media.Embed{{EmbedID: "e1", URL: "u1"}}}},
		embedErrs:     map[string]error{"u1": errors.New("gone")},
	}
	h := newHarness(t, reg)

	if _, ok := h.flow.ActivateEmbed(0); ok {
		t.Error("no rows before the source resolves")
	}
	h.choose(t, "a")

	if _, ok := h.flow.ActivateEmbed(5); ok {
		t.Error("out of range index accepted")
	}
	req, ok := h.flow.ActivateEmbed(0)
	if !ok {
		t.Fatal("first activation should start")
	}
	if _, ok := h.flow.ActivateEmbed(0); ok {
		t.Error("a loading row must not start twice")
	}

	h.flow.ApplyEmbed(h.flow.RunEmbed(context.Background(), req))
	if _, ok := h.flow.ActivateEmbed(0); !ok {
		t.Error("a failed row may be retried")
	}
}

func TestStaleEmbedResultDropped(t *testing.T) {
	reg := &fakeRegistry{
		sources: []media.Source{sourceA, sourceC},
		sourceResults: map[string]media.ScrapeResult{
			"a": {Embeds: []media.Embed{{EmbedID: "e1", URL: "u1"}}},
			"c": {Embeds: []media.Embed{{EmbedID: "e9", URL: "u9"}}},
		},
		embedStreams: map[string]*media.Stream{"u1": hls},
	}
	h := newHarness(t, reg)
	h.choose(t, "a")
	req, _ := h.flow.ActivateEmbed(0)

	h.flow.Back()
	h.choose(t, "c")

	if h.flow.ApplyEmbed(h.flow.RunEmbed(context.Background(), req)) {
		t.Error("embed result from a previous source must be dropped")
	}
	if h.player.setSource != 0 || h.flow.Rows()[0].Status != RowIdle {
		t.Error("stale embed result leaked into state")
	}
}

func TestNavigation(t *testing.T) {
	h := newHarness(t, &fakeRegistry{sources: []media.Source{sourceA}})

	h.flow.Leave()
	if h.router.Current() != RouteRoot {
		t.Errorf("Leave() route = %q, want root", h.router.Current())
	}

	h.router.Open(RouteSources)
	h.flow.ChooseSource("a")
	h.flow.Leave()
	if h.router.Current() != RouteEmbeds {
		t.Error("Leave() only applies to the source list")
	}
	h.flow.Back()
	if h.router.Current() != RouteSources {
		t.Errorf("Back() route = %q", h.router.Current())
	}
	h.flow.Back()
	if h.router.Current() != RouteSources {
		t.Error("Back() only applies to the embed list")
	}
}

func TestReopenStartsFresh(t *testing.T) {
	reg := &fakeRegistry{
		sources:       []media.Source{sourceA, sourceC},
		sourceResults: map[string]media.ScrapeResult{"c": {Stream: hls}},
	}
	h := newHarness(t, reg)
	h.choose(t, "c")
	if h.router.IsOpen() {
		t.Fatal("overlay should be closed after commit")
	}

	h.flow.Reset()
	h.router.Open(RouteSources)

	if h.flow.Status() != Idle || h.flow.Chosen() != "" {
		t.Errorf("after Reset: status = %v, chosen = %q", h.flow.Status(), h.flow.Chosen())
	}
	for _, it := range h.flow.Sources() {
		if it.Selected != (it.ID == "c") {
			t.Errorf("%s Selected = %v, want only c", it.ID, it.Selected)
		}
	}
	if !h.choose(t, "c") {
		t.Error("reopened overlay should resolve c again")
	}
}

func TestResolveFirst(t *testing.T) {
	reg := &fakeRegistry{
		sources: []media.Source{sourceA, sourceB, sourceC},
		embeds:  map[string]media.Source{},
		sourceResults: map[string]media.ScrapeResult{
			"a": {Embeds: []media.Embed{{EmbedID: "e1", URL: "u1"}, {EmbedID: "e2", URL: "u2"}}},
			"c": {Embeds: []media.Embed{{EmbedID: "e3", URL: "u3"}}},
		},
		embedErrs:    map[string]error{"u1": errors.New("x"), "u2": errors.New("y")},
		embedStreams: map[string]*media.Stream{"u3": hls},
	}
	h := newHarness(t, reg)
	h.router.Close()

	id, err := h.flow.ResolveFirst(context.Background())
	if err != nil {
		t.Fatalf("ResolveFirst: %v", err)
	}
	if id != "c" {
		t.Errorf("id = %q, want c", id)
	}
	if !slices.Equal(reg.sourceCalls, []string{"a", "c"}) {
		t.Errorf("source calls = %v (b does not support movies)", reg.sourceCalls)
	}
	if !slices.Equal(reg.embedCalls, []string{"e1@u1", "e2@u2", "e3@u3"}) {
		t.Errorf("embed calls = %v", reg.embedCalls)
	}
	if h.player.Snapshot().SourceID.OrEmpty() != "c" || h.router.IsOpen() {
		t.Error("ResolveFirst should commit c and leave the overlay closed")
	}
}

func TestResolveFirstAllFail(t *testing.T) {
	boom := errors.New("boom")
	reg := &fakeRegistry{
		sources:       []media.Source{sourceA, sourceC},
		sourceErrs:    map[string]error{"a": boom},
		sourceResults: map[string]media.ScrapeResult{"c": {}},
	}
	h := newHarness(t, reg)

	_, err := h.flow.ResolveFirst(context.Background())
	if !errors.Is(err, ErrNoStream) || !errors.Is(err, boom) {
		t.Errorf("err = %v, want ErrNoStream joined with the cause", err)
	}
	if h.player.setSource != 0 || h.router.IsOpen() {
		t.Error("failed ResolveFirst must not commit and must close the overlay")
	}
}

func TestResolveFirstCancelled(t *testing.T) {
	h := newHarness(t, &fakeRegistry{sources: []media.Source{sourceA}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := h.flow.ResolveFirst(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestResolveFirstNoMedia(t *testing.T) {
	reg := &fakeRegistry{sources: []media.Source{sourceA}}
	h := &harness{reg: reg, player: &countingState{Store: state.New()}, router: &countingRouter{Router: overlay.New()}}
	h.flow = New(reg, h.player, h.router)

	if _, err := h.flow.ResolveFirst(context.Background()); !errors.Is(err, ErrNoMedia) {
		t.Errorf("err = %v, want ErrNoMedia", err)
	}
}

func TestStatusString(t *testing.T) {
	for s, want := range map[Status]string{Idle: "idle", Loading: "loading", Listed: "listed", NoEmbeds: "no embeds", Failed: "failed", Resolved: "resolved"} {
		if s.String() != want {
			t.Errorf("Status(%d).String() = %q, want %q", int(s), s.String(), want)
		}
	}
}
