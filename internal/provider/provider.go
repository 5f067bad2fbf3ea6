// Package provider holds the scraper registry: the sources that turn a media
// descriptor into a stream or a list of embeds, and the embed scrapers that
// turn an embed URL into a stream.
package provider

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/samber/lo"
	"github.com/samber/mo"
	"github.com/sirupsen/logrus"

	"reel/internal/extract"
	"reel/internal/log"
	"reel/internal/media"
)

var (
	// ErrUnknownSource is returned for a source id the registry does not hold.
	ErrUnknownSource = errors.New("unknown source")

	// ErrUnknownEmbed is returned for an embed id the registry does not hold.
	ErrUnknownEmbed = errors.New("unknown embed")

	// ErrNotFound is returned by sources that cannot locate the requested media.
	ErrNotFound = errors.New("media not found")
)

// SourceScraper resolves a media descriptor into a stream or embeds.
type SourceScraper interface {
	Info() media.Source
	Scrape(ctx context.Context, m media.ScrapeMedia) (media.ScrapeResult, error)
}

type embedEntry struct {
	info      media.Source
	extractor extract.Extractor
}

// Registry is an ordered set of source scrapers plus the embed scrapers
// their results refer to.
type Registry struct {
	sources []SourceScraper
	embeds  map[string]embedEntry
	timeout time.Duration
	log     *logrus.Entry
}

// Option customises NewRegistry.
type Option func(*Registry)

// WithTimeout bounds every scraper call.
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

// NewRegistry creates an empty registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		embeds: make(map[string]embedEntry),
		log:    log.With("provider"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RegisterSource appends s to the source order.
func (r *Registry) RegisterSource(s SourceScraper) {
	r.sources = append(r.sources, s)
}

// RegisterEmbed binds an embed id (info.ID) to an extractor.
func (r *Registry) RegisterEmbed(info media.Source, ex extract.Extractor) {
	info.MediaTypes = nil
	r.embeds[info.ID] = embedEntry{info: info, extractor: ex}
}

// Reorder keeps only the listed sources, in the listed order.
func (r *Registry) Reorder(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	byID := lo.KeyBy(r.sources, func(s SourceScraper) string { return s.Info().ID })
	ordered := make([]SourceScraper, 0, len(ids))
	for _, id := range ids {
		s, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: %q", ErrUnknownSource, id)
		}
		ordered = append(ordered, s)
	}
	r.sources = ordered
	return nil
}

// ListSources returns every registered source in registry order.
func (r *Registry) ListSources() []media.Source {
	return lo.Map(r.sources, func(s SourceScraper, _ int) media.Source { return s.Info() })
}

// GetMetadata looks up a source or embed by id.
func (r *Registry) GetMetadata(id string) mo.Option[media.Source] {
	if s, ok := r.source(id); ok {
		return mo.Some(s.Info())
	}
	if e, ok := r.embeds[id]; ok {
		return mo.Some(e.info)
	}
	return mo.None[media.Source]()
}

func (r *Registry) source(id string) (SourceScraper, bool) {
	return lo.Find(r.sources, func(s SourceScraper) bool { return s.Info().ID == id })
}

// RunSourceScraper runs source id against m. A result carrying a stream is
// returned without embeds.
func (r *Registry) RunSourceScraper(ctx context.Context, id string, m media.ScrapeMedia) (res media.ScrapeResult, err error) {
	s, ok := r.source(id)
	if !ok {
		return media.ScrapeResult{}, fmt.Errorf("%w: %q", ErrUnknownSource, id)
	}
	if !s.Info().Supports(m.Type) {
		return media.ScrapeResult{}, fmt.Errorf("source %q does not support %s", id, m.Type)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	defer recoverScraper(id, &err)

	start := time.Now()
	res, err = s.Scrape(ctx, m)
	entry := r.log.WithFields(logrus.Fields{"source": id, "elapsed": time.Since(start)})
	if err != nil {
		entry.WithError(err).Debug("source scrape failed")
		return media.ScrapeResult{}, fmt.Errorf("scraping %s: %w", id, err)
	}
	if res.Stream != nil {
		res.Embeds = nil
	}
	entry.WithFields(logrus.Fields{"stream": res.Stream != nil, "embeds": len(res.Embeds)}).Debug("source scraped")
	return res, nil
}

// RunEmbedScraper resolves url with embed scraper id.
func (r *Registry) RunEmbedScraper(ctx context.Context, id, url string) (stream *media.Stream, err error) {
	e, ok := r.embeds[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEmbed, id)
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()
	defer recoverScraper(id, &err)

	stream, err = e.extractor.Extract(ctx, url)
	if err != nil {
		r.log.WithField("embed", id).WithError(err).Debug("embed scrape failed")
		return nil, fmt.Errorf("extracting %s: %w", id, err)
	}
	if stream == nil {
		return nil, fmt.Errorf("extracting %s: %w", id, extract.ErrNoSources)
	}
	return stream, nil
}

func (r *Registry) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

// recoverScraper turns a scraper panic on hostile markup into an error.
func recoverScraper(id string, err *error) {
	if p := recover(); p != nil {
		*err = fmt.Errorf("scraper %s panicked: %v", id, p)
	}
}
