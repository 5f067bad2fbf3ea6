package cmd

import (
	"fmt"
	"net/http"
	"os"

	"golang.org/x/term"

	"reel/internal/config"
	"reel/internal/history"
	"reel/internal/httputil"
	"reel/internal/overlay"
	"reel/internal/provider"
	"reel/internal/selection"
	"reel/internal/state"
)

// session wires the collaborators one command run needs.
type session struct {
	client  *http.Client
	catalog *provider.FlixHQ
	reg     *provider.Registry
	store   *state.Store
	router  *overlay.Router
	flow    *selection.Flow
}

func newSession() (*session, error) {
	client := httputil.NewClient(
		httputil.WithTimeout(cfg.Timeout()),
		httputil.WithRateLimit(cfg.RequestsPerSecond),
	)

	reg := provider.Default(provider.Options{
		Base:        cfg.Base,
		ConsumetAPI: cfg.ConsumetAPI,
		Client:      client,
		Timeout:     cfg.Timeout(),
	})
	if len(cfg.Sources) > 0 {
		if err := reg.Reorder(cfg.Sources); err != nil {
			return nil, fmt.Errorf("applying source order: %w", err)
		}
	}

	store := state.New()
	router := overlay.New()
	flow := selection.New(reg, store, router,
		selection.WithQuality(cfg.Quality),
		selection.WithOnChoose(func(id string) {
			logger.WithField("source", id).Debug("source chosen")
		}),
	)

	return &session{
		client:  client,
		catalog: provider.NewFlixHQ(cfg.Base, client),
		reg:     reg,
		store:   store,
		router:  router,
		flow:    flow,
	}, nil
}

// interactive reports whether the source overlay can take the terminal.
func interactive() bool {
	if flagJSON || flagDownload != "" {
		return false
	}
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stdout.Fd()))
}

// openHistory opens the history database, importing the legacy TSV file
// on first use.
func openHistory() (*history.Store, error) {
	path, err := config.HistoryPath()
	if err != nil {
		return nil, err
	}
	h, err := history.Open(path)
	if err != nil {
		return nil, err
	}

	if legacy, err := config.LegacyHistoryPath(); err == nil {
		if _, err := h.ImportLegacy(legacy); err != nil {
			logger.WithError(err).Warn("legacy history import failed")
		}
	}
	return h, nil
}
