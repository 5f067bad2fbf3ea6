package provider

import (
	"net/http"
	"time"

	"reel/internal/extract"
	"reel/internal/media"
)

// Options configures the built-in registry.
type Options struct {
	Base        string // FlixHQ host, e.g. "flixhq.to"
	ConsumetAPI string
	Client      *http.Client
	Timeout     time.Duration
}

// Embed ids produced by FlixHQ servers.
const (
	EmbedVidcloud = "vidcloud"
	EmbedUpcloud  = "upcloud"
)

// Default builds the registry shipped with reel: FlixHQ (embeds) and
// Consumet (direct streams) as sources, MegaCloud behind both embed ids.
func Default(o Options) *Registry {
	r := NewRegistry(WithTimeout(o.Timeout))

	r.RegisterSource(NewFlixHQ(o.Base, o.Client))
	r.RegisterSource(NewConsumet(o.ConsumetAPI, o.Client))

	megacloud := extract.NewMegaCloud(o.Client, "https://"+o.Base+"/")
	r.RegisterEmbed(media.Source{ID: EmbedVidcloud, Name: "Vidcloud", Rank: 20}, megacloud)
	r.RegisterEmbed(media.Source{ID: EmbedUpcloud, Name: "UpCloud", Rank: 10}, megacloud)

	return r
}
