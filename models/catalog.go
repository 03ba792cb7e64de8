package models

// CatalogShow is a show summary from the external catalog's search endpoint.
type CatalogShow struct {
	ID        int64    `json:"id"`
	Name      string   `json:"name"`
	Premiered string   `json:"premiered,omitempty"`
	Image     string   `json:"image,omitempty"`
	Genres    []string `json:"genres,omitempty"`
}

// CatalogEpisode is one episode as the catalog reports it, before it is
// grouped into the library's season map.
type CatalogEpisode struct {
	ID      int64  `json:"id"`
	Season  int    `json:"season"`
	Number  int    `json:"number"`
	Name    string `json:"name"`
	Airdate string `json:"airdate,omitempty"`
}

// ShowDetails is the full per-show catalog payload used to build a library
// entry: show metadata plus the complete episode listing.
type ShowDetails struct {
	ID        int64            `json:"id"`
	Name      string           `json:"name"`
	Premiered string           `json:"premiered,omitempty"`
	Image     string           `json:"image,omitempty"`
	Genres    []string         `json:"genres"`
	Episodes  []CatalogEpisode `json:"episodes"`
}
