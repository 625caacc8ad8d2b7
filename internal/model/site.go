package model

// Site identifies the resource under evaluation and its owning namespace.
// Slug is the site identifier extracted from the address (e.g. "b10001638");
// Title is the owning group's display title when the host knows it.
type Site struct {
	Address string `json:"address"`
	Slug    string `json:"slug"`
	Title   string `json:"title,omitempty"`
}
