package source

import (
	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/urlresolve"
)

// Row is a generic record backed by an attribute map.
// Its URL comes from the route of the query that produced it.
type Row struct {
	attrs map[string]any
	route *urlresolve.Route
}

// NewRow creates a record from attrs; the map is owned by the row afterwards
func NewRow(attrs map[string]any, route *urlresolve.Route) *Row {
	if attrs == nil {
		attrs = map[string]any{}
	}
	return &Row{attrs: attrs, route: route}
}

// SiteMapURL implements models.Record
func (r *Row) SiteMapURL(cfg models.URLConfig) (string, error) {
	return r.route.Resolve(cfg, r.attrs)
}

// HasAttribute implements models.Record
func (r *Row) HasAttribute(name string) bool {
	_, ok := r.attrs[name]
	return ok
}

// Attribute implements models.Record
func (r *Row) Attribute(name string) any {
	return r.attrs[name]
}

// Attributes returns a copy of the attribute map
func (r *Row) Attributes() map[string]any {
	out := make(map[string]any, len(r.attrs))
	for k, v := range r.attrs {
		out[k] = v
	}
	return out
}

var _ models.Record = (*Row)(nil)
