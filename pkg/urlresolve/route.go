// Package urlresolve turns record attributes into canonical page URLs.
//
// A route is a text/template rendered against the record's attribute map, with
// the sprig function library and a "slug" helper available:
//
//	/category/{{ .slug }}
//	/post/{{ .id }}-{{ .title | slug }}
//	/archive/{{ .published_at | date "2006/01" }}/
package urlresolve

import (
	"bytes"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/parse"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

// Route renders the URL path of a record
type Route struct {
	pattern string
	tmpl    *template.Template
}

// FuncMap returns the functions available to route templates
func FuncMap() template.FuncMap {
	funcs := sprig.TxtFuncMap()
	funcs["slug"] = utils.Slugify
	return funcs
}

// Compile parses a route pattern. Missing attributes fail at render time.
func Compile(pattern string) (*Route, error) {
	tmpl, err := template.New("route").Option("missingkey=error").Funcs(FuncMap()).Parse(pattern)
	if err != nil {
		return nil, utils.WrapErrorf(utils.ErrURLResolution, "invalid route '%s': %v", pattern, err)
	}
	return &Route{pattern: pattern, tmpl: tmpl}, nil
}

// MustCompile is Compile that panics on error, for patterns known at compile time
func MustCompile(pattern string) *Route {
	r, err := Compile(pattern)
	if err != nil {
		panic(err)
	}
	return r
}

// Pattern returns the source pattern
func (r *Route) Pattern() string { return r.pattern }

// Resolve renders the route for attrs and joins it onto cfg.BaseURL
func (r *Route) Resolve(cfg models.URLConfig, attrs map[string]any) (string, error) {
	var buf bytes.Buffer
	if err := r.tmpl.Execute(&buf, attrs); err != nil {
		return "", utils.WrapErrorf(utils.ErrURLResolution, "route '%s': %v", r.pattern, err)
	}

	path := strings.TrimSpace(buf.String())
	if cfg.TrailingSlash && !strings.HasSuffix(path, "/") && !strings.ContainsAny(path, "?#") {
		path += "/"
	}
	return parse.JoinURL(cfg.BaseURL, path), nil
}
