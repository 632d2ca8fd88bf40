package parse

import "encoding/xml"

// SitemapNamespace is the sitemaps.org 0.9 schema namespace, shared by urlset and sitemapindex
const SitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// --- XML Structs for Sitemap Documents ---
// Field order is the element order on output.

// XMLURL represents a <url> element in a sitemap
type XMLURL struct {
	Loc        string `xml:"loc"`
	ChangeFreq string `xml:"changefreq,omitempty"`
	Priority   string `xml:"priority,omitempty"`
	LastMod    string `xml:"lastmod,omitempty"`
}

// XMLURLSet represents a <urlset> element in a sitemap
type XMLURLSet struct {
	XMLName xml.Name `xml:"urlset"`
	Xmlns   string   `xml:"xmlns,attr,omitempty"`
	URLs    []XMLURL `xml:"url"`
}

// XMLSitemap represents a <sitemap> element in a sitemap index file
type XMLSitemap struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// XMLSitemapIndex represents a <sitemapindex> element
type XMLSitemapIndex struct {
	XMLName  xml.Name     `xml:"sitemapindex"`
	Xmlns    string       `xml:"xmlns,attr,omitempty"`
	Sitemaps []XMLSitemap `xml:"sitemap"`
}

// NewURLSet returns an empty urlset carrying the sitemaps.org namespace
func NewURLSet(capacity int) *XMLURLSet {
	return &XMLURLSet{Xmlns: SitemapNamespace, URLs: make([]XMLURL, 0, capacity)}
}

// NewSitemapIndex returns an empty sitemapindex carrying the sitemaps.org namespace
func NewSitemapIndex(capacity int) *XMLSitemapIndex {
	return &XMLSitemapIndex{Xmlns: SitemapNamespace, Sitemaps: make([]XMLSitemap, 0, capacity)}
}
