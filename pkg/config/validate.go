package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/parse"
	"github.com/Sriram-PR/sitemap-gen/pkg/sitemap"
	"github.com/Sriram-PR/sitemap-gen/pkg/urlresolve"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

var structValidator = newStructValidator()

// newStructValidator reports fields by their YAML names
func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkStruct runs tag validation and flattens failures into one ErrConfigValidation
func checkStruct(s any) error {
	err := structValidator.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", utils.ErrConfigValidation, err)
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := fe.Namespace()
		if i := strings.Index(field, "."); i >= 0 {
			field = field[i+1:] // Drop the root type name
		}
		if fe.Param() != "" {
			msgs = append(msgs, fmt.Sprintf("%s fails '%s=%s'", field, fe.Tag(), fe.Param()))
		} else {
			msgs = append(msgs, fmt.Sprintf("%s fails '%s'", field, fe.Tag()))
		}
	}
	return fmt.Errorf("%w: %s", utils.ErrConfigValidation, strings.Join(msgs, "; "))
}

// Validate checks AppConfig fields and applies sensible defaults.
// Returns collected warnings and any fatal error.
// Modifies receiver in place to apply defaults.
func (c *AppConfig) Validate() (warnings []string, err error) {
	if err := checkStruct(c); err != nil {
		return nil, err
	}

	// BaseURL
	normalized, err := parse.NormalizeBaseURL(c.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: base_url: %w", utils.ErrConfigValidation, err)
	}
	c.BaseURL = normalized

	// StorePath
	if c.StorePath == "" {
		warnings = append(warnings, "store_path is empty, defaulting to './runtime/sitemap'")
		c.StorePath = "./runtime/sitemap"
	}

	// StateDir
	if c.StateDir == "" {
		warnings = append(warnings, "state_dir is empty, defaulting to './sitemap_state'")
		c.StateDir = "./sitemap_state"
	}

	// DivideCounts
	if c.DivideCounts < 0 {
		warnings = append(warnings, "divide_counts cannot be negative, disabling chunking")
		c.DivideCounts = 0
	}
	if c.ChunkTopLevel && c.DivideCounts == 0 {
		warnings = append(warnings, "chunk_top_level has no effect while divide_counts is 0")
	}

	// EscapeMode
	if !c.EscapeMode.IsValid() {
		return nil, fmt.Errorf("%w: escape_mode '%s' (expected %s or %s)",
			utils.ErrConfigValidation, c.EscapeMode, sitemap.EscapeStandard, sitemap.EscapeLegacy)
	}
	if c.EscapeMode == "" {
		c.EscapeMode = sitemap.EscapeStandard
	}

	// Timezone
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone '%s': %w", utils.ErrConfigValidation, c.Timezone, err)
	}
	c.location = loc

	// Workers
	if c.Workers < 0 {
		warnings = append(warnings, "workers cannot be negative, defaulting to 1")
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}

	// Entry defaults
	if c.DefaultChangeFreq == "" {
		c.DefaultChangeFreq = models.DefaultChangeFreq
	} else if !c.DefaultChangeFreq.IsValid() {
		return nil, fmt.Errorf("%w: default_change_freq '%s' is not a sitemaps.org value", utils.ErrConfigValidation, c.DefaultChangeFreq)
	}
	if c.DefaultPriority != nil && !validPriority(*c.DefaultPriority) {
		return nil, fmt.Errorf("%w: default_priority %v must be within [0, 1]", utils.ErrConfigValidation, *c.DefaultPriority)
	}

	// Sitemaps
	seen := make(map[string]bool, len(c.Sitemaps))
	for i := range c.Sitemaps {
		sm := &c.Sitemaps[i]
		smWarnings, err := sm.Validate()
		if err != nil {
			return nil, fmt.Errorf("sitemaps[%d] (%s): %w", i, sm.Postfix, err)
		}
		for _, w := range smWarnings {
			warnings = append(warnings, fmt.Sprintf("[%s] %s", sm.Postfix, w))
		}
		if seen[sm.Postfix] {
			return nil, fmt.Errorf("%w: duplicate sitemap postfix '%s'", utils.ErrConfigValidation, sm.Postfix)
		}
		seen[sm.Postfix] = true
	}

	return warnings, nil
}

func validPriority(p float64) bool {
	return p >= 0 && p <= 1
}

// Validate checks a sitemap definition.
// Returns collected warnings and any fatal error.
func (c *SitemapConfig) Validate() (warnings []string, err error) {
	if err := utils.ValidatePostfix(c.Postfix); err != nil {
		return nil, fmt.Errorf("%w: %w", utils.ErrConfigValidation, err)
	}

	if err := validateQuery("query", c.Query); err != nil {
		return nil, err
	}

	switch {
	case c.ChildQuery != nil && c.ChildLink == nil:
		return nil, fmt.Errorf("%w: child_query needs child_link", utils.ErrConfigValidation)
	case c.ChildQuery == nil && c.ChildLink != nil:
		return nil, fmt.Errorf("%w: child_link needs child_query", utils.ErrConfigValidation)
	case c.ChildQuery != nil:
		if err := validateQuery("child_query", *c.ChildQuery); err != nil {
			return nil, err
		}
		if err := checkStruct(c.ChildLink); err != nil {
			return nil, fmt.Errorf("child_link: %w", err)
		}
		if len(c.Query.Columns) > 0 && !containsColumn(c.Query.Columns, c.ChildLink.ParentAttribute) {
			warnings = append(warnings, fmt.Sprintf(
				"query columns do not select child_link.parent_attribute '%s'; child expansion will fail",
				c.ChildLink.ParentAttribute))
		}
		if len(c.Query.Columns) > 0 && !containsColumn(c.Query.Columns, sitemap.NameAttribute) {
			warnings = append(warnings, fmt.Sprintf(
				"query columns do not select '%s'; child sitemap naming will fail", sitemap.NameAttribute))
		}
	}

	if c.ChangeFreq != "" && !c.ChangeFreq.IsValid() {
		return nil, fmt.Errorf("%w: change_freq '%s' is not a sitemaps.org value", utils.ErrConfigValidation, c.ChangeFreq)
	}
	if c.Priority != nil && !validPriority(*c.Priority) {
		return nil, fmt.Errorf("%w: priority %v must be within [0, 1]", utils.ErrConfigValidation, *c.Priority)
	}

	return warnings, nil
}

func validateQuery(field string, q QueryConfig) error {
	if err := checkStruct(q); err != nil {
		return fmt.Errorf("%s: %w", field, err)
	}
	if _, err := urlresolve.Compile(q.Route); err != nil {
		return fmt.Errorf("%w: %s.route: %w", utils.ErrConfigValidation, field, err)
	}
	return nil
}

func containsColumn(columns []string, name string) bool {
	for _, c := range columns {
		if c == name || c == "*" {
			return true
		}
	}
	return false
}
