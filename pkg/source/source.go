package source

import (
	"context"
	"fmt"
	"sync"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/urlresolve"
)

// RecordSource fetches every record matching a query
type RecordSource interface {
	Fetch(ctx context.Context, q Query) ([]models.Record, error)
}

// Closer is implemented by sources holding a connection or file handle
type Closer interface {
	Close() error
}

// routeCache compiles each distinct route pattern once per source
type routeCache struct {
	mu     sync.Mutex
	routes map[string]*urlresolve.Route
}

func (c *routeCache) get(pattern string) (*urlresolve.Route, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.routes[pattern]; ok {
		return r, nil
	}
	r, err := urlresolve.Compile(pattern)
	if err != nil {
		return nil, err
	}
	if c.routes == nil {
		c.routes = make(map[string]*urlresolve.Route)
	}
	c.routes[pattern] = r
	return r, nil
}

// Open creates the record source for a configured driver.
// "sqlite" and "pgx" open a database/sql pool on dsn; "yaml" loads dsn as a fixture file.
func Open(driver, dsn string) (RecordSource, error) {
	switch driver {
	case DriverSQLite, DriverPostgres:
		src, err := OpenSQL(driver, dsn)
		if err != nil {
			return nil, err
		}
		return src, nil
	case DriverYAML:
		src, err := LoadYAMLSource(dsn)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("unknown record source driver '%s' (supported: %s, %s, %s)", driver, DriverSQLite, DriverPostgres, DriverYAML)
	}
}
