package source

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"github.com/Sriram-PR/sitemap-gen/pkg/models"
	"github.com/Sriram-PR/sitemap-gen/pkg/utils"
)

// yamlFile is the on-disk layout of a fixture file:
//
//	tables:
//	  categories:
//	    - {id: 1, name: "Category A", updated_at: 1700000000}
type yamlFile struct {
	Tables map[string][]map[string]any `yaml:"tables"`
}

// YAMLSource implements RecordSource over tables held in memory,
// loaded from a YAML fixture file or built directly.
type YAMLSource struct {
	tables map[string][]map[string]any
	routes routeCache
}

// NewYAMLSource creates a source over in-memory tables
func NewYAMLSource(tables map[string][]map[string]any) *YAMLSource {
	if tables == nil {
		tables = map[string][]map[string]any{}
	}
	return &YAMLSource{tables: tables}
}

// LoadYAMLSource reads a fixture file
func LoadYAMLSource(path string) (*YAMLSource, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: read records file: %w", utils.ErrFilesystem, err)
	}
	var f yamlFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: YAML records file %s: %w", utils.ErrParsing, path, err)
	}
	return NewYAMLSource(f.Tables), nil
}

// Fetch implements RecordSource
func (s *YAMLSource) Fetch(ctx context.Context, q Query) ([]models.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	route, err := s.routes.get(q.Route)
	if err != nil {
		return nil, err
	}
	rows, ok := s.tables[q.Table]
	if !ok {
		return nil, fmt.Errorf("%w: table '%s' not found in records file", utils.ErrDatabase, q.Table)
	}

	matched := make([]map[string]any, 0, len(rows))
	for _, row := range rows {
		if q.Matches(row) {
			matched = append(matched, project(row, q.Columns))
		}
	}
	sortRows(matched, q.OrderBy)

	records := make([]models.Record, 0, len(matched))
	for _, attrs := range matched {
		records = append(records, NewRow(attrs, route))
	}
	return records, nil
}

// project copies row, keeping only columns when any are listed
func project(row map[string]any, columns []string) map[string]any {
	if len(columns) == 0 || (len(columns) == 1 && columns[0] == "*") {
		out := make(map[string]any, len(row))
		for k, v := range row {
			out[k] = v
		}
		return out
	}
	out := make(map[string]any, len(columns))
	for _, c := range columns {
		if v, ok := row[c]; ok {
			out[c] = v
		}
	}
	return out
}

// sortRows applies "column [ASC|DESC]" clauses with a stable sort
func sortRows(rows []map[string]any, orderBy []string) {
	if len(orderBy) == 0 {
		return
	}
	type clause struct {
		column string
		desc   bool
	}
	clauses := make([]clause, 0, len(orderBy))
	for _, o := range orderBy {
		fields := strings.Fields(o)
		if len(fields) == 0 {
			continue
		}
		clauses = append(clauses, clause{
			column: fields[0],
			desc:   len(fields) > 1 && strings.EqualFold(fields[1], "desc"),
		})
	}

	sort.SliceStable(rows, func(i, j int) bool {
		for _, c := range clauses {
			cmp := compareValues(rows[i][c.column], rows[j][c.column])
			if cmp == 0 {
				continue
			}
			if c.desc {
				return cmp > 0
			}
			return cmp < 0
		}
		return false
	})
}

func compareValues(a, b any) int {
	fa, errA := cast.ToFloat64E(a)
	fb, errB := cast.ToFloat64E(b)
	if errA == nil && errB == nil {
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	}
	return strings.Compare(cast.ToString(a), cast.ToString(b))
}
