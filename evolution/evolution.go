// Package evolution groups the evolution table into families and resolves a creature's
// evolution line.
//
// The source table has three columns (base form, first stage, second stage). A cell may
// list several space-separated names, and a row with an empty base cell continues the
// family above it. Build turns those rows into explicit Family values once; stage cells
// are never filled forward from earlier rows.
package evolution

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Pabloo22/pokedex-dashboard/dataset"
)

// Family is one evolution family: a base form and the names reachable from it.
type Family struct {
	Base   string
	First  []string
	Second []string
}

// Names returns every name in the family, base first.
func (f Family) Names() []string {
	names := make([]string, 0, 1+len(f.First)+len(f.Second))
	names = append(names, f.Base)
	names = append(names, f.First...)
	return append(names, f.Second...)
}

// Table is the grouped evolution table. It is never modified after Build.
type Table struct {
	Families []Family
}

// Load reads the evolution CSV at path. knownNames are the creature names of the
// pokemon table, used to re-join multi-word names split by the space separator.
func Load(path string, knownNames []string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading evolution table: %w", err)
	}
	return Parse(bytes.NewReader(data), knownNames)
}

// Parse reads a three-column evolution CSV with a header row.
func Parse(reader io.Reader, knownNames []string) (*Table, error) {
	csvReader := csv.NewReader(reader)
	csvReader.FieldsPerRecord = 3
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading evolution CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("evolution CSV is empty")
	}

	rows := make([][3]string, 0, len(records)-1)
	for _, record := range records[1:] {
		rows = append(rows, [3]string{record[0], record[1], record[2]})
	}
	return Build(rows, knownNames)
}

// Build groups raw rows into families.
//
// A non-empty base cell starts a new family, unless it names the base of the family
// directly above, in which case the row extends that family. A row with an empty base
// cell extends the family above it. Names repeated within a family are kept once.
func Build(rows [][3]string, knownNames []string) (*Table, error) {
	known := make(map[string]bool, len(knownNames))
	for _, name := range knownNames {
		known[name] = true
	}

	table := &Table{}
	for rowIndex, row := range rows {
		bases := splitNames(row[0], known)
		first := splitNames(row[1], known)
		second := splitNames(row[2], known)

		if len(bases) == 0 {
			if len(first) == 0 && len(second) == 0 {
				continue
			}
			if len(table.Families) == 0 {
				return nil, fmt.Errorf("row %d: stages without a base form", rowIndex+2)
			}
			table.Families[len(table.Families)-1].add(first, second)
			continue
		}

		for _, base := range bases {
			if last := len(table.Families) - 1; last >= 0 && table.Families[last].Base == base {
				table.Families[last].add(first, second)
				continue
			}
			family := Family{Base: base}
			family.add(first, second)
			table.Families = append(table.Families, family)
		}
	}
	return table, nil
}

func (f *Family) add(first, second []string) {
	f.First = appendUnique(f.First, first...)
	f.Second = appendUnique(f.Second, second...)
}

func appendUnique(list []string, names ...string) []string {
	for _, name := range names {
		if !contains(list, name) {
			list = append(list, name)
		}
	}
	return list
}

func contains(list []string, name string) bool {
	for _, existing := range list {
		if existing == name {
			return true
		}
	}
	return false
}

// splitNames explodes a cell on whitespace. Consecutive tokens that together form a
// known name ("Mr. Mime") are joined back, longest match first.
func splitNames(cell string, known map[string]bool) []string {
	tokens := strings.Fields(cell)
	var names []string
	for i := 0; i < len(tokens); {
		end := i + 1
		for j := len(tokens); j > i+1; j-- {
			if known[strings.Join(tokens[i:j], " ")] {
				end = j
				break
			}
		}
		names = append(names, strings.Join(tokens[i:end], " "))
		i = end
	}
	return names
}

// Line is a creature's evolution line.
type Line struct {
	Base   string
	First  []string
	Second []string

	// Ambiguous is set when the name matched families with different base forms.
	// Base then holds the first of them.
	Ambiguous bool
}

type resolveOptions struct {
	substring bool
}

// Option changes how Resolve matches names.
type Option func(*resolveOptions)

// Substring matches any name that contains the query, so "Mew" also matches "Mewtwo".
// The default is exact name matching.
func Substring() Option {
	return func(o *resolveOptions) { o.substring = true }
}

// Resolve returns the union of every family containing name. Stage lists keep the order
// in which names first appear. A creature without further evolutions yields empty
// stage lists. A name found in no family is reported as *dataset.NotFoundError.
func Resolve(table *Table, name string, opts ...Option) (Line, error) {
	var options resolveOptions
	for _, opt := range opts {
		opt(&options)
	}

	query := strings.TrimSpace(name)
	if query == "" {
		return Line{}, &dataset.NotFoundError{Key: name}
	}
	matches := func(candidate string) bool {
		if options.substring {
			return strings.Contains(candidate, query)
		}
		return candidate == query
	}

	var line Line
	found := false
	for _, family := range table.Families {
		matched := false
		for _, candidate := range family.Names() {
			if matches(candidate) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}

		if !found {
			line.Base = family.Base
			found = true
		} else if family.Base != line.Base {
			line.Ambiguous = true
		}
		line.First = appendUnique(line.First, family.First...)
		line.Second = appendUnique(line.Second, family.Second...)
	}

	if !found {
		return Line{}, &dataset.NotFoundError{Key: name}
	}
	return line, nil
}
