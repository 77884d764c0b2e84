// Package dataset loads the Pokédex source table and exposes read-only lookups over it.
// A Table is built once from pokemon.csv and never mutated afterwards; reloading the
// dataset means building a new Table.
package dataset

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Column names with a fixed meaning in the source table.
const (
	ColumnID         = "pokedex_number"
	ColumnName       = "name"
	ColumnType1      = "type1"
	ColumnType2      = "type2"
	ColumnAbilities  = "abilities"
	ColumnHeight     = "height_m"
	ColumnWeight     = "weight_kg"
	ColumnGeneration = "generation"
	ColumnLegendary  = "is_legendary"

	// AgainstPrefix marks the damage multiplier columns, one per attacking type.
	AgainstPrefix = "against_"
)

// Ability is one named capability of a creature. The third listed ability is the hidden one.
type Ability struct {
	Name   string
	Hidden bool
}

// Entity is one row of the source table.
type Entity struct {
	ID         int
	Name       string
	Type1      string
	Type2      string
	Abilities  []Ability
	HeightM    float64 // NaN when missing
	WeightKg   float64 // NaN when missing
	Generation int
	Legendary  bool

	// Values is aligned with Table.NumericColumns; NaN marks a missing cell.
	Values []float64

	// Against maps an attacking type to its damage multiplier against this creature.
	Against map[string]float64
}

// Types returns the creature's one or two types.
func (entity *Entity) Types() []string {
	if entity.Type2 == "" {
		return []string{entity.Type1}
	}
	return []string{entity.Type1, entity.Type2}
}

// Table is the immutable, loaded source table.
type Table struct {
	// Version identifies the dataset content (xxhash64 of the file bytes).
	Version string

	// NumericColumns lists every column whose non-empty cells all parse as numbers,
	// in header order.
	NumericColumns []string

	entities []Entity
	byID     map[int]int
	byName   map[string]int
	columns  map[string]int
}

// Len returns the number of entities.
func (table *Table) Len() int { return len(table.entities) }

// Entities returns the rows in source order. The slice must not be modified.
func (table *Table) Entities() []Entity { return table.entities }

// Names returns every creature name in source order.
func (table *Table) Names() []string {
	names := make([]string, len(table.entities))
	for i := range table.entities {
		names[i] = table.entities[i].Name
	}
	return names
}

// ByID returns the entity with the given pokedex number.
func (table *Table) ByID(id int) (*Entity, error) {
	index, ok := table.byID[id]
	if !ok {
		return nil, &NotFoundError{Key: strconv.Itoa(id)}
	}
	return &table.entities[index], nil
}

// ByName returns the entity with the given name. Matching is exact.
func (table *Table) ByName(name string) (*Entity, error) {
	index, ok := table.byName[name]
	if !ok {
		return nil, &NotFoundError{Key: name}
	}
	return &table.entities[index], nil
}

// Lookup resolves a key that is either a pokedex number or a name.
// Names are tried first so that a creature could never be shadowed by a numeric name.
func (table *Table) Lookup(key string) (*Entity, error) {
	if entity, err := table.ByName(key); err == nil {
		return entity, nil
	}
	if id, err := strconv.Atoi(strings.TrimSpace(key)); err == nil {
		return table.ByID(id)
	}
	return nil, &NotFoundError{Key: key}
}

// Value returns the entity's value for a numeric column, or NaN when the column is
// unknown or the cell is missing.
func (table *Table) Value(entity *Entity, column string) float64 {
	index, ok := table.columns[column]
	if !ok {
		return math.NaN()
	}
	return entity.Values[index]
}

// LoadTable reads a pokemon CSV file from disk.
func LoadTable(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading pokemon table: %w", err)
	}
	return ParseTable(bytes.NewReader(data), Fingerprint(data))
}

// Fingerprint returns the dataset version token for raw file content.
func Fingerprint(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}

// ParseTable parses a pokemon CSV stream. The version is stored as-is on the table.
func ParseTable(reader io.Reader, version string) (*Table, error) {
	csvReader := csv.NewReader(reader)
	records, err := csvReader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("CSV file is empty")
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	headerIndex := make(map[string]int, len(header))
	for i, name := range header {
		headerIndex[name] = i
	}
	for _, required := range []string{ColumnID, ColumnName, ColumnType1} {
		if _, ok := headerIndex[required]; !ok {
			return nil, fmt.Errorf("CSV missing %q column header", required)
		}
	}

	rows := records[1:]
	numericColumns := detectNumericColumns(header, rows)

	table := &Table{
		Version:        version,
		NumericColumns: numericColumns,
		entities:       make([]Entity, 0, len(rows)),
		byID:           make(map[int]int, len(rows)),
		byName:         make(map[string]int, len(rows)),
		columns:        make(map[string]int, len(numericColumns)),
	}
	for i, column := range numericColumns {
		table.columns[column] = i
	}

	for rowIndex, row := range rows {
		entity, err := parseEntity(header, headerIndex, numericColumns, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", rowIndex+2, err)
		}
		if _, dup := table.byID[entity.ID]; dup {
			return nil, fmt.Errorf("row %d: duplicate %s %d", rowIndex+2, ColumnID, entity.ID)
		}
		if _, dup := table.byName[entity.Name]; dup {
			return nil, fmt.Errorf("row %d: duplicate name %q", rowIndex+2, entity.Name)
		}
		table.byID[entity.ID] = len(table.entities)
		table.byName[entity.Name] = len(table.entities)
		table.entities = append(table.entities, entity)
	}

	// Identifiers must run 1..N without gaps.
	for id := 1; id <= len(table.entities); id++ {
		if _, ok := table.byID[id]; !ok {
			return nil, fmt.Errorf("%s values are not contiguous: %d is missing", ColumnID, id)
		}
	}

	return table, nil
}

// detectNumericColumns keeps the columns where every non-empty cell parses as a float
// and at least one cell is non-empty.
func detectNumericColumns(header []string, rows [][]string) []string {
	var numeric []string
	for columnIndex, name := range header {
		seen := false
		ok := true
		for _, row := range rows {
			if columnIndex >= len(row) {
				continue
			}
			cell := strings.TrimSpace(row[columnIndex])
			if cell == "" {
				continue
			}
			if _, err := strconv.ParseFloat(cell, 64); err != nil {
				ok = false
				break
			}
			seen = true
		}
		if ok && seen {
			numeric = append(numeric, name)
		}
	}
	return numeric
}

func parseEntity(header []string, headerIndex map[string]int, numericColumns []string, row []string) (Entity, error) {
	cell := func(column string) string {
		index, ok := headerIndex[column]
		if !ok || index >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[index])
	}

	id, err := strconv.Atoi(cell(ColumnID))
	if err != nil {
		return Entity{}, fmt.Errorf("parsing %s: %w", ColumnID, err)
	}
	name := cell(ColumnName)
	if name == "" {
		return Entity{}, fmt.Errorf("empty name for %s %d", ColumnID, id)
	}

	entity := Entity{
		ID:        id,
		Name:      name,
		Type1:     cell(ColumnType1),
		Type2:     cell(ColumnType2),
		Abilities: ParseAbilities(cell(ColumnAbilities)),
		HeightM:   parseOptionalFloat(cell(ColumnHeight)),
		WeightKg:  parseOptionalFloat(cell(ColumnWeight)),
		Values:    make([]float64, len(numericColumns)),
		Against:   make(map[string]float64),
	}
	if generation := parseOptionalFloat(cell(ColumnGeneration)); !math.IsNaN(generation) {
		entity.Generation = int(generation)
	}
	entity.Legendary = parseOptionalFloat(cell(ColumnLegendary)) == 1

	for i, column := range numericColumns {
		entity.Values[i] = parseOptionalFloat(cell(column))
	}
	for _, column := range header {
		if !strings.HasPrefix(column, AgainstPrefix) {
			continue
		}
		if multiplier := parseOptionalFloat(cell(column)); !math.IsNaN(multiplier) {
			entity.Against[strings.TrimPrefix(column, AgainstPrefix)] = multiplier
		}
	}

	return entity, nil
}

func parseOptionalFloat(cell string) float64 {
	if cell == "" {
		return math.NaN()
	}
	value, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return value
}

// ParseAbilities decodes the bracketed, quoted list used by the source table,
// e.g. "['Overgrow', 'Chlorophyll']". A third entry is flagged as the hidden ability.
func ParseAbilities(raw string) []Ability {
	trimmed := strings.TrimSpace(raw)
	trimmed = strings.TrimPrefix(trimmed, "[")
	trimmed = strings.TrimSuffix(trimmed, "]")
	if strings.TrimSpace(trimmed) == "" {
		return nil
	}

	var abilities []Ability
	for _, part := range strings.Split(trimmed, ",") {
		name := strings.Trim(strings.TrimSpace(part), `'"`)
		if name == "" {
			continue
		}
		abilities = append(abilities, Ability{Name: name})
	}
	if len(abilities) > 2 {
		abilities[2].Hidden = true
	}
	return abilities
}
