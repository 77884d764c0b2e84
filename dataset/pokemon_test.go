package dataset

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fixturePath = "../testdata/pokemon.csv"

func loadFixture(t *testing.T) *Table {
	t.Helper()
	table, err := LoadTable(fixturePath)
	require.NoError(t, err)
	return table
}

func TestLoadTable_Fixture(t *testing.T) {
	table := loadFixture(t)

	assert.Equal(t, 12, table.Len())
	assert.NotEmpty(t, table.Version)

	bulbasaur, err := table.ByID(1)
	require.NoError(t, err)
	assert.Equal(t, "Bulbasaur", bulbasaur.Name)
	assert.Equal(t, []string{"grass", "poison"}, bulbasaur.Types())
	assert.InDelta(t, 0.7, bulbasaur.HeightM, 1e-9)
	assert.InDelta(t, 45, table.Value(bulbasaur, "hp"), 1e-9)

	charmander, err := table.ByName("Charmander")
	require.NoError(t, err)
	assert.Equal(t, 4, charmander.ID)
	assert.Equal(t, []string{"fire"}, charmander.Types())
}

func TestLoadTable_NumericColumnDetection(t *testing.T) {
	table := loadFixture(t)

	assert.Contains(t, table.NumericColumns, "hp")
	assert.Contains(t, table.NumericColumns, "against_fire")
	assert.Contains(t, table.NumericColumns, "base_happiness")
	// One capture_rate cell is not a number, so the whole column is text.
	assert.NotContains(t, table.NumericColumns, "capture_rate")
	assert.NotContains(t, table.NumericColumns, "name")
	assert.NotContains(t, table.NumericColumns, "abilities")

	caterpie, err := table.ByName("Caterpie")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(table.Value(caterpie, "base_happiness")))

	metapod, err := table.ByName("Metapod")
	require.NoError(t, err)
	assert.True(t, math.IsNaN(metapod.HeightM))
}

func TestTable_Lookup(t *testing.T) {
	table := loadFixture(t)

	byName, err := table.Lookup("Squirtle")
	require.NoError(t, err)
	byID, err := table.Lookup("7")
	require.NoError(t, err)
	assert.Same(t, byName, byID)

	_, err = table.Lookup("Pikachu")
	var notFound *NotFoundError
	require.True(t, errors.As(err, &notFound))
	assert.Equal(t, "Pikachu", notFound.Key)

	_, err = table.ByID(999)
	assert.True(t, errors.As(err, &notFound))
}

func TestParseTable_Validation(t *testing.T) {
	tests := []struct {
		name    string
		csv     string
		wantErr string
	}{
		{
			name:    "empty",
			csv:     "",
			wantErr: "empty",
		},
		{
			name:    "missing id column",
			csv:     "name,type1\nBulbasaur,grass\n",
			wantErr: "pokedex_number",
		},
		{
			name:    "duplicate name",
			csv:     "pokedex_number,name,type1\n1,Bulbasaur,grass\n2,Bulbasaur,grass\n",
			wantErr: "duplicate name",
		},
		{
			name:    "duplicate id",
			csv:     "pokedex_number,name,type1\n1,Bulbasaur,grass\n1,Ivysaur,grass\n",
			wantErr: "duplicate pokedex_number",
		},
		{
			name:    "gap in ids",
			csv:     "pokedex_number,name,type1\n1,Bulbasaur,grass\n3,Venusaur,grass\n",
			wantErr: "not contiguous",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ParseTable(strings.NewReader(tc.csv), "test")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestParseAbilities(t *testing.T) {
	tests := []struct {
		raw  string
		want []Ability
	}{
		{"", nil},
		{"[]", nil},
		{"['Shed Skin']", []Ability{{Name: "Shed Skin"}}},
		{"['Overgrow', 'Chlorophyll']", []Ability{{Name: "Overgrow"}, {Name: "Chlorophyll"}}},
		{
			"['Compound Eyes', 'Tinted Lens', 'Run Away']",
			[]Ability{{Name: "Compound Eyes"}, {Name: "Tinted Lens"}, {Name: "Run Away", Hidden: true}},
		},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.want, ParseAbilities(tc.raw), "raw=%q", tc.raw)
	}
}

func TestFingerprint_ChangesWithContent(t *testing.T) {
	a := Fingerprint([]byte("a,b\n1,2\n"))
	b := Fingerprint([]byte("a,b\n1,3\n"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Fingerprint([]byte("a,b\n1,2\n")))
}

func TestDefensesOf(t *testing.T) {
	table := loadFixture(t)

	charizard, err := table.ByName("Charizard")
	require.NoError(t, err)
	defenses := DefensesOf(charizard)

	assert.Equal(t, []string{"electric", "water"}, defenses.Weak2)
	assert.Equal(t, []string{"grass"}, defenses.Resist4)
	assert.Equal(t, []string{"fire"}, defenses.Resist2)
	assert.Equal(t, []string{"ground"}, defenses.Immune)
	assert.Empty(t, defenses.Weak4)
}

func TestBaseStats(t *testing.T) {
	table := loadFixture(t)

	venusaur, err := table.ByName("Venusaur")
	require.NoError(t, err)
	stats := table.BaseStats(venusaur)

	require.Len(t, stats, 6)
	assert.Equal(t, "HP", stats[0].Label)
	assert.Equal(t, 80.0, stats[0].Value)
	assert.Equal(t, "Speed", stats[5].Label)
	assert.Equal(t, 80.0, stats[5].Value)
}
