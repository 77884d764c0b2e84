package tui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Pabloo22/pokedex-dashboard/assets"
	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/Pabloo22/pokedex-dashboard/pokedex"
	"github.com/Pabloo22/pokedex-dashboard/projection"
)

func newTestModel(t *testing.T) Model {
	t.Helper()
	service, err := pokedex.New(pokedex.Options{
		PokemonPath:    filepath.Join("..", "testdata", "pokemon.csv"),
		EvolutionsPath: filepath.Join("..", "testdata", "evolutions.csv"),
		Projection:     projection.DefaultConfig(),
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)
	return NewModel(Options{Service: service, Assets: assets.NewStore(t.TempDir()), Version: "test", Logger: zerolog.Nop()})
}

// run executes cmd synchronously and feeds its message back into the model.
func run(t *testing.T, m Model, cmd tea.Cmd) Model {
	t.Helper()
	require.NotNil(t, cmd)
	updated, next := m.Update(cmd())
	m = updated.(Model)
	if next != nil {
		if _, ok := next().(rankingLoaded); ok {
			return run(t, m, next)
		}
	}
	return m
}

func press(m Model, keys ...tea.KeyMsg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	for _, key := range keys {
		var updated tea.Model
		updated, cmd = m.Update(key)
		m = updated.(Model)
	}
	return m, cmd
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func loadedModel(t *testing.T) Model {
	t.Helper()
	m := newTestModel(t)
	return run(t, m, m.loadEmbedding())
}

func TestModel_LoadSelectsFirstAndRanks(t *testing.T) {
	m := loadedModel(t)

	assert.False(t, m.loading)
	require.NoError(t, m.err)
	require.Len(t, m.embedding.Points, 12)
	assert.Equal(t, 0, m.selectedIndex)
	assert.True(t, m.rankingCurrent())
	assert.Equal(t, 1, m.ranked[0].ID)
	assert.Len(t, m.neighborIDs(), neighborCount)
	assert.NotContains(t, m.neighborIDs(), 1)
}

func TestModel_MoveSelectionWraps(t *testing.T) {
	m := loadedModel(t)

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyUp})
	assert.Equal(t, 11, m.selectedIndex)
	assert.False(t, m.rankingCurrent())

	m = run(t, m, cmd)
	assert.True(t, m.rankingCurrent())
	assert.Equal(t, m.embedding.Points[11].ID, m.ranked[0].ID)

	m, _ = press(m, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, m.selectedIndex)
}

func TestModel_StaleRankingIgnored(t *testing.T) {
	m := loadedModel(t)

	updated, _ := m.Update(rankingLoaded{id: 9, ranked: m.ranked})
	m = updated.(Model)
	assert.Equal(t, 1, m.rankedID)
}

func TestModel_SearchByPrefix(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(m, runes("/"))
	assert.Equal(t, modeSearch, m.inputMode)

	m, _ = press(m, runes("c"), runes("h"), runes("a"), runes("r"), runes("x"), tea.KeyMsg{Type: tea.KeyBackspace}, runes("m"))
	assert.Equal(t, "charm", m.input)

	m, cmd := press(m, tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, modeNormal, m.inputMode)
	assert.Equal(t, "Charmander", m.embedding.Points[m.selectedIndex].Name)
	assert.NotNil(t, cmd)
}

func TestModel_SearchByNumber(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(m, runes("/"), runes("6"), tea.KeyMsg{Type: tea.KeyEnter})
	assert.Equal(t, "Charizard", m.embedding.Points[m.selectedIndex].Name)
}

func TestModel_SearchUnknown(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(m, runes("/"), runes("mew"), tea.KeyMsg{Type: tea.KeyEnter})
	var notFound *dataset.NotFoundError
	assert.ErrorAs(t, m.err, &notFound)
	assert.Equal(t, 0, m.selectedIndex)
}

func TestModel_SearchEscCancels(t *testing.T) {
	m := loadedModel(t)

	m, cmd := press(m, runes("/"), runes("abc"), tea.KeyMsg{Type: tea.KeyEsc})
	assert.Equal(t, modeNormal, m.inputMode)
	assert.Empty(t, m.input)
	assert.Nil(t, cmd)
}

func TestModel_Toggles(t *testing.T) {
	m := loadedModel(t)

	m, _ = press(m, runes("c"), runes("f"), runes("s"), runes("i"))
	assert.True(t, m.popOut)
	assert.True(t, m.focusMode)
	assert.True(t, m.substring)
	assert.False(t, m.showDetails)

	m, _ = press(m, runes("3"))
	assert.Equal(t, tabSimilar, m.activeTab)
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tabEvolution, m.activeTab)
	m, _ = press(m, tea.KeyMsg{Type: tea.KeyTab})
	assert.Equal(t, tabMap, m.activeTab)
}

func TestModel_SwitchProjectionKeepsSelection(t *testing.T) {
	m := loadedModel(t)
	m, _ = press(m, runes("/"), runes("Squirtle"), tea.KeyMsg{Type: tea.KeyEnter})

	m, cmd := press(m, runes("p"))
	assert.Equal(t, projection.MethodPCA, m.projection.Method)
	assert.True(t, m.loading)

	m = run(t, m, cmd)
	assert.Equal(t, projection.MethodPCA, m.embedding.Config.Method)
	assert.Equal(t, "Squirtle", m.embedding.Points[m.selectedIndex].Name)
}

func TestModel_QuitKeys(t *testing.T) {
	m := loadedModel(t)

	_, cmd := press(m, tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestModel_ReloadUnchanged(t *testing.T) {
	m := loadedModel(t)

	_, cmd := press(m, runes("r"))
	require.NotNil(t, cmd)
	msg := cmd()
	assert.Equal(t, datasetReloaded{}, msg)

	updated, next := m.Update(msg)
	assert.Nil(t, next)
	assert.False(t, updated.(Model).loading)
}

func TestModel_VersionTickRecomputesStaleMap(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"pokemon.csv", "evolutions.csv"} {
		data, err := os.ReadFile(filepath.Join("..", "testdata", name))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
	}
	service, err := pokedex.New(pokedex.Options{
		PokemonPath:    filepath.Join(dir, "pokemon.csv"),
		EvolutionsPath: filepath.Join(dir, "evolutions.csv"),
		Projection:     projection.DefaultConfig(),
		Logger:         zerolog.Nop(),
	})
	require.NoError(t, err)
	m := NewModel(Options{Service: service, Logger: zerolog.Nop()})
	m = run(t, m, m.loadEmbedding())

	updated, _ := m.Update(versionTick{})
	assert.False(t, updated.(Model).loading)

	path := filepath.Join(dir, "pokemon.csv")
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, []byte(strings.Replace(string(data), ",Bulbasaur,88.1,", ",Bulbasaur,88.2,", 1)), 0o644))
	_, changed, err := service.Reload(t.Context())
	require.NoError(t, err)
	require.True(t, changed)

	updated, cmd := m.Update(versionTick{})
	m = updated.(Model)
	assert.True(t, m.loading)
	require.NotNil(t, cmd)
}

func TestView_Tabs(t *testing.T) {
	m := loadedModel(t)
	m.width, m.height = 120, 40

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "pokédex")
	assert.Contains(t, view, "#001 Bulbasaur")
	assert.Contains(t, view, "test")

	m, _ = press(m, runes("2"))
	view = ansi.Strip(m.View())
	assert.Contains(t, view, "Base stats")
	assert.Contains(t, view, "Overgrow")
	assert.Contains(t, view, assets.Placeholder)

	m, _ = press(m, runes("3"))
	view = ansi.Strip(m.View())
	assert.Contains(t, view, "Most similar to Bulbasaur")

	m, _ = press(m, runes("4"))
	view = ansi.Strip(m.View())
	assert.Contains(t, view, "Ivysaur")
	assert.Contains(t, view, "Venusaur")
}

func TestView_PopOutLegend(t *testing.T) {
	m := loadedModel(t)
	m.width, m.height = 120, 40
	m.showDetails = false
	m, _ = press(m, runes("c"))

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "Not Bulbasaur")
}

func TestView_SearchOverlay(t *testing.T) {
	m := loadedModel(t)
	m.width, m.height = 120, 40
	m, _ = press(m, runes("/"), runes("pika"))

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "pika")
	assert.Contains(t, view, "Enter: jump")
}

func TestView_BeforeLoad(t *testing.T) {
	m := newTestModel(t)

	view := ansi.Strip(m.View())
	assert.Contains(t, view, "Computing embedding")
	assert.Contains(t, view, "computing…")
}

func TestGridPosition(t *testing.T) {
	col, row := gridPosition(0, 0, 11, 5)
	assert.Equal(t, 0, col)
	assert.Equal(t, 4, row)

	col, row = gridPosition(1, 1, 11, 5)
	assert.Equal(t, 10, col)
	assert.Equal(t, 0, row)

	col, row = gridPosition(0.5, 0.5, 11, 5)
	assert.Equal(t, 5, col)
	assert.Equal(t, 2, row)
}

func TestDrawLineOnCanvas(t *testing.T) {
	grid := newCanvasGrid(5, 3)
	grid[0][0] = canvasCell{char: 'A', style: lipgloss.NewStyle()}

	drawLineOnCanvas(grid, 0, 0, 4, 2, lipgloss.NewStyle())

	assert.Equal(t, 'A', grid[0][0].char)
	assert.Equal(t, '·', grid[2][4].char)
	assert.Equal(t, '·', grid[1][2].char)
}

func TestOverlayAt(t *testing.T) {
	base := "aaaaa\nbbbbb\nccccc"

	assert.Equal(t, "aaaaa\nbXYbb\nccccc", overlayAt(base, "XY", 1, 1))
	assert.Equal(t, "aaaaa\nbbbbb\ncccXY", overlayAt(base, "XY", 10, 10))
}

func TestClipLines(t *testing.T) {
	assert.Equal(t, "abc\ndef", clipLines("abcdef\ndefghi\nxyz", 3, 2))
}
