// Package tui is the terminal dashboard: a type-colored map of the embedding with
// detail, similarity and evolution views of the selected creature.
package tui

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog"

	"github.com/Pabloo22/pokedex-dashboard/assets"
	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/Pabloo22/pokedex-dashboard/pokedex"
	"github.com/Pabloo22/pokedex-dashboard/projection"
	"github.com/Pabloo22/pokedex-dashboard/similarity"
)

// versionCheckInterval is how often the model looks for a newer dataset snapshot.
const versionCheckInterval = 2 * time.Second

// Options configures a Model.
type Options struct {
	Service *pokedex.Service
	Assets  *assets.Store
	Version string
	Logger  zerolog.Logger
}

// Model represents the dashboard state.
type Model struct {
	service *pokedex.Service
	assets  *assets.Store
	logger  zerolog.Logger
	version string

	width, height int
	activeTab     viewTab
	inputMode     inputMode
	input         string

	projection projection.Config
	embedding  *projection.Embedding
	ranked     []similarity.Ranked
	rankedID   int

	selectedIndex int
	showDetails   bool
	showLabels    bool
	popOut        bool
	focusMode     bool
	substring     bool
	loading       bool
	err           error
}

// embeddingLoaded is returned after the map has been (re)computed.
type embeddingLoaded struct {
	embedding *projection.Embedding
	err       error
}

// rankingLoaded is returned after the selection has been ranked against all creatures.
type rankingLoaded struct {
	id     int
	ranked []similarity.Ranked
	err    error
}

// datasetReloaded is returned after an explicit reload of the source files.
type datasetReloaded struct {
	changed bool
	err     error
}

// versionTick triggers a check for a dataset newer than the current map.
type versionTick struct{}

// NewModel creates a Model showing the service's default projection.
func NewModel(opts Options) Model {
	return Model{
		service:       opts.Service,
		assets:        opts.Assets,
		logger:        opts.Logger,
		version:       opts.Version,
		width:         80,
		height:        24,
		projection:    opts.Service.DefaultProjection(),
		selectedIndex: -1,
		showDetails:   true,
		loading:       true,
	}
}

// Init computes the first map and starts watching for dataset changes.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.loadEmbedding(), scheduleVersionCheck())
}

func scheduleVersionCheck() tea.Cmd {
	return tea.Tick(versionCheckInterval, func(time.Time) tea.Msg { return versionTick{} })
}

// loadEmbedding computes the map for the current projection settings.
func (m Model) loadEmbedding() tea.Cmd {
	service := m.service
	config := m.projection
	return func() tea.Msg {
		embedding, err := service.Embedding(context.Background(), config)
		return embeddingLoaded{embedding: embedding, err: err}
	}
}

// rankSelection ranks every creature by similarity to the selected one.
func (m Model) rankSelection() tea.Cmd {
	if !m.hasSelection() {
		return nil
	}
	service := m.service
	config := m.projection
	id := m.embedding.Points[m.selectedIndex].ID
	return func() tea.Msg {
		ranked, err := service.SimilarWith(context.Background(), strconv.Itoa(id), similarity.Continuous, config)
		return rankingLoaded{id: id, ranked: ranked, err: err}
	}
}

// reloadDataset re-reads the source files.
func (m Model) reloadDataset() tea.Cmd {
	service := m.service
	return func() tea.Msg {
		_, changed, err := service.Reload(context.Background())
		return datasetReloaded{changed: changed, err: err}
	}
}

// Update handles all incoming messages and updates the model state accordingly.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch message := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(message)

	case tea.WindowSizeMsg:
		m.width = message.Width
		m.height = message.Height

	case embeddingLoaded:
		return m.handleEmbeddingLoaded(message)

	case rankingLoaded:
		return m.handleRankingLoaded(message)

	case datasetReloaded:
		if message.err != nil {
			m.err = message.err
			return m, nil
		}
		m.err = nil
		if message.changed {
			m.loading = true
			return m, m.loadEmbedding()
		}

	case versionTick:
		cmd := scheduleVersionCheck()
		if m.isStale() && !m.loading {
			m.logger.Debug().Str("version", m.service.Snapshot().Version).Msg("dataset changed, recomputing map")
			m.loading = true
			return m, tea.Batch(cmd, m.loadEmbedding())
		}
		return m, cmd
	}

	return m, nil
}

// isStale reports whether the map was computed from an older dataset than the service holds.
func (m Model) isStale() bool {
	return m.embedding != nil && m.embedding.Version != m.service.Snapshot().Version
}

func (m Model) handleEmbeddingLoaded(result embeddingLoaded) (tea.Model, tea.Cmd) {
	m.loading = false
	if result.err != nil {
		m.err = result.err
		m.logger.Error().Err(result.err).Msg("computing embedding")
		return m, nil
	}
	m.err = nil

	// Keep the same creature selected across recomputations.
	previous := -1
	if m.hasSelection() {
		previous = m.embedding.Points[m.selectedIndex].ID
	}
	m.embedding = result.embedding
	m.ranked = nil
	m.selectedIndex = m.indexOf(previous)
	if m.selectedIndex < 0 && len(m.embedding.Points) > 0 {
		m.selectedIndex = 0
	}
	return m, m.rankSelection()
}

func (m Model) handleRankingLoaded(result rankingLoaded) (tea.Model, tea.Cmd) {
	if !m.hasSelection() || m.embedding.Points[m.selectedIndex].ID != result.id {
		return m, nil
	}
	if result.err != nil {
		m.err = result.err
		return m, nil
	}
	m.ranked = result.ranked
	m.rankedID = result.id
	return m, nil
}

// handleKeyPress processes keyboard input and returns the updated model and any commands.
func (m Model) handleKeyPress(keyMessage tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode == modeSearch {
		return m.handleSearchKey(keyMessage)
	}

	switch keyMessage.String() {
	case "ctrl+c", "esc", "q":
		return m, tea.Quit

	case "up", "k":
		return m.moveSelection(-1)

	case "down", "j":
		return m.moveSelection(1)

	case "tab":
		m.activeTab = (m.activeTab + 1) % viewTab(len(tabNames))

	case "shift+tab":
		m.activeTab = (m.activeTab + viewTab(len(tabNames)) - 1) % viewTab(len(tabNames))

	case "1", "2", "3", "4":
		m.activeTab = tabNames[keyMessage.String()[0]-'1'].tab

	case "/":
		m.inputMode = modeSearch
		m.input = ""

	case "i", "I":
		m.showDetails = !m.showDetails

	case "l", "L":
		m.showLabels = !m.showLabels

	case "c", "C":
		m.popOut = !m.popOut

	case "f", "F":
		m.focusMode = !m.focusMode

	case "s", "S":
		m.substring = !m.substring

	case "p", "P":
		if m.projection.Method == projection.MethodPCA {
			m.projection.Method = projection.MethodUMAP
		} else {
			m.projection.Method = projection.MethodPCA
		}
		m.loading = true
		return m, m.loadEmbedding()

	case "r", "R":
		return m, m.reloadDataset()
	}

	return m, nil
}

func (m Model) handleSearchKey(keyMessage tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch keyMessage.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyEsc:
		m.inputMode = modeNormal
		m.input = ""

	case tea.KeyEnter:
		query := strings.TrimSpace(m.input)
		m.inputMode = modeNormal
		m.input = ""
		if query == "" {
			return m, nil
		}
		index, err := m.search(query)
		if err != nil {
			m.err = err
			return m, nil
		}
		m.err = nil
		return m.selectIndex(index)

	case tea.KeyBackspace:
		if runes := []rune(m.input); len(runes) > 0 {
			m.input = string(runes[:len(runes)-1])
		}

	case tea.KeyRunes, tea.KeySpace:
		m.input += string(keyMessage.Runes)
	}
	return m, nil
}

// search finds a creature by pokedex number or exact name, then by case-insensitive
// name prefix.
func (m Model) search(query string) (int, error) {
	if m.embedding == nil {
		return -1, errors.New("map not ready")
	}
	if entity, err := m.service.Lookup(query); err == nil {
		if index := m.indexOf(entity.ID); index >= 0 {
			return index, nil
		}
	}
	lowered := strings.ToLower(query)
	for i, p := range m.embedding.Points {
		if strings.HasPrefix(strings.ToLower(p.Name), lowered) {
			return i, nil
		}
	}
	return -1, &dataset.NotFoundError{Key: query}
}

func (m Model) moveSelection(delta int) (tea.Model, tea.Cmd) {
	if m.embedding == nil || len(m.embedding.Points) == 0 {
		return m, nil
	}
	n := len(m.embedding.Points)
	return m.selectIndex(((m.selectedIndex+delta)%n + n) % n)
}

func (m Model) selectIndex(index int) (tea.Model, tea.Cmd) {
	if index == m.selectedIndex && m.rankingCurrent() {
		return m, nil
	}
	m.selectedIndex = index
	return m, m.rankSelection()
}

func (m Model) indexOf(id int) int {
	if m.embedding == nil {
		return -1
	}
	for i, p := range m.embedding.Points {
		if p.ID == id {
			return i
		}
	}
	return -1
}

func (m Model) hasSelection() bool {
	return m.embedding != nil && m.selectedIndex >= 0 && m.selectedIndex < len(m.embedding.Points)
}

// rankingCurrent reports whether m.ranked belongs to the selected creature.
func (m Model) rankingCurrent() bool {
	return m.hasSelection() && len(m.ranked) > 0 && m.rankedID == m.embedding.Points[m.selectedIndex].ID
}

// selectedEntity returns the table row of the selected creature.
func (m Model) selectedEntity() (*dataset.Entity, error) {
	if !m.hasSelection() {
		return nil, errors.New("nothing selected")
	}
	return m.service.Snapshot().Table.ByID(m.embedding.Points[m.selectedIndex].ID)
}

// View renders the complete UI as a string.
func (m Model) View() string {
	s := newStyles()
	layout := m.calculateLayout()

	var sections []string
	sections = append(sections, m.renderTabBar(s, layout.totalWidth))
	sections = append(sections, m.renderContentArea(s, layout))
	if errLine := m.renderError(s); errLine != "" {
		sections = append(sections, errLine)
	}
	sections = append(sections, m.renderStatusBar(s, layout.totalWidth))

	return lipgloss.NewStyle().Margin(1, 1).Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}
