package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/Pabloo22/pokedex-dashboard/projection"
)

const (
	detailPanelWidth   = 46
	searchOverlayWidth = 44
	minCanvasWidth     = 40
	minCanvasHeight    = 10
	tabBarHeight       = 1
	statusBarHeight    = 1
	borderSize         = 2
)

type viewTab int

const (
	tabMap viewTab = iota
	tabDetails
	tabSimilar
	tabEvolution
)

var tabNames = []struct {
	name string
	tab  viewTab
}{
	{"Map", tabMap},
	{"Details", tabDetails},
	{"Similar", tabSimilar},
	{"Evolution", tabEvolution},
}

type inputMode int

const (
	modeNormal inputMode = iota
	modeSearch
)

type layoutDimensions struct {
	totalWidth   int
	totalHeight  int
	canvasWidth  int
	canvasHeight int
}

func (m Model) calculateLayout() layoutDimensions {
	marginX := 2
	marginY := 2

	totalWidth := m.width - marginX
	totalHeight := m.height - marginY

	canvasHeight := totalHeight - tabBarHeight - statusBarHeight
	if m.err != nil {
		canvasHeight--
	}
	if canvasHeight < minCanvasHeight {
		canvasHeight = minCanvasHeight
	}

	canvasWidth := totalWidth
	if canvasWidth < minCanvasWidth {
		canvasWidth = minCanvasWidth
	}

	return layoutDimensions{
		totalWidth:   totalWidth,
		totalHeight:  totalHeight,
		canvasWidth:  canvasWidth,
		canvasHeight: canvasHeight,
	}
}

type styles struct {
	title       lipgloss.Style
	canvas      lipgloss.Style
	overlay     lipgloss.Style
	input       lipgloss.Style
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	tabBar      lipgloss.Style
	statusBar   lipgloss.Style
	errorText   lipgloss.Style
	header      lipgloss.Style
	label       lipgloss.Style
	value       lipgloss.Style
}

func newStyles() styles {
	accentColor := lipgloss.Color("#FF87D7")
	borderColor := lipgloss.Color("#5F5FAF")
	canvasBorderColor := lipgloss.Color("#FF8700")
	dimColor := lipgloss.Color("#6C6C6C")
	bgColor := lipgloss.Color("#303030")

	return styles{
		title: lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor),

		canvas: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(canvasBorderColor),

		overlay: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor).
			Background(bgColor).
			Padding(0, 1),

		input: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accentColor).
			Background(bgColor).
			Padding(0, 1),

		tabActive: lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor).
			Padding(0, 1),

		tabInactive: lipgloss.NewStyle().
			Foreground(dimColor).
			Padding(0, 1),

		tabBar: lipgloss.NewStyle().
			Foreground(dimColor),

		statusBar: lipgloss.NewStyle().
			Foreground(dimColor),

		errorText: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF0000")),

		header: lipgloss.NewStyle().
			Bold(true).
			Foreground(accentColor),

		label: lipgloss.NewStyle().
			Foreground(dimColor),

		value: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EEEEEE")),
	}
}

// typeBadge renders a type name on its type color.
func typeBadge(typeName string) string {
	return lipgloss.NewStyle().
		Background(lipgloss.Color(dataset.TypeColor(typeName))).
		Foreground(lipgloss.Color("#000000")).
		Padding(0, 1).
		Render(typeName)
}

func (m Model) renderTabBar(s styles, width int) string {
	var parts []string
	for i, t := range tabNames {
		style := s.tabInactive
		if t.tab == m.activeTab {
			style = s.tabActive
		}
		parts = append(parts, style.Render(string(rune('1'+i))+" "+t.name))
	}

	tabRow := strings.Join(parts, s.tabBar.Render(" │ "))
	title := s.title.Render("pokédex")

	gap := width - lipgloss.Width(tabRow) - lipgloss.Width(title)
	if gap < 1 {
		gap = 1
	}

	return tabRow + strings.Repeat(" ", gap) + title
}

func (m Model) renderContentArea(s styles, layout layoutDimensions) string {
	innerWidth := layout.canvasWidth - borderSize
	innerHeight := layout.canvasHeight - borderSize

	var content string
	switch m.activeTab {
	case tabDetails:
		content = m.renderDetails(innerWidth, innerHeight)
	case tabSimilar:
		content = m.renderSimilarTable(innerWidth, innerHeight)
	case tabEvolution:
		content = m.renderEvolution(innerWidth, innerHeight)
	default:
		content = m.renderCanvas(innerWidth, innerHeight)
	}

	box := s.canvas.
		Width(innerWidth).
		Height(innerHeight).
		Render(content)

	if m.activeTab == tabMap && m.showDetails && m.hasSelection() {
		box = m.overlayDetailPanel(box, s, layout)
	}

	if m.inputMode == modeSearch {
		box = m.overlaySearchBox(box, s, layout)
	}

	return box
}

func (m Model) overlayDetailPanel(base string, s styles, layout layoutDimensions) string {
	panelInnerWidth := detailPanelWidth - 4
	panelInnerHeight := layout.canvasHeight - 4

	panel := s.overlay.
		Width(panelInnerWidth).
		Height(panelInnerHeight).
		Render(m.renderDetails(panelInnerWidth, panelInnerHeight))

	return overlayAt(base, panel, layout.canvasWidth-detailPanelWidth-1, 1)
}

func (m Model) overlaySearchBox(base string, s styles, layout layoutDimensions) string {
	inputText := m.input
	if inputText == "" {
		inputText = "Name or pokedex number, Enter to jump, Esc to cancel"
	}

	box := s.input.
		Width(searchOverlayWidth - 4).
		Render(truncate.String(inputText, searchOverlayWidth-4))

	x := (layout.canvasWidth - searchOverlayWidth) / 2
	y := layout.canvasHeight / 2

	return overlayAt(base, box, x, y)
}

// overlayAt draws overlay on top of base with its top-left corner at column x, row y.
func overlayAt(base, overlay string, x, y int) string {
	bgLines, bgWidth := getLines(base)
	fgLines, fgWidth := getLines(overlay)
	bgHeight := len(bgLines)
	fgHeight := len(fgLines)

	if fgWidth >= bgWidth && fgHeight >= bgHeight {
		return overlay
	}

	x = max(0, min(x, bgWidth-fgWidth))
	y = max(0, min(y, bgHeight-fgHeight))

	var b strings.Builder
	for i, bgLine := range bgLines {
		if i > 0 {
			b.WriteByte('\n')
		}
		if i < y || i >= y+fgHeight {
			b.WriteString(bgLine)
			continue
		}

		pos := 0
		if x > 0 {
			left := truncate.String(bgLine, uint(x))
			pos = ansi.StringWidth(left)
			b.WriteString(left)
			if pos < x {
				b.WriteString(strings.Repeat(" ", x-pos))
				pos = x
			}
		}

		fgLine := fgLines[i-y]
		b.WriteString(fgLine)
		pos += ansi.StringWidth(fgLine)

		right := ansi.TruncateLeft(bgLine, pos, "")
		lineWidth := ansi.StringWidth(bgLine)
		rightWidth := ansi.StringWidth(right)
		if rightWidth <= lineWidth-pos {
			b.WriteString(strings.Repeat(" ", lineWidth-rightWidth-pos))
		}
		b.WriteString(right)
	}

	return b.String()
}

func getLines(s string) ([]string, int) {
	lines := strings.Split(s, "\n")
	widest := 0
	for _, l := range lines {
		if w := ansi.StringWidth(l); widest < w {
			widest = w
		}
	}
	return lines, widest
}

func (m Model) renderStatusBar(s styles, width int) string {
	var help string
	if m.inputMode == modeSearch {
		help = "Enter: jump │ Esc: cancel"
	} else {
		method := "UMAP"
		if m.projection.Method == projection.MethodPCA {
			method = "PCA"
		}
		colors := "type"
		if m.popOut {
			colors = "pop-out"
		}
		match := "exact"
		if m.substring {
			match = "substring"
		}
		help = "↑↓: select │ /: search │ I: info │ C: colors " + colors + " │ F: focus │ P: " + method +
			" │ S: match " + match + " │ L: labels │ R: reload │ 1-4: tabs │ Esc: quit"
	}

	status := m.version
	if m.loading {
		status = "computing… " + status
	}
	help = truncate.String(help, uint(max(0, width-lipgloss.Width(status)-1)))

	padding := width - lipgloss.Width(help) - lipgloss.Width(status)
	if padding < 1 {
		padding = 1
	}

	return s.statusBar.Render(help + strings.Repeat(" ", padding) + status)
}

func (m Model) renderError(s styles) string {
	if m.err == nil {
		return ""
	}
	return s.errorText.Render("Error: " + m.err.Error())
}
