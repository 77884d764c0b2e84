package tui

import (
	"sort"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/Pabloo22/pokedex-dashboard/dataset"
)

// neighborCount is how many similar creatures the map connects to the selection.
const neighborCount = 5

const (
	referenceColor = "#FF3333"
	othersColor    = "#4E4E4E"
)

// canvasCell represents a single cell in the rendering grid with its character and styling.
type canvasCell struct {
	char  rune
	style lipgloss.Style
}

// gridPoint is an embedding point positioned on the canvas grid.
type gridPoint struct {
	row, col   int
	pointIndex int
	label      string
	typeName   string
	isSelected bool
	isNeighbor bool
}

// renderCanvas draws the embedding as a scatter plot of the unit square.
func (m Model) renderCanvas(width, height int) string {
	grid := newCanvasGrid(width, height)

	if m.embedding == nil || len(m.embedding.Points) == 0 {
		message := "Computing embedding…"
		if m.err != nil {
			message = "data unavailable"
		}
		writeCentered(grid, message)
		return canvasGridToString(grid)
	}

	points := m.gridPoints(width, height)

	if selected := findSelected(points); selected != nil {
		lineStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("117"))
		for _, p := range points {
			if p.isNeighbor {
				drawLineOnCanvas(grid, selected.col, selected.row, p.col, p.row, lineStyle)
			}
		}
	}

	// Selected last so it is never hidden, neighbors above the rest.
	sort.SliceStable(points, func(a, b int) bool {
		return renderPriority(points[a]) < renderPriority(points[b])
	})
	for _, p := range points {
		if m.focusMode && m.hasSelection() && !p.isSelected && !p.isNeighbor {
			continue
		}
		m.drawPoint(grid, p)
	}

	if m.popOut && m.hasSelection() {
		name := m.embedding.Points[m.selectedIndex].Name
		legend := "● " + name + "   ○ Not " + name
		writeRow(grid, len(grid)-1, 1, legend, lipgloss.NewStyle().Foreground(lipgloss.Color(referenceColor)))
	}

	return canvasGridToString(grid)
}

func renderPriority(p gridPoint) int {
	switch {
	case p.isSelected:
		return 2
	case p.isNeighbor:
		return 1
	default:
		return 0
	}
}

func findSelected(points []gridPoint) *gridPoint {
	for i := range points {
		if points[i].isSelected {
			return &points[i]
		}
	}
	return nil
}

// gridPoints maps the embedding into the drawable area. Embedding coordinates are
// already in [0,1]; y grows upwards.
func (m Model) gridPoints(width, height int) []gridPoint {
	neighbors := m.neighborIDs()
	table := m.service.Snapshot().Table

	padding := 1
	plotWidth := max(1, width-2*padding)
	plotHeight := max(1, height-2*padding)

	points := make([]gridPoint, 0, len(m.embedding.Points))
	for i, p := range m.embedding.Points {
		col, row := gridPosition(p.X, p.Y, plotWidth, plotHeight)
		typeName := ""
		if entity, err := table.ByID(p.ID); err == nil {
			typeName = entity.Type1
		}
		points = append(points, gridPoint{
			row:        row + padding,
			col:        col + padding,
			pointIndex: i,
			label:      p.Name,
			typeName:   typeName,
			isSelected: i == m.selectedIndex,
			isNeighbor: neighbors[p.ID],
		})
	}
	return points
}

// gridPosition maps unit-square coordinates to a cell of a width x height area.
func gridPosition(x, y float64, width, height int) (col, row int) {
	col = int(x * float64(width-1))
	row = int((1 - y) * float64(height-1))
	return max(0, min(col, width-1)), max(0, min(row, height-1))
}

// neighborIDs returns the ids of the creatures most similar to the selection.
func (m Model) neighborIDs() map[int]bool {
	ids := map[int]bool{}
	if !m.rankingCurrent() {
		return ids
	}
	for _, r := range m.ranked {
		if len(ids) == neighborCount {
			break
		}
		if !r.Highlighted {
			ids[r.ID] = true
		}
	}
	return ids
}

func (m Model) drawPoint(grid [][]canvasCell, p gridPoint) {
	marker := "○"
	color := dataset.TypeColor(p.typeName)
	switch {
	case m.popOut && p.isSelected:
		marker, color = "●", referenceColor
	case m.popOut:
		color = othersColor
	case p.isSelected:
		marker = "●"
	case p.isNeighbor:
		marker = "◆"
	}
	style := lipgloss.NewStyle().Foreground(lipgloss.Color(color))
	if p.isSelected || p.isNeighbor {
		style = style.Bold(true)
	}

	writeRow(grid, p.row, p.col, marker, style)
	if p.isSelected || p.isNeighbor || m.showLabels {
		label := []rune(p.label)
		if len(label) > 12 {
			label = label[:12]
		}
		writeRow(grid, p.row, p.col+2, string(label), style)
	}
}

func newCanvasGrid(width, height int) [][]canvasCell {
	grid := make([][]canvasCell, max(1, height))
	for r := range grid {
		grid[r] = make([]canvasCell, max(1, width))
		for c := range grid[r] {
			grid[r][c] = canvasCell{char: ' ', style: lipgloss.NewStyle()}
		}
	}
	return grid
}

func writeRow(grid [][]canvasCell, row, col int, text string, style lipgloss.Style) {
	if row < 0 || row >= len(grid) {
		return
	}
	for i, r := range []rune(text) {
		if c := col + i; c >= 0 && c < len(grid[row]) {
			grid[row][c] = canvasCell{char: r, style: style}
		}
	}
}

func writeCentered(grid [][]canvasCell, message string) {
	width := len(grid[0])
	col := max(0, (width-len([]rune(message)))/2)
	writeRow(grid, len(grid)/2, col, message, lipgloss.NewStyle())
}

// canvasGridToString converts the 2D canvas grid into a renderable string.
func canvasGridToString(grid [][]canvasCell) string {
	var b strings.Builder
	for r, row := range grid {
		for _, cell := range row {
			b.WriteString(cell.style.Render(string(cell.char)))
		}
		if r < len(grid)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}

// drawLineOnCanvas draws a dotted Bresenham line between two cells, leaving occupied
// cells untouched.
func drawLineOnCanvas(grid [][]canvasCell, x0, y0, x1, y1 int, style lipgloss.Style) {
	dx := abs(x1 - x0)
	dy := abs(y1 - y0)
	sx, sy := 1, 1
	if x0 > x1 {
		sx = -1
	}
	if y0 > y1 {
		sy = -1
	}
	e := dx - dy

	x, y := x0, y0
	for {
		if y >= 0 && y < len(grid) && x >= 0 && x < len(grid[0]) && grid[y][x].char == ' ' {
			grid[y][x] = canvasCell{char: '·', style: style}
		}
		if x == x1 && y == y1 {
			break
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x += sx
		}
		if e2 < dx {
			e += dx
			y += sy
		}
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
