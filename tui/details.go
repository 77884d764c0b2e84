package tui

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/truncate"
	"github.com/muesli/reflow/wordwrap"

	"github.com/Pabloo22/pokedex-dashboard/assets"
	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/Pabloo22/pokedex-dashboard/evolution"
	"github.com/Pabloo22/pokedex-dashboard/similarity"
)

const (
	statLabelWidth = 16
	statValueWidth = 4
	similarRows    = 20
)

// renderDetails shows the selected creature's identity, stats and type defenses.
func (m Model) renderDetails(width, height int) string {
	s := newStyles()
	entity, err := m.selectedEntity()
	if err != nil {
		return s.label.Render("Select a Pokémon with ↑↓ or /")
	}

	var lines []string
	lines = append(lines, s.header.Render(fmt.Sprintf("#%03d %s", entity.ID, entity.Name)))

	var badges []string
	for _, t := range entity.Types() {
		badges = append(badges, typeBadge(t))
	}
	lines = append(lines, strings.Join(badges, " "))
	lines = append(lines, "")

	lines = append(lines, field(s, "Height", measure(entity.HeightM, "m")))
	lines = append(lines, field(s, "Weight", measure(entity.WeightKg, "kg")))
	lines = append(lines, field(s, "Generation", fmt.Sprint(entity.Generation)))
	if entity.Legendary {
		lines = append(lines, field(s, "Legendary", "yes"))
	}
	lines = append(lines, field(s, "Image", m.imageStatus(entity.ID)))

	var abilities []string
	for _, a := range entity.Abilities {
		if a.Hidden {
			abilities = append(abilities, a.Name+" (hidden)")
		} else {
			abilities = append(abilities, a.Name)
		}
	}
	lines = append(lines, field(s, "Abilities", ""))
	lines = append(lines, wordwrap.String(strings.Join(abilities, ", "), max(10, width-2)))
	lines = append(lines, "")

	lines = append(lines, s.header.Render("Base stats"))
	table := m.service.Snapshot().Table
	barWidth := max(4, width-statLabelWidth-statValueWidth-2)
	for _, stat := range table.BaseStats(entity) {
		lines = append(lines, statBar(s, stat, barWidth, dataset.TypeColor(entity.Type1)))
	}
	lines = append(lines, "")

	lines = append(lines, s.header.Render("Defenses"))
	defenses := dataset.DefensesOf(entity)
	for _, group := range []struct {
		label string
		types []string
	}{
		{"Weak ×4", defenses.Weak4},
		{"Weak ×2", defenses.Weak2},
		{"Resist ×½", defenses.Resist2},
		{"Resist ×¼", defenses.Resist4},
		{"Immune", defenses.Immune},
	} {
		if len(group.types) == 0 {
			continue
		}
		lines = append(lines, field(s, group.label, ""))
		lines = append(lines, wordwrap.String(strings.Join(group.types, ", "), max(10, width-2)))
	}

	return clipLines(strings.Join(lines, "\n"), width, height)
}

func field(s styles, label, value string) string {
	return s.label.Render(fmt.Sprintf("%-11s", label)) + s.value.Render(value)
}

func measure(value float64, unit string) string {
	if math.IsNaN(value) {
		return "unknown"
	}
	return fmt.Sprintf("%.1f %s", value, unit)
}

// imageStatus reports the image file of a creature or the placeholder text.
func (m Model) imageStatus(id int) string {
	if m.assets == nil {
		return assets.Placeholder
	}
	if _, err := m.assets.Path(id); err != nil {
		var missing *assets.AssetMissingError
		if !errors.As(err, &missing) {
			m.logger.Warn().Err(err).Int("id", id).Msg("checking image")
		}
		return assets.Placeholder
	}
	return assets.FileName(id)
}

// statBar draws one stat as a horizontal bar scaled to dataset.MaxBaseStat.
func statBar(s styles, stat dataset.Stat, barWidth int, color string) string {
	filled := int(math.Round(min(stat.Value, dataset.MaxBaseStat) / dataset.MaxBaseStat * float64(barWidth)))
	bar := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(strings.Repeat("█", filled)) +
		s.label.Render(strings.Repeat("░", barWidth-filled))
	return s.label.Render(fmt.Sprintf("%-*s", statLabelWidth, stat.Label)) +
		s.value.Render(fmt.Sprintf("%*.0f ", statValueWidth-1, stat.Value)) + bar
}

// renderSimilarTable lists the creatures closest to the selection on the map.
func (m Model) renderSimilarTable(width, height int) string {
	s := newStyles()
	if !m.hasSelection() {
		return s.label.Render("Select a Pokémon with ↑↓ or /")
	}
	if !m.rankingCurrent() {
		return s.label.Render("Ranking…")
	}

	reference := m.embedding.Points[m.selectedIndex].Name
	lines := []string{
		s.header.Render("Most similar to " + reference),
		s.label.Render(fmt.Sprintf("%4s  %-5s %-16s %s", "rank", "#", "name", "similarity")),
	}

	table := m.service.Snapshot().Table
	rank := 0
	for _, r := range similarity.Top(m.ranked, similarRows+1) {
		if r.Highlighted {
			continue
		}
		rank++
		color := dataset.FallbackTypeColor
		if entity, err := table.ByID(r.ID); err == nil {
			color = dataset.TypeColor(entity.Type1)
		}
		name := lipgloss.NewStyle().Foreground(lipgloss.Color(color)).Render(fmt.Sprintf("%-16s", truncate.String(r.Name, 16)))
		lines = append(lines, fmt.Sprintf("%4d  %-5s %s %s", rank, fmt.Sprintf("%03d", r.ID), name, similarityBar(r.Similarity)))
	}

	return clipLines(strings.Join(lines, "\n"), width, height)
}

func similarityBar(value float64) string {
	const cells = 10
	filled := int(math.Round(value * cells))
	return fmt.Sprintf("%.3f %s%s", value, strings.Repeat("▮", filled), strings.Repeat("▯", cells-filled))
}

// renderEvolution shows the evolution line containing the selected creature.
func (m Model) renderEvolution(width, height int) string {
	s := newStyles()
	entity, err := m.selectedEntity()
	if err != nil {
		return s.label.Render("Select a Pokémon with ↑↓ or /")
	}

	var opts []evolution.Option
	if m.substring {
		opts = append(opts, evolution.Substring())
	}
	line, err := m.service.EvolutionLine(entity.Name, opts...)
	if err != nil {
		var notFound *dataset.NotFoundError
		if errors.As(err, &notFound) {
			return s.label.Render(entity.Name + " is not part of any known evolution line.")
		}
		return s.errorText.Render(err.Error())
	}

	stages := []struct {
		label string
		names []string
	}{
		{"Base", []string{line.Base}},
		{"Stage 1", line.First},
		{"Stage 2", line.Second},
	}

	lines := []string{s.header.Render("Evolution line of " + entity.Name), ""}
	for _, stage := range stages {
		if len(stage.names) == 0 {
			continue
		}
		var names []string
		for _, name := range stage.names {
			if name == entity.Name {
				name = s.title.Render(name)
			}
			names = append(names, name)
		}
		lines = append(lines, field(s, stage.label, ""))
		lines = append(lines, wordwrap.String("  "+strings.Join(names, "  "), max(10, width-2)))
	}
	if len(line.First) == 0 && len(line.Second) == 0 {
		lines = append(lines, "", s.label.Render(entity.Name+" does not evolve."))
	}
	if line.Ambiguous {
		lines = append(lines, "", s.errorText.Render("Matched several families; showing their union."))
	}
	if m.substring {
		lines = append(lines, "", s.label.Render("Matching names by substring."))
	}

	return clipLines(strings.Join(lines, "\n"), width, height)
}

// clipLines limits text to height lines of at most width cells.
func clipLines(text string, width, height int) string {
	lines := strings.Split(text, "\n")
	if len(lines) > height {
		lines = lines[:max(0, height)]
	}
	for i, l := range lines {
		lines[i] = truncate.String(l, uint(max(0, width)))
	}
	return strings.Join(lines, "\n")
}
