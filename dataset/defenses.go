package dataset

import (
	"math"
	"sort"
)

// TypeColors maps each type to the hex color used wherever types are drawn.
var TypeColors = map[string]string{
	"normal":   "#aaaa99",
	"fire":     "#ff4422",
	"water":    "#3399ff",
	"electric": "#ffcc33",
	"grass":    "#77cc55",
	"ice":      "#66ccff",
	"fighting": "#bb5544",
	"poison":   "#aa5599",
	"ground":   "#ddbb55",
	"flying":   "#8899ff",
	"psychic":  "#ff5599",
	"bug":      "#aabb22",
	"rock":     "#bbaa66",
	"ghost":    "#6666bb",
	"dragon":   "#7766ee",
	"dark":     "#775544",
	"steel":    "#aaaabb",
	"fairy":    "#ee99ee",
}

// FallbackTypeColor is used for types missing from TypeColors.
const FallbackTypeColor = "#669988"

// TypeColor returns the display color of a type.
func TypeColor(typeName string) string {
	if color, ok := TypeColors[typeName]; ok {
		return color
	}
	return FallbackTypeColor
}

// Defenses groups attacking types by the damage multiplier they deal to a creature.
type Defenses struct {
	Weak4   []string // x4
	Weak2   []string // x2
	Resist2 []string // x0.5
	Resist4 []string // x0.25
	Immune  []string // x0
}

// DefensesOf classifies the entity's against_* multipliers.
func DefensesOf(entity *Entity) Defenses {
	var defenses Defenses
	for attackingType, multiplier := range entity.Against {
		switch {
		case multiplier == 4:
			defenses.Weak4 = append(defenses.Weak4, attackingType)
		case multiplier == 2:
			defenses.Weak2 = append(defenses.Weak2, attackingType)
		case multiplier == 0.5:
			defenses.Resist2 = append(defenses.Resist2, attackingType)
		case multiplier == 0.25:
			defenses.Resist4 = append(defenses.Resist4, attackingType)
		case multiplier == 0:
			defenses.Immune = append(defenses.Immune, attackingType)
		}
	}
	for _, group := range [][]string{defenses.Weak4, defenses.Weak2, defenses.Resist2, defenses.Resist4, defenses.Immune} {
		sort.Strings(group)
	}
	return defenses
}

// Stat is one labelled battle stat.
type Stat struct {
	Column string
	Label  string
	Value  float64
}

// BaseStatColumns lists the six battle stats in display order.
var BaseStatColumns = []struct{ Column, Label string }{
	{"hp", "HP"},
	{"attack", "Attack"},
	{"defense", "Defense"},
	{"sp_attack", "Special Attack"},
	{"sp_defense", "Special Defense"},
	{"speed", "Speed"},
}

// MaxBaseStat bounds the stat axis in charts and bars.
const MaxBaseStat = 250

// BaseStats returns the six battle stats of an entity. Missing stats are reported as 0.
func (table *Table) BaseStats(entity *Entity) []Stat {
	stats := make([]Stat, 0, len(BaseStatColumns))
	for _, column := range BaseStatColumns {
		value := table.Value(entity, column.Column)
		if math.IsNaN(value) {
			value = 0
		}
		stats = append(stats, Stat{Column: column.Column, Label: column.Label, Value: value})
	}
	return stats
}
