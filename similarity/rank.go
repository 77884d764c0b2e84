// Package similarity ranks creatures by how close they sit to a reference creature on
// the 2-D map.
package similarity

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/Pabloo22/pokedex-dashboard/projection"
)

// Mode selects how Score is filled. Ordering never depends on the mode.
type Mode string

const (
	// Continuous scores every creature by its similarity.
	Continuous Mode = "continuous"
	// Highlight splits the map into the reference creature and everything else.
	Highlight Mode = "highlight"
)

// ParseMode accepts the mode names used by the CLI and the HTTP API. "pop-out" is an
// alias of Highlight.
func ParseMode(s string) (Mode, error) {
	switch s {
	case "", string(Continuous):
		return Continuous, nil
	case string(Highlight), "pop-out":
		return Highlight, nil
	}
	return "", fmt.Errorf("unknown similarity mode %q", s)
}

// Reference identifies the creature every other one is compared against.
type Reference struct {
	id     int
	name   string
	byName bool
}

// ByID references a creature by pokedex number.
func ByID(id int) Reference { return Reference{id: id} }

// ByName references a creature by exact name.
func ByName(name string) Reference { return Reference{name: name, byName: true} }

func (r Reference) String() string {
	if r.byName {
		return r.name
	}
	return strconv.Itoa(r.id)
}

func (r Reference) matches(p projection.Point) bool {
	if r.byName {
		return p.Name == r.name
	}
	return p.ID == r.id
}

// Ranked is one creature's position relative to the reference.
type Ranked struct {
	ID   int
	Name string
	X, Y float64

	// Distance is the Euclidean distance to the reference, min-max scaled to [0,1].
	Distance float64
	// Similarity is 1 - Distance.
	Similarity float64
	// Score is what a view colors by: Similarity in Continuous mode, 1 or 0 in Highlight mode.
	Score float64

	Highlighted bool   // true for the reference itself
	Group       string // Highlight mode only: the reference name or "Not <name>"
}

// Rank scores every point of the embedding against the reference and returns them
// sorted by similarity, highest first. Points with equal similarity keep ascending id
// order, so the reference is first unless another point shares its exact position and
// has a lower id.
//
// The reference must match exactly one point; otherwise a *dataset.NotFoundError is
// returned.
func Rank(embedding *projection.Embedding, ref Reference, mode Mode) ([]Ranked, error) {
	if mode != Continuous && mode != Highlight {
		return nil, fmt.Errorf("unknown similarity mode %q", mode)
	}

	refIndex := -1
	for i, p := range embedding.Points {
		if !ref.matches(p) {
			continue
		}
		if refIndex >= 0 {
			return nil, &dataset.NotFoundError{Key: ref.String()}
		}
		refIndex = i
	}
	if refIndex < 0 {
		return nil, &dataset.NotFoundError{Key: ref.String()}
	}
	refPoint := embedding.Points[refIndex]

	ranked := make([]Ranked, len(embedding.Points))
	maxDistance := 0.0
	for i, p := range embedding.Points {
		distance := math.Hypot(p.X-refPoint.X, p.Y-refPoint.Y)
		maxDistance = math.Max(maxDistance, distance)
		ranked[i] = Ranked{
			ID:          p.ID,
			Name:        p.Name,
			X:           p.X,
			Y:           p.Y,
			Distance:    distance,
			Highlighted: i == refIndex,
		}
	}

	// The reference is at distance 0, so min-max scaling reduces to dividing by the max.
	// If every point coincides with it, every distance stays 0.
	for i := range ranked {
		if maxDistance > 0 {
			ranked[i].Distance /= maxDistance
		}
		ranked[i].Similarity = 1 - ranked[i].Distance

		switch mode {
		case Highlight:
			if ranked[i].Highlighted {
				ranked[i].Score = 1
				ranked[i].Group = refPoint.Name
			} else {
				ranked[i].Group = "Not " + refPoint.Name
			}
		default:
			ranked[i].Score = ranked[i].Similarity
		}
	}

	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].ID < ranked[b].ID })
	sort.SliceStable(ranked, func(a, b int) bool { return ranked[a].Similarity > ranked[b].Similarity })
	return ranked, nil
}

// Top returns at most n leading entries. A non-positive n returns everything.
func Top(ranked []Ranked, n int) []Ranked {
	if n <= 0 || n >= len(ranked) {
		return ranked
	}
	return ranked[:n]
}
