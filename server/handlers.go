package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/Pabloo22/pokedex-dashboard/assets"
	"github.com/Pabloo22/pokedex-dashboard/charts"
	"github.com/Pabloo22/pokedex-dashboard/dataset"
	"github.com/Pabloo22/pokedex-dashboard/evolution"
	"github.com/Pabloo22/pokedex-dashboard/projection"
	"github.com/Pabloo22/pokedex-dashboard/similarity"
)

type pokemonSummary struct {
	ID    int      `json:"id"`
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

type abilityView struct {
	Name   string `json:"name"`
	Hidden bool   `json:"hidden"`
}

type statView struct {
	Label string  `json:"label"`
	Value float64 `json:"value"`
}

type defensesView struct {
	Weak4   []string `json:"weak_x4"`
	Weak2   []string `json:"weak_x2"`
	Resist2 []string `json:"resist_x0_5"`
	Resist4 []string `json:"resist_x0_25"`
	Immune  []string `json:"immune"`
}

type pokemonDetails struct {
	pokemonSummary
	Abilities  []abilityView `json:"abilities"`
	HeightM    *float64      `json:"height_m"`
	WeightKg   *float64      `json:"weight_kg"`
	Generation int           `json:"generation"`
	Legendary  bool          `json:"legendary"`
	BaseStats  []statView    `json:"base_stats"`
	Defenses   defensesView  `json:"defenses"`
	ImageURL   string        `json:"image_url"`
}

type rankedView struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	Distance    float64 `json:"distance"`
	Similarity  float64 `json:"similarity"`
	Score       float64 `json:"score"`
	Highlighted bool    `json:"highlighted"`
	Group       string  `json:"group,omitempty"`
}

type lineView struct {
	Base      string   `json:"base"`
	First     []string `json:"first"`
	Second    []string `json:"second"`
	Ambiguous bool     `json:"ambiguous"`
}

type pointView struct {
	ID   int     `json:"id"`
	Name string  `json:"name"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

type embeddingView struct {
	Version string      `json:"version"`
	Method  string      `json:"method"`
	Key     string      `json:"key"`
	Points  []pointView `json:"points"`
}

type reloadView struct {
	Version    string `json:"version"`
	Generation string `json:"generation"`
	Changed    bool   `json:"changed"`
	Rows       int    `json:"rows"`
}

func summaryOf(entity *dataset.Entity) pokemonSummary {
	return pokemonSummary{ID: entity.ID, Name: entity.Name, Types: entity.Types()}
}

// optional turns NaN into a JSON null.
func optional(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	snapshot := s.opts.Service.Snapshot()
	Success(w, map[string]interface{}{
		"status":    "ok",
		"version":   snapshot.Version,
		"rows":      snapshot.Table.Len(),
		"loaded_at": snapshot.LoadedAt,
		"warm":      s.opts.Service.EmbeddingCached(s.opts.Service.DefaultProjection()),
	})
}

func (s *Server) listPokemon(w http.ResponseWriter, r *http.Request) {
	entities := s.opts.Service.Snapshot().Table.Entities()
	list := make([]pokemonSummary, len(entities))
	for i := range entities {
		list[i] = summaryOf(&entities[i])
	}
	Success(w, list)
}

func (s *Server) getPokemon(w http.ResponseWriter, r *http.Request) {
	table := s.opts.Service.Snapshot().Table
	entity, err := table.Lookup(chi.URLParam(r, "key"))
	if err != nil {
		Fail(w, r, err)
		return
	}

	details := pokemonDetails{
		pokemonSummary: summaryOf(entity),
		Abilities:      make([]abilityView, len(entity.Abilities)),
		HeightM:        optional(entity.HeightM),
		WeightKg:       optional(entity.WeightKg),
		Generation:     entity.Generation,
		Legendary:      entity.Legendary,
		ImageURL:       fmt.Sprintf("/api/v1/pokemon/%d/image", entity.ID),
	}
	for i, ability := range entity.Abilities {
		details.Abilities[i] = abilityView{Name: ability.Name, Hidden: ability.Hidden}
	}
	for _, stat := range table.BaseStats(entity) {
		details.BaseStats = append(details.BaseStats, statView{Label: stat.Label, Value: stat.Value})
	}
	defenses := dataset.DefensesOf(entity)
	details.Defenses = defensesView{
		Weak4:   nonNil(defenses.Weak4),
		Weak2:   nonNil(defenses.Weak2),
		Resist2: nonNil(defenses.Resist2),
		Resist4: nonNil(defenses.Resist4),
		Immune:  nonNil(defenses.Immune),
	}
	Success(w, details)
}

func (s *Server) similar(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	mode, err := similarity.ParseMode(query.Get("mode"))
	if err != nil {
		BadRequest(w, err)
		return
	}
	limit, err := intParam(query, "limit", 0)
	if err != nil {
		BadRequest(w, err)
		return
	}
	config, err := projectionParams(query, s.opts.Service.DefaultProjection())
	if err != nil {
		BadRequest(w, err)
		return
	}

	ranked, err := s.opts.Service.SimilarWith(r.Context(), chi.URLParam(r, "key"), mode, config)
	if err != nil {
		Fail(w, r, err)
		return
	}
	ranked = similarity.Top(ranked, limit)

	views := make([]rankedView, len(ranked))
	for i, rk := range ranked {
		views[i] = rankedView{
			ID:          rk.ID,
			Name:        rk.Name,
			X:           rk.X,
			Y:           rk.Y,
			Distance:    rk.Distance,
			Similarity:  rk.Similarity,
			Score:       rk.Score,
			Highlighted: rk.Highlighted,
			Group:       rk.Group,
		}
	}
	Success(w, views)
}

func (s *Server) evolution(w http.ResponseWriter, r *http.Request) {
	var opts []evolution.Option
	switch match := r.URL.Query().Get("match"); match {
	case "", "exact":
	case "substring":
		opts = append(opts, evolution.Substring())
	default:
		BadRequest(w, fmt.Errorf("unknown match mode %q (want exact or substring)", match))
		return
	}

	name := chi.URLParam(r, "key")
	if entity, err := s.opts.Service.Lookup(name); err == nil {
		name = entity.Name
	}
	line, err := s.opts.Service.EvolutionLine(name, opts...)
	if err != nil {
		Fail(w, r, err)
		return
	}
	Success(w, lineView{
		Base:      line.Base,
		First:     nonNil(line.First),
		Second:    nonNil(line.Second),
		Ambiguous: line.Ambiguous,
	})
}

func (s *Server) image(w http.ResponseWriter, r *http.Request) {
	entity, err := s.opts.Service.Lookup(chi.URLParam(r, "key"))
	if err != nil {
		Fail(w, r, err)
		return
	}
	data, err := s.opts.Assets.Read(entity.ID)
	var missing *assets.AssetMissingError
	if errors.As(err, &missing) {
		JSON(w, http.StatusNotFound, ErrorResponse{
			Error:   http.StatusText(http.StatusNotFound),
			Message: assets.Placeholder,
			Code:    http.StatusNotFound,
		})
		return
	}
	if err != nil {
		Fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "public, max-age=86400")
	_, _ = w.Write(data)
}

func (s *Server) embedding(w http.ResponseWriter, r *http.Request) {
	config, err := projectionParams(r.URL.Query(), s.opts.Service.DefaultProjection())
	if err != nil {
		BadRequest(w, err)
		return
	}
	embedding, err := s.opts.Service.Embedding(r.Context(), config)
	if err != nil {
		Fail(w, r, err)
		return
	}

	view := embeddingView{
		Version: embedding.Version,
		Method:  string(embedding.Config.Method),
		Key:     embedding.Config.Key(),
		Points:  make([]pointView, len(embedding.Points)),
	}
	for i, p := range embedding.Points {
		view.Points[i] = pointView{ID: p.ID, Name: p.Name, X: p.X, Y: p.Y}
	}
	Success(w, view)
}

func (s *Server) embeddingChart(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	colorBy, err := charts.ParseColorBy(query.Get("color"))
	if err != nil {
		BadRequest(w, err)
		return
	}
	config, err := projectionParams(query, s.opts.Service.DefaultProjection())
	if err != nil {
		BadRequest(w, err)
		return
	}
	chartConfig := charts.DefaultChartConfig()
	chartConfig.Title = "Pokédex embedding"
	if zoom := query.Get("zoom"); zoom != "" {
		if chartConfig.Zoom, err = strconv.ParseFloat(zoom, 64); err != nil || chartConfig.Zoom < 0 {
			BadRequest(w, fmt.Errorf("invalid zoom %q", zoom))
			return
		}
	}

	switch colorBy {
	case charts.ColorByPopOut:
		ref := query.Get("ref")
		if ref == "" {
			BadRequest(w, errors.New("pop-out coloring needs a ref"))
			return
		}
		ranked, err := s.opts.Service.SimilarWith(r.Context(), ref, similarity.Highlight, config)
		if err != nil {
			Fail(w, r, err)
			return
		}
		chartConfig.Subtitle = ranked[0].Name
		writeHTML(w, r, func(out io.Writer) error {
			return charts.RenderPopOutScatter(out, ranked, chartConfig)
		})
	default:
		embedding, err := s.opts.Service.Embedding(r.Context(), config)
		if err != nil {
			Fail(w, r, err)
			return
		}
		table := s.opts.Service.Snapshot().Table
		writeHTML(w, r, func(out io.Writer) error {
			return charts.RenderTypeScatter(out, embedding, table, chartConfig)
		})
	}
}

func (s *Server) statsChart(w http.ResponseWriter, r *http.Request) {
	table := s.opts.Service.Snapshot().Table
	entity, err := table.Lookup(chi.URLParam(r, "key"))
	if err != nil {
		Fail(w, r, err)
		return
	}
	var compare *dataset.Entity
	if key := r.URL.Query().Get("compare"); key != "" {
		if compare, err = table.Lookup(key); err != nil {
			Fail(w, r, err)
			return
		}
	}

	chartConfig := charts.DefaultChartConfig()
	chartConfig.Title = "Base stats"
	writeHTML(w, r, func(out io.Writer) error {
		return charts.RenderStatsBar(out, table, entity, compare, chartConfig)
	})
}

// writeHTML renders a page in full before sending it, so a failed render still
// produces a clean JSON error.
func writeHTML(w http.ResponseWriter, r *http.Request, render func(io.Writer) error) {
	var buf bytes.Buffer
	if err := render(&buf); err != nil {
		Fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func (s *Server) reload(w http.ResponseWriter, r *http.Request) {
	snapshot, changed, err := s.opts.Service.Reload(r.Context())
	if err != nil {
		Fail(w, r, err)
		return
	}
	Success(w, reloadView{
		Version:    snapshot.Version,
		Generation: snapshot.Generation.String(),
		Changed:    changed,
		Rows:       snapshot.Table.Len(),
	})
}

func intParam(query url.Values, name string, fallback int) (int, error) {
	raw := query.Get(name)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, raw)
	}
	return v, nil
}

// projectionParams overrides base with the method, neighbors, metric, min_dist and seed
// query parameters. Range checks are left to Config.Validate.
func projectionParams(query url.Values, base projection.Config) (projection.Config, error) {
	config := base
	if method := query.Get("method"); method != "" {
		config.Method = projection.Method(method)
	}
	if metric := query.Get("metric"); metric != "" {
		config.Metric = metric
	}
	var err error
	if config.NNeighbors, err = intParam(query, "neighbors", config.NNeighbors); err != nil {
		return config, err
	}
	if raw := query.Get("min_dist"); raw != "" {
		if config.MinDist, err = strconv.ParseFloat(raw, 64); err != nil {
			return config, fmt.Errorf("invalid min_dist %q", raw)
		}
	}
	if raw := query.Get("seed"); raw != "" {
		if config.Seed, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return config, fmt.Errorf("invalid seed %q", raw)
		}
	}
	return config, nil
}
