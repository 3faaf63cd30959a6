package wiki

import (
	"context"
	"encoding/json"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/cardset/internal/model"
)

// entityBatchSize is the wbgetentities limit on ids or titles per request
const entityBatchSize = 50

// entitySites are the sitelinks kept on an entity
var entitySites = []string{
	"enwiki",
	"commonswiki",
	"simplewiki",
	"enwikiquote",
	"enwikinews",
	"enwikisource",
	"enwikivoyage",
}

var entityIDPattern = regexp.MustCompile(`^[QP]\d+$`)

// IsEntityID reports whether s is a Wikidata item or property id such as "Q42"
func IsEntityID(s string) bool {
	return entityIDPattern.MatchString(s)
}

type wbText struct {
	Language string `json:"language"`
	Value    string `json:"value"`
}

type wbSitelink struct {
	Site  string `json:"site"`
	Title string `json:"title"`
	URL   string `json:"url"`
}

type wbDatavalue struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

type wbSnak struct {
	SnakType  string       `json:"snaktype"`
	Property  string       `json:"property"`
	Datatype  string       `json:"datatype"`
	Datavalue *wbDatavalue `json:"datavalue"`
}

type wbStatement struct {
	Mainsnak wbSnak `json:"mainsnak"`
	Rank     string `json:"rank"`
}

type wbEntity struct {
	ID           string                   `json:"id"`
	Missing      json.RawMessage          `json:"missing"`
	Labels       map[string]wbText        `json:"labels"`
	Descriptions map[string]wbText        `json:"descriptions"`
	Aliases      map[string][]wbText      `json:"aliases"`
	Claims       map[string][]wbStatement `json:"claims"`
	Sitelinks    map[string]wbSitelink    `json:"sitelinks"`
}

type entitiesResponse struct {
	Entities map[string]wbEntity `json:"entities"`
}

// FetchEntities fetches entities by English Wikipedia title or by Wikidata id.
// Unresolvable entries are dropped; the result follows input order.
func (r *Remote) FetchEntities(ctx context.Context, titlesOrIDs []string) ([]model.Entity, error) {
	if len(titlesOrIDs) == 0 {
		return []model.Entity{}, nil
	}

	raw, err := r.fetchRawEntities(ctx, titlesOrIDs, "labels|descriptions|aliases|claims|sitelinks/urls")
	if err != nil {
		return nil, err
	}

	labels := r.resolveLabels(ctx, raw)

	position := make(map[string]int, len(titlesOrIDs))
	for i, key := range titlesOrIDs {
		if _, ok := position[key]; !ok {
			position[key] = i
		}
	}

	type ranked struct {
		pos    int
		entity model.Entity
	}
	out := make([]ranked, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, w := range raw {
		if seen[w.ID] {
			continue
		}
		seen[w.ID] = true

		e := r.flatten(w, labels)
		pos, ok := position[e.ID]
		if !ok {
			pos, ok = position[e.Title]
		}
		if !ok {
			// Redirected or normalized title: keep it after the matched ones
			pos = len(titlesOrIDs)
		}
		out = append(out, ranked{pos: pos, entity: e})
	}

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].pos != out[j].pos {
			return out[i].pos < out[j].pos
		}
		return out[i].entity.ID < out[j].entity.ID
	})

	entities := make([]model.Entity, len(out))
	for i, item := range out {
		entities[i] = item.entity
	}
	return entities, nil
}

// fetchRawEntities runs wbgetentities in batches of 50, a bounded number at a time.
// Titles and ids are batched separately since a request takes one or the other.
func (r *Remote) fetchRawEntities(ctx context.Context, keys []string, props string) ([]wbEntity, error) {
	var ids, titles []string
	for _, k := range keys {
		if k == "" {
			continue
		}
		if IsEntityID(k) {
			ids = append(ids, k)
		} else {
			titles = append(titles, k)
		}
	}

	type batch struct {
		field string
		keys  []string
	}
	var batches []batch
	for _, group := range []struct {
		field string
		keys  []string
	}{{"ids", ids}, {"titles", titles}} {
		for start := 0; start < len(group.keys); start += entityBatchSize {
			end := min(start+entityBatchSize, len(group.keys))
			batches = append(batches, batch{field: group.field, keys: group.keys[start:end]})
		}
	}

	results := make([][]wbEntity, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.entityBatches, 1))
	for i, b := range batches {
		g.Go(func() error {
			params := url.Values{
				"action":    {"wbgetentities"},
				b.field:     {strings.Join(b.keys, "|")},
				"props":     {props},
				"languages": {"en"},
			}
			if b.field == "titles" {
				params.Set("sites", "enwiki")
			}
			if strings.Contains(props, "sitelinks") {
				params.Set("sitefilter", strings.Join(entitySites, "|"))
			}

			var resp entitiesResponse
			if err := r.client.getJSON(gctx, request{
				service:   "wikidata",
				operation: "get_entities",
				endpoint:  r.endpoints.Wikidata,
				params:    params,
			}, &resp); err != nil {
				return err
			}

			found := make([]wbEntity, 0, len(resp.Entities))
			for _, w := range resp.Entities {
				if len(w.Missing) > 0 || w.ID == "" {
					continue
				}
				found = append(found, w)
			}
			results[i] = found
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var all []wbEntity
	for _, found := range results {
		all = append(all, found...)
	}
	return all, nil
}

// resolveLabels fetches English labels for every item and property an entity's claims reference.
// On failure the ids themselves stand in for labels.
func (r *Remote) resolveLabels(ctx context.Context, entities []wbEntity) map[string]string {
	labels := make(map[string]string)
	for _, w := range entities {
		if l, ok := w.Labels["en"]; ok {
			labels[w.ID] = l.Value
		}
	}

	wanted := make(map[string]bool)
	for _, w := range entities {
		for prop, statements := range w.Claims {
			wanted[prop] = true
			for _, st := range statements {
				for _, id := range referencedIDs(st.Mainsnak) {
					wanted[id] = true
				}
			}
		}
	}

	var missing []string
	for id := range wanted {
		if _, ok := labels[id]; !ok {
			missing = append(missing, id)
		}
	}
	if len(missing) == 0 {
		return labels
	}
	sort.Strings(missing)

	found, err := r.fetchRawEntities(ctx, missing, "labels")
	if err != nil {
		r.logger.Warn("label lookup failed, showing ids", zap.Int("ids", len(missing)), zap.Error(err))
		return labels
	}

	for _, w := range found {
		if l, ok := w.Labels["en"]; ok {
			labels[w.ID] = l.Value
		}
	}
	return labels
}

// referencedIDs returns the entity ids a snak points to (item values and quantity units)
func referencedIDs(s wbSnak) []string {
	if s.Datavalue == nil {
		return nil
	}

	switch s.Datavalue.Type {
	case "wikibase-entityid":
		var v struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(s.Datavalue.Value, &v) == nil && v.ID != "" {
			return []string{v.ID}
		}
	case "quantity":
		var v struct {
			Unit string `json:"unit"`
		}
		if json.Unmarshal(s.Datavalue.Value, &v) == nil {
			if id := unitID(v.Unit); id != "" {
				return []string{id}
			}
		}
	}
	return nil
}

// unitID extracts "Q11570" from "http://www.wikidata.org/entity/Q11570"; unitless quantities use "1"
func unitID(unit string) string {
	idx := strings.LastIndex(unit, "/")
	if idx < 0 {
		return ""
	}
	id := unit[idx+1:]
	if !IsEntityID(id) {
		return ""
	}
	return id
}

// flatten converts a raw entity into the flattened Entity form
func (r *Remote) flatten(w wbEntity, labels map[string]string) model.Entity {
	e := model.Entity{
		ID:     w.ID,
		Claims: make(map[model.PropertyID]model.Claim, len(w.Claims)),
	}
	if l, ok := w.Labels["en"]; ok {
		e.Labels = l.Value
	}
	if d, ok := w.Descriptions["en"]; ok {
		e.Descriptions = d.Value
	}
	for _, a := range w.Aliases["en"] {
		e.Aliases = append(e.Aliases, a.Value)
	}
	if sl, ok := w.Sitelinks["enwiki"]; ok {
		e.Title = sl.Title
	}
	for _, site := range entitySites {
		if sl, ok := w.Sitelinks[site]; ok && sl.URL != "" {
			e.Sitelinks = append(e.Sitelinks, sl.URL)
		}
	}

	for prop, statements := range w.Claims {
		claim, ok := r.flattenClaim(model.PropertyID(prop), statements, labels)
		if ok {
			e.Claims[claim.Property] = claim
		}
	}
	return e
}

// flattenClaim turns a property's statements into one Claim whose Value joins every value
func (r *Remote) flattenClaim(prop model.PropertyID, statements []wbStatement, labels map[string]string) (model.Claim, bool) {
	var values []string
	rawDatatype := ""
	for _, st := range statements {
		if st.Rank == "deprecated" || st.Mainsnak.SnakType != "value" || st.Mainsnak.Datavalue == nil {
			continue
		}
		if rawDatatype == "" {
			rawDatatype = st.Mainsnak.Datatype
		}
		if v := snakValue(st.Mainsnak, labels); v != "" {
			values = append(values, v)
		}
	}
	if len(values) == 0 {
		return model.Claim{}, false
	}

	datatype, known := model.ParseDatatype(rawDatatype)
	if !known {
		r.logger.Warn("unknown claim datatype, hiding claim",
			zap.String("property", string(prop)),
			zap.String("datatype", rawDatatype))
	}

	label := labels[string(prop)]
	if label == "" {
		label = string(prop)
	}
	return model.NewClaim(prop, datatype, label, values), true
}

// snakValue renders one snak's value as text
func snakValue(s wbSnak, labels map[string]string) string {
	dv := s.Datavalue
	switch dv.Type {
	case "string":
		var v string
		if json.Unmarshal(dv.Value, &v) == nil {
			return v
		}
	case "wikibase-entityid":
		var v struct {
			ID string `json:"id"`
		}
		if json.Unmarshal(dv.Value, &v) == nil {
			if l := labels[v.ID]; l != "" {
				return l
			}
			return v.ID
		}
	case "monolingualtext":
		var v struct {
			Text string `json:"text"`
		}
		if json.Unmarshal(dv.Value, &v) == nil {
			return v.Text
		}
	case "time":
		var v struct {
			Time      string `json:"time"`
			Precision int    `json:"precision"`
		}
		if json.Unmarshal(dv.Value, &v) == nil {
			return formatTime(v.Time, v.Precision)
		}
	case "quantity":
		var v struct {
			Amount string `json:"amount"`
			Unit   string `json:"unit"`
		}
		if json.Unmarshal(dv.Value, &v) == nil {
			amount := strings.TrimPrefix(v.Amount, "+")
			if id := unitID(v.Unit); id != "" {
				if l := labels[id]; l != "" {
					return amount + " " + l
				}
				return amount + " " + id
			}
			return amount
		}
	case "globecoordinate":
		var v struct {
			Latitude  float64 `json:"latitude"`
			Longitude float64 `json:"longitude"`
		}
		if json.Unmarshal(dv.Value, &v) == nil {
			// No ", " inside a single value
			return strconv.FormatFloat(v.Latitude, 'f', -1, 64) + "," + strconv.FormatFloat(v.Longitude, 'f', -1, 64)
		}
	}
	return ""
}

// formatTime trims a Wikibase timestamp ("+1879-03-14T00:00:00Z") to its precision:
// 11 is a day, 10 a month, 9 and coarser a year
func formatTime(ts string, precision int) string {
	ts = strings.TrimPrefix(ts, "+")
	date, _, _ := strings.Cut(ts, "T")

	neg := strings.HasPrefix(date, "-")
	date = strings.TrimPrefix(date, "-")
	parts := strings.Split(date, "-")

	var out string
	switch {
	case precision >= 11 && len(parts) == 3:
		out = strings.Join(parts, "-")
	case precision == 10 && len(parts) >= 2:
		out = parts[0] + "-" + parts[1]
	default:
		out = strings.TrimLeft(parts[0], "0")
		if out == "" {
			out = "0"
		}
	}
	if neg {
		out = "-" + out
	}
	return out
}
