package suggest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/erazemk/omara/internal/model"
)

// Recommendation pairs an item with its closest wardrobe matches.
type Recommendation struct {
	BaseItem         string   `json:"base_item"`
	Event            string   `json:"event"`
	SuggestedMatches []string `json:"suggested_matches"`
	MatchIDs         []int64  `json:"match_ids"`
	StyleTip         string   `json:"style_tip"`
}

const defaultEvent = "casual"

// Style recommends up to DefaultNeighbors other wardrobe items to wear with
// base, ranked by tf-idf similarity of their descriptions.
func (e *Engine) Style(ctx context.Context, base model.Item, wardrobe []model.Item, event string) (*Recommendation, error) {
	event = strings.ToLower(strings.TrimSpace(event))
	if event == "" {
		event = defaultEvent
	}
	rec := &Recommendation{
		BaseItem:         itemName(base),
		Event:            event,
		SuggestedMatches: []string{},
		MatchIDs:         []int64{},
	}

	others := make([]model.Item, 0, len(wardrobe))
	for _, it := range wardrobe {
		if it.ID != base.ID {
			others = append(others, it)
		}
	}
	if len(others) == 0 {
		rec.StyleTip = "No wardrobe data available"
		return rec, nil
	}

	matches, err := e.nearestItems(ctx, base, others, min(DefaultNeighbors, len(others)))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		rec.SuggestedMatches = append(rec.SuggestedMatches, itemName(m))
		rec.MatchIDs = append(rec.MatchIDs, m.ID)
	}
	rec.StyleTip = styleTip(rec.BaseItem, event, rec.SuggestedMatches)
	return rec, nil
}

// nearestItems ranks others by similarity to base. Items the index cannot
// rank follow in wardrobe order.
func (e *Engine) nearestItems(ctx context.Context, base model.Item, others []model.Item, k int) ([]model.Item, error) {
	texts := make([]string, len(others))
	for i, it := range others {
		texts[i] = describe(it)
	}
	vec := NewVectorizer(append(texts, describe(base)))

	coll, err := newCollection(ctx, "wardrobe", vec, texts, func(int) map[string]string { return nil })
	if err != nil {
		return nil, fmt.Errorf("indexing wardrobe: %w", err)
	}

	picked := make([]model.Item, 0, k)
	used := make(map[int]bool, k)

	q := vec.Transform(describe(base))
	if n := min(k, coll.Count()); n > 0 && !isZero(q) {
		res, err := coll.QueryEmbedding(ctx, q, n, nil, nil)
		if err != nil {
			return nil, fmt.Errorf("querying wardrobe: %w", err)
		}
		for _, r := range res {
			i, err := strconv.Atoi(r.ID)
			if err != nil {
				return nil, fmt.Errorf("wardrobe document id %q: %w", r.ID, err)
			}
			picked = append(picked, others[i])
			used[i] = true
		}
	}

	for i := 0; i < len(others) && len(picked) < k; i++ {
		if !used[i] {
			picked = append(picked, others[i])
		}
	}
	return picked, nil
}

func describe(it model.Item) string {
	return strings.Join([]string{it.Type, it.Color, it.Material}, " ")
}

func itemName(it model.Item) string {
	if it.Type == "" {
		return "clothing"
	}
	return it.Type
}

func styleTip(base, event string, matches []string) string {
	list := strings.Join(matches, ", ")
	switch {
	case strings.Contains(event, "meeting"), strings.Contains(event, "work"):
		return fmt.Sprintf("Pair %s with formal items (%s) for %s.", base, list, event)
	case strings.Contains(event, "party"), strings.Contains(event, "wedding"):
		return fmt.Sprintf("Combine %s with festive matches (%s) for %s.", base, list, event)
	default:
		return fmt.Sprintf("Style %s casually with %s for a relaxed %s look.", base, list, event)
	}
}
