// Package suggest answers "what can I do with this item" from a static rule
// table and from tf-idf nearest-neighbor retrieval over a small idea corpus.
package suggest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/philippgille/chromem-go"
	"go.uber.org/zap"

	"github.com/erazemk/omara/internal/model"
)

// Suggestion methods.
const (
	MethodRules   = "rules"
	MethodSimilar = "similar"
	MethodAuto    = "auto"
)

// DefaultNeighbors is how many ideas a similarity lookup returns.
const DefaultNeighbors = 3

const ideasCollection = "upcycle-ideas"

// Engine holds the idea index. It is safe for concurrent use.
type Engine struct {
	vec    *Vectorizer
	ideas  *chromem.Collection
	logger *zap.Logger
}

// NewEngine indexes the idea corpus.
func NewEngine(ctx context.Context, logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	docs := make([]string, len(ideaCorpus))
	for i, id := range ideaCorpus {
		docs[i] = id.document()
	}
	vec := NewVectorizer(docs)

	coll, err := newCollection(ctx, ideasCollection, vec, docs, func(i int) map[string]string {
		return map[string]string{"category": ideaCorpus[i].category, "idea": ideaCorpus[i].text}
	})
	if err != nil {
		return nil, fmt.Errorf("indexing ideas: %w", err)
	}

	logger.Debug("idea index ready", zap.Int("documents", coll.Count()), zap.Int("terms", vec.Dim()))
	return &Engine{vec: vec, ideas: coll, logger: logger}, nil
}

// newCollection embeds docs with vec into a fresh in-memory collection.
// Documents without a known term are left out; the document id is its index.
func newCollection(ctx context.Context, name string, vec *Vectorizer, docs []string, meta func(int) map[string]string) (*chromem.Collection, error) {
	embed := func(_ context.Context, text string) ([]float32, error) {
		v := vec.Transform(text)
		if isZero(v) {
			return nil, fmt.Errorf("no known terms in %q", text)
		}
		return v, nil
	}

	coll, err := chromem.NewDB().CreateCollection(name, nil, embed)
	if err != nil {
		return nil, err
	}

	batch := make([]chromem.Document, 0, len(docs))
	for i, doc := range docs {
		v := vec.Transform(doc)
		if isZero(v) {
			continue
		}
		batch = append(batch, chromem.Document{
			ID:        strconv.Itoa(i),
			Content:   doc,
			Metadata:  meta(i),
			Embedding: v,
		})
	}
	if len(batch) > 0 {
		if err := coll.AddDocuments(ctx, batch, 1); err != nil {
			return nil, err
		}
	}
	return coll, nil
}

// Upcycle returns ideas for itemType using method (auto when empty).
func (e *Engine) Upcycle(ctx context.Context, itemType, method string) ([]string, error) {
	itemType = strings.TrimSpace(itemType)
	switch method {
	case MethodRules:
		if itemType == "" {
			return clone(genericIdeas), nil
		}
		if ideas := Rules(itemType); ideas != nil {
			return ideas, nil
		}
		return []string{NoSuggestions}, nil

	case MethodSimilar:
		if itemType == "" {
			return clone(genericSimilar), nil
		}
		ideas, err := e.Similar(ctx, itemType, DefaultNeighbors)
		if err != nil {
			return nil, err
		}
		if len(ideas) == 0 {
			return []string{NoSuggestions}, nil
		}
		return ideas, nil

	case MethodAuto, "":
		if itemType == "" {
			return clone(genericIdeas), nil
		}
		if ideas := Rules(itemType); ideas != nil {
			return ideas, nil
		}
		ideas, err := e.Similar(ctx, itemType, DefaultNeighbors)
		if err != nil {
			return nil, err
		}
		if len(ideas) == 0 {
			return []string{NoSuggestions}, nil
		}
		return ideas, nil

	default:
		return nil, &model.ValidationError{Field: "method", Reason: fmt.Sprintf("unknown method %q (want rules, similar or auto)", method)}
	}
}

// Rules looks up the fixed ideas for itemType, or nil when there are none.
func Rules(itemType string) []string {
	key := strings.NewReplacer("-", "", " ", "", "_", "").Replace(strings.ToLower(itemType))
	if ideas, ok := upcycleRules[key]; ok {
		return clone(ideas)
	}
	if ideas, ok := upcycleRules[strings.TrimSuffix(key, "s")]; ok {
		return clone(ideas)
	}
	return nil
}

// Similar returns up to k corpus ideas closest to text, most similar first.
// Ideas sharing no term with text are never returned.
func (e *Engine) Similar(ctx context.Context, text string, k int) ([]string, error) {
	q := e.vec.Transform(text)
	if isZero(q) || k <= 0 {
		return nil, nil
	}
	k = min(k, e.ideas.Count())

	res, err := e.ideas.QueryEmbedding(ctx, q, k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying ideas: %w", err)
	}

	out := make([]string, 0, len(res))
	for _, r := range res {
		if r.Similarity <= 0 {
			continue
		}
		out = append(out, r.Metadata["idea"])
	}
	return out, nil
}

func clone(s []string) []string {
	return append([]string(nil), s...)
}
