package detector

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"

	"petfinder/internal/encoder"
)

// clipLogitScale is the temperature CLIP was trained with.
const clipLogitScale = 100

// ZeroShot classifies the photo embedding against text prompts embedded by
// the same CLIP model.
type ZeroShot struct {
	text encoder.TextEncoder

	mu   sync.Mutex
	sets map[string]*labelSet
}

type labelSet struct {
	values []string
	vecs   []encoder.Vector
}

func NewZeroShot(text encoder.TextEncoder) *ZeroShot {
	return &ZeroShot{text: text, sets: make(map[string]*labelSet)}
}

func (z *ZeroShot) Detect(ctx context.Context, in Input) (Analysis, error) {
	if in.Vector == nil {
		return Analysis{}, ErrNoVector
	}
	vec, err := in.Vector(ctx)
	if err != nil {
		return Analysis{}, err
	}

	a := Analysis{Source: "zeroshot"}

	species, err := z.labels(ctx, "species", Species, func(s string) string {
		return "a photo of a " + s
	})
	if err != nil {
		return Analysis{}, err
	}
	a.Species = classify(vec, species)

	colors, err := z.labels(ctx, "color", Colors, func(c string) string {
		return "a photo of a " + strings.ReplaceAll(c, "_", " ") + " animal"
	})
	if err != nil {
		return Analysis{}, err
	}
	a.Color = classify(vec, colors)

	if breeds := Breeds[a.Species.Value]; len(breeds) > 0 {
		kind := a.Species.Value
		set, err := z.labels(ctx, "breed:"+kind, breeds, func(b string) string {
			return fmt.Sprintf("a photo of a %s, a type of %s", b, kind)
		})
		if err != nil {
			return Analysis{}, err
		}
		a.Breed = classify(vec, set)
	}
	return a, nil
}

// labels embeds a prompt set once and caches it. A failed attempt is not
// cached so a later call can retry.
func (z *ZeroShot) labels(ctx context.Context, key string, values []string, prompt func(string) string) (*labelSet, error) {
	z.mu.Lock()
	defer z.mu.Unlock()
	if set, ok := z.sets[key]; ok {
		return set, nil
	}
	set := &labelSet{values: values, vecs: make([]encoder.Vector, len(values))}
	for i, v := range values {
		vec, err := z.text.EmbedText(ctx, prompt(v))
		if err != nil {
			return nil, fmt.Errorf("detector: embed %s prompt %q: %w", key, v, err)
		}
		set.vecs[i] = vec
	}
	z.sets[key] = set
	return set, nil
}

// classify returns the most probable label under softmax(scale * cosine).
func classify(vec encoder.Vector, set *labelSet) Label {
	if len(set.values) == 0 {
		return Label{}
	}
	logits := make([]float64, len(set.vecs))
	best := 0
	for i, lv := range set.vecs {
		if len(lv) != len(vec) {
			logits[i] = math.Inf(-1)
			continue
		}
		logits[i] = clipLogitScale * float64(encoder.Dot(vec, lv))
		if logits[i] > logits[best] {
			best = i
		}
	}
	if math.IsInf(logits[best], -1) {
		return Label{}
	}

	var sum float64
	for _, l := range logits {
		sum += math.Exp(l - logits[best])
	}
	return Label{Value: set.values[best], Confidence: 1 / sum}
}
