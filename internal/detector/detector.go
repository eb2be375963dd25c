// Package detector infers species, breed, color and special features from a
// photo. Detection only assists search; callers treat a failed detection as
// an empty analysis.
package detector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"petfinder/internal/encoder"
)

type Label struct {
	Value      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

func (l Label) Empty() bool { return l.Value == "" }

type Analysis struct {
	Species  Label
	Breed    Label
	Color    Label
	Features []string
	Source   string
}

// Input gives a detector the decoded photo and, lazily, its embedding. The
// embedding is usually being computed concurrently; detectors that do not
// need it never wait for it.
type Input struct {
	Image  encoder.Normalized
	Vector func(ctx context.Context) (encoder.Vector, error)
}

type Detector interface {
	Detect(ctx context.Context, in Input) (Analysis, error)
}

var ErrNoVector = errors.New("detector: image embedding not available")

// None disables detection.
type None struct{}

func (None) Detect(context.Context, Input) (Analysis, error) { return Analysis{Source: "none"}, nil }

var Species = []string{"cat", "dog", "bird", "rodent", "rabbit", "reptile", "other"}

var Colors = []string{
	"white", "black", "gray", "light_gray", "dark_gray", "brown", "red", "orange",
	"yellow", "golden", "green", "blue", "purple", "multicolor", "spotted", "striped", "tuxedo",
}

var Features = []string{
	"heterochromia", "ear_fold", "eye_spot", "missing_eye", "tail_missing", "limb_missing",
	"albino", "vitiligo", "spotted_pattern", "striped_pattern", "fluffy_coat", "curly_coat",
	"scar", "collar",
}

// Breeds lists the breeds the zero-shot detector distinguishes per species.
var Breeds = map[string][]string{
	"dog": {
		"labrador retriever", "golden retriever", "german shepherd", "siberian husky",
		"dachshund", "french bulldog", "english bulldog", "cocker spaniel",
		"yorkshire terrier", "jack russell terrier", "beagle", "poodle", "chihuahua",
		"pug", "corgi", "border collie", "rottweiler", "doberman", "shih tzu", "mixed breed",
	},
	"cat": {
		"persian", "siamese", "british shorthair", "maine coon", "sphynx",
		"scottish fold", "bengal", "ragdoll", "russian blue", "domestic shorthair",
	},
}

func oneOf(v string, allowed []string) (string, bool) {
	v = strings.ReplaceAll(strings.ToLower(strings.TrimSpace(v)), " ", "_")
	for _, a := range allowed {
		if v == a {
			return a, true
		}
	}
	return "", false
}

// llmAnalysis is the JSON shape vision LLMs are asked to return.
type llmAnalysis struct {
	AnimalType      *Label   `json:"animal_type"`
	Breed           *Label   `json:"breed"`
	Color           *Label   `json:"color"`
	SpecialFeatures []string `json:"special_features"`
}

const llmPrompt = `You analyse photos of lost and found pets.
Return JSON only, no markdown, matching exactly:
{"animal_type":{"label":"<species>","confidence":0.0},"breed":{"label":"<breed or unknown>","confidence":0.0},"color":{"label":"<color>","confidence":0.0},"special_features":["<feature>"]}
Allowed species: %s.
Allowed colors: %s.
Allowed special features: %s.
Confidence is a number between 0 and 1. Use "unknown" as breed when unsure.`

func buildPrompt() string {
	return fmt.Sprintf(llmPrompt,
		strings.Join(Species, ", "),
		strings.Join(Colors, ", "),
		strings.Join(Features, ", "))
}

// parseLLMAnalysis validates an LLM answer against the allowed vocabularies.
// Labels outside them are dropped rather than trusted.
func parseLLMAnalysis(raw, source string) (Analysis, error) {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	var out llmAnalysis
	if err := json.Unmarshal([]byte(strings.TrimSpace(raw)), &out); err != nil {
		return Analysis{}, fmt.Errorf("detector: %s returned invalid JSON: %w", source, err)
	}

	a := Analysis{Source: source}
	if out.AnimalType != nil {
		if v, ok := oneOf(out.AnimalType.Value, Species); ok {
			a.Species = Label{Value: v, Confidence: clamp(out.AnimalType.Confidence)}
		}
	}
	if out.Color != nil {
		if v, ok := oneOf(out.Color.Value, Colors); ok {
			a.Color = Label{Value: v, Confidence: clamp(out.Color.Confidence)}
		}
	}
	if out.Breed != nil {
		if v := strings.TrimSpace(out.Breed.Value); v != "" {
			a.Breed = Label{Value: v, Confidence: clamp(out.Breed.Confidence)}
		}
	}
	for _, f := range out.SpecialFeatures {
		if v, ok := oneOf(f, Features); ok {
			a.Features = append(a.Features, v)
		}
	}
	return a, nil
}

func clamp(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	}
	return x
}
