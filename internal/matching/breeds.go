package matching

import (
	"strings"
)

// genericBreeds are answers that say nothing about the breed.
var genericBreeds = toSet(
	"mixed", "mixed breed", "mix", "mongrel", "metis", "unknown",
	"domestic shorthair", "domestic short hair", "domestic longhair",
	"смешанная порода", "домашняя короткошерстная", "метис", "дворняга",
	"беспородная", "неизвестно",
)

func toSet(values ...string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, v := range values {
		set[v] = struct{}{}
	}
	return set
}

// IsGenericBreed reports whether breed is a no-breed sentinel.
func IsGenericBreed(breed string) bool {
	_, ok := genericBreeds[normalize(breed)]
	return ok
}

// DefaultBreedFamilies groups spellings that should match each other. A
// breed belongs to a family when it contains any of the family's patterns.
var DefaultBreedFamilies = [][]string{
	{"husky", "siberian", "хаски", "сибирский"},
	{"labrador", "лабрадор"},
	{"shepherd", "овчарка"},
	{"retriever", "ретривер"},
	{"dachshund", "такса"},
	{"bulldog", "бульдог"},
	{"spaniel", "спаниель"},
	{"terrier", "терьер"},
	{"persian", "персидская"},
	{"siamese", "сиамская"},
	{"british", "британская"},
	{"maine coon", "maine-coon", "мейн-кун", "мейн кун"},
}

type BreedFamilies struct {
	families [][]string
}

func NewBreedFamilies(families [][]string) BreedFamilies {
	out := make([][]string, 0, len(families))
	for _, fam := range families {
		norm := make([]string, 0, len(fam))
		for _, p := range fam {
			if p = normalize(p); p != "" {
				norm = append(norm, p)
			}
		}
		if len(norm) > 0 {
			out = append(out, norm)
		}
	}
	return BreedFamilies{families: out}
}

// Patterns returns the substrings a stored breed may contain to count as
// the same breed: the breed itself plus every pattern of each family it
// belongs to.
func (b BreedFamilies) Patterns(breed string) []string {
	breed = normalize(breed)
	if breed == "" {
		return nil
	}
	seen := map[string]struct{}{breed: {}}
	patterns := []string{breed}
	for _, fam := range b.families {
		if !memberOf(breed, fam) {
			continue
		}
		for _, p := range fam {
			if _, dup := seen[p]; dup {
				continue
			}
			seen[p] = struct{}{}
			patterns = append(patterns, p)
		}
	}
	return patterns
}

func memberOf(breed string, family []string) bool {
	for _, p := range family {
		if strings.Contains(breed, p) {
			return true
		}
	}
	return false
}

func normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
