package response_models

import "time"

type Label struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

type Analysis struct {
	Species  *Label   `json:"type"`
	Breed    *Label   `json:"breed"`
	Color    *Label   `json:"color"`
	Features []string `json:"special_features"`
	Source   string   `json:"source,omitempty"`
}

type SimilarPet struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Description     string    `json:"description"`
	PhotoURL        string    `json:"photo_url,omitempty"`
	Type            string    `json:"type"`
	Breed           string    `json:"breed"`
	Color           string    `json:"color"`
	Sex             string    `json:"sex,omitempty"`
	Status          string    `json:"status"`
	Author          string    `json:"author,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	Location        string    `json:"location,omitempty"`
	Latitude        *float64  `json:"latitude,omitempty"`
	Longitude       *float64  `json:"longitude,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	Similarity      float64   `json:"similarity_score"`
	MatchType       string    `json:"match_type"`
	MatchedFeatures []string  `json:"matched_features,omitempty"`
}

type SearchResponse struct {
	Analysis    Analysis     `json:"analysis"`
	SimilarPets []SimilarPet `json:"similar_pets"`
	TotalFound  int          `json:"total_found"`
	Degraded    []string     `json:"degraded,omitempty"`
}

type IndexStatus struct {
	Count     int        `json:"count"`
	Dimension int        `json:"dimension"`
	BuiltAt   *time.Time `json:"built_at,omitempty"`
	Building  bool       `json:"building"`
	LastBuild *BuildInfo `json:"last_build,omitempty"`
	LastError string     `json:"last_error,omitempty"`
}

type BuildInfo struct {
	Total      int       `json:"total"`
	Indexed    int       `json:"indexed"`
	Skipped    int       `json:"skipped"`
	Failed     int       `json:"failed"`
	CacheHits  int       `json:"cache_hits"`
	Dimension  int       `json:"dimension"`
	DurationMS int64     `json:"duration_ms"`
	StartedAt  time.Time `json:"started_at"`
}
