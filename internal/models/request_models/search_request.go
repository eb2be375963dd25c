package request_models

// SearchRequest is the JSON body of POST /search. Image is base64, with or
// without a data URL prefix. Either Image or QueryText is required.
type SearchRequest struct {
	Image           string   `json:"image" form:"image"`
	QueryText       string   `json:"query_text" form:"query_text"`
	Species         string   `json:"species" form:"species"`
	Breed           string   `json:"breed" form:"breed"`
	BreedConfidence *float64 `json:"breed_confidence" form:"breed_confidence"`
	Color           string   `json:"color" form:"color"`
	Features        []string `json:"features" form:"features"`
	Status          string   `json:"status" form:"status"`
}
