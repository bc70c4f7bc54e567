package domain

// SourceMetadata describes where a retrieved document came from. Relevance
// and recency are independent scores in [0, 1]; ranking combines them only at
// citation-formatting time.
type SourceMetadata struct {
	Name         string  `json:"source"`
	LastModified string  `json:"last_modified"`
	Relevance    float64 `json:"relevance_score"`
	Recency      float64 `json:"date_score"`
	URL          string  `json:"url,omitempty"`
}
