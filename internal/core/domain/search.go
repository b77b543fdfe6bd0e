package domain

// Default ranking weights for hybrid search.
const (
	DefaultContentWeight  = 0.6
	DefaultMetadataWeight = 0.4
)

// SearchHit is a single ranked result. It is ephemeral and never persisted.
type SearchHit struct {
	// DocumentID is the matched document.
	DocumentID string

	// CID is the content identifier copied from the document metadata.
	CID string

	// Score is the final relevance score in (0,1].
	Score float64

	// Summary is the indexed summary text of the document.
	Summary string

	// Metadata is the document's metadata mapping.
	Metadata map[string]any

	// ContentScore is the contribution from the content index (0 if the
	// document had no matching chunk).
	ContentScore float64

	// MetadataScore is the contribution from the metadata index (0 if the
	// document was not a metadata hit).
	MetadataScore float64
}

// SearchConfig echoes the effective ranking parameters of a hybrid search.
type SearchConfig struct {
	ContentWeight  float64 `json:"content_weight"`
	MetadataWeight float64 `json:"metadata_weight"`
	NResults       int     `json:"n_results"`
}
