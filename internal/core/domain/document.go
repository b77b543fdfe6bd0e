package domain

// System-managed metadata keys. These are set by the core on write and
// copied onto every chunk belonging to the document.
const (
	MetaCID          = "cid"
	MetaDatasetTitle = "dataset_title"
	MetaFileType     = "file_type"
	MetaOwnerAddress = "owner_address"
	MetaDiseaseTags  = "disease_tags"
	MetaSupersedes   = "supersedes"

	MetaChunkIndex  = "chunk_index"
	MetaTotalChunks = "total_chunks"
	MetaParentDocID = "parent_doc_id"
)

// Document represents a stored dataset summary.
// It is the logical unit a caller stores and later mutates.
type Document struct {
	// ID is the unique identifier, assigned at creation time.
	// It embeds a creation timestamp but is not strictly ordered.
	ID string

	// Summary is the human-authored dataset description.
	Summary string

	// DatasetTitle is the display title; combined with Summary to form
	// the text indexed in the metadata index.
	DatasetTitle string

	// CID is the content identifier of the underlying dataset payload.
	CID string

	// FileType describes the original file format (e.g. "spreadsheet").
	FileType string

	// OwnerAddress is the identity recorded at creation and checked
	// case-insensitively against callers on mutation.
	OwnerAddress string

	// Metadata contains caller-supplied scalar key-value pairs plus
	// system-added keys (cid, dataset_title, file_type, owner_address).
	Metadata map[string]any

	// ExtractedContent is optional long-form text (e.g. tabular data
	// rendered as text). It is chunked for content indexing and never
	// stored verbatim as a single index record past the chunk threshold.
	ExtractedContent string
}

// Chunk represents a content index record: one bounded slice of a
// document's extracted content.
type Chunk struct {
	// ID is "{parent_id}_chunk_{i}" with a zero-based index.
	ID string

	// ParentID links to the Document whose content produced this chunk.
	ParentID string

	// Text is the chunk content, non-empty.
	Text string

	// Index is the zero-based position within the parent's content.
	Index int

	// Metadata is a copy of the parent document's metadata plus
	// chunk_index, total_chunks and parent_doc_id.
	Metadata map[string]any
}

// OwnerOf extracts the owner address from a metadata mapping.
func OwnerOf(metadata map[string]any) string {
	owner, _ := metadata[MetaOwnerAddress].(string)
	return owner
}
