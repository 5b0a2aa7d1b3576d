package mode

// Mode selects the search endpoint granularity.
type Mode string

// Search mode constants.
const (
	// Chunks ranks individual content chunks.
	Chunks Mode = "chunks"
	// Docs ranks whole documents.
	Docs Mode = "docs"
)

// IsValid checks if the mode is one of the supported values.
func (m Mode) IsValid() bool {
	return m == Chunks || m == Docs
}
