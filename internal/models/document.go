package models

// FileType 文件类型
type FileType string

const (
	PDF       FileType = "pdf"
	PlainText FileType = "text"
)

// RawDocument is an uploaded file on its way through extraction. It is
// transient: the pipeline deletes the backing artifact (FileID) before
// Extract returns.
type RawDocument struct {
	// FileID is the key of the backing temp artifact in upload storage.
	FileID string
	// Data holds the bytes when the document never touched storage.
	Data      []byte
	MediaType string
	// Size is the size declared by the uploader.
	Size     int64
	Filename string
}

// HasContent reports whether the document carries bytes or a backing artifact.
func (d *RawDocument) HasContent() bool {
	return d != nil && (len(d.Data) > 0 || d.FileID != "")
}

// DocumentChunk is the decoded text of one structural unit (a page for PDF,
// a form-feed separated segment for plain text).
type DocumentChunk struct {
	Unit      int      `json:"unit"`
	Fragments []string `json:"fragments"`
}

// ExtractedText is the sanitized output of the ingestion pipeline.
type ExtractedText struct {
	Text      string   `json:"text"`
	Units     int      `json:"units"`
	MediaType string   `json:"mediaType"`
	FileType  FileType `json:"fileType"`
	Title     string   `json:"title,omitempty"`
	Truncated bool     `json:"truncated,omitempty"`
}
