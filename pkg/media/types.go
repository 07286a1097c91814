// Package media holds multimodal content parts and the inbound media
// aggregator that folds an album's burst of platform events into one
// logical submission.
package media

// ContentPart represents a single part of a multimodal message.
// Used to pass processed media between channels, bus, and providers
// without circular imports.
type ContentPart struct {
	Type      string `json:"type"`       // "text" or "image"
	Text      string `json:"text"`       // for type="text"
	MediaType string `json:"media_type"` // MIME type, e.g. "image/jpeg"
	Data      string `json:"data"`       // base64-encoded image data
	FileName  string `json:"file_name"`  // original filename
}

// TextPart builds a text content part.
func TextPart(text string) ContentPart {
	return ContentPart{Type: "text", Text: text}
}

// ImagePart builds an image content part from base64 payload data.
func ImagePart(mediaType, data string) ContentPart {
	return ContentPart{Type: "image", MediaType: mediaType, Data: data}
}
