package chat

import "strings"

const (
	imageOpenTag  = "[IMAGE_URL]"
	imageCloseTag = "[/IMAGE_URL]"

	// ServerErrorPrefix marks a data frame the server uses to report a failure
	// in-band instead of through the transport.
	ServerErrorPrefix = "错误："
)

// Chunk is one server-push event of a chat stream.
type Chunk struct {
	Event    string `json:"event,omitempty"`
	ID       string `json:"id,omitempty"`
	Text     string `json:"text"`
	ImageURL string `json:"imageUrl,omitempty"`
}

// NewChunk builds a chunk from raw event data, lifting an image marker into
// ImageURL when the data is wrapped as [IMAGE_URL]url[/IMAGE_URL].
func NewChunk(event, id, data string) Chunk {
	chunk := Chunk{Event: event, ID: id, Text: data}
	if url, ok := ParseImageMarker(data); ok {
		chunk.ImageURL = url
	}
	return chunk
}

// IsServerError reports whether the chunk is an in-band error frame.
func (c Chunk) IsServerError() bool {
	return strings.HasPrefix(c.Text, ServerErrorPrefix)
}

// ParseImageMarker extracts the url of a [IMAGE_URL]...[/IMAGE_URL] marker.
func ParseImageMarker(data string) (string, bool) {
	start := strings.Index(data, imageOpenTag)
	if start < 0 {
		return "", false
	}
	rest := data[start+len(imageOpenTag):]
	end := strings.Index(rest, imageCloseTag)
	if end < 0 {
		return "", false
	}
	url := strings.TrimSpace(rest[:end])
	return url, url != ""
}

// ImageMarker wraps url in the marker understood by ParseImageMarker.
func ImageMarker(url string) string {
	return imageOpenTag + url + imageCloseTag
}
