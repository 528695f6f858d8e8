package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"strings"
)

// Response is a successful, normalized API response. Body always holds
// valid JSON.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       json.RawMessage
}

// Decode unmarshals the body into v
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// Object returns the body as a JSON object, or nil when it is not one
func (r *Response) Object() map[string]any {
	var obj map[string]any
	if err := json.Unmarshal(r.Body, &obj); err != nil {
		return nil
	}
	return obj
}

// detail extracts a human readable error message from the body
func (r *Response) detail() string {
	obj := r.Object()
	if d, ok := obj["detail"]; ok && d != nil {
		if s, ok := d.(string); ok {
			if s != "" {
				return s
			}
		} else if b, err := json.Marshal(d); err == nil {
			// FastAPI validation errors carry a list here
			return string(b)
		}
	}
	if s, ok := obj["_raw"].(string); ok && s != "" {
		return s
	}
	return fmt.Sprintf("HTTP %d", r.StatusCode)
}

// normalizeBody converts a raw response body into JSON:
//   - JSON content, empty body:   {}
//   - JSON content, invalid body: {"_raw": "<text>"}
//   - non-JSON content:           {"detail": "<text>"}
func normalizeBody(contentType string, raw []byte) json.RawMessage {
	if isJSONContentType(contentType) {
		trimmed := bytes.TrimSpace(raw)
		if len(trimmed) == 0 {
			return json.RawMessage(`{}`)
		}
		if !json.Valid(trimmed) {
			return wrapText("_raw", raw)
		}
		return json.RawMessage(trimmed)
	}
	return wrapText("detail", raw)
}

func wrapText(key string, raw []byte) json.RawMessage {
	b, err := json.Marshal(map[string]string{key: string(raw)})
	if err != nil {
		return json.RawMessage(`{}`)
	}
	return b
}

func isJSONContentType(contentType string) bool {
	if contentType == "" {
		return false
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(strings.SplitN(contentType, ";", 2)[0])
	}
	mediaType = strings.ToLower(mediaType)
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}
