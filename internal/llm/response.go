package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

var ErrInvalidResponse = errors.New("response does not match the review schema")

type rawResponse struct {
	Migrations *[]rawEntry `json:"migrations"`
}

type rawEntry struct {
	Filename *string `json:"filename"`
	Comment  *string `json:"comment"`
	Changes  *string `json:"changes"`
	Safe     *bool   `json:"safe"`
}

// ParseReviewResponse decodes a provider reply. Unknown fields, missing
// fields and trailing data are all rejected. A surrounding markdown code
// fence is tolerated because some models add one despite instructions.
func ParseReviewResponse(text string) (*ReviewResponse, error) {
	dec := json.NewDecoder(strings.NewReader(stripCodeFence(text)))
	dec.DisallowUnknownFields()

	var raw rawResponse
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidResponse, err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: unexpected data after the JSON object", ErrInvalidResponse)
	}
	if raw.Migrations == nil {
		return nil, fmt.Errorf("%w: missing field \"migrations\"", ErrInvalidResponse)
	}

	out := &ReviewResponse{Migrations: make([]ReviewEntry, 0, len(*raw.Migrations))}
	for i, e := range *raw.Migrations {
		switch {
		case e.Filename == nil:
			return nil, fmt.Errorf("%w: migrations[%d] is missing \"filename\"", ErrInvalidResponse, i)
		case e.Comment == nil:
			return nil, fmt.Errorf("%w: migrations[%d] is missing \"comment\"", ErrInvalidResponse, i)
		case e.Changes == nil:
			return nil, fmt.Errorf("%w: migrations[%d] is missing \"changes\"", ErrInvalidResponse, i)
		case e.Safe == nil:
			return nil, fmt.Errorf("%w: migrations[%d] is missing \"safe\"", ErrInvalidResponse, i)
		}
		out.Migrations = append(out.Migrations, ReviewEntry{
			Filename: *e.Filename,
			Comment:  *e.Comment,
			Changes:  *e.Changes,
			Safe:     *e.Safe,
		})
	}
	return out, nil
}

// ParseReviewJSON is ParseReviewResponse for raw bytes, e.g. a tool input.
func ParseReviewJSON(data []byte) (*ReviewResponse, error) {
	return ParseReviewResponse(string(bytes.TrimSpace(data)))
}

func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		// drop an info string such as "json"
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
