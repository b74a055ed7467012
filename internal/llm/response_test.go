package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseReviewResponse(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		want      *ReviewResponse
		expectErr bool
	}{
		{
			name:  "Valid response",
			input: `{"migrations":[{"filename":"a.php","comment":"Adds a column.","changes":"","safe":true}]}`,
			want: &ReviewResponse{Migrations: []ReviewEntry{
				{Filename: "a.php", Comment: "Adds a column.", Changes: "", Safe: true},
			}},
		},
		{
			name:  "Empty list",
			input: `{"migrations":[]}`,
			want:  &ReviewResponse{Migrations: []ReviewEntry{}},
		},
		{
			name:  "Fenced JSON",
			input: "```json\n{\"migrations\":[{\"filename\":\"b.php\",\"comment\":\"c\",\"changes\":\"x\",\"safe\":false}]}\n```",
			want: &ReviewResponse{Migrations: []ReviewEntry{
				{Filename: "b.php", Comment: "c", Changes: "x", Safe: false},
			}},
		},
		{
			name:      "Missing safe",
			input:     `{"migrations":[{"filename":"a.php","comment":"c","changes":""}]}`,
			expectErr: true,
		},
		{
			name:      "Missing changes",
			input:     `{"migrations":[{"filename":"a.php","comment":"c","safe":true}]}`,
			expectErr: true,
		},
		{
			name:      "Unknown entry field",
			input:     `{"migrations":[{"filename":"a.php","comment":"c","changes":"","safe":true,"severity":"high"}]}`,
			expectErr: true,
		},
		{
			name:      "Unknown top-level field",
			input:     `{"migrations":[],"summary":"ok"}`,
			expectErr: true,
		},
		{
			name:      "Missing migrations",
			input:     `{}`,
			expectErr: true,
		},
		{
			name:      "Wrong type",
			input:     `{"migrations":[{"filename":"a.php","comment":"c","changes":"","safe":"yes"}]}`,
			expectErr: true,
		},
		{
			name:      "Trailing data",
			input:     `{"migrations":[]} {"migrations":[]}`,
			expectErr: true,
		},
		{
			name:      "Not JSON",
			input:     "The migration looks fine.",
			expectErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseReviewResponse(tt.input)
			if tt.expectErr {
				assert.ErrorIs(t, err, ErrInvalidResponse)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponseSchema(t *testing.T) {
	schema, err := ResponseSchema()
	require.NoError(t, err)

	assert.NotContains(t, schema, "$schema")
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.ElementsMatch(t, []any{"migrations"}, schema["required"])

	props := schema["properties"].(map[string]any)
	migrations := props["migrations"].(map[string]any)
	assert.Equal(t, "array", migrations["type"])
	assert.Equal(t, "An array of migration review objects.", migrations["description"])

	items := migrations["items"].(map[string]any)
	assert.Equal(t, false, items["additionalProperties"])
	assert.ElementsMatch(t, []any{"filename", "comment", "changes", "safe"}, items["required"])

	fields := items["properties"].(map[string]any)
	assert.Equal(t, "Assessment of what's happening in the migration.", fields["comment"].(map[string]any)["description"])
	assert.Equal(t, "boolean", fields["safe"].(map[string]any)["type"])
}

func TestEstimateTokens(t *testing.T) {
	assert.Equal(t, 0, EstimateTokens(""))
	assert.Equal(t, 3, EstimateTokens("select 1;"))
}
