package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMediaUnmarshalShapes(t *testing.T) {
	tests := []struct {
		name  string
		input string
		kind  MediaKind
		paths []string
	}{
		{"null", `null`, MediaNone, []string{}},
		{"empty string", `""`, MediaNone, []string{}},
		{"single string", `"uploads/a.jpg"`, MediaSingle, []string{"uploads/a.jpg"}},
		{"list", `["a.jpg","b.jpg"]`, MediaMany, []string{"a.jpg", "b.jpg"}},
		{"list of one", `["a.jpg"]`, MediaSingle, []string{"a.jpg"}},
		{"list with blanks", `["", " ", "a.jpg"]`, MediaSingle, []string{"a.jpg"}},
		{"object path", `{"path":"a.jpg"}`, MediaSingle, []string{"a.jpg"}},
		{"object paths", `{"paths":["a.jpg","b.jpg"]}`, MediaMany, []string{"a.jpg", "b.jpg"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var m Media
			require.NoError(t, json.Unmarshal([]byte(tt.input), &m))
			assert.Equal(t, tt.kind, m.Kind())
			assert.Equal(t, tt.paths, m.Paths())
		})
	}
}

func TestMediaUnmarshalRejectsNumbers(t *testing.T) {
	var m Media
	assert.Error(t, json.Unmarshal([]byte(`42`), &m))
}

func TestMediaInsideAlertRendersAsList(t *testing.T) {
	alert := Alert{ID: "a1", Media: NoMedia()}
	data, err := json.Marshal(alert)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, []any{}, raw["media"])
}
