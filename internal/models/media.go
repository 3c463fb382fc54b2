package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// MediaKind tags the shape of an alert's media
type MediaKind int

const (
	MediaNone MediaKind = iota
	MediaSingle
	MediaMany
)

// Media is the file references attached to an alert.
// Clients send it as null, a single path, a list of paths or an object;
// it is normalized here so nothing downstream has to guess.
type Media struct {
	kind  MediaKind
	paths []string
}

// NoMedia returns empty media
func NoMedia() Media {
	return Media{kind: MediaNone}
}

// SingleMedia returns media holding one path. A blank path yields NoMedia.
func SingleMedia(path string) Media {
	path = strings.TrimSpace(path)
	if path == "" {
		return NoMedia()
	}
	return Media{kind: MediaSingle, paths: []string{path}}
}

// ManyMedia returns media for the given paths, dropping blanks.
// Zero or one remaining path collapses to NoMedia or SingleMedia.
func ManyMedia(paths []string) Media {
	kept := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	switch len(kept) {
	case 0:
		return NoMedia()
	case 1:
		return Media{kind: MediaSingle, paths: kept}
	}
	return Media{kind: MediaMany, paths: kept}
}

// Kind returns the variant
func (m Media) Kind() MediaKind {
	return m.kind
}

// Paths returns a copy of the paths, never nil
func (m Media) Paths() []string {
	out := make([]string, len(m.paths))
	copy(out, m.paths)
	return out
}

// Len returns the number of paths
func (m Media) Len() int {
	return len(m.paths)
}

// MarshalJSON always renders a list of paths
func (m Media) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Paths())
}

// UnmarshalJSON accepts null, "path", ["a","b"], {"path":"a"} and {"paths":["a"]}
func (m *Media) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*m = NoMedia()
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return fmt.Errorf("invalid media path: %w", err)
		}
		*m = SingleMedia(s)
	case '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return fmt.Errorf("invalid media list: %w", err)
		}
		*m = ManyMedia(list)
	case '{':
		var obj struct {
			Path  string   `json:"path"`
			Paths []string `json:"paths"`
		}
		if err := json.Unmarshal(data, &obj); err != nil {
			return fmt.Errorf("invalid media object: %w", err)
		}
		*m = ManyMedia(append([]string{obj.Path}, obj.Paths...))
	default:
		return fmt.Errorf("unsupported media value %s", data)
	}
	return nil
}
