package domain

import (
	"reflect"
	"testing"
)

func TestChunk_IsValid(t *testing.T) {
	tests := []struct {
		name  string
		chunk *Chunk
		want  bool
	}{
		{"valid", &Chunk{ID: "a_0", Text: "hello"}, true},
		{"empty id", &Chunk{ID: "", Text: "hello"}, false},
		{"empty text", &Chunk{ID: "a_0", Text: ""}, false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.chunk.IsValid(); got != tt.want {
				t.Errorf("IsValid() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPrefixOf(t *testing.T) {
	tests := []struct {
		id   string
		want string
	}{
		{"report_0", "report"},
		{"annual_report_12", "annual_report"},
		{"noprefix", "noprefix"},
		{"_3", ""},
		{"", ""},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			if got := PrefixOf(tt.id); got != tt.want {
				t.Errorf("PrefixOf(%q) = %q, want %q", tt.id, got, tt.want)
			}
		})
	}
}

func TestChunkID(t *testing.T) {
	if got := ChunkID("manual", 3); got != "manual_3" {
		t.Errorf("expected manual_3, got %s", got)
	}
	c := &Chunk{ID: ChunkID("bpmn_guide", 0)}
	if c.Prefix() != "bpmn_guide" {
		t.Errorf("expected prefix bpmn_guide, got %s", c.Prefix())
	}
}

func TestGroupByPrefix(t *testing.T) {
	groups := GroupByPrefix([]string{"a_0", "b_0", "a_1", "c"})

	want := map[string][]string{
		"a": {"a_0", "a_1"},
		"b": {"b_0"},
		"c": {"c"},
	}
	if !reflect.DeepEqual(groups, want) {
		t.Errorf("expected %v, got %v", want, groups)
	}
}
