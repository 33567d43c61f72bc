package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextName(t *testing.T) {
	tests := []struct {
		name     string
		existing []string
		prefix   string
		want     string
	}{
		{
			name:     "no sessions",
			existing: nil,
			prefix:   "agent",
			want:     "agent-1",
		},
		{
			name:     "gap in numbering uses max plus one",
			existing: []string{"agent-1", "agent-3"},
			prefix:   "agent",
			want:     "agent-4",
		},
		{
			name:     "ignores other prefixes",
			existing: []string{"dev-5", "agent-2"},
			prefix:   "agent",
			want:     "agent-3",
		},
		{
			name:     "ignores non-numeric suffixes",
			existing: []string{"agent-foo", "agent-2"},
			prefix:   "agent",
			want:     "agent-3",
		},
		{
			name:     "ignores negative and zero suffixes",
			existing: []string{"agent-0", "agent--1"},
			prefix:   "agent",
			want:     "agent-1",
		},
		{
			name:     "custom prefix",
			existing: []string{"work-9"},
			prefix:   "work",
			want:     "work-10",
		},
		{
			name:     "prefix is not a substring match",
			existing: []string{"agentx-7"},
			prefix:   "agent",
			want:     "agent-1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, nextName(tt.existing, tt.prefix))
		})
	}
}

func TestIsAgent(t *testing.T) {
	r := New(nil, "agent", []string{"claude", "aider"})
	assert.True(t, r.isAgent("agent-1", "claude"))
	assert.True(t, r.isAgent("agent-2", "aider"))
	assert.True(t, r.isAgent("my-claude-run", "bash"))
	assert.False(t, r.isAgent("agent-3", "bash"))
	assert.False(t, r.isAgent("work", ""))
}
