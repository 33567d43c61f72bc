package command

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateSessionName(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{"simple", "agent-1", false},
		{"with dots", "my.session_2", false},
		{"empty", "", true},
		{"leading hyphen", "-agent", true},
		{"shell metacharacters", "agent;rm -rf", true},
		{"spaces", "agent 1", true},
	}

	sb := NewSafeBuilder()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := sb.Validate("sessionName", tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateUnknownType(t *testing.T) {
	sb := NewSafeBuilder()
	assert.Error(t, sb.Validate("nope", "value"))
}

func TestBuildRejectsEmptyName(t *testing.T) {
	sb := NewSafeBuilder()
	_, err := sb.Build(context.Background(), "")
	assert.Error(t, err)
}

func TestBuildProducesExecCmd(t *testing.T) {
	sb := NewSafeBuilder()
	cmd, err := sb.Build(context.Background(), "tmux", "list-sessions")
	require.NoError(t, err)

	execCmd := cmd.Exec()
	require.NotNil(t, execCmd)
	assert.Contains(t, execCmd.Path, "tmux")
	assert.Equal(t, []string{"tmux", "list-sessions"}, execCmd.Args)
}
