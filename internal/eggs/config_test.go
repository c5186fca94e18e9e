package eggs

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"edgeroute/internal/achievements"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	require.Len(t, cfg.Sequences, 2)
	konami := cfg.Sequences[0]
	assert.Equal(t, "konami", konami.ID)
	assert.Equal(t, InputKey, konami.Input)
	assert.Equal(t, ActionMinigame, konami.Action)
	assert.Zero(t, konami.Timeout)
	assert.Equal(t, []string{"ArrowUp", "ArrowUp", "ArrowDown", "ArrowDown", "ArrowLeft", "ArrowRight", "ArrowLeft", "ArrowRight", "b", "a"}, konami.Tokens)

	theme := cfg.Sequences[1]
	assert.Equal(t, InputClick, theme.Input)
	assert.Equal(t, 2*time.Second, theme.Timeout)
	assert.Equal(t, []string{"logo", "logo", "profile", "logo"}, theme.Tokens)

	require.Len(t, cfg.Landmarks, 2)
	assert.Equal(t, "/auth/profile", cfg.Landmarks[1].Href)

	assert.Equal(t, achievements.Builtin, cfg.Achievements)
}

func TestParse_Invalid(t *testing.T) {
	tests := map[string]string{
		"duplicate id": `
sequences:
  - {id: a, input: key, action: theme, tokens: [x]}
  - {id: a, input: key, action: theme, tokens: [y]}`,
		"no tokens": `
sequences:
  - {id: a, input: key, action: theme, tokens: []}`,
		"unknown input": `
sequences:
  - {id: a, input: voice, action: theme, tokens: [x]}`,
		"unknown action": `
sequences:
  - {id: a, input: key, action: explode, tokens: [x]}`,
		"bad landmark": `
landmarks:
  - {token: logo}`,
		"bad achievement": `
achievements:
  - {id: a, name: A, trigger: burst, event: click}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	_, err := Parse([]byte("sequences: {"))
	assert.Error(t, err)
}

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "eggs.yaml")
	doc := `
sequences:
  - id: hello
    input: key
    action: theme
    timeout: 1500ms
    tokens: [h, i]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	require.Len(t, cfg.Sequences, 1)
	assert.Equal(t, 1500*time.Millisecond, cfg.Sequences[0].Timeout)
	assert.Empty(t, cfg.Achievements)

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	cfg, err = LoadConfig("")
	require.NoError(t, err)
	assert.Len(t, cfg.Sequences, 2)
}
