package prompt

import (
	"testing"

	"dreamui/backend/internal/models"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func roles(msgs []models.ChatMessage) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Role
	}
	return out
}

func TestComposeOrdering(t *testing.T) {
	world := []models.WorldEntry{
		{Name: "Eldoria", Description: "A floating city.", Enabled: true},
		{Name: "Hidden", Description: "Should not appear.", Enabled: false},
	}
	history := []models.ChatMessage{
		{Role: models.RoleUser, Content: "hi"},
		{Role: models.RoleAssistant, Content: "hello"},
	}

	tests := []struct {
		name      string
		character *models.Character
		mode      string
		wantRules string
	}{
		{"chat", &models.Character{ID: 1, Name: "Ada", Mode: models.ModeChat}, "", chatRules},
		{"roleplay", &models.Character{ID: 2, Name: "Bram", Mode: models.ModeRoleplay}, "", roleplayRules},
		{"absent", nil, "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			system := Compose(tt.character, tt.mode, "", world)
			msgs := BuildMessages(system, history, "Hello")

			offset := 0
			if tt.character != nil {
				require.GreaterOrEqual(t, len(msgs), 1)
				assert.Equal(t, models.RoleSystem, msgs[0].Role)
				assert.Contains(t, msgs[0].Content, "You are "+tt.character.Name+".")
				assert.Contains(t, msgs[0].Content, tt.wantRules)
				offset = 1
			}

			want := []models.ChatMessage{
				{Role: models.RoleSystem, Content: LanguageInstruction},
				{Role: models.RoleSystem, Content: "World info:\nEldoria: A floating city."},
				{Role: models.RoleUser, Content: "hi"},
				{Role: models.RoleAssistant, Content: "hello"},
				{Role: models.RoleUser, Content: "Hello"},
			}
			if diff := cmp.Diff(want, msgs[offset:]); diff != "" {
				t.Errorf("message sequence mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestComposeWithoutWorld(t *testing.T) {
	msgs := Compose(nil, "", "", []models.WorldEntry{{Name: "x", Description: "y", Enabled: false}})
	assert.Equal(t, []string{models.RoleSystem}, roles(msgs))
	assert.Equal(t, LanguageInstruction, msgs[0].Content)
}

func TestComposeModeOverridesCharacter(t *testing.T) {
	c := &models.Character{Name: "Ada", Mode: models.ModeChat}
	msgs := Compose(c, models.ModeRoleplay, "", nil)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[0].Content, roleplayRules)
	assert.NotContains(t, msgs[0].Content, chatRules)
}

func TestPersonaFields(t *testing.T) {
	c := &models.Character{Name: "Ada", Greeting: "Hi there", Personality: "Curious and kind", Gender: "female"}
	p := Persona(c, "")
	assert.Contains(t, p, "Gender: female.")
	assert.Contains(t, p, "Persona: Curious and kind.")
	assert.Contains(t, p, `Your usual greeting is: "Hi there".`)
	assert.Empty(t, Persona(nil, models.ModeChat))
}

func TestLanguage(t *testing.T) {
	assert.Equal(t, LanguageInstruction, Language(""))
	assert.Equal(t, "Respond in German.", Language(" German "))
}

func TestWorldJoinsBlocks(t *testing.T) {
	got := World([]models.WorldEntry{
		{Name: "A", Description: "first", Enabled: true},
		{Name: "B", Description: "second", Enabled: true},
	})
	assert.Equal(t, "World info:\nA: first\n\nB: second", got)
	assert.Empty(t, World(nil))
}

func TestNormalizeHistory(t *testing.T) {
	in := []models.ChatMessage{
		{Role: models.RoleSystem, Content: "ignore me"},
		{Role: models.RoleUser, Content: "one"},
		{Role: models.RoleAssistant, Content: ""},
		{Role: "tool", Content: "nope"},
		{Role: models.RoleAssistant, Content: "two"},
		{Role: "User", Content: "case matters"},
		{Role: models.RoleUser, Content: "three"},
	}
	want := []models.ChatMessage{
		{Role: models.RoleUser, Content: "one"},
		{Role: models.RoleAssistant, Content: "two"},
		{Role: models.RoleUser, Content: "three"},
	}
	if diff := cmp.Diff(want, NormalizeHistory(in)); diff != "" {
		t.Errorf("NormalizeHistory mismatch (-want +got):\n%s", diff)
	}
	assert.Empty(t, NormalizeHistory(nil))
}

func TestNotebookPrompts(t *testing.T) {
	c := ContinuePrompt("Once upon a time", "gothic")
	require.Len(t, c, 1)
	assert.Equal(t, models.RoleUser, c[0].Role)
	assert.Contains(t, c[0].Content, `Follow these style instructions: "gothic".`)
	assert.Contains(t, c[0].Content, "[STORY START]\nOnce upon a time\n[STORY END]")

	r := RewritePrompt("The end.", "")
	assert.NotContains(t, r[0].Content, "style instructions")
	assert.Contains(t, r[0].Content, "[PASSAGE]\nThe end.\n[END OF PASSAGE]")

	s := SummarizePrompt("story")
	assert.True(t, len(s[0].Content) > len("story"))
}
