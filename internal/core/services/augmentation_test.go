package services

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/diagram-rag/internal/core/domain"
)

func newAugmentation(instruction, tmpl string) *augmentationService {
	return NewAugmentationService(AugmentationConfig{
		Instruction: instruction,
		Template:    tmpl,
		Logger:      slog.New(slog.DiscardHandler),
	}).(*augmentationService)
}

func TestAugment_EmptyContextReturnsPrompt(t *testing.T) {
	svc := newAugmentation("Antworte kurz.", "")
	prompt := "  Was fehlt im Prozess?\n"

	out, err := svc.Augment(&domain.RequestState{Prompt: prompt})
	require.NoError(t, err)
	assert.Equal(t, prompt, out)
}

func TestAugment_DefaultTemplate(t *testing.T) {
	svc := newAugmentation("Antworte kurz.", "")

	out, err := svc.Augment(&domain.RequestState{
		Prompt: "Was fehlt?",
		Context: []*domain.Chunk{
			{ID: "a_0", Text: "Erster Abschnitt"},
			{ID: "a_1", Text: "Zweiter Abschnitt"},
		},
	})
	require.NoError(t, err)

	want := "Was fehlt?\n\nAntworte kurz.\n\nKontext:\n" +
		"[Document 1]\nErster Abschnitt\n\n[Document 2]\nZweiter Abschnitt\n\nAntwort:"
	assert.Equal(t, want, out)
}

func TestAugment_CustomTemplate(t *testing.T) {
	svc := newAugmentation("", "Q: {{.Prompt}}\nC: {{.Context}}")

	out, err := svc.Augment(&domain.RequestState{
		Prompt:  "why",
		Context: []*domain.Chunk{{ID: "a_0", Text: "because"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Q: why\nC: [Document 1]\nbecause", out)
}

func TestAugment_FallsBackToPlainLayout(t *testing.T) {
	state := &domain.RequestState{
		Prompt:  "why",
		Context: []*domain.Chunk{{ID: "a_0", Text: "because"}},
	}
	want := "why\n\nhint\n\nContext:\n[Document 1]\nbecause"

	t.Run("unparseable template", func(t *testing.T) {
		svc := newAugmentation("hint", "{{.Prompt")
		assert.Nil(t, svc.tmpl)
		out, err := svc.Augment(state)
		require.NoError(t, err)
		assert.Equal(t, want, out)
	})

	t.Run("unknown slot", func(t *testing.T) {
		svc := newAugmentation("hint", "{{.Question}}")
		out, err := svc.Augment(state)
		require.NoError(t, err)
		assert.Equal(t, want, out)
	})
}

func TestAugment_RequiresPrompt(t *testing.T) {
	svc := newAugmentation("", "")

	_, err := svc.Augment(nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = svc.Augment(&domain.RequestState{Prompt: " \t"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestFormatContext_SkipsNil(t *testing.T) {
	out := FormatContext([]*domain.Chunk{nil, {Text: "one"}, nil, {Text: "two"}})
	assert.Equal(t, "[Document 1]\none\n\n[Document 2]\ntwo", out)
	assert.Empty(t, FormatContext(nil))
}
