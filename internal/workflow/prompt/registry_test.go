package prompt

import (
	"context"
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChatTemplateUnknownID(t *testing.T) {
	r := NewRegistry()
	_, err := r.ChatTemplate("no_such_prompt")
	assert.Error(t, err)
}

func TestResearchTemplateFormats(t *testing.T) {
	r := NewRegistry()
	tpl, err := r.ChatTemplate(PromptResearchReportV1)
	require.NoError(t, err)

	msgs, err := tpl.Format(context.Background(), map[string]any{
		"query":             "deep sea mining",
		"style":             "analytical",
		"corpus":            "Source A (https://a)\nbody text",
		"chapter_count":     2,
		"words_per_chapter": 600,
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, schema.System, msgs[0].Role)
	assert.Equal(t, schema.User, msgs[1].Role)
	assert.Contains(t, msgs[1].Content, "deep sea mining")
	assert.Contains(t, msgs[1].Content, "body text")
	// 模板中的 JSON 示例必须渲染出字面大括号
	assert.Contains(t, msgs[0].Content, `"title"`)
	assert.Contains(t, msgs[0].Content, "{")
}

func TestFictionTemplateFormats(t *testing.T) {
	r := NewRegistry()
	tpl, err := r.ChatTemplate(PromptFictionStoryV1)
	require.NoError(t, err)

	msgs, err := tpl.Format(context.Background(), map[string]any{
		"query":             "a lighthouse keeper",
		"style":             "lyrical",
		"genre":             "mystery",
		"tone":              "melancholic",
		"setting":           "a remote island",
		"chapter_count":     2,
		"words_per_chapter": 600,
	})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Contains(t, msgs[1].Content, "a lighthouse keeper")
	assert.Contains(t, msgs[1].Content, "mystery")
}

func TestChatTemplateCaches(t *testing.T) {
	r := NewRegistry()
	a, err := r.ChatTemplate(PromptResearchReportV1)
	require.NoError(t, err)
	b, err := r.ChatTemplate(PromptResearchReportV1)
	require.NoError(t, err)
	assert.Same(t, a, b)
}
