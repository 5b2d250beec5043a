package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-notebook-ai-api/internal/domain/entity"
)

func TestAssembleReindexesChapters(t *testing.T) {
	parsed := &ParsedResult{
		Title: "标题",
		Chapters: []ParsedChapter{
			{Title: "一", Content: "c1", Hook: "h1", Cliffhanger: "cl1"},
			{Title: "二", Content: "c2"},
			{Title: "三", Content: "c3"},
		},
	}

	artifact := Assemble(fictionRequest(), parsed, nil, MediaResult{
		CoverURL:    "https://img/cover.png",
		ChapterURLs: []string{"https://img/1.png", "", "https://img/3.png"},
	})

	require.Len(t, artifact.Chapters, 3)
	for i, ch := range artifact.Chapters {
		assert.Equal(t, i, ch.Order)
	}
	assert.Equal(t, "https://img/1.png", artifact.Chapters[0].ImageURL)
	assert.Empty(t, artifact.Chapters[1].ImageURL)
	assert.Equal(t, "https://img/3.png", artifact.Chapters[2].ImageURL)
	// ImageURLs 只收集成功的配图
	assert.Equal(t, []string{"https://img/1.png", "https://img/3.png"}, artifact.ImageURLs)
	assert.Equal(t, "https://img/cover.png", artifact.CoverImageURL)
	assert.Equal(t, "h1", artifact.Chapters[0].Hook)
	assert.Equal(t, "cl1", artifact.Chapters[0].Cliffhanger)
}

func TestAssembleSourceURLsWithoutContent(t *testing.T) {
	parsed := &ParsedResult{Title: "报告"}
	sources := []entity.SourceRecord{
		{URL: "https://a", Title: "A", Content: "full body a"},
		{URL: "https://b", Title: "B", Content: "full body b"},
	}

	artifact := Assemble(researchRequest(), parsed, sources, MediaResult{})

	assert.Equal(t, []string{"https://a", "https://b"}, artifact.SourceURLs)
	assert.NotNil(t, artifact.ID)
	assert.Equal(t, entity.ModeResearch, artifact.Mode)
	// research 产物不携带角色表
	assert.Nil(t, artifact.Characters)
}

func TestAssembleTitleFallback(t *testing.T) {
	artifact := Assemble(researchRequest(), &ParsedResult{Title: "  "}, nil, MediaResult{})
	assert.Equal(t, "深海采矿", artifact.Title)
}

func TestAssembleCharactersOnlyForFiction(t *testing.T) {
	parsed := &ParsedResult{
		Title:      "x",
		Characters: []ParsedCharacter{{Name: "老周", Role: "protagonist"}},
	}

	fiction := Assemble(fictionRequest(), parsed, nil, MediaResult{})
	require.Len(t, fiction.Characters, 1)
	assert.Equal(t, "老周", fiction.Characters[0].Name)

	research := Assemble(researchRequest(), parsed, nil, MediaResult{})
	assert.Nil(t, research.Characters)
}
