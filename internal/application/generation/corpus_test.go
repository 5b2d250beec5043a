package generation

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-notebook-ai-api/internal/domain/entity"
)

func TestCorpusBuilderPreservesOrder(t *testing.T) {
	fetcher := &stubFetcher{
		pages: map[string]string{
			"https://1.example.com": longText("one ", 100),
			"https://2.example.com": longText("two ", 100),
			"https://3.example.com": longText("three ", 100),
			"https://4.example.com": longText("four ", 100),
		},
		fail: map[string]bool{},
	}
	builder := NewCorpusBuilder(fetcher, CorpusOptions{FetchConcurrency: 2})

	results := []entity.SearchResult{
		{Title: "One", Link: "https://1.example.com", Snippet: "s1"},
		{Title: "Two", Link: "https://2.example.com", Snippet: "s2"},
		{Title: "Three", Link: "https://3.example.com", Snippet: "s3"},
		{Title: "Four", Link: "https://4.example.com", Snippet: "s4"},
	}

	records := builder.Build(context.Background(), results)
	require.Len(t, records, 4)
	for i, rec := range records {
		assert.Equal(t, results[i].Link, rec.URL)
		assert.Equal(t, results[i].Title, rec.Title)
	}
}

func TestCorpusBuilderPerSourceCap(t *testing.T) {
	fetcher := &stubFetcher{
		pages: map[string]string{
			"https://long.example.com": longText("x", 5000),
		},
		fail: map[string]bool{},
	}
	builder := NewCorpusBuilder(fetcher, CorpusOptions{PerSourceCap: 1500})

	records := builder.Build(context.Background(), []entity.SearchResult{
		{Title: "Long", Link: "https://long.example.com"},
	})

	require.Len(t, records, 1)
	assert.Equal(t, 1500, utf8.RuneCountInString(records[0].Content))
	assert.True(t, records[0].Truncated)
	assert.False(t, records[0].Degraded)
}

func TestCorpusBuilderShortContentDegrades(t *testing.T) {
	fetcher := &stubFetcher{
		pages: map[string]string{
			"https://thin.example.com": "too short",
		},
		fail: map[string]bool{},
	}
	builder := NewCorpusBuilder(fetcher, CorpusOptions{MinUsefulChars: 100})

	records := builder.Build(context.Background(), []entity.SearchResult{
		{Title: "Thin", Link: "https://thin.example.com", Snippet: "the snippet"},
	})

	require.Len(t, records, 1)
	assert.True(t, records[0].Degraded)
	assert.Equal(t, "the snippet", records[0].Content)
}

func TestCorpusGlobalCapAppendsMarker(t *testing.T) {
	builder := NewCorpusBuilder(&stubFetcher{}, CorpusOptions{CorpusCap: 500})

	records := []entity.SourceRecord{
		{URL: "https://a", Title: "A", Content: longText("a", 400)},
		{URL: "https://b", Title: "B", Content: longText("b", 400)},
	}

	corpus := builder.Corpus(records)
	assert.True(t, strings.HasSuffix(corpus, CorpusTruncationMarker))
	body := strings.TrimSuffix(corpus, CorpusTruncationMarker)
	assert.Equal(t, 500, utf8.RuneCountInString(body))
}

func TestCorpusSkipsEmptyRecords(t *testing.T) {
	builder := NewCorpusBuilder(&stubFetcher{}, DefaultCorpusOptions())

	corpus := builder.Corpus([]entity.SourceRecord{
		{URL: "https://a", Title: "A", Content: ""},
		{URL: "https://b", Title: "B", Content: "beta"},
	})

	assert.NotContains(t, corpus, "https://a")
	assert.Contains(t, corpus, "beta")
	assert.Contains(t, corpus, "https://b")
	assert.NotContains(t, corpus, CorpusTruncationMarker)
}
