package generation

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"z-notebook-ai-api/pkg/errors"
)

func TestSynthesisInvokerParsesStructuredOutput(t *testing.T) {
	runner := &stubRunner{content: "Sure, here it is:\n```json\n" + fictionJSON + "\n```"}
	inv := NewSynthesisInvoker(runner)

	parsed, _, degraded, err := inv.Invoke(context.Background(), fictionRequest(), "", provider())
	require.NoError(t, err)
	assert.False(t, degraded)
	assert.Equal(t, "灯塔尽头", parsed.Title)
	require.Len(t, parsed.Chapters, 2)
	assert.Equal(t, "风暴将至", parsed.Chapters[0].Title)
	assert.Len(t, parsed.Characters, 2)
	assert.Equal(t, "A lighthouse on a stormy cliff at night", parsed.CoverDescription)
}

func TestSynthesisInvokerMissingFieldsTakeZeroValues(t *testing.T) {
	runner := &stubRunner{content: `{"chapters":[{"content":"body only"}]}`}
	inv := NewSynthesisInvoker(runner)

	parsed, _, degraded, err := inv.Invoke(context.Background(), researchRequest(), "corpus", provider())
	require.NoError(t, err)
	assert.False(t, degraded)
	// 标题缺失回退到请求主题
	assert.Equal(t, "深海采矿", parsed.Title)
	require.Len(t, parsed.Chapters, 1)
	assert.Empty(t, parsed.Chapters[0].Title)
	assert.Equal(t, "body only", parsed.Chapters[0].Content)
}

func TestSynthesisInvokerDegradesOnUnparsableOutput(t *testing.T) {
	runner := &stubRunner{content: "narrative text with no json"}
	inv := NewSynthesisInvoker(runner)

	parsed, _, degraded, err := inv.Invoke(context.Background(), researchRequest(), "", provider())
	require.NoError(t, err)
	assert.True(t, degraded)
	require.NotNil(t, parsed)
	assert.Equal(t, "深海采矿", parsed.Title)
	assert.Empty(t, parsed.Chapters)
}

func TestSynthesisInvokerStrictParseFails(t *testing.T) {
	runner := &stubRunner{content: "narrative text with no json"}
	inv := NewSynthesisInvoker(runner)

	req := researchRequest()
	req.StrictParse = true

	parsed, _, degraded, err := inv.Invoke(context.Background(), req, "", provider())
	require.Error(t, err)
	assert.Nil(t, parsed)
	assert.False(t, degraded)
	appErr := errors.AsAppError(err)
	assert.Equal(t, errors.CodeSynthesisFailed, appErr.Code)
}

func TestSynthesisInvokerProviderErrorIsFatal(t *testing.T) {
	runner := &stubRunner{err: fmt.Errorf("rate limited")}
	inv := NewSynthesisInvoker(runner)

	parsed, _, degraded, err := inv.Invoke(context.Background(), researchRequest(), "", provider())
	require.Error(t, err)
	assert.Nil(t, parsed)
	assert.False(t, degraded)
	appErr := errors.AsAppError(err)
	assert.Equal(t, errors.CodeSynthesisFailed, appErr.Code)
}
