package sentiment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spacesedan/redditmcp/internal/models"
)

func TestLabelThresholds(t *testing.T) {
	assert.Equal(t, "positive", Label(0.20))
	assert.Equal(t, "negative", Label(-0.20))
	assert.Equal(t, "neutral", Label(0.19))
	assert.Equal(t, "neutral", Label(-0.19))
}

func TestConvertMarkdownToText(t *testing.T) {
	got := ConvertMarkdownToText("**Great** [guide](https://example.com/x) see https://go.dev now")
	assert.Equal(t, "Great guide see now", got)
}

func TestAnalyzePolarity(t *testing.T) {
	assert.Equal(t, "positive", Analyze("I love this, it is wonderful and amazing!").Label)
	assert.Equal(t, "negative", Analyze("This is terrible, awful and I hate it.").Label)
}

func TestAnnotate(t *testing.T) {
	posts := []models.FormattedPost{
		{Title: "Wonderful release, great work"},
		{Title: "Release notes"},
	}
	Annotate(posts)

	require.NotNil(t, posts[0].Sentiment)
	require.NotNil(t, posts[1].Sentiment)
	assert.Equal(t, "positive", posts[0].Sentiment.Label)
	assert.Equal(t, "neutral", posts[1].Sentiment.Label)
}
