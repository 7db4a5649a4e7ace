package agent

import (
	"context"
	"encoding/base64"
	"strings"
	"testing"

	"surveyrag/model"
	"surveyrag/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type echoChat struct {
	gotParts []model.ContentPart
}

func (e *echoChat) Chat(ctx context.Context, parts []model.ContentPart) (string, error) {
	e.gotParts = parts
	return parts[0].Text, nil
}

func TestSplitContextByKindTag(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte("pretend image bytes"))
	resolved := []types.ResolvedContent{
		{Kind: types.KindText, Content: "Revenue grew 12% year over year"},
		{Kind: types.KindTable, Content: "<table><tr><td>Revenue</td><td>$12B</td></tr></table>"},
		{Kind: types.KindImage, Content: img},
	}

	contextText, images := SplitContext(resolved)

	assert.Contains(t, contextText, "Revenue grew 12%")
	assert.Contains(t, contextText, "$12B")
	require.Len(t, images, 1)
	assert.Equal(t, img, images[0])
}

func TestSplitContextTagBeatsSniff(t *testing.T) {
	// Valid base64, but tagged as text: the persisted tag wins.
	resolved := []types.ResolvedContent{
		{Kind: types.KindText, Content: "dGVzdA=="},
	}
	contextText, images := SplitContext(resolved)
	assert.Contains(t, contextText, "dGVzdA==")
	assert.Empty(t, images)
}

func TestSplitContextSniffFallback(t *testing.T) {
	img := base64.StdEncoding.EncodeToString([]byte{0xff, 0xd8, 0xff})
	resolved := []types.ResolvedContent{
		{Kind: "", Content: img},
		{Kind: "", Content: "plain old prose, not base64"},
	}

	contextText, images := SplitContext(resolved)

	require.Len(t, images, 1)
	assert.Equal(t, img, images[0])
	assert.Contains(t, contextText, "plain old prose")
}

func TestBuildPromptWithImages(t *testing.T) {
	parts := BuildPrompt("some context", "what happened?", []string{"aGVsbG8=", "d29ybGQ="})

	require.Len(t, parts, 3)
	assert.Equal(t, "text", parts[0].Type)
	assert.Contains(t, parts[0].Text, "some context")
	assert.Contains(t, parts[0].Text, "what happened?")

	assert.Equal(t, "image_url", parts[1].Type)
	assert.True(t, strings.HasPrefix(parts[1].ImageURL.URL, "data:image/jpeg;base64,"))
	assert.Contains(t, parts[2].ImageURL.URL, "d29ybGQ=")
}

func TestBuildPromptEmptyContextKeepsBlock(t *testing.T) {
	parts := BuildPrompt("", "anything?", nil)

	require.Len(t, parts, 1)
	assert.Contains(t, parts[0].Text, "Context:")
	assert.Contains(t, parts[0].Text, "Question:")
	assert.Contains(t, parts[0].Text, "not able to answer")
}

func TestGenerateAnswerPassesAssembledPrompt(t *testing.T) {
	chat := &echoChat{}

	answer, err := GenerateAnswer(context.Background(), chat, "the figure is $12B", "What was the revenue?", nil)
	require.NoError(t, err)
	assert.Contains(t, answer, "$12B")
	require.Len(t, chat.gotParts, 1)
}

func TestLooksLikeBase64(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"aGVsbG8=", true},
		{"dGVzdA==", true},
		{"QUJDRA", false}, // length not a multiple of 4
		{"not base64 at all!", false},
		{"", false},
		{"aGVs=bG8=", false}, // padding in the middle
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, looksLikeBase64(tt.in), "input %q", tt.in)
	}
}
