package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"surveyrag/model"
	"surveyrag/types"

	"github.com/pkoukk/tiktoken-go"
)

const refusalPolicy = `If the context is empty or does not contain the information needed to answer, reply that you are not able to answer the question from the provided documents. Nothing else.`

// SplitContext partitions resolved content into the textual context block and
// the image payloads, using the kind tag persisted at index time. Rows
// without a tag fall back to a base64 sniff; base64-looking text can be
// misclassified there, which is why the tag is authoritative.
func SplitContext(resolved []types.ResolvedContent) (contextText string, images []string) {
	var sb strings.Builder
	for _, rc := range resolved {
		kind := rc.Kind
		if kind == "" {
			kind = sniffKind(rc.Content)
		}
		if kind == types.KindImage {
			images = append(images, rc.Content)
			continue
		}
		sb.WriteString(rc.Content)
		sb.WriteString("\n")
	}
	return sb.String(), images
}

// BuildPrompt assembles the multi-modal message: one text part holding the
// instruction, context block and question, followed by one image part per
// resolved image. An empty context stays in the prompt as an empty block so
// the refusal policy governs the answer.
func BuildPrompt(contextText, question string, images []string) []model.ContentPart {
	prompt := fmt.Sprintf(`Answer the question based only on the following context, which can include text, tables and images.
%s
Context:
%s
Question:
%s
Answer:`, refusalPolicy, contextText, question)

	parts := []model.ContentPart{model.TextPart(prompt)}
	for _, img := range images {
		parts = append(parts, model.ImagePart(img))
	}
	return parts
}

// GenerateAnswer sends the assembled prompt to the chat model and returns
// its text output.
func GenerateAnswer(ctx context.Context, chat model.ChatModel, contextText, question string, images []string) (string, error) {
	start := time.Now()
	defer func() {
		slog.Default().Info("answer generated", "took", time.Since(start).String())
	}()

	parts := BuildPrompt(contextText, question, images)

	if count, err := CountTokens(parts[0].Text); err == nil {
		slog.Default().Info("prompt assembled", "tokens", count, "images", len(images))
	}

	answer, err := chat.Chat(ctx, parts)
	if err != nil {
		return "", fmt.Errorf("answer generation failed: %w", err)
	}
	return answer, nil
}

func CountTokens(text string) (int, error) {
	enc, err := tiktoken.EncodingForModel("gpt-4o-mini")
	if err != nil {
		return 0, err
	}
	tokens := enc.Encode(text, nil, nil)
	return len(tokens), nil
}

func sniffKind(content string) types.ElementKind {
	if looksLikeBase64(content) {
		return types.KindImage
	}
	return types.KindText
}

func looksLikeBase64(s string) bool {
	if len(s) == 0 || len(s)%4 != 0 {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z', c >= 'a' && c <= 'z', c >= '0' && c <= '9':
		case c == '+' || c == '/':
		case c == '=':
			// Padding only at the tail.
			for j := i; j < len(s); j++ {
				if s[j] != '=' {
					return false
				}
			}
			return true
		default:
			return false
		}
	}
	return true
}
