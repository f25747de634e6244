package engine

import (
	"fmt"
	"strings"

	"github.com/Veraticus/sift/internal/llm"
)

// Answer tokens. Each decision has an English and a Chinese form and both
// are accepted on input.
const (
	AnswerYes   = "yes"
	AnswerNo    = "no"
	AnswerYesZH = "是"
	AnswerNoZH  = "否"
)

// ProtocolErrorKind identifies how a batch answer broke the output contract.
type ProtocolErrorKind string

// Protocol violation kinds.
const (
	ProtocolEmpty         ProtocolErrorKind = "empty"
	ProtocolCountMismatch ProtocolErrorKind = "count_mismatch"
	ProtocolInvalidToken  ProtocolErrorKind = "invalid_token"
)

// ProtocolError reports a model answer that cannot be decoded into one
// decision per item.
type ProtocolError struct {
	Kind     ProtocolErrorKind
	Tokens   []string
	Expected int
	Got      int
}

func (e *ProtocolError) Error() string {
	switch e.Kind {
	case ProtocolEmpty:
		return "batch answer is empty"
	case ProtocolCountMismatch:
		return fmt.Sprintf("batch answer count mismatch: expected %d, got %d", e.Expected, e.Got)
	case ProtocolInvalidToken:
		return fmt.Sprintf("batch answer has invalid tokens: %q", e.Tokens)
	default:
		return "batch answer violates protocol"
	}
}

// Retryable is always true; a fresh sample usually conforms.
func (e *ProtocolError) Retryable() bool {
	return true
}

const systemPrompt = `You decide whether short text items are related to a set of study topics.

Rules:
- Reply with exactly %d answers, one per item, in item order.
- Each answer is "yes" if the item is related to at least one topic and "no" otherwise. "是" and "否" are also accepted.
- Separate answers with commas.
- Reply with the answers only. No numbering, explanation or other text.`

// BuildPrompt encodes items and topics into one completion request whose
// answer is a comma-separated list of len(items) yes/no tokens.
func BuildPrompt(topics []string, items []string) llm.CompletionRequest {
	n := len(items)

	var b strings.Builder
	fmt.Fprintf(&b, "Topics: %s\n\n", strings.Join(topics, ", "))
	fmt.Fprintf(&b, "Items (%d):\n", n)
	for i, item := range items {
		fmt.Fprintf(&b, "%d. %s\n", i+1, item)
	}
	fmt.Fprintf(&b, "\nAnswer with exactly %d comma-separated answers.", n)

	return llm.CompletionRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: fmt.Sprintf(systemPrompt, n)},
			{Role: llm.RoleUser, Content: b.String()},
		},
		MaxTokens:   max(100, 8*n),
		Temperature: 0,
	}
}

// ParseResponse decodes a batch answer into one decision per item. The
// answer must carry exactly len(items) tokens from the vocabulary; nothing
// is guessed or padded.
func ParseResponse(resp llm.CompletionResponse, items []string) ([]bool, error) {
	content := strings.TrimSpace(resp.Content)
	if content == "" {
		return nil, &ProtocolError{Kind: ProtocolEmpty, Expected: len(items)}
	}

	tokens := strings.Split(strings.ReplaceAll(content, "，", ","), ",")
	for i, tok := range tokens {
		tokens[i] = strings.ToLower(strings.TrimSpace(tok))
	}
	if len(tokens) != len(items) {
		return nil, &ProtocolError{Kind: ProtocolCountMismatch, Expected: len(items), Got: len(tokens)}
	}

	decisions := make([]bool, len(tokens))
	var invalid []string
	for i, tok := range tokens {
		switch tok {
		case AnswerYes, AnswerYesZH:
			decisions[i] = true
		case AnswerNo, AnswerNoZH:
			decisions[i] = false
		default:
			invalid = append(invalid, tok)
		}
	}
	if len(invalid) > 0 {
		return nil, &ProtocolError{Kind: ProtocolInvalidToken, Expected: len(items), Got: len(tokens), Tokens: invalid}
	}

	return decisions, nil
}
