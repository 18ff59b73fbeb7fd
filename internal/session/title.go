package session

import (
	"context"
	"io"
	"strings"

	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/parley-ai/parley/internal/logging"
	"github.com/parley-ai/parley/internal/provider"
	"github.com/parley-ai/parley/internal/stream"
	"github.com/parley-ai/parley/pkg/types"
)

// DefaultTitleMaxLength is the default title length limit in runes.
const DefaultTitleMaxLength = 50

const titleSystemPrompt = `You are a title generator. You output ONLY a conversation title. Nothing else.

Generate a brief title that would help the user find this conversation later.

Rules:
- A single line, at most 50 characters
- No explanations, no surrounding quotes
- Use -ing verbs for actions (Debugging, Implementing, Analyzing)
- Keep exact: technical terms, numbers, filenames
- Remove: the, this, my, a, an
- Always output something meaningful`

// titleQuotePairs are the surrounding quote styles stripped from model
// output, across scripts.
var titleQuotePairs = [][2]string{
	{`"`, `"`},
	{`'`, `'`},
	{"“", "”"}, // “ ”
	{"‘", "’"}, // ‘ ’
	{"«", "»"}, // « »
	{"「", "」"}, // 「 」
	{"『", "』"}, // 『 』
}

// TruncateTitle derives a title from raw user text deterministically:
// collapse whitespace, then truncate at the last word boundary past 60%
// of the limit, hard-truncating when no boundary exists, with an
// ellipsis appended. The result is never empty.
func TruncateTitle(input string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultTitleMaxLength
	}

	cleaned := strings.Join(strings.Fields(input), " ")
	if cleaned == "" {
		return "New Session"
	}

	runes := []rune(cleaned)
	if len(runes) <= maxLength {
		return cleaned
	}

	cut := runes[:maxLength]
	threshold := maxLength * 60 / 100
	boundary := -1
	for i, r := range cut {
		if r == ' ' {
			boundary = i
		}
	}
	if boundary > threshold {
		cut = cut[:boundary]
	}
	return strings.TrimSpace(string(cut)) + "…"
}

// cleanTitleArtifacts strips model mannerisms: a leading "Title:"
// label, surrounding quotes in several scripts, and anything past the
// first line.
func cleanTitleArtifacts(title string) string {
	title = strings.TrimSpace(title)

	for _, line := range strings.Split(title, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			title = line
			break
		}
	}

	if rest, ok := strings.CutPrefix(strings.ToLower(title), "title:"); ok {
		title = strings.TrimSpace(title[len(title)-len(rest):])
	}

	for _, pair := range titleQuotePairs {
		if strings.HasPrefix(title, pair[0]) && strings.HasSuffix(title, pair[1]) && len(title) > len(pair[0])+len(pair[1]) {
			title = strings.TrimSpace(title[len(pair[0]) : len(title)-len(pair[1])])
		}
	}

	return title
}

// TitleGenerator derives a short session title from the first user
// turn. It runs concurrently with the main stream and never blocks it.
type TitleGenerator struct {
	registry  *provider.Registry
	maxLength int
	log       zerolog.Logger
}

// NewTitleGenerator creates a title generator. maxLength <= 0 selects
// the default limit.
func NewTitleGenerator(registry *provider.Registry, maxLength int) *TitleGenerator {
	if maxLength <= 0 {
		maxLength = DefaultTitleMaxLength
	}
	return &TitleGenerator{
		registry:  registry,
		maxLength: maxLength,
		log:       logging.For("title"),
	}
}

// Generate produces the session title with the model, emitting
// title-start/title-delta/title-complete events, and falls back to
// deterministic truncation on any provider failure. The returned title
// is always non-empty.
func (g *TitleGenerator) Generate(ctx context.Context, sess *types.Session, userText string, emit func(stream.Event)) string {
	emit(&stream.TitleStart{})

	title, err := g.streamTitle(ctx, sess, userText, emit)
	if err != nil || title == "" {
		if err != nil {
			g.log.Debug().Err(err).Msg("model title failed, falling back to truncation")
		}
		title = TruncateTitle(userText, g.maxLength)
	}

	emit(&stream.TitleComplete{Title: title})
	return title
}

// streamTitle runs the model-assisted policy, relaying deltas as they
// arrive.
func (g *TitleGenerator) streamTitle(ctx context.Context, sess *types.Session, userText string, emit func(stream.Event)) (string, error) {
	prov, err := g.registry.Get(sess.Provider)
	if err != nil {
		return "", err
	}
	model, err := g.registry.GetModel(sess.Provider, sess.Model)
	if err != nil {
		return "", err
	}

	completion, err := prov.CreateCompletion(ctx, &provider.CompletionRequest{
		Model: model.ID,
		Messages: []*schema.Message{
			{Role: schema.System, Content: titleSystemPrompt},
			{Role: schema.User, Content: "Generate a title for this conversation:\n\n" + userText},
		},
		MaxTokens: 50,
	})
	if err != nil {
		return "", err
	}
	defer completion.Close()

	var accumulated string
	for {
		msg, err := completion.Recv()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", err
		}
		if len(msg.Content) > len(accumulated) {
			delta := msg.Content[len(accumulated):]
			accumulated = msg.Content
			emit(&stream.TitleDelta{Text: delta})
		}
	}

	title := cleanTitleArtifacts(accumulated)
	if title == "" {
		return "", nil
	}
	if runes := []rune(title); len(runes) > g.maxLength {
		title = TruncateTitle(title, g.maxLength)
	}
	return title, nil
}
