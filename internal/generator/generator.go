// Package generator produces contest content: a caption and an image search
// phrase from a language model, then a GIF URL for that phrase.
package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/juSt-jeLLy/clashofclouthosting/internal/common"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/logging"
	"github.com/juSt-jeLLy/clashofclouthosting/internal/models"
)

const systemPrompt = "You are an AI agent creating memes."

const userPromptTemplate = `Please generate a short meme about web3. Use the following keywords to generate the meme: %s. ` +
	`I want only the meme text, no other words. The meme should be humorous and relevant to web3. ` +
	`Also, include the keywords or phrase that I can search on Tenor to find an image related to the meme. ` +
	`Keep in mind that I will only use the first image that I find on Tenor, and I will add the text to the meme myself.

The answer format must strictly follow this JSON structure, with NO additional text or explanation:
{
  "text_meme": "{{the text_meme}}",
  "image": "{{image_keywords_for_tenor}}"
}

Replace the text between {{}} with the generated meme text and the keywords for the image. Make sure it is VALID JSON.`

// TextModel returns the raw reply for a chat transcript.
type TextModel interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// ImageSearch maps a phrase to a media URL.
type ImageSearch interface {
	Search(ctx context.Context, phrase string) (string, error)
}

type Generator struct {
	model       TextModel
	images      ImageSearch
	callTimeout time.Duration
	logger      logging.Logger
}

func New(model TextModel, images ImageSearch, callTimeout time.Duration, logger logging.Logger) *Generator {
	return &Generator{
		model:       model,
		images:      images,
		callTimeout: callTimeout,
		logger:      logger.With("module", "generator"),
	}
}

type memeReply struct {
	TextMeme string `json:"text_meme"`
	Image    string `json:"image"`
}

// Caption asks the model for a caption and an image phrase. Any failure,
// including a reply that is not the expected JSON object, is ErrGeneration.
func (g *Generator) Caption(ctx context.Context, keywords string) (caption, phrase string, err error) {
	ctx, cancel := g.withTimeout(ctx)
	defer cancel()

	raw, err := g.model.Complete(ctx, []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: fmt.Sprintf(userPromptTemplate, keywords)},
	})
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", common.ErrGeneration, err)
	}
	g.logger.Debug(ctx, "model reply", "raw", raw)

	reply, err := parseMemeReply(raw)
	if err != nil {
		return "", "", fmt.Errorf("%w: %w", common.ErrGeneration, err)
	}
	return reply.TextMeme, reply.Image, nil
}

// Generate runs caption generation then image lookup. No partial Content is
// ever returned.
func (g *Generator) Generate(ctx context.Context, keywords string) (models.Content, error) {
	caption, phrase, err := g.Caption(ctx, keywords)
	if err != nil {
		return models.Content{}, err
	}

	lookupCtx, cancel := g.withTimeout(ctx)
	defer cancel()

	imageURL, err := g.images.Search(lookupCtx, phrase)
	if err != nil {
		return models.Content{}, fmt.Errorf("%w: %q: %w", common.ErrImageLookup, phrase, err)
	}

	g.logger.Info(ctx, "content generated", "phrase", phrase, "image", imageURL)
	return models.Content{Caption: caption, ImagePhrase: phrase, ImageURL: imageURL}, nil
}

func (g *Generator) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.callTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.callTimeout)
}

func parseMemeReply(raw string) (memeReply, error) {
	var r memeReply
	if err := json.Unmarshal([]byte(stripFences(raw)), &r); err != nil {
		return memeReply{}, fmt.Errorf("malformed reply: %w", err)
	}
	r.TextMeme = strings.TrimSpace(r.TextMeme)
	r.Image = strings.TrimSpace(r.Image)
	if r.TextMeme == "" {
		return memeReply{}, fmt.Errorf("reply is missing text_meme")
	}
	if r.Image == "" {
		return memeReply{}, fmt.Errorf("reply is missing image")
	}
	return r, nil
}

// stripFences removes a surrounding markdown code fence, if any.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
