package suggest

import (
	"context"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	oai "github.com/firebase/genkit/go/plugins/compat_oai/openai"
	"github.com/firebase/genkit/go/plugins/googlegenai"
	"github.com/openai/openai-go/option"

	"github.com/juparave/commitreminder/internal/config"
	"github.com/juparave/commitreminder/internal/domain"
	"github.com/juparave/commitreminder/internal/logging"
)

// maxDiffBytes bounds how much diff text is sent to the model
const maxDiffBytes = 24 * 1024

// generateFunc produces model text for a prompt
type generateFunc func(ctx context.Context, prompt string) (string, error)

// Suggester proposes a commit message for the pending changes
type Suggester struct {
	logger   logging.Logger
	modelID  string
	generate generateFunc
}

// NewSuggester creates a Suggester for the configured provider
func NewSuggester(ctx context.Context, cfg config.SuggestConfig, logger logging.Logger) (*Suggester, error) {
	if logger == nil {
		logger = logging.Nop()
	}

	var g *genkit.Genkit
	var modelID string

	switch cfg.Provider {
	case "openai":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("OPENAI_API_KEY")
		}

		var opts []option.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}

		modelID = cfg.Model
		if modelID == "" {
			modelID = "gpt-4o-mini"
		}
		if !strings.Contains(modelID, "/") {
			modelID = "openai/" + modelID
		}

		g = genkit.Init(ctx,
			genkit.WithDefaultModel(modelID),
			genkit.WithPlugins(&oai.OpenAI{APIKey: apiKey, Opts: opts}),
		)

	case "googleai", "":
		apiKey := cfg.APIKey
		if apiKey == "" {
			apiKey = os.Getenv("GEMINI_API_KEY")
			if apiKey == "" {
				apiKey = os.Getenv("GOOGLE_API_KEY")
			}
		}

		modelID = cfg.Model
		if modelID == "" {
			modelID = "gemini-2.0-flash"
		}
		if !strings.Contains(modelID, "/") {
			modelID = "googleai/" + modelID
		}

		g = genkit.Init(ctx,
			genkit.WithDefaultModel(modelID),
			genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: apiKey}),
		)

	default:
		return nil, fmt.Errorf("unsupported suggest provider %q", cfg.Provider)
	}

	s := &Suggester{logger: logger, modelID: modelID}
	s.generate = func(ctx context.Context, prompt string) (string, error) {
		return genkit.GenerateText(ctx, g,
			ai.WithModelName(modelID),
			ai.WithPrompt(prompt),
		)
	}
	return s, nil
}

// Suggest returns a one-line commit message for diffText
func (s *Suggester) Suggest(ctx context.Context, diffText string, files []domain.FileStat) (string, error) {
	if strings.TrimSpace(diffText) == "" {
		return "", nil
	}

	answer, err := s.generate(ctx, buildPrompt(diffText, files))
	if err != nil {
		return "", fmt.Errorf("generating suggestion with %s: %w", s.modelID, err)
	}

	msg := parseResponse(answer)
	s.logger.Debug("commit message suggested", "model", s.modelID, "message", msg)
	return msg, nil
}

func buildPrompt(diffText string, files []domain.FileStat) string {
	var sb strings.Builder

	sb.WriteString(systemPrompt)
	sb.WriteString("\n\n## Changed files\n\n")
	for _, f := range files {
		sb.WriteString(fmt.Sprintf("- %s (+%d/-%d)\n", f.Path, f.Additions, f.Deletions))
	}

	if len(diffText) > maxDiffBytes {
		diffText = truncateUTF8(diffText, maxDiffBytes) + "\n... [truncated]"
	}
	sb.WriteString("\n## Diff\n\n```diff\n")
	sb.WriteString(diffText)
	sb.WriteString("\n```\n")

	return sb.String()
}

// truncateUTF8 cuts s to at most n bytes without splitting a rune
func truncateUTF8(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

// parseResponse keeps the first non-empty line, without fences or quotes
func parseResponse(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		return strings.Trim(line, "\"'`")
	}
	return ""
}

const systemPrompt = `You write git commit messages. Read the uncommitted changes below and reply with ONE commit subject line:

- imperative mood ("Add", "Fix", "Refactor")
- at most 72 characters
- no trailing period, no quotes, no prefix like "Commit message:"

Respond ONLY with the subject line.`
