package adapter

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"os"
	"strconv"
	"strings"

	sdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/parser-bench/internal/model"
	"github.com/sells-group/parser-bench/internal/resilience"
)

// extractionPromptVersion is folded into the cache fingerprint; bump it
// whenever the prompt text changes.
const extractionPromptVersion = "v3"

const extractionPrompt = `Transcribe this PDF page to Markdown.

Rules:
- Preserve reading order exactly as a human would read the page.
- Use # through ###### for headings, matching their visual hierarchy.
- Use "- " bullets for list items, one item per line.
- Render tables as GitHub pipe tables. Put any table caption on its own
  line after the table, prefixed "Table: ".
- For each figure, chart, or photo emit a single line "FIGURE: <caption>"
  (use "FIGURE: untitled" when it has no caption). Do not describe the
  image content.
- Transcribe text faithfully. Do not summarize, translate, or add
  commentary.
- Output only the Markdown, no preamble and no code fences.`

// modelPricing is USD per million tokens. Unknown models fall back to
// the most expensive row so cost is never underreported.
type modelPricing struct {
	inputPerMTok  float64
	outputPerMTok float64
}

var claudePricing = map[string]modelPricing{
	"claude-opus":   {inputPerMTok: 15.0, outputPerMTok: 75.0},
	"claude-sonnet": {inputPerMTok: 3.0, outputPerMTok: 15.0},
	"claude-haiku":  {inputPerMTok: 0.80, outputPerMTok: 4.0},
}

func pricingFor(modelName string) modelPricing {
	for prefix, p := range claudePricing {
		if strings.HasPrefix(modelName, prefix) {
			return p
		}
	}
	return claudePricing["claude-opus"]
}

// ClaudeConfig configures the vision-model adapter.
type ClaudeConfig struct {
	APIKey            string  `yaml:"api_key" mapstructure:"api_key"`
	Model             string  `yaml:"model" mapstructure:"model"`
	MaxTokens         int64   `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerMinute float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// DefaultClaudeConfig returns the adapter defaults.
func DefaultClaudeConfig() ClaudeConfig {
	return ClaudeConfig{
		Model:             "claude-sonnet-4-5",
		MaxTokens:         8192,
		RequestsPerMinute: 30,
	}
}

// ClaudeAdapter parses pages by sending each one, as a single-page PDF,
// to a Claude vision model and canonicalizing the returned Markdown.
type ClaudeAdapter struct {
	client    sdk.Client
	model     string
	maxTokens int64
	limiter   *rate.Limiter
	retry     resilience.RetryConfig
}

// NewClaude builds the adapter. The API key must be set.
func NewClaude(cfg ClaudeConfig, retry resilience.RetryConfig) (*ClaudeAdapter, error) {
	if cfg.APIKey == "" {
		return nil, eris.New("adapter: claude api key not set")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultClaudeConfig().Model
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultClaudeConfig().MaxTokens
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultClaudeConfig().RequestsPerMinute
	}
	return &ClaudeAdapter{
		client:    sdk.NewClient(option.WithAPIKey(cfg.APIKey)),
		model:     cfg.Model,
		maxTokens: cfg.MaxTokens,
		limiter:   rate.NewLimiter(rate.Limit(cfg.RequestsPerMinute/60.0), 1),
		retry:     retry,
	}, nil
}

func (a *ClaudeAdapter) Name() string { return "claude" }

func (a *ClaudeAdapter) ConfigFingerprint() string {
	sum := sha256.Sum256([]byte(strings.Join([]string{
		"claude",
		a.model,
		strconv.FormatInt(a.maxTokens, 10),
		extractionPromptVersion,
	}, "\x1f")))
	return hex.EncodeToString(sum[:8])
}

func (a *ClaudeAdapter) Parse(ctx context.Context, pdfPath string, pageNumber int) (*ParseResult, error) {
	pageBytes, err := singlePagePDF(pdfPath, pageNumber)
	if err != nil {
		return nil, eris.Wrapf(ErrAdapterFailure, "extract page %d from %s: %v", pageNumber, pdfPath, err)
	}
	encoded := base64.StdEncoding.EncodeToString(pageBytes)

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	msg, err := resilience.DoVal(ctx, a.retry, "claude parse", func(ctx context.Context) (*sdk.Message, error) {
		return a.client.Messages.New(ctx, sdk.MessageNewParams{
			Model:     sdk.Model(a.model),
			MaxTokens: a.maxTokens,
			Messages: []sdk.MessageParam{
				sdk.NewUserMessage(
					sdk.NewDocumentBlock(sdk.Base64PDFSourceParam{Data: encoded}),
					sdk.NewTextBlock(extractionPrompt),
				),
			},
		})
	})
	if err != nil {
		return nil, eris.Wrapf(ErrAdapterFailure, "model call for page %d: %v", pageNumber, err)
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return nil, eris.Wrapf(ErrAdapterFailure, "model returned no text for page %d", pageNumber)
	}

	return &ParseResult{
		Raw:     []byte(stripFence(out)),
		CostUSD: estimateCost(a.model, msg.Usage),
	}, nil
}

func (a *ClaudeAdapter) ToCanonical(documentID string, pageNumber int, raw []byte) (model.CanonicalPage, error) {
	return CanonicalFromMarkdown(documentID, pageNumber, raw)
}

// estimateCost follows published per-MTok pricing. Cache writes bill at
// 1.25x input, cache reads at 0.1x.
func estimateCost(modelName string, usage sdk.Usage) float64 {
	p := pricingFor(modelName)
	cost := float64(usage.InputTokens) * p.inputPerMTok
	cost += float64(usage.CacheCreationInputTokens) * p.inputPerMTok * 1.25
	cost += float64(usage.CacheReadInputTokens) * p.inputPerMTok * 0.1
	cost += float64(usage.OutputTokens) * p.outputPerMTok
	return cost / 1_000_000
}

// singlePagePDF writes the one requested page into a fresh PDF so the
// model never sees surrounding pages.
func singlePagePDF(pdfPath string, pageNumber int) ([]byte, error) {
	f, err := os.Open(pdfPath)
	if err != nil {
		return nil, eris.Wrap(err, "open pdf")
	}
	defer f.Close()

	var buf bytes.Buffer
	if err := pdfapi.Trim(f, &buf, []string{strconv.Itoa(pageNumber)}, nil); err != nil {
		return nil, eris.Wrapf(err, "trim to page %d", pageNumber)
	}
	return buf.Bytes(), nil
}

// stripFence removes a whole-output code fence if the model ignored the
// no-fence instruction.
func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	lines := strings.Split(s, "\n")
	if len(lines) < 2 || !strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		return s
	}
	return strings.TrimSpace(strings.Join(lines[1:len(lines)-1], "\n"))
}
