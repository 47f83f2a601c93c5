package agents

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/ai"
	"github.com/himax12/PlotLine/internal/models"
	"github.com/himax12/PlotLine/internal/schemas"
)

// Резервный список маркеров известных франшиз. Используется, когда
// LLM-вердикт недоступен: грубый, но детерминированный фильтр.
var fallbackKeywords = []string{
	"hogwarts", "voldemort", "dumbledore", "harry potter",
	"jedi", "darth vader", "skywalker", "millennium falcon",
	"hobbit", "gandalf", "mordor", "middle-earth", "frodo",
	"westeros", "targaryen", "winterfell",
	"pikachu", "pokemon",
	"batman", "gotham", "spider-man", "avengers", "wakanda",
	"narnia", "dementor", "quidditch",
}

// Guardrail проверяет тексты на риск нарушения авторских прав.
// Вердикты кэшируются по хэшу текста, чтобы не платить за повторные проверки.
type Guardrail struct {
	client ai.Client
	logger *zap.Logger

	mu    sync.RWMutex
	cache map[string]*models.GuardResult
}

// NewGuardrail создает защитный фильтр.
func NewGuardrail(client ai.Client, logger *zap.Logger) *Guardrail {
	return &Guardrail{
		client: client,
		logger: logger.Named("guardrail"),
		cache:  make(map[string]*models.GuardResult),
	}
}

// CheckInput проверяет входной запрос пользователя.
func (g *Guardrail) CheckInput(ctx context.Context, text string) (*models.GuardResult, ai.UsageInfo) {
	return g.check(ctx, text, "guard_input")
}

// CheckOutput проверяет сгенерированную прозу.
func (g *Guardrail) CheckOutput(ctx context.Context, text string) (*models.GuardResult, ai.UsageInfo) {
	return g.check(ctx, text, "guard_output")
}

func (g *Guardrail) check(ctx context.Context, text string, stage string) (*models.GuardResult, ai.UsageInfo) {
	key := cacheKey(text)

	g.mu.RLock()
	cached, ok := g.cache[key]
	g.mu.RUnlock()
	if ok {
		g.logger.Debug("guard verdict served from cache", zap.String("stage", stage))
		return cached, ai.UsageInfo{}
	}

	verdict, usage := g.llmVerdict(ctx, text, stage)
	if verdict == nil {
		// LLM недоступен: откатываемся на список ключевых слов
		verdict = keywordVerdict(text)
		g.logger.Warn("guard LLM verdict unavailable, keyword fallback used",
			zap.String("stage", stage),
			zap.Bool("is_safe", verdict.IsSafe))
	}

	g.mu.Lock()
	g.cache[key] = verdict
	g.mu.Unlock()

	return verdict, usage
}

func (g *Guardrail) llmVerdict(ctx context.Context, text string, stage string) (*models.GuardResult, ai.UsageInfo) {
	raw, usage, err := g.client.GenerateStructured(ctx, stage,
		guardrailSystemPrompt, text, schemas.GuardVerdictSchema, ai.GenerationParams{})
	if err != nil {
		g.logger.Warn("guard LLM call failed", zap.Error(err))
		return nil, usage
	}

	verdict, err := schemas.ParseGuardVerdict(raw)
	if err != nil {
		g.logger.Warn("guard verdict rejected", zap.Error(err))
		return nil, usage
	}
	return verdict, usage
}

// keywordVerdict - детерминированный резервный фильтр по маркерам франшиз.
func keywordVerdict(text string) *models.GuardResult {
	lower := strings.ToLower(text)
	var matched []string
	for _, kw := range fallbackKeywords {
		if strings.Contains(lower, kw) {
			matched = append(matched, kw)
		}
	}

	if len(matched) == 0 {
		return &models.GuardResult{
			IsSafe:      true,
			OverallRisk: models.RiskSafe,
			Reasoning:   "keyword fallback: no known franchise markers found",
		}
	}

	return &models.GuardResult{
		IsSafe:      false,
		OverallRisk: models.RiskHigh,
		Violations: []models.GuardViolation{{
			ViolationType:   models.GuardViolationCopyright,
			Severity:        models.RiskHigh,
			Description:     "text contains markers of a known copyrighted franchise",
			Confidence:      0.9,
			MatchedElements: matched,
		}},
		Reasoning:          "keyword fallback: franchise markers matched",
		TransformationHint: "replace recognizable characters and settings with original ones",
	}
}

func cacheKey(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
