package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/himax12/PlotLine/internal/ai"
	"github.com/himax12/PlotLine/internal/models"
	"github.com/himax12/PlotLine/internal/schemas"
)

// Summarizer сжимает рабочую память рассказа, когда она разрастается.
// Без сжатия running_summary растет неограниченно с каждой сценой.
type Summarizer struct {
	client ai.Client
	logger *zap.Logger
}

// NewSummarizer создает агента сжатия памяти.
func NewSummarizer(client ai.Client, logger *zap.Logger) *Summarizer {
	return &Summarizer{client: client, logger: logger.Named("summarizer")}
}

// Compact переписывает running_summary и critical_facts в сжатом виде.
// Мутирует память состояния на месте.
func (s *Summarizer) Compact(ctx context.Context, st *models.NarrativeState) (ai.UsageInfo, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "Current summary:\n%s\n", st.Memory.RunningSummary)
	if len(st.Memory.CriticalFacts) > 0 {
		fmt.Fprintf(&b, "\nCritical facts:\n- %s\n", strings.Join(st.Memory.CriticalFacts, "\n- "))
	}
	if st.Memory.LastParagraph != "" {
		fmt.Fprintf(&b, "\nMost recent scene text:\n%s\n", st.Memory.LastParagraph)
	}

	raw, usage, err := s.client.GenerateStructured(ctx, "summarize",
		summarizerSystemPrompt, b.String(), schemas.MemorySummarySchema, ai.GenerationParams{})
	if err != nil {
		return usage, fmt.Errorf("сжатие памяти: %w", err)
	}

	summary, err := schemas.ParseMemorySummary(raw)
	if err != nil {
		return usage, fmt.Errorf("сжатие памяти: %w", err)
	}

	before := len(st.Memory.RunningSummary)
	st.Memory.RunningSummary = summary.RunningSummary
	st.Memory.CriticalFacts = summary.CriticalFacts

	s.logger.Info("narrative memory compacted",
		zap.Int("summary_bytes_before", before),
		zap.Int("summary_bytes_after", len(summary.RunningSummary)))

	return usage, nil
}
