package cost

import (
	"time"

	"go.uber.org/zap"

	"github.com/upb/it-assistant/services/providers"
)

// Accountant prices model calls and measures pipeline latency.
type Accountant struct {
	table  Table
	logger *zap.Logger
}

// NewAccountant creates an accountant. A nil table uses DefaultTable.
func NewAccountant(table Table, logger *zap.Logger) *Accountant {
	if table == nil {
		table = DefaultTable()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Accountant{table: table, logger: logger}
}

// EstimateCost returns the dollar cost of usage on model. Unknown models
// cost 0 and are logged.
func (a *Accountant) EstimateCost(model string, usage providers.Usage) float64 {
	rate, ok := a.table[model]
	if !ok {
		a.logger.Warn("model not recognized, cost calculation skipped", zap.String("model", model))
		return 0
	}
	return (float64(usage.PromptTokens)*rate.Prompt + float64(usage.CompletionTokens)*rate.Completion) / 1000
}

// Rate returns the pricing for model.
func (a *Accountant) Rate(model string) (Rate, bool) {
	rate, ok := a.table[model]
	return rate, ok
}

// Elapsed returns the seconds between start and end, never negative.
func Elapsed(start, end time.Time) float64 {
	d := end.Sub(start).Seconds()
	if d < 0 {
		return 0
	}
	return d
}
