// internal/audit/audit.go
package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Check is a measurable consistency property of the library data.
type Check struct {
	Name        string
	Description string
	Query       func(context.Context) (float64, error)
	Threshold   Threshold
}

type Threshold struct {
	Operator string // >, <, >=, <=, ==
	Value    float64
}

// Holds reports whether value satisfies the threshold. Unknown operators never hold.
func (t Threshold) Holds(value float64) bool {
	switch t.Operator {
	case ">":
		return value > t.Value
	case "<":
		return value < t.Value
	case ">=":
		return value >= t.Value
	case "<=":
		return value <= t.Value
	case "==":
		return value == t.Value
	default:
		return false
	}
}

func (t Threshold) String() string {
	return fmt.Sprintf("%s %g", t.Operator, t.Value)
}

// Result is the outcome of a single check.
type Result struct {
	Name     string  `json:"name"`
	Expected string  `json:"expected"`
	Actual   float64 `json:"actual"`
	Passed   bool    `json:"passed"`
	Error    string  `json:"error,omitempty"`
}

// Report captures one audit run.
type Report struct {
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
	Healthy   bool          `json:"healthy"`
	Results   []Result      `json:"results"`
}

// Violations returns the results that did not pass.
func (r *Report) Violations() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// Auditor runs registered checks and keeps the most recent report.
type Auditor struct {
	tracer trace.Tracer
	logger *zap.Logger

	mu     sync.Mutex
	checks []Check
	last   *Report
}

func NewAuditor(logger *zap.Logger, checks ...Check) *Auditor {
	return &Auditor{
		tracer: otel.Tracer("librarydesk/audit"),
		logger: logger.Named("audit"),
		checks: checks,
	}
}

// Register adds a check to the suite.
func (a *Auditor) Register(c Check) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.checks = append(a.checks, c)
}

// Checks returns a copy of the registered checks.
func (a *Auditor) Checks() []Check {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]Check(nil), a.checks...)
}

// Last returns the most recent report, or nil if the auditor never ran.
func (a *Auditor) Last() *Report {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

// Run evaluates every check. A check whose query fails counts as a violation.
func (a *Auditor) Run(ctx context.Context) *Report {
	ctx, span := a.tracer.Start(ctx, "audit.run")
	defer span.End()

	report := &Report{StartedAt: time.Now().UTC(), Healthy: true}
	for _, c := range a.Checks() {
		res := Result{Name: c.Name, Expected: c.Threshold.String()}
		value, err := c.Query(ctx)
		switch {
		case err != nil:
			res.Actual = -1
			res.Error = err.Error()
			a.logger.Error("audit check failed", zap.String("check", c.Name), zap.Error(err))
		case c.Threshold.Holds(value):
			res.Actual = value
			res.Passed = true
		default:
			res.Actual = value
			a.logger.Warn("audit check violated",
				zap.String("check", c.Name),
				zap.String("expected", res.Expected),
				zap.Float64("actual", value),
			)
		}
		if !res.Passed {
			report.Healthy = false
		}
		report.Results = append(report.Results, res)
	}
	report.Duration = time.Since(report.StartedAt)

	span.SetAttributes(
		attribute.Int("audit.checks", len(report.Results)),
		attribute.Bool("audit.healthy", report.Healthy),
	)
	if !report.Healthy {
		span.SetStatus(codes.Error, "consistency violations found")
	}

	a.mu.Lock()
	a.last = report
	a.mu.Unlock()
	return report
}
