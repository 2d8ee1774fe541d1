// Package saga は補償処理付きの逐次ステップ実行を提供する。
package saga

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hitoshi/ragapi/internal/metrics"
)

// Compensation は完了済みステップを取り消す処理。
type Compensation func(ctx context.Context) error

// Step はサーガの1ステップ。
// Actionが成功した場合、返されたCompensationを補償スタックに積む。nilなら積まない。
type Step struct {
	Name   string
	Action func(ctx context.Context) (Compensation, error)
}

// StepError は失敗したステップ名と原因を保持する。
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

type pending struct {
	step string
	fn   Compensation
}

// Runner はステップを順に実行し、失敗時に補償を逆順で実行する。
// Runner自体は状態を持たないため、複数のリクエストから同時に使用できる。
type Runner struct {
	logger  *slog.Logger
	metrics metrics.MetricsCollector
}

// NewRunner はRunnerを生成する。
func NewRunner(logger *slog.Logger, m metrics.MetricsCollector) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	if m == nil {
		m = metrics.Nop{}
	}
	return &Runner{logger: logger, metrics: m}
}

// Run はstepsを順に実行する。
// いずれかのステップがエラーを返すかパニックした場合、それまでに積まれた補償を
// LIFOで実行してから元のエラーを返す（パニックは補償後に再送出する）。
// 補償はctxのキャンセルの影響を受けない。
func (r *Runner) Run(ctx context.Context, steps ...Step) (err error) {
	var stack []pending

	defer func() {
		p := recover()
		if err == nil && p == nil {
			return
		}
		r.compensate(context.WithoutCancel(ctx), stack)
		if p != nil {
			panic(p)
		}
	}()

	for _, step := range steps {
		comp, stepErr := step.Action(ctx)
		if stepErr != nil {
			return &StepError{Step: step.Name, Err: stepErr}
		}
		if comp != nil {
			stack = append(stack, pending{step: step.Name, fn: comp})
		}
	}
	return nil
}

func (r *Runner) compensate(ctx context.Context, stack []pending) {
	for i := len(stack) - 1; i >= 0; i-- {
		c := stack[i]
		cerr := r.runCompensation(ctx, c)
		r.metrics.RecordCompensation(c.step, cerr == nil)
		if cerr != nil {
			r.logger.Error("補償処理に失敗しました",
				slog.String("step", c.step),
				slog.String("error", cerr.Error()),
			)
			continue
		}
		r.logger.Info("補償処理を実行しました", slog.String("step", c.step))
	}
}

// runCompensation は補償処理のパニックをエラーに変換する。
func (r *Runner) runCompensation(ctx context.Context, c pending) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("compensation panicked: %v", p)
		}
	}()
	return c.fn(ctx)
}
