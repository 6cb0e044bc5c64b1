package framework

import (
	"context"
	"fmt"
)

// ProcessorFunc 处理步骤
type ProcessorFunc func(ctx context.Context) error

// Step 具名处理步骤
type Step struct {
	Name string
	Fn   ProcessorFunc
}

// PreProcessor 按顺序执行处理步骤
type PreProcessor struct {
	steps []Step
}

// NewPreProcessor 创建步骤链
func NewPreProcessor(steps ...Step) *PreProcessor {
	return &PreProcessor{steps: steps}
}

// Run 任一步骤出错或 ctx 已取消即停止；返回的错误保留原始错误链
func (p *PreProcessor) Run(ctx context.Context) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("step %s skipped: %w", step.Name, err)
		}
		if err := step.Fn(ctx); err != nil {
			return fmt.Errorf("step %s: %w", step.Name, err)
		}
	}
	return nil
}
