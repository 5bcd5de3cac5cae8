package memory

import (
	"context"
	"fmt"
	"sync"

	"homesplit/internal/core"
)

// Exporter records exported rows instead of writing them anywhere.
type Exporter struct {
	mu       sync.Mutex
	Charges  []core.Charge
	Closures []core.Closure
}

func (e *Exporter) ExportCharge(_ context.Context, c core.Charge) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Charges = append(e.Charges, c)
	return fmt.Sprintf("mem:charges:%d", len(e.Charges)), nil
}

func (e *Exporter) ExportClosure(_ context.Context, c core.Closure) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Closures = append(e.Closures, c)
	return fmt.Sprintf("mem:closures:%d", len(e.Closures)), nil
}

// Publisher records published messages.
type Publisher struct {
	mu       sync.Mutex
	Charges  []int64
	Closed   []core.Period
	FailWith error
}

func (p *Publisher) PublishChargeSync(_ context.Context, id int64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailWith != nil {
		return p.FailWith
	}
	p.Charges = append(p.Charges, id)
	return nil
}

func (p *Publisher) PublishPeriodClosed(_ context.Context, period core.Period, _ string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.FailWith != nil {
		return p.FailWith
	}
	p.Closed = append(p.Closed, period)
	return nil
}
