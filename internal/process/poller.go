package process

import (
	"context"
	"fmt"
)

// Poller feeds registry reconciles from a process table.
type Poller struct {
	table    Table
	registry *Registry
}

// NewPoller creates a poller over table and registry
func NewPoller(table Table, registry *Registry) *Poller {
	return &Poller{table: table, registry: registry}
}

// Tick takes one snapshot and reconciles against it. A failed snapshot
// leaves the registry untouched.
func (p *Poller) Tick(ctx context.Context) error {
	snap, err := p.table.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot process table: %w", err)
	}
	p.registry.Reconcile(snap)
	return nil
}

// Refresh rebuilds the registry from a fresh snapshot
func (p *Poller) Refresh(ctx context.Context) error {
	snap, err := p.table.Snapshot(ctx)
	if err != nil {
		return fmt.Errorf("failed to snapshot process table: %w", err)
	}
	p.registry.FullRefresh(snap)
	return nil
}
