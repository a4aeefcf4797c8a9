package statement

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/MrJamesThe3rd/tally/internal/billing"
)

//go:generate mockgen -source=service.go -destination=repository_mock.go -package=statement
type Repository interface {
	Snapshot(ctx context.Context) (*billing.Snapshot, error)
}

type Service struct {
	repo   Repository
	engine *Engine
	now    func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now as the source of "today".
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(repo Repository, engine *Engine, opts ...Option) *Service {
	s := &Service{repo: repo, engine: engine, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Statement builds the statement of one customer as of today.
func (s *Service) Statement(ctx context.Context, customerID uuid.UUID) (*Statement, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	st := s.engine.Build(customerID, snap.Customers, snap.Invoices, snap.Payments, billing.Day(s.now()))
	if st == nil {
		return nil, billing.ErrNotFound
	}

	return st, nil
}

// All builds one statement per statement root, in customer order.
func (s *Service) All(ctx context.Context) ([]*Statement, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	return s.build(snap), nil
}

// Summary aggregates every statement root into portfolio figures.
func (s *Service) Summary(ctx context.Context) (*Summary, error) {
	snap, err := s.repo.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	sum := Summarize(s.build(snap))

	return &sum, nil
}

func (s *Service) build(snap *billing.Snapshot) []*Statement {
	today := billing.Day(s.now())
	roots := Roots(snap.Customers)

	out := make([]*Statement, 0, len(roots))
	for _, c := range roots {
		out = append(out, s.engine.Build(c.ID, snap.Customers, snap.Invoices, snap.Payments, today))
	}

	return out
}
