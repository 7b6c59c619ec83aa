package app

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/magnusohlin/numba/internal/domain"
)

// ResultReader serves archived results.
type ResultReader interface {
	RecentResults(ctx context.Context, limit int) ([]domain.GameResult, error)
	Result(ctx context.Context, id string) (domain.GameResult, error)
}

// MultiSink fans one result out to several sinks. Every sink is attempted;
// the errors are joined.
type MultiSink []ResultSink

func (m MultiSink) RecordResult(ctx context.Context, result domain.GameResult) error {
	var errs []error
	for _, sink := range m {
		if err := sink.RecordResult(ctx, result); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func newResultID() string {
	return uuid.NewString()
}
