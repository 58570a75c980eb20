package db

import (
	"context"
	"errors"
)

// pinger is satisfied by *pgxpool.Pool and the queue stores.
type pinger interface {
	Ping(ctx context.Context) error
}

// Healthcheck returns a closure that pings the database.
// Compatible with health.CheckFunc.
func Healthcheck(p pinger) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		if p == nil {
			return errors.Join(ErrHealthcheckFailed, errors.New("database handle is nil"))
		}
		if err := p.Ping(ctx); err != nil {
			return errors.Join(ErrHealthcheckFailed, err)
		}
		return nil
	}
}
