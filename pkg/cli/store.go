package cli

import (
	"context"
	"errors"

	"github.com/funvibe/dtypes/internal/history"
)

func (a *app) openStore(ctx context.Context) (*history.Store, error) {
	return history.Open(ctx, a.cfg.DB, a.logger)
}

func isIncompatible(err error) bool {
	var incompatible *history.IncompatibleError
	return errors.As(err, &incompatible)
}
