package review

import (
	"context"

	"github.com/R3E-Network/submission_review/internal/domain/account"
	svcerrors "github.com/R3E-Network/submission_review/internal/errors"
)

// SetCreatorActive lets an admin suspend or reinstate a creator. Inactive
// creators keep their submissions but cannot create new ones.
func (e *Engine) SetCreatorActive(ctx context.Context, p account.Principal, creatorID string, active bool) (account.Creator, error) {
	if !p.IsAdmin() {
		return account.Creator{}, svcerrors.Forbidden("only admins can change creator status")
	}
	if err := e.store.SetCreatorActive(ctx, creatorID, active); err != nil {
		return account.Creator{}, storeError(err, "creator", creatorID)
	}
	user, err := e.store.GetUser(ctx, creatorID)
	if err != nil {
		return account.Creator{}, storeError(err, "creator", creatorID)
	}
	creator, ok := user.(account.Creator)
	if !ok {
		return account.Creator{}, svcerrors.NotFound("creator", creatorID)
	}

	e.log.WithContext(ctx).
		WithField("creator_id", creatorID).
		WithField("active", active).
		WithField("admin_id", p.ID).
		Info("creator status changed")
	return creator, nil
}
