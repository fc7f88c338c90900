package application

import (
	"context"

	"github.com/vulpemventures/coinselect/internal/core/domain"
	"github.com/vulpemventures/coinselect/internal/core/ports"
)

// Notification service has the very simple task of making the event channel
// of the used domain.UtxoRepository accessible by external clients so that
// they can get real-time updates on the status of the utxo set.
type NotificationService struct {
	repoManager ports.RepoManager
}

func NewNotificationService(
	repoManager ports.RepoManager,
) *NotificationService {
	return &NotificationService{repoManager}
}

func (ns *NotificationService) GetUtxoChannel(
	ctx context.Context,
) (chan domain.UtxoEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return ns.repoManager.UtxoRepository().GetEventChannel(), nil
}
