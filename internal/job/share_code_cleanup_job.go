package job

import (
	"context"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/hexavel/clientshare/internal/pkg/timeutil"
	"github.com/hexavel/clientshare/internal/repo"
)

// ShareCodeCleanupJob moves active codes past their expiry into the
// expired state. Redemption and stats queries filter on expires_at
// themselves, so this only keeps the table tidy and the active index
// small; correctness never depends on when it last ran.
type ShareCodeCleanupJob struct {
	codes *repo.ShareCodeRepo
}

func NewShareCodeCleanupJob(codes *repo.ShareCodeRepo) *ShareCodeCleanupJob {
	return &ShareCodeCleanupJob{codes: codes}
}

func (j *ShareCodeCleanupJob) Name() string {
	return "share_code_cleanup"
}

func (j *ShareCodeCleanupJob) Run(ctx context.Context) error {
	if j.codes == nil {
		return nil
	}
	now := timeutil.NowUnix()
	expired, err := j.codes.MarkExpired(ctx, now, now)
	if err != nil {
		return err
	}
	if expired > 0 {
		logutil.GetLogger(ctx).Info("expired share codes deactivated", zap.Int64("count", expired))
	}
	return nil
}
