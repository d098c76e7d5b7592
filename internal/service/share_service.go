package service

import (
	"context"
	"fmt"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/hexavel/clientshare/internal/cache"
	"github.com/hexavel/clientshare/internal/model"
	appErr "github.com/hexavel/clientshare/internal/pkg/errors"
	"github.com/hexavel/clientshare/internal/pkg/sharecode"
	"github.com/hexavel/clientshare/internal/pkg/timeutil"
	"github.com/hexavel/clientshare/internal/repo"
)

const (
	PermissionView = "view"
	PermissionEdit = "edit"

	rateLimitWindow = time.Hour
)

func ValidPermission(permission string) bool {
	return permission == PermissionView || permission == PermissionEdit
}

type ShareOptions struct {
	// Codes one issuer may create per trailing hour.
	MaxCodesPerHour int
	// Expiry fallback and ceiling, in hours.
	DefaultExpiryHours int
	MaxExpiryHours     int
	// Ceiling on max_uses per code.
	MaxUsesLimit int
}

// ShareService issues, redeems and revokes client share codes. All
// contended state lives in the share_codes row; the service holds no
// locks and no counters, so any number of replicas behave identically.
type ShareService struct {
	codes        *repo.ShareCodeRepo
	grants       *repo.SharedAccessRepo
	clients      *repo.ClientRepo
	clientReader cache.ClientGetter
	opts         ShareOptions
}

func NewShareService(codes *repo.ShareCodeRepo, grants *repo.SharedAccessRepo, clients *repo.ClientRepo, clientReader cache.ClientGetter, opts ShareOptions) *ShareService {
	if opts.MaxCodesPerHour <= 0 {
		opts.MaxCodesPerHour = 10
	}
	if opts.DefaultExpiryHours <= 0 {
		opts.DefaultExpiryHours = 24
	}
	if opts.MaxExpiryHours <= 0 {
		opts.MaxExpiryHours = 24 * 30
	}
	if opts.MaxUsesLimit <= 0 {
		opts.MaxUsesLimit = 100
	}
	if clientReader == nil {
		clientReader = clients
	}
	return &ShareService{
		codes:        codes,
		grants:       grants,
		clients:      clients,
		clientReader: clientReader,
		opts:         opts,
	}
}

type GeneratedShareCode struct {
	ID            string `json:"id"`
	Code          string `json:"code"`
	FormattedCode string `json:"formatted_code"`
	Permission    string `json:"permission"`
	MaxUses       int    `json:"max_uses"`
	ExpiresAt     int64  `json:"expires_at"`
}

// GenerateShareCode issues a new code for a client the caller owns. The
// plaintext appears only in the returned value; the row stores its
// Argon2id hash and lookup fingerprint.
func (s *ShareService) GenerateShareCode(ctx context.Context, ownerID, clientID, permission string, expiresInHours, maxUses int) (*GeneratedShareCode, error) {
	if !ValidPermission(permission) {
		return nil, appErr.ErrInvalid
	}
	if expiresInHours <= 0 {
		expiresInHours = s.opts.DefaultExpiryHours
	}
	if expiresInHours > s.opts.MaxExpiryHours {
		return nil, appErr.ErrInvalid
	}
	if maxUses <= 0 {
		maxUses = 1
	}
	if maxUses > s.opts.MaxUsesLimit {
		return nil, appErr.ErrInvalid
	}
	// Absent and not-owned look identical to the caller.
	if _, err := s.clients.GetByOwner(ctx, ownerID, clientID); err != nil {
		return nil, err
	}
	if err := s.checkRateLimit(ctx, ownerID); err != nil {
		return nil, err
	}

	code := sharecode.New()
	hash, err := sharecode.Hash(code)
	if err != nil {
		return nil, err
	}
	now := timeutil.NowUnix()
	row := &model.ShareCode{
		ID:         newID(),
		ClientID:   clientID,
		CreatedBy:  ownerID,
		CodeHash:   hash,
		CodeFp:     sharecode.Fingerprint(code),
		Permission: permission,
		MaxUses:    maxUses,
		UsedCount:  0,
		State:      repo.ShareCodeStateActive,
		ExpiresAt:  now + int64(expiresInHours)*3600,
		Ctime:      now,
		Mtime:      now,
	}
	if err := s.codes.Create(ctx, row); err != nil {
		return nil, err
	}
	return &GeneratedShareCode{
		ID:            row.ID,
		Code:          code,
		FormattedCode: sharecode.Format(code),
		Permission:    row.Permission,
		MaxUses:       row.MaxUses,
		ExpiresAt:     row.ExpiresAt,
	}, nil
}

func (s *ShareService) checkRateLimit(ctx context.Context, ownerID string) error {
	since := timeutil.NowUnix() - int64(rateLimitWindow/time.Second)
	count, err := s.codes.CountCreatedSince(ctx, ownerID, since)
	if err != nil {
		return err
	}
	if count < s.opts.MaxCodesPerHour {
		return nil
	}
	oldest, err := s.codes.OldestCreatedSince(ctx, ownerID, since)
	if err != nil {
		return err
	}
	waitMinutes := int64(1)
	if oldest > 0 {
		remaining := oldest - since
		waitMinutes = remaining/60 + 1
	}
	logutil.GetLogger(ctx).Warn("share code rate limit hit",
		zap.String("owner_id", ownerID),
		zap.Int("count", count),
	)
	return fmt.Errorf("%w: try again in about %d minute(s)", appErr.ErrTooMany, waitMinutes)
}

type RedeemedShare struct {
	ClientID   string `json:"client_id"`
	ClientName string `json:"client_name"`
	Permission string `json:"permission"`
}

// RedeemShareCode exchanges a plaintext code for an access grant. The
// precondition checks narrow the failure reason, but the actual slot is
// claimed by the conditional increment inside ShareCodeRepo.Consume, so
// two racing redeemers can never both take the last use.
func (s *ShareService) RedeemShareCode(ctx context.Context, redeemerID, input string) (*RedeemedShare, error) {
	code := sharecode.Normalize(input)
	if len(code) != sharecode.CodeLength {
		return nil, appErr.ErrShareCodeInvalid
	}
	now := timeutil.NowUnix()
	candidates, err := s.codes.ListActiveByFingerprint(ctx, sharecode.Fingerprint(code), now)
	if err != nil {
		return nil, err
	}
	matched, err := verifyCandidates(code, candidates)
	if err != nil {
		return nil, err
	}
	if matched == nil {
		// Covers wrong, expired and revoked codes alike.
		return nil, appErr.ErrShareCodeInvalid
	}
	if matched.UsedCount >= matched.MaxUses {
		return nil, appErr.ErrShareCodeExhausted
	}
	if matched.CreatedBy == redeemerID {
		return nil, appErr.ErrSelfRedeem
	}
	if _, err := s.grants.GetByClientAndUser(ctx, matched.ClientID, redeemerID); err == nil {
		return nil, appErr.ErrAlreadyShared
	} else if !appErr.IsNotFound(err) {
		return nil, err
	}

	// Resolve the client before a use is consumed. A code whose client
	// was deleted in the meantime fails without burning a slot, and the
	// response always carries the client name.
	client, err := s.clientReader.GetByID(ctx, matched.ClientID)
	if err != nil {
		if appErr.IsNotFound(err) {
			return nil, appErr.ErrShareCodeInvalid
		}
		return nil, err
	}

	grant := &model.SharedAccess{
		ID:         newID(),
		ClientID:   matched.ClientID,
		UserID:     redeemerID,
		GrantedBy:  matched.CreatedBy,
		Permission: matched.Permission,
		Ctime:      now,
	}
	if err := s.codes.Consume(ctx, matched.ID, grant, now); err != nil {
		return nil, err
	}
	return &RedeemedShare{
		ClientID:   client.ID,
		ClientName: client.Name,
		Permission: matched.Permission,
	}, nil
}

func verifyCandidates(code string, candidates []model.ShareCode) (*model.ShareCode, error) {
	for i := range candidates {
		ok, err := sharecode.Verify(code, candidates[i].CodeHash)
		if err != nil {
			// Malformed stored hash; skip rather than leak anything to
			// the caller.
			continue
		}
		if ok {
			return &candidates[i], nil
		}
	}
	return nil, nil
}

// RevokeAllShareCodes deactivates every active code for the client.
// Idempotent; a second call reports zero revoked.
func (s *ShareService) RevokeAllShareCodes(ctx context.Context, ownerID, clientID string) (int64, error) {
	if _, err := s.clients.GetByOwner(ctx, ownerID, clientID); err != nil {
		return 0, err
	}
	return s.codes.RevokeByClient(ctx, clientID, timeutil.NowUnix())
}

type SharingStats struct {
	GrantedCount     int                `json:"granted_count"`
	ActiveCodesCount int                `json:"active_codes_count"`
	Grants           []repo.GrantDetail `json:"grants"`
}

func (s *ShareService) GetClientSharingStats(ctx context.Context, ownerID, clientID string) (*SharingStats, error) {
	if _, err := s.clients.GetByOwner(ctx, ownerID, clientID); err != nil {
		return nil, err
	}
	grantedCount, err := s.grants.CountByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	activeCount, err := s.codes.CountActiveByClient(ctx, clientID, timeutil.NowUnix())
	if err != nil {
		return nil, err
	}
	grants, err := s.grants.ListByClient(ctx, clientID)
	if err != nil {
		return nil, err
	}
	return &SharingStats{
		GrantedCount:     grantedCount,
		ActiveCodesCount: activeCount,
		Grants:           grants,
	}, nil
}

func (s *ShareService) RemoveSharedAccess(ctx context.Context, ownerID, clientID, granteeID string) error {
	if _, err := s.clients.GetByOwner(ctx, ownerID, clientID); err != nil {
		return err
	}
	return s.grants.DeleteByClientAndUser(ctx, clientID, granteeID)
}

func (s *ShareService) ListSharedWithMe(ctx context.Context, userID string) ([]repo.SharedClient, error) {
	return s.grants.ListByUser(ctx, userID)
}
