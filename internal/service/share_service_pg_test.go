package service_test

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hexavel/clientshare/internal/model"
	appErr "github.com/hexavel/clientshare/internal/pkg/errors"
	"github.com/hexavel/clientshare/internal/pkg/sharecode"
	"github.com/hexavel/clientshare/internal/pkg/timeutil"
	"github.com/hexavel/clientshare/internal/repo"
	"github.com/hexavel/clientshare/internal/service"
	"github.com/hexavel/clientshare/internal/testutil"
)

type pgFixture struct {
	db      *sql.DB
	users   *repo.UserRepo
	clients *repo.ClientRepo
	codes   *repo.ShareCodeRepo
	grants  *repo.SharedAccessRepo
	shares  *service.ShareService
}

func newPGFixture(t *testing.T) (*pgFixture, func()) {
	t.Helper()
	db, cleanup := testutil.OpenTestDB(t)
	f := &pgFixture{
		db:      db,
		users:   repo.NewUserRepo(db),
		clients: repo.NewClientRepo(db),
		codes:   repo.NewShareCodeRepo(db),
		grants:  repo.NewSharedAccessRepo(db),
	}
	f.shares = service.NewShareService(f.codes, f.grants, f.clients, nil, service.ShareOptions{
		MaxCodesPerHour:    10,
		DefaultExpiryHours: 24,
		MaxExpiryHours:     720,
		MaxUsesLimit:       100,
	})
	return f, cleanup
}

func testID() string {
	bytes := make([]byte, 8)
	_, _ = rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

func (f *pgFixture) seedUser(t *testing.T, name string) *model.User {
	t.Helper()
	now := timeutil.NowUnix()
	user := &model.User{
		ID:           testID(),
		Email:        testID() + "@example.com",
		PasswordHash: "x",
		DisplayName:  name,
		Ctime:        now,
		Mtime:        now,
	}
	require.NoError(t, f.users.Create(context.Background(), user))
	return user
}

func (f *pgFixture) seedClient(t *testing.T, ownerID, name string) *model.Client {
	t.Helper()
	now := timeutil.NowUnix()
	client := &model.Client{
		ID:      testID(),
		OwnerID: ownerID,
		Name:    name,
		State:   repo.ClientStateNormal,
		Ctime:   now,
		Mtime:   now,
	}
	require.NoError(t, f.clients.Create(context.Background(), client))
	return client
}

func (f *pgFixture) seedRawCode(t *testing.T, clientID, createdBy string, maxUses int, expiresAt, ctime int64) string {
	t.Helper()
	plaintext := sharecode.New()
	hash, err := sharecode.Hash(plaintext)
	require.NoError(t, err)
	now := timeutil.NowUnix()
	require.NoError(t, f.codes.Create(context.Background(), &model.ShareCode{
		ID:         testID(),
		ClientID:   clientID,
		CreatedBy:  createdBy,
		CodeHash:   hash,
		CodeFp:     sharecode.Fingerprint(plaintext),
		Permission: service.PermissionView,
		MaxUses:    maxUses,
		State:      repo.ShareCodeStateActive,
		ExpiresAt:  expiresAt,
		Ctime:      ctime,
		Mtime:      now,
	}))
	return plaintext
}

func TestRedeemConcurrencyNeverOverConsumes(t *testing.T) {
	f, cleanup := newPGFixture(t)
	defer cleanup()
	ctx := context.Background()

	owner := f.seedUser(t, "Owner")
	client := f.seedClient(t, owner.ID, "Race Client")
	generated, err := f.shares.GenerateShareCode(ctx, owner.ID, client.ID, service.PermissionView, 24, 3)
	require.NoError(t, err)

	const attempts = 10
	redeemers := make([]*model.User, attempts)
	for i := range redeemers {
		redeemers[i] = f.seedUser(t, "Redeemer")
	}

	var wg sync.WaitGroup
	results := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, results[i] = f.shares.RedeemShareCode(ctx, redeemers[i].ID, generated.Code)
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		require.True(t,
			errors.Is(err, appErr.ErrRaceLost) ||
				errors.Is(err, appErr.ErrShareCodeExhausted) ||
				errors.Is(err, appErr.ErrShareCodeInvalid),
			"unexpected redemption error: %v", err)
	}
	require.Equal(t, 3, successes)

	code, err := f.codes.GetByID(ctx, generated.ID)
	require.NoError(t, err)
	require.Equal(t, 3, code.UsedCount)
	require.Equal(t, repo.ShareCodeStateExhausted, code.State)

	grantCount, err := f.grants.CountByClient(ctx, client.ID)
	require.NoError(t, err)
	require.Equal(t, 3, grantCount)
}

func TestRedeemExpiredCodeFails(t *testing.T) {
	f, cleanup := newPGFixture(t)
	defer cleanup()
	ctx := context.Background()

	owner := f.seedUser(t, "Owner")
	client := f.seedClient(t, owner.ID, "Expired Client")
	now := timeutil.NowUnix()
	plaintext := f.seedRawCode(t, client.ID, owner.ID, 5, now-60, now-3600)

	redeemer := f.seedUser(t, "Redeemer")
	_, err := f.shares.RedeemShareCode(ctx, redeemer.ID, plaintext)
	require.ErrorIs(t, err, appErr.ErrShareCodeInvalid)
}

func TestRedeemSelfAndDoubleGrant(t *testing.T) {
	f, cleanup := newPGFixture(t)
	defer cleanup()
	ctx := context.Background()

	owner := f.seedUser(t, "Owner")
	client := f.seedClient(t, owner.ID, "Shared Client")
	first, err := f.shares.GenerateShareCode(ctx, owner.ID, client.ID, service.PermissionView, 24, 5)
	require.NoError(t, err)

	_, err = f.shares.RedeemShareCode(ctx, owner.ID, first.Code)
	require.ErrorIs(t, err, appErr.ErrSelfRedeem)

	redeemer := f.seedUser(t, "Redeemer")
	_, err = f.shares.RedeemShareCode(ctx, redeemer.ID, first.Code)
	require.NoError(t, err)

	// A different still-valid code for the same client must not create
	// a second grant for the same user.
	second, err := f.shares.GenerateShareCode(ctx, owner.ID, client.ID, service.PermissionEdit, 24, 5)
	require.NoError(t, err)
	_, err = f.shares.RedeemShareCode(ctx, redeemer.ID, second.Code)
	require.ErrorIs(t, err, appErr.ErrAlreadyShared)
}

func TestGenerateRateLimitWindow(t *testing.T) {
	f, cleanup := newPGFixture(t)
	defer cleanup()
	ctx := context.Background()

	owner := f.seedUser(t, "Owner")
	client := f.seedClient(t, owner.ID, "Quota Client")
	now := timeutil.NowUnix()

	// Ten codes inside the trailing hour exhaust the quota.
	for i := 0; i < 10; i++ {
		f.seedRawCode(t, client.ID, owner.ID, 1, now+3600, now-60)
	}
	_, err := f.shares.GenerateShareCode(ctx, owner.ID, client.ID, service.PermissionView, 24, 1)
	require.ErrorIs(t, err, appErr.ErrTooMany)

	// Codes older than the window do not count against a fresh issuer.
	other := f.seedUser(t, "Other Owner")
	otherClient := f.seedClient(t, other.ID, "Old Quota Client")
	for i := 0; i < 10; i++ {
		f.seedRawCode(t, otherClient.ID, other.ID, 1, now+3600, now-7200)
	}
	_, err = f.shares.GenerateShareCode(ctx, other.ID, otherClient.ID, service.PermissionView, 24, 1)
	require.NoError(t, err)
}

func TestRevokeAllIdempotent(t *testing.T) {
	f, cleanup := newPGFixture(t)
	defer cleanup()
	ctx := context.Background()

	owner := f.seedUser(t, "Owner")
	client := f.seedClient(t, owner.ID, "Revoke Client")
	first, err := f.shares.GenerateShareCode(ctx, owner.ID, client.ID, service.PermissionView, 24, 3)
	require.NoError(t, err)
	_, err = f.shares.GenerateShareCode(ctx, owner.ID, client.ID, service.PermissionView, 24, 3)
	require.NoError(t, err)

	revoked, err := f.shares.RevokeAllShareCodes(ctx, owner.ID, client.ID)
	require.NoError(t, err)
	require.EqualValues(t, 2, revoked)

	revoked, err = f.shares.RevokeAllShareCodes(ctx, owner.ID, client.ID)
	require.NoError(t, err)
	require.EqualValues(t, 0, revoked)

	redeemer := f.seedUser(t, "Redeemer")
	_, err = f.shares.RedeemShareCode(ctx, redeemer.ID, first.Code)
	require.ErrorIs(t, err, appErr.ErrShareCodeInvalid)
}

func TestSharingEndToEnd(t *testing.T) {
	f, cleanup := newPGFixture(t)
	defer cleanup()
	ctx := context.Background()

	owner := f.seedUser(t, "Owner")
	client := f.seedClient(t, owner.ID, "E2E Client")
	generated, err := f.shares.GenerateShareCode(ctx, owner.ID, client.ID, service.PermissionEdit, 24, 1)
	require.NoError(t, err)

	userA := f.seedUser(t, "User A")
	redeemed, err := f.shares.RedeemShareCode(ctx, userA.ID, generated.FormattedCode)
	require.NoError(t, err)
	require.Equal(t, client.ID, redeemed.ClientID)
	require.Equal(t, "E2E Client", redeemed.ClientName)
	require.Equal(t, service.PermissionEdit, redeemed.Permission)

	userB := f.seedUser(t, "User B")
	_, err = f.shares.RedeemShareCode(ctx, userB.ID, generated.Code)
	require.True(t, errors.Is(err, appErr.ErrShareCodeInvalid) || errors.Is(err, appErr.ErrShareCodeExhausted))

	stats, err := f.shares.GetClientSharingStats(ctx, owner.ID, client.ID)
	require.NoError(t, err)
	require.Equal(t, 1, stats.GrantedCount)
	require.Equal(t, 0, stats.ActiveCodesCount)
	require.Len(t, stats.Grants, 1)
	require.Equal(t, userA.ID, stats.Grants[0].UserID)
	require.Equal(t, "User A", stats.Grants[0].DisplayName)

	shared, err := f.shares.ListSharedWithMe(ctx, userA.ID)
	require.NoError(t, err)
	require.Len(t, shared, 1)
	require.Equal(t, client.ID, shared[0].ClientID)

	require.NoError(t, f.shares.RemoveSharedAccess(ctx, owner.ID, client.ID, userA.ID))
	require.ErrorIs(t, f.shares.RemoveSharedAccess(ctx, owner.ID, client.ID, userA.ID), appErr.ErrNotFound)

	shared, err = f.shares.ListSharedWithMe(ctx, userA.ID)
	require.NoError(t, err)
	require.Len(t, shared, 0)
}

func TestStatsAndRevokeRequireOwnership(t *testing.T) {
	f, cleanup := newPGFixture(t)
	defer cleanup()
	ctx := context.Background()

	owner := f.seedUser(t, "Owner")
	intruder := f.seedUser(t, "Intruder")
	client := f.seedClient(t, owner.ID, "Private Client")

	_, err := f.shares.GetClientSharingStats(ctx, intruder.ID, client.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = f.shares.RevokeAllShareCodes(ctx, intruder.ID, client.ID)
	require.ErrorIs(t, err, appErr.ErrNotFound)

	_, err = f.shares.GenerateShareCode(ctx, intruder.ID, client.ID, service.PermissionView, 24, 1)
	require.ErrorIs(t, err, appErr.ErrNotFound)
}
