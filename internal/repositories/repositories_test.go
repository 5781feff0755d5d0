package repositories

import (
	"context"
	stderrors "errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/tropicaldog17/networth/internal/errors"
	"github.com/tropicaldog17/networth/internal/models"
	"github.com/tropicaldog17/networth/internal/testutil"
)

func TestAccountRepository_CRUD(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewSQLiteDB(t)
	repo := NewAccountRepository(database)

	a := &models.Account{Name: "Everyday", Type: models.AccountTypeAsset, Category: models.CategoryCash, IsActive: true}
	require.NoError(t, repo.Create(ctx, a))
	require.NotZero(t, a.ID)

	got, err := repo.GetByName(ctx, "everyday")
	require.NoError(t, err)
	assert.Equal(t, a.ID, got.ID)

	got.IsActive = false
	require.NoError(t, repo.Update(ctx, got))

	active, err := repo.List(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := repo.List(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	require.NoError(t, repo.Delete(ctx, a.ID))
	_, err = repo.GetByID(ctx, a.ID)
	var nf *apperrors.ErrNotFound
	assert.True(t, stderrors.As(err, &nf))
}

func TestTradeRepository_ReplayOrder(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewSQLiteDB(t)
	acct := testutil.CreateAccount(t, database, "Broker", models.AccountTypeAsset, models.CategoryInvestment)
	repo := NewTradeRepository(database)

	later := testutil.Trade(acct.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 3, 1), "1", "100")
	first := testutil.Trade(acct.ID, "VAS", models.TradeTypeBuy, testutil.Day(2024, 1, 1), "1", "100")
	sameDay := testutil.Trade(acct.ID, "VAS", models.TradeTypeSell, testutil.Day(2024, 3, 1), "1", "110")
	other := testutil.Trade(acct.ID, "VGS", models.TradeTypeBuy, testutil.Day(2024, 2, 1), "1", "90")
	for _, tr := range []*models.Trade{&later, &first, &sameDay, &other} {
		require.NoError(t, repo.Create(ctx, tr))
	}

	vas, err := repo.ListByAccount(ctx, acct.ID, "VAS")
	require.NoError(t, err)
	require.Len(t, vas, 3)
	assert.Equal(t, []uint{first.ID, later.ID, sameDay.ID}, []uint{vas[0].ID, vas[1].ID, vas[2].ID})
	assert.True(t, vas[2].Price.Equal(testutil.Dec("110")))

	all, err := repo.ListByAccounts(ctx, []uint{acct.ID})
	require.NoError(t, err)
	assert.Len(t, all, 4)

	tickers, err := repo.DistinctTickers(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"VAS", "VGS"}, tickers)

	ids, err := repo.AccountIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{acct.ID}, ids)

	n, err := repo.CountByAccount(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	require.NoError(t, repo.Delete(ctx, other.ID))
	err = repo.Delete(ctx, other.ID)
	var nf *apperrors.ErrNotFound
	assert.True(t, stderrors.As(err, &nf))
}

func TestLedgerVersionRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewLedgerVersionRepository(testutil.NewSQLiteDB(t))
	key := models.PairKey{AccountID: 1, Ticker: "VAS"}

	v, err := repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Zero(t, v.Version)

	n, err := repo.Bump(ctx, key, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	n, err = repo.Bump(ctx, key, 11)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	dirty, err := repo.ListDirty(ctx)
	require.NoError(t, err)
	require.Len(t, dirty, 1)
	assert.Equal(t, uint(11), dirty[0].LastTradeID)

	require.NoError(t, repo.ClearDirty(ctx, 1))
	dirty, err = repo.ListDirty(ctx)
	require.NoError(t, err)
	assert.Empty(t, dirty)

	v, err = repo.Get(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(2), v.Version, "clearing dirty keeps the version")
}

func TestBalanceRepository_UpsertAndReplaceComputed(t *testing.T) {
	ctx := context.Background()
	database := testutil.NewSQLiteDB(t)
	acct := testutil.CreateAccount(t, database, "Broker", models.AccountTypeAsset, models.CategoryInvestment)
	repo := NewBalanceRepository(database)

	manual := &models.BalanceSnapshot{AccountID: acct.ID, Date: testutil.Day(2024, 1, 31), Balance: testutil.Dec("500"), Source: models.SnapshotSourceManual}
	require.NoError(t, repo.Upsert(ctx, manual))
	manual2 := &models.BalanceSnapshot{AccountID: acct.ID, Date: testutil.Day(2024, 1, 31), Balance: testutil.Dec("550"), Source: models.SnapshotSourceManual}
	require.NoError(t, repo.Upsert(ctx, manual2))

	snaps, err := repo.ListByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.True(t, snaps[0].Balance.Equal(testutil.Dec("550")))

	computed := []models.BalanceSnapshot{
		{Date: testutil.Day(2024, 1, 31), Balance: testutil.Dec("1")},
		{Date: testutil.Day(2024, 2, 29), Balance: testutil.Dec("2")},
		{Date: testutil.Day(2024, 3, 10), Balance: testutil.Dec("3")},
	}
	written, err := repo.ReplaceComputed(ctx, acct.ID, computed)
	require.NoError(t, err)
	assert.Equal(t, 2, written, "manual entry keeps its date")

	written, err = repo.ReplaceComputed(ctx, acct.ID, computed[:2])
	require.NoError(t, err)
	assert.Equal(t, 1, written)

	snaps, err = repo.ListByAccount(ctx, acct.ID)
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, models.SnapshotSourceManual, snaps[0].Source)
	assert.Equal(t, models.SnapshotSourceComputed, snaps[1].Source)
	assert.Equal(t, testutil.Day(2024, 2, 29), snaps[1].Date.UTC())

	onDate, err := repo.AccountIDsOn(ctx, testutil.Day(2024, 2, 29))
	require.NoError(t, err)
	assert.Equal(t, []uint{acct.ID}, onDate)
	onDate, err = repo.AccountIDsOn(ctx, testutil.Day(2024, 3, 10))
	require.NoError(t, err)
	assert.Empty(t, onDate)

	deleted, err := repo.DeleteByAccountDate(ctx, acct.ID, testutil.Day(2024, 1, 31))
	require.NoError(t, err)
	assert.True(t, deleted)
	deleted, err = repo.DeleteByAccountDate(ctx, acct.ID, testutil.Day(2024, 1, 31))
	require.NoError(t, err)
	assert.False(t, deleted)
}

func TestNetWorthRepository_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	repo := NewNetWorthRepository(testutil.NewSQLiteDB(t))

	pts := []models.NetWorthPoint{
		{Date: testutil.Day(2024, 1, 31), TotalAssets: testutil.Dec("10"), TotalLiabilities: testutil.Dec("0"), NetWorth: testutil.Dec("10"), InvestmentsValue: testutil.Dec("0")},
		{Date: testutil.Day(2024, 2, 29), TotalAssets: testutil.Dec("20"), TotalLiabilities: testutil.Dec("5"), NetWorth: testutil.Dec("15"), InvestmentsValue: testutil.Dec("0")},
	}
	require.NoError(t, repo.ReplaceAll(ctx, pts))
	require.NoError(t, repo.ReplaceAll(ctx, pts[1:]))

	got, err := repo.List(ctx, models.Period{})
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.True(t, got[0].NetWorth.Equal(testutil.Dec("15")))

	got, err = repo.List(ctx, models.Period{EndDate: testutil.Day(2024, 2, 1)})
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestPriceRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewPriceRepository(testutil.NewSQLiteDB(t))

	mk := func(ticker string, day int, price string) *models.AssetPrice {
		d := testutil.Day(2024, 1, day)
		return &models.AssetPrice{Ticker: ticker, Date: d, AsOf: d, Price: testutil.Dec(price), Currency: "AUD", FXRate: testutil.Dec("1"), Source: "test"}
	}
	require.NoError(t, repo.Upsert(ctx, mk("VAS", 1, "100")))
	require.NoError(t, repo.Upsert(ctx, mk("VAS", 2, "101")))
	require.NoError(t, repo.Upsert(ctx, mk("VAS", 2, "102")))
	require.NoError(t, repo.Upsert(ctx, mk("VGS", 1, "50")))

	latest, err := repo.Latest(ctx, "VAS")
	require.NoError(t, err)
	assert.True(t, latest.Price.Equal(testutil.Dec("102")))

	byTicker, err := repo.LatestForTickers(ctx, []string{"VAS", "VGS", "NONE"})
	require.NoError(t, err)
	assert.Len(t, byTicker, 2)
	assert.True(t, byTicker["VAS"].Price.Equal(testutil.Dec("102")))
	assert.Equal(t, testutil.Day(2024, 1, 2), byTicker["VAS"].Date.UTC())
	assert.True(t, byTicker["VGS"].Price.Equal(testutil.Dec("50")))

	hist, err := repo.ListForTickers(ctx, []string{"VAS"}, testutil.Day(2024, 1, 1))
	require.NoError(t, err)
	require.Len(t, hist, 1)

	_, err = repo.Latest(ctx, "NONE")
	var nf *apperrors.ErrNotFound
	assert.True(t, stderrors.As(err, &nf))

	assert.Error(t, repo.Upsert(ctx, &models.AssetPrice{Ticker: "BAD"}))
}
