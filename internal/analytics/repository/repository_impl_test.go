package repository

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/analytics/internal/analytics/domain"
	"github.com/smallbiznis/analytics/pkg/db"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	conn, err := db.NewTest()
	require.NoError(t, err)
	require.NoError(t, Migrate(conn))
	return conn
}

func tagRow(scope domain.AccountScope, recordID int64, name string) domain.BusinessTag {
	return domain.BusinessTag{
		FactBase: domain.FactBase{
			AccountRecordID: scope.AccountRecordID,
			TenantRecordID:  scope.TenantRecordID,
			AccountID:       "acct",
			ReportGroup:     domain.ReportGroupDefault,
			CreatedDate:     time.Date(2013, 1, 1, 0, 0, 0, 0, time.UTC),
		},
		TagRecordID: recordID,
		ObjectID:    "acct",
		ObjectType:  domain.ObjectTypeAccount,
		Name:        name,
	}
}

func TestCreateListDeleteByScope(t *testing.T) {
	conn := newTestDB(t)
	repo := Provide()
	ctx := context.Background()
	scope := domain.AccountScope{AccountRecordID: 1, TenantRecordID: 10}
	other := domain.AccountScope{AccountRecordID: 2, TenantRecordID: 10}

	require.NoError(t, repo.Create(ctx, conn, domain.TableAccountTags, []domain.BusinessTag{
		tagRow(scope, 2, "B"),
		tagRow(scope, 1, "A"),
		tagRow(other, 3, "C"),
	}))

	var rows []domain.BusinessTag
	require.NoError(t, repo.ListByAccountScope(ctx, conn, domain.TableAccountTags, scope, &rows))
	require.Len(t, rows, 2)
	assert.Equal(t, "A", rows[0].Name)
	assert.Equal(t, "B", rows[1].Name)

	deleted, err := repo.DeleteByAccountScope(ctx, conn, domain.TableAccountTags, scope)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	rows = nil
	require.NoError(t, repo.ListByAccountScope(ctx, conn, domain.TableAccountTags, other, &rows))
	assert.Len(t, rows, 1)
}

func TestCreateEmptyIsNoop(t *testing.T) {
	conn := newTestDB(t)
	assert.NoError(t, Provide().Create(context.Background(), conn, domain.TableBundles, []domain.BusinessBundleSummary{}))
}

func TestUnknownTableRejected(t *testing.T) {
	conn := newTestDB(t)
	repo := Provide()

	err := repo.Create(context.Background(), conn, domain.FactTable("users; DROP TABLE x"), []domain.BusinessTag{{}})
	assert.ErrorIs(t, err, domain.ErrUnknownFactTable)

	_, err = repo.DeleteByAccountScope(context.Background(), conn, domain.FactTable("nope"), domain.AccountScope{})
	assert.ErrorIs(t, err, domain.ErrUnknownFactTable)
}

func TestDecimalRoundTrip(t *testing.T) {
	conn := newTestDB(t)
	repo := Provide()
	ctx := context.Background()
	scope := domain.AccountScope{AccountRecordID: 5, TenantRecordID: domain.NoTenantRecordID}

	row := domain.BusinessAccount{
		FactBase: domain.FactBase{AccountRecordID: 5, TenantRecordID: domain.NoTenantRecordID, AccountID: "a", ReportGroup: domain.ReportGroupDefault},
		Balance:  decimal.RequireFromString("70.25"),
	}
	require.NoError(t, repo.Create(ctx, conn, domain.TableAccounts, []domain.BusinessAccount{row}))

	var rows []domain.BusinessAccount
	require.NoError(t, repo.ListByAccountScope(ctx, conn, domain.TableAccounts, scope, &rows))
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Balance.Equal(decimal.RequireFromString("70.25")), "balance %s", rows[0].Balance)
}
