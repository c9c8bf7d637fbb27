package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"pharmacy_pos_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecrementStock_Success(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInventoryRepository(db)

	mock.ExpectQuery("UPDATE inventory_items SET stock = stock - \\$1").
		WithArgs(3, sqlmock.AnyArg(), int64(7), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(2))

	newStock, err := repo.DecrementStock(context.Background(), db, 42, 7, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, newStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStock_InsufficientStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInventoryRepository(db)

	mock.ExpectQuery("UPDATE inventory_items SET stock = stock - \\$1").
		WithArgs(5, sqlmock.AnyArg(), int64(7), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}))
	mock.ExpectQuery("SELECT EXISTS").
		WithArgs(int64(7), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	_, err = repo.DecrementStock(context.Background(), db, 42, 7, 5)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStock_ItemMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInventoryRepository(db)

	mock.ExpectQuery("UPDATE inventory_items SET stock = stock - \\$1").
		WillReturnRows(sqlmock.NewRows([]string{"stock"}))
	mock.ExpectQuery("SELECT EXISTS").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

	_, err = repo.DecrementStock(context.Background(), db, 42, 99, 1)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecrementStock_DriverError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInventoryRepository(db)

	mock.ExpectQuery("UPDATE inventory_items").WillReturnError(errors.New("connection reset"))

	_, err = repo.DecrementStock(context.Background(), db, 42, 7, 1)
	assert.ErrorIs(t, err, ErrDatabaseError)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetItemsByIDs_ReturnsMapKeyedByID(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInventoryRepository(db)
	now := time.Now()
	expiry := now.AddDate(1, 0, 0)

	rows := sqlmock.NewRows([]string{
		"id", "owner_id", "name", "batch", "expiry", "price", "stock", "agency", "created_at", "updated_at",
	}).
		AddRow(1, 42, "Paracetamol 500mg", "B-001", expiry, "10.00", 20, nil, now, now).
		AddRow(2, 42, "Amoxicillin 250mg", "B-002", expiry, "45.50", 5, "MedCo", now, now)
	mock.ExpectQuery("SELECT (.+) FROM inventory_items WHERE owner_id = \\$1 AND id = ANY").
		WithArgs(int64(42), sqlmock.AnyArg()).
		WillReturnRows(rows)

	items, err := repo.GetItemsByIDs(context.Background(), 42, []int64{1, 2, 3})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.True(t, items[2].Price.Equal(decimal.RequireFromString("45.50")))
	require.NotNil(t, items[2].Agency)
	assert.Equal(t, "MedCo", *items[2].Agency)
	assert.Nil(t, items[1].Agency)
	_, found := items[3]
	assert.False(t, found)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetItems_SearchAndPagination(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInventoryRepository(db)
	search := " para "

	mock.ExpectQuery("SELECT (.+) FROM inventory_items WHERE owner_id = \\$1 AND \\(name ILIKE \\$2").
		WithArgs(int64(42), "%para%", 10, 10).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "name", "batch", "expiry", "price", "stock", "agency", "created_at", "updated_at", "total_count",
		}).AddRow(11, 42, "Paracetamol", "B-9", time.Now(), "2.00", 1, nil, time.Now(), time.Now(), 11))

	items, total, err := repo.GetItems(context.Background(), 42, models.InventoryFilters{Search: &search, Page: 2, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, 11, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItem_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInventoryRepository(db)

	mock.ExpectQuery("UPDATE inventory_items").WillReturnRows(sqlmock.NewRows([]string{"stock"}))

	err = repo.UpdateItem(context.Background(), db, &models.InventoryItem{ID: 5, OwnerID: 42, Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateItem_LeavesStockToTheDatabase(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInventoryRepository(db)

	mock.ExpectQuery(`UPDATE inventory_items SET name = \$1, batch = \$2, expiry = \$3, price = \$4, agency = \$5, updated_at = \$6 WHERE id = \$7 AND owner_id = \$8 RETURNING stock`).
		WithArgs("Cetirizine 10mg", "C-7", sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), int64(5), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(6))

	item := &models.InventoryItem{ID: 5, OwnerID: 42, Name: "Cetirizine 10mg", Batch: "C-7", Price: decimal.NewFromInt(3), Stock: 10}
	require.NoError(t, repo.UpdateItem(context.Background(), db, item))
	assert.Equal(t, 6, item.Stock)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLockItem(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInventoryRepository(db)
	now := time.Now()

	mock.ExpectQuery(`SELECT (.+) FROM inventory_items WHERE id = \$1 AND owner_id = \$2 FOR UPDATE`).
		WithArgs(int64(5), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "owner_id", "name", "batch", "expiry", "price", "stock", "agency", "created_at", "updated_at",
		}).AddRow(5, 42, "Cetirizine", "C-7", now.AddDate(1, 0, 0), "3.00", 10, nil, now, now))
	mock.ExpectQuery(`FOR UPDATE`).
		WithArgs(int64(6), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	item, err := repo.LockItem(context.Background(), db, 42, 5)
	require.NoError(t, err)
	assert.Equal(t, 10, item.Stock)

	_, err = repo.LockItem(context.Background(), db, 42, 6)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAdjustStock(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewInventoryRepository(db)

	mock.ExpectQuery(`SET stock = stock \+ \$1(.+)AND stock \+ \$1 >= 0`).
		WithArgs(-3, sqlmock.AnyArg(), int64(5), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}).AddRow(7))
	mock.ExpectQuery(`SET stock = stock \+ \$1`).
		WithArgs(-20, sqlmock.AnyArg(), int64(5), int64(42)).
		WillReturnRows(sqlmock.NewRows([]string{"stock"}))

	stock, err := repo.AdjustStock(context.Background(), db, 42, 5, -3)
	require.NoError(t, err)
	assert.Equal(t, 7, stock)

	_, err = repo.AdjustStock(context.Background(), db, 42, 5, -20)
	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NoError(t, mock.ExpectationsWereMet())
}
