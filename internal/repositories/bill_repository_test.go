package repositories

import (
	"context"
	"testing"
	"time"

	"pharmacy_pos_backend/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var billRowColumns = []string{
	"id", "owner_id", "bill_number", "customer_id", "customer_name", "subtotal", "tax_percent", "tax_amount",
	"discount", "grand_total", "payment_method", "bill_date", "status",
}

func TestGetBills_FiltersAndOrder(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBillRepository(db)
	customerID := int64(3)
	from := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	cols := append(append([]string{}, billRowColumns...), "total_count")
	mock.ExpectQuery("FROM bills WHERE owner_id = \\$1 AND customer_id = \\$2 AND bill_date >= \\$3 ORDER BY bill_date DESC, id DESC LIMIT \\$4 OFFSET \\$5").
		WithArgs(int64(42), customerID, from, 20, 0).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(2, 42, "INV-20250102-AB12CD34", 3, "Asha", "20.00", "10", "2.00", "5.00", "17.00", "cash", from.AddDate(0, 0, 1), "paid", 2).
			AddRow(1, 42, "INV-20250101-0F0F0F0F", 3, "Asha", "5.00", "0", "0.00", "0.00", "5.00", "upi", from, "paid", 2))

	bills, total, err := repo.GetBills(context.Background(), 42, models.BillFilters{
		CustomerID: &customerID, DateFrom: &from, Page: 1, PageSize: 20,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	require.Len(t, bills, 2)
	assert.Equal(t, "INV-20250102-AB12CD34", bills[0].BillID)
	assert.Equal(t, "17", bills[0].GrandTotal.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBillItems_OrderedByPosition(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBillRepository(db)
	mock.ExpectQuery("FROM bill_items WHERE bill_id = \\$1 ORDER BY position ASC").
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bill_id", "position", "inventory_item_id", "name", "quantity", "price"}).
			AddRow(10, 5, 0, 1, "Paracetamol", 2, "10.00").
			AddRow(11, 5, 1, 4, "ORS", 1, "25.00"))

	items, err := repo.GetBillItems(context.Background(), nil, 5)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "Paracetamol", items[0].Name)
	assert.Equal(t, "20", items[0].LineTotal().String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetBillByID_ScopedToOwner(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	repo := NewBillRepository(db)
	mock.ExpectQuery("FROM bills WHERE id = \\$1 AND owner_id = \\$2").
		WithArgs(int64(5), int64(77)).
		WillReturnRows(sqlmock.NewRows(billRowColumns))

	_, err = repo.GetBillByID(context.Background(), nil, 77, 5)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
