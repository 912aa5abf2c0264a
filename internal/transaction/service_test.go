package transaction_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction/memstore"
)

const userID = "5b0c1f3e-7d25-4c8e-9a53-1f2d3c4b5a69"

func fixedClock() time.Time {
	return time.Date(2024, 3, 9, 17, 45, 0, 0, time.UTC)
}

func TestService_Create(t *testing.T) {
	type args struct {
		userID string
		params transaction.CreateParams
	}

	type testCase struct {
		name      string
		args      args
		setupMock func(m *transaction.MockRepository)
		wantErr   func(t *testing.T, err error)
		wantDate  time.Time
	}

	validParams := transaction.CreateParams{
		Title:    "Groceries run",
		Amount:   decimal.RequireFromString("42.50"),
		Type:     transaction.TypeExpense,
		Category: transaction.CategoryGroceries,
		Date:     time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC),
	}

	tests := []testCase{
		{
			name: "Success",
			args: args{userID: userID, params: validParams},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					DoAndReturn(func(_ context.Context, tx *transaction.Transaction) error {
						assert.Equal(t, userID, tx.UserID)
						tx.ID = uuid.New()
						tx.CreatedAt = time.Now()

						return nil
					})
			},
			wantDate: validParams.Date,
		},
		{
			name: "DefaultsDateToToday",
			args: args{userID: userID, params: transaction.CreateParams{
				Title:    "Salary",
				Amount:   decimal.NewFromInt(5000),
				Type:     transaction.TypeIncome,
				Category: transaction.CategorySalary,
			}},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().CreateTransaction(gomock.Any(), gomock.Any()).Return(nil)
			},
			wantDate: time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC),
		},
		{
			name: "NoIdentity",
			args: args{params: validParams},
			wantErr: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, transaction.ErrAuthRequired)
			},
		},
		{
			name: "EmptyTitle",
			args: args{userID: userID, params: transaction.CreateParams{
				Title:    "   ",
				Amount:   decimal.NewFromInt(1),
				Type:     transaction.TypeExpense,
				Category: transaction.CategoryRent,
			}},
			wantErr: func(t *testing.T, err error) {
				var ve *transaction.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "title", ve.Field)
			},
		},
		{
			name: "NegativeAmount",
			args: args{userID: userID, params: transaction.CreateParams{
				Title:    "Refund",
				Amount:   decimal.NewFromInt(-5),
				Type:     transaction.TypeExpense,
				Category: transaction.CategoryRent,
			}},
			wantErr: func(t *testing.T, err error) {
				var ve *transaction.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "amount", ve.Field)
			},
		},
		{
			name: "SubCentAmount",
			args: args{userID: userID, params: transaction.CreateParams{
				Title:    "Interest",
				Amount:   decimal.RequireFromString("0.005"),
				Type:     transaction.TypeIncome,
				Category: transaction.CategorySalary,
			}},
			wantErr: func(t *testing.T, err error) {
				var ve *transaction.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "amount", ve.Field)
			},
		},
		{
			name: "AmountOutOfRange",
			args: args{userID: userID, params: transaction.CreateParams{
				Title:    "Lottery",
				Amount:   decimal.New(1, 12),
				Type:     transaction.TypeIncome,
				Category: transaction.CategorySalary,
			}},
			wantErr: func(t *testing.T, err error) {
				var ve *transaction.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "amount", ve.Field)
			},
		},
		{
			name: "UnknownCategory",
			args: args{userID: userID, params: transaction.CreateParams{
				Title:    "Bus",
				Amount:   decimal.NewFromInt(3),
				Type:     transaction.TypeExpense,
				Category: "Travel",
			}},
			wantErr: func(t *testing.T, err error) {
				var ve *transaction.ValidationError
				require.ErrorAs(t, err, &ve)
				assert.Equal(t, "category", ve.Field)
			},
		},
		{
			name: "RepoError",
			args: args{userID: userID, params: validParams},
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					CreateTransaction(gomock.Any(), gomock.Any()).
					Return(errors.New("db error"))
			},
			wantErr: func(t *testing.T, err error) {
				var se *transaction.StoreError
				require.ErrorAs(t, err, &se)
				assert.Equal(t, "create transaction", se.Op)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo).WithClock(fixedClock)
			got, err := svc.Create(context.Background(), tt.args.userID, tt.args.params)

			if tt.wantErr != nil {
				require.Error(t, err)
				tt.wantErr(t, err)
				assert.Nil(t, got)

				return
			}

			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, tt.wantDate, got.Date)
			assert.Equal(t, tt.args.userID, got.UserID)
		})
	}
}

func TestService_List(t *testing.T) {
	type testCase struct {
		name      string
		setupMock func(m *transaction.MockRepository)
		wantLen   int
		wantErr   bool
	}

	tests := []testCase{
		{
			name: "Success",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					ListTransactions(gomock.Any(), userID).
					Return([]transaction.Transaction{
						{ID: uuid.New()},
						{ID: uuid.New()},
					}, nil)
			},
			wantLen: 2,
		},
		{
			name: "Error",
			setupMock: func(m *transaction.MockRepository) {
				m.EXPECT().
					ListTransactions(gomock.Any(), userID).
					Return(nil, errors.New("list error"))
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := gomock.NewController(t)
			defer ctrl.Finish()

			repo := transaction.NewMockRepository(ctrl)
			if tt.setupMock != nil {
				tt.setupMock(repo)
			}

			svc := transaction.NewService(repo)
			got, err := svc.List(context.Background(), userID)

			if tt.wantErr {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Len(t, got, tt.wantLen)
		})
	}
}

func TestService_Update(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)
	id := uuid.New()

	title := "Rent (March)"
	patch := transaction.Patch{Title: &title}

	repo.EXPECT().UpdateTransaction(gomock.Any(), userID, id, patch).Return(transaction.ErrNotFound)

	err := svc.Update(context.Background(), userID, id, patch)
	assert.ErrorIs(t, err, transaction.ErrNotFound)

	err = svc.Update(context.Background(), userID, id, transaction.Patch{})
	var ve *transaction.ValidationError
	assert.ErrorAs(t, err, &ve)
}

func TestService_Delete(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)
	id := uuid.New()

	repo.EXPECT().DeleteTransaction(gomock.Any(), userID, id).Return(errors.New("connection reset"))

	err := svc.Delete(context.Background(), userID, id)

	var se *transaction.StoreError
	require.ErrorAs(t, err, &se)
	assert.EqualError(t, se.Unwrap(), "connection reset")

	assert.ErrorIs(t, svc.Delete(context.Background(), "", id), transaction.ErrAuthRequired)
}

func TestService_Subscribe(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)

	_, err := svc.Subscribe(context.Background(), "")
	assert.ErrorIs(t, err, transaction.ErrAuthRequired)

	ch := make(chan []transaction.Transaction, 1)
	ch <- []transaction.Transaction{{ID: uuid.New(), UserID: userID}}

	repo.EXPECT().WatchTransactions(gomock.Any(), userID).Return((<-chan []transaction.Transaction)(ch), nil)

	got, err := svc.Subscribe(context.Background(), userID)
	require.NoError(t, err)

	snap := <-got
	assert.Len(t, snap, 1)
}

func TestService_ImportBatch_NoConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)
	svc := transaction.NewService(repo)

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []transaction.CreateParams{
		{
			Title:    "Coffee",
			Amount:   decimal.RequireFromString("3.20"),
			Type:     transaction.TypeExpense,
			Category: transaction.CategoryDining,
			Date:     date,
		},
	}

	repo.EXPECT().BeginImport(gomock.Any(), userID).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), params).Return(nil, nil)
	itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := svc.ImportBatch(context.Background(), userID, params)
	require.NoError(t, err)
	require.Len(t, result.Imported, 1)
	assert.Equal(t, userID, result.Imported[0].UserID)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
}

func TestService_ImportBatch_WithConflicts(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)
	svc := transaction.NewService(repo)

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []transaction.CreateParams{
		{
			Title:    "Coffee",
			Amount:   decimal.RequireFromString("3.20"),
			Type:     transaction.TypeExpense,
			Category: transaction.CategoryDining,
			Date:     date,
		},
		{
			Title:    "Lunch",
			Amount:   decimal.RequireFromString("12"),
			Type:     transaction.TypeExpense,
			Category: transaction.CategoryDining,
			Date:     date,
		},
	}

	existing := transaction.Transaction{
		ID:     uuid.New(),
		UserID: userID,
		Title:  "coffee",
		Amount: decimal.RequireFromString("3.2"),
		Type:   transaction.TypeExpense,
		Date:   date,
	}

	repo.EXPECT().BeginImport(gomock.Any(), userID).Return(itx, nil)
	itx.EXPECT().FindDuplicates(gomock.Any(), params).Return([]transaction.Transaction{existing}, nil)
	itx.EXPECT().Rollback().Return(nil)

	result, err := svc.ImportBatch(context.Background(), userID, params)
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Len(t, result.New, 1)
	require.Len(t, result.Conflicts, 1)
	assert.Equal(t, params[0], result.Conflicts[0].Incoming)
	assert.Equal(t, existing, result.Conflicts[0].Existing)
}

func TestService_ImportBatch_Empty(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	svc := transaction.NewService(repo)

	result, err := svc.ImportBatch(context.Background(), userID, []transaction.CreateParams{})
	require.NoError(t, err)
	assert.Empty(t, result.Imported)
	assert.Empty(t, result.Conflicts)
	assert.Empty(t, result.New)
}

func TestService_CreateBatch(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := transaction.NewMockRepository(ctrl)
	itx := transaction.NewMockImportTx(ctrl)
	svc := transaction.NewService(repo)

	date := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	params := []transaction.CreateParams{
		{
			Title:    "Coffee",
			Amount:   decimal.NewFromInt(10),
			Type:     transaction.TypeExpense,
			Category: transaction.CategoryDining,
			Date:     date,
		},
	}

	repo.EXPECT().BeginImport(gomock.Any(), userID).Return(itx, nil)
	itx.EXPECT().CreateTransactions(gomock.Any(), gomock.Any()).Return(nil)
	itx.EXPECT().Commit().Return(nil)
	itx.EXPECT().Rollback().Return(nil)

	txs, err := svc.CreateBatch(context.Background(), userID, params)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.True(t, decimal.NewFromInt(10).Equal(txs[0].Amount))
	assert.Equal(t, transaction.TypeExpense, txs[0].Type)
}

func TestService_StoresCanonicalCategory(t *testing.T) {
	ctx := context.Background()
	store := memstore.New()
	svc := transaction.NewService(store).WithClock(fixedClock)

	created, err := svc.Create(ctx, userID, transaction.CreateParams{
		Title:    "Pay",
		Amount:   decimal.NewFromInt(5000),
		Type:     transaction.TypeIncome,
		Category: "  salary ",
	})
	require.NoError(t, err)
	assert.Equal(t, transaction.CategorySalary, created.Category)

	batch, err := svc.CreateBatch(ctx, userID, []transaction.CreateParams{{
		Title:    "Lunch",
		Amount:   decimal.NewFromInt(12),
		Type:     transaction.TypeExpense,
		Category: "DINING",
	}})
	require.NoError(t, err)
	assert.Equal(t, transaction.CategoryDining, batch[0].Category)

	rent := transaction.Category("rent")
	require.NoError(t, svc.Update(ctx, userID, batch[0].ID, transaction.Patch{Category: &rent}))

	txs, err := svc.List(ctx, userID)
	require.NoError(t, err)

	filters := transaction.DefaultFilters()
	filters.Category = transaction.CategorySalary
	salary := transaction.View(txs, filters, transaction.SortNewest)
	require.Len(t, salary, 1)
	assert.Equal(t, "💰", salary[0].Category.Icon())

	filters.Category = transaction.CategoryRent
	assert.Len(t, transaction.View(txs, filters, transaction.SortNewest), 1)

	assert.Equal(t, 1, transaction.Summarize(txs).UniqueIncomeCategories)
}
