package matching_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrJamesThe3rd/pocketbook/internal/matching"
	"github.com/MrJamesThe3rd/pocketbook/internal/transaction"
)

type repoFunc func(ctx context.Context, userID, title string) (transaction.Category, error)

func (f repoFunc) FindCategory(ctx context.Context, userID, title string) (transaction.Category, error) {
	return f(ctx, userID, title)
}

func TestService_Suggest(t *testing.T) {
	repo := repoFunc(func(_ context.Context, userID, title string) (transaction.Category, error) {
		switch title {
		case "Rent March":
			return transaction.CategoryRent, nil
		case "broken":
			return "", errors.New("connection reset")
		}

		return "", nil
	})

	svc := matching.NewService(repo)
	ctx := context.Background()

	type testCase struct {
		name    string
		userID  string
		title   string
		want    transaction.Category
		wantOK  bool
		wantErr error
	}

	tests := []testCase{
		{name: "Match", userID: "alice", title: "  Rent March ", want: transaction.CategoryRent, wantOK: true},
		{name: "NoMatch", userID: "alice", title: "Cinema"},
		{name: "Blank", userID: "alice", title: "   "},
		{name: "NoIdentity", title: "Rent March", wantErr: transaction.ErrAuthRequired},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok, err := svc.Suggest(ctx, tt.userID, tt.title)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	_, _, err := svc.Suggest(ctx, "alice", "broken")
	assert.ErrorContains(t, err, "suggesting category")

	assert.Equal(t, transaction.CategoryRent, svc.SuggestOrDefault(ctx, "alice", "Rent March"))
	assert.Equal(t, transaction.CategoryOther, svc.SuggestOrDefault(ctx, "alice", "Cinema"))
	assert.Equal(t, transaction.CategoryOther, svc.SuggestOrDefault(ctx, "alice", "broken"))
}
