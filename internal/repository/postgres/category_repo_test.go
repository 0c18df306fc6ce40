package postgres

import (
	"context"
	"testing"
	"time"

	"eventhub/internal/domain"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"
)

func TestCategoryRepository_Create(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		mock   func(mock sqlmock.Sqlmock)
		wantID string
		errIs  error
	}{
		{
			name: "success",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO event_categories`).
					WithArgs("Tech Talks", "tech-talks", sqlmock.AnyArg(), now, now).
					WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("cat-1"))
			},
			wantID: "cat-1",
		},
		{
			name: "duplicate name",
			mock: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(`INSERT INTO event_categories`).
					WillReturnError(&pq.Error{Code: "23505"})
			},
			errIs: domain.ErrDuplicateName,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer db.Close()

			tt.mock(mock)
			c := &domain.EventCategory{Name: "Tech Talks", Slug: "tech-talks", CreatedAt: now, UpdatedAt: now}
			err = NewCategoryRepository(db).Create(ctx, c)
			if tt.errIs != nil {
				require.ErrorIs(t, err, tt.errIs)
			} else {
				require.NoError(t, err)
				require.Equal(t, tt.wantID, c.ID)
			}
			require.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCategoryRepository_Delete_NotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`DELETE FROM event_categories WHERE id = \$1`).
		WithArgs("missing").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err = NewCategoryRepository(db).Delete(context.Background(), "missing")
	require.ErrorIs(t, err, domain.ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}
