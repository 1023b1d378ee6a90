package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/darshil44/AI-Powered-Content-Explorer/internal/domain"
	apperrors "github.com/darshil44/AI-Powered-Content-Explorer/pkg/errors"
)

func newHistoryTestFixture(t *testing.T) (*HistoryRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	repo := NewHistoryRepository(mock)
	return repo, mock
}

func TestHistoryRepository_CreateSearch(t *testing.T) {
	repo, mock := newHistoryTestFixture(t)
	defer mock.Close()

	rec := &domain.SearchRecord{
		ID:        "s-1",
		UserID:    "u-1",
		Query:     "golang caching",
		Response:  json.RawMessage(`{"results":[]}`),
		Endpoint:  "https://tools.test/mcp",
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO search_history").
		WithArgs(rec.ID, rec.UserID, rec.Query, rec.Response, rec.Endpoint, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.CreateSearch(context.Background(), rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_CreateImage(t *testing.T) {
	repo, mock := newHistoryTestFixture(t)
	defer mock.Close()

	rec := &domain.ImageRecord{
		ID:        "i-1",
		UserID:    "u-1",
		Prompt:    "a cat in space",
		ImageURL:  "https://img.example.com/cat.png",
		Response:  json.RawMessage(`{"url":"https://img.example.com/cat.png"}`),
		Endpoint:  "https://tools.test/mcp",
		CreatedAt: time.Now().UTC(),
	}

	mock.ExpectExec("INSERT INTO image_history").
		WithArgs(rec.ID, rec.UserID, rec.Prompt, rec.ImageURL, rec.Response, rec.Endpoint, rec.CreatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.CreateImage(context.Background(), rec)
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_List_MergesNewestFirst(t *testing.T) {
	repo, mock := newHistoryTestFixture(t)
	defer mock.Close()

	now := time.Now().UTC()

	searchRows := pgxmock.NewRows([]string{"id", "query", "response", "created_at"}).
		AddRow("s-1", "golang", json.RawMessage(`{}`), now.Add(-2*time.Minute))
	mock.ExpectQuery("FROM search_history").
		WithArgs("u-1").
		WillReturnRows(searchRows)

	imageRows := pgxmock.NewRows([]string{"id", "prompt", "image_url", "response", "created_at"}).
		AddRow("i-1", "a cat", "https://img.example.com/c.png", json.RawMessage(`{}`), now.Add(-time.Minute))
	mock.ExpectQuery("FROM image_history").
		WithArgs("u-1").
		WillReturnRows(imageRows)

	items, err := repo.List(context.Background(), "u-1", domain.HistoryFilter{})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, "i-1", items[0].ID)
	assert.Equal(t, domain.ToolImage, items[0].Kind)
	assert.Equal(t, "s-1", items[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_List_KindFilterSkipsOtherTable(t *testing.T) {
	repo, mock := newHistoryTestFixture(t)
	defer mock.Close()

	searchRows := pgxmock.NewRows([]string{"id", "query", "response", "created_at"}).
		AddRow("s-1", "golang", json.RawMessage(`{}`), time.Now().UTC())
	mock.ExpectQuery("FROM search_history").
		WithArgs("u-1").
		WillReturnRows(searchRows)

	items, err := repo.List(context.Background(), "u-1", domain.HistoryFilter{Kind: domain.ToolSearch})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, domain.ToolSearch, items[0].Kind)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_List_KeywordAndDateArgs(t *testing.T) {
	repo, mock := newHistoryTestFixture(t)
	defer mock.Close()

	from := time.Now().UTC().Add(-24 * time.Hour)

	searchRows := pgxmock.NewRows([]string{"id", "query", "response", "created_at"})
	mock.ExpectQuery("FROM search_history").
		WithArgs("u-1", "%cach%", from).
		WillReturnRows(searchRows)

	items, err := repo.List(context.Background(), "u-1", domain.HistoryFilter{
		Kind:    domain.ToolSearch,
		Keyword: "cach",
		From:    &from,
	})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_List_Empty(t *testing.T) {
	repo, mock := newHistoryTestFixture(t)
	defer mock.Close()

	mock.ExpectQuery("FROM search_history").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "query", "response", "created_at"}))
	mock.ExpectQuery("FROM image_history").
		WithArgs("u-1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "prompt", "image_url", "response", "created_at"}))

	items, err := repo.List(context.Background(), "u-1", domain.HistoryFilter{})
	require.NoError(t, err)
	assert.NotNil(t, items)
	assert.Empty(t, items)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_DeleteSearch_Success(t *testing.T) {
	repo, mock := newHistoryTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM search_history").
		WithArgs("s-1", "u-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 1))

	err := repo.DeleteSearch(context.Background(), "u-1", "s-1")
	assert.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository_DeleteImage_NotOwned(t *testing.T) {
	repo, mock := newHistoryTestFixture(t)
	defer mock.Close()

	mock.ExpectExec("DELETE FROM image_history").
		WithArgs("i-1", "u-2").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	err := repo.DeleteImage(context.Background(), "u-2", "i-1")
	require.Error(t, err)
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
	assert.NoError(t, mock.ExpectationsWereMet())
}
