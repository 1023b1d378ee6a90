package postgres

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/darshil44/AI-Powered-Content-Explorer/internal/domain"
	"github.com/darshil44/AI-Powered-Content-Explorer/pkg/database"
	apperrors "github.com/darshil44/AI-Powered-Content-Explorer/pkg/errors"
)

// HistoryRepository implements repository.HistoryRepository using PostgreSQL.
// Search and image invocations live in separate tables; listings merge them
// in memory, newest first.
type HistoryRepository struct {
	db database.DBTX
}

// NewHistoryRepository creates a new PostgreSQL-backed history repository.
func NewHistoryRepository(db database.DBTX) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// CreateSearch inserts a search record into the database.
func (r *HistoryRepository) CreateSearch(ctx context.Context, rec *domain.SearchRecord) error {
	query := `
		INSERT INTO search_history (id, user_id, query, response, endpoint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Query,
		rec.Response,
		rec.Endpoint,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert search record: %w", err)
	}

	return nil
}

// CreateImage inserts an image record into the database.
func (r *HistoryRepository) CreateImage(ctx context.Context, rec *domain.ImageRecord) error {
	query := `
		INSERT INTO image_history (id, user_id, prompt, image_url, response, endpoint, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.Exec(ctx, query,
		rec.ID,
		rec.UserID,
		rec.Prompt,
		rec.ImageURL,
		rec.Response,
		rec.Endpoint,
		rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert image record: %w", err)
	}

	return nil
}

// List returns history items for the user matching the filter, newest first.
func (r *HistoryRepository) List(ctx context.Context, userID string, filter domain.HistoryFilter) ([]domain.HistoryItem, error) {
	filter.Normalize()

	var items []domain.HistoryItem

	if filter.Kind == "" || filter.Kind == domain.ToolSearch {
		searches, err := r.listSearches(ctx, userID, filter)
		if err != nil {
			return nil, err
		}
		items = append(items, searches...)
	}

	if filter.Kind == "" || filter.Kind == domain.ToolImage {
		images, err := r.listImages(ctx, userID, filter)
		if err != nil {
			return nil, err
		}
		items = append(items, images...)
	}

	sort.Slice(items, func(i, j int) bool {
		return items[i].CreatedAt.After(items[j].CreatedAt)
	})
	if len(items) > filter.Limit {
		items = items[:filter.Limit]
	}

	if items == nil {
		items = []domain.HistoryItem{}
	}

	return items, nil
}

func (r *HistoryRepository) listSearches(ctx context.Context, userID string, filter domain.HistoryFilter) ([]domain.HistoryItem, error) {
	where, args := historyConditions(userID, filter, "query")
	query := fmt.Sprintf(`
		SELECT id, query, response, created_at
		FROM search_history
		WHERE %s
		ORDER BY created_at DESC
		LIMIT %d`, where, filter.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list search history: %w", err)
	}
	defer rows.Close()

	var items []domain.HistoryItem
	for rows.Next() {
		item := domain.HistoryItem{Kind: domain.ToolSearch}
		if err := rows.Scan(&item.ID, &item.Input, &item.Response, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan search row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate search rows: %w", err)
	}

	return items, nil
}

func (r *HistoryRepository) listImages(ctx context.Context, userID string, filter domain.HistoryFilter) ([]domain.HistoryItem, error) {
	where, args := historyConditions(userID, filter, "prompt")
	query := fmt.Sprintf(`
		SELECT id, prompt, image_url, response, created_at
		FROM image_history
		WHERE %s
		ORDER BY created_at DESC
		LIMIT %d`, where, filter.Limit)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list image history: %w", err)
	}
	defer rows.Close()

	var items []domain.HistoryItem
	for rows.Next() {
		item := domain.HistoryItem{Kind: domain.ToolImage}
		if err := rows.Scan(&item.ID, &item.Input, &item.ImageURL, &item.Response, &item.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan image row: %w", err)
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate image rows: %w", err)
	}

	return items, nil
}

// historyConditions builds the WHERE clause shared by both history tables.
// inputCol is the table's free-text column (query or prompt).
func historyConditions(userID string, filter domain.HistoryFilter, inputCol string) (string, []any) {
	conditions := []string{"user_id = $1"}
	args := []any{userID}

	if filter.Keyword != "" {
		args = append(args, "%"+filter.Keyword+"%")
		conditions = append(conditions, fmt.Sprintf("%s ILIKE $%d", inputCol, len(args)))
	}
	if filter.From != nil {
		args = append(args, *filter.From)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		conditions = append(conditions, fmt.Sprintf("created_at <= $%d", len(args)))
	}

	return strings.Join(conditions, " AND "), args
}

// DeleteSearch removes a search record owned by the user.
func (r *HistoryRepository) DeleteSearch(ctx context.Context, userID, id string) error {
	return r.deleteOwned(ctx, "search_history", userID, id)
}

// DeleteImage removes an image record owned by the user.
func (r *HistoryRepository) DeleteImage(ctx context.Context, userID, id string) error {
	return r.deleteOwned(ctx, "image_history", userID, id)
}

func (r *HistoryRepository) deleteOwned(ctx context.Context, table, userID, id string) error {
	// Ownership is part of the predicate so one user cannot delete
	// another's records; a foreign ID looks identical to a missing one.
	query := fmt.Sprintf(`DELETE FROM %s WHERE id = $1 AND user_id = $2`, table)

	ct, err := r.db.Exec(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}

	if ct.RowsAffected() == 0 {
		return apperrors.NotFound("history record", id)
	}

	return nil
}
