package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/darshil44/AI-Powered-Content-Explorer/internal/cache"
	"github.com/darshil44/AI-Powered-Content-Explorer/internal/domain"
	"github.com/darshil44/AI-Powered-Content-Explorer/internal/event"
	"github.com/darshil44/AI-Powered-Content-Explorer/internal/mcp"
	"github.com/darshil44/AI-Powered-Content-Explorer/internal/repository"
	apperrors "github.com/darshil44/AI-Powered-Content-Explorer/pkg/errors"
)

// searchResultLimit is the number of results requested from the search tool.
const searchResultLimit = 5

// ToolCaller invokes a named tool on an external provider. Implemented by
// *mcp.Client.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, arguments any) (json.RawMessage, error)
	Endpoint() string
}

// SearchResult is the outcome of a search invocation.
type SearchResult struct {
	Cached  bool            `json:"cached"`
	Result  json.RawMessage `json:"result"`
	SavedID string          `json:"saved_id"`
}

// ImageResult is the outcome of an image generation invocation.
type ImageResult struct {
	Cached   bool   `json:"cached"`
	ImageURL string `json:"image_url"`
	SavedID  string `json:"saved_id"`
}

// ExplorerService orchestrates tool invocations behind a per-user result
// cache. A realized miss calls the provider once, persists exactly one
// history record, then publishes the result to the cache; concurrent misses
// for the same key elect a single invoker through the cache's in-flight
// marker.
type ExplorerService struct {
	searchClient ToolCaller
	imageClient  ToolCaller
	cache        *cache.Store
	historyRepo  repository.HistoryRepository
	producer     *event.Producer
	logger       *slog.Logger
}

// NewExplorerService creates a new explorer service.
func NewExplorerService(
	searchClient ToolCaller,
	imageClient ToolCaller,
	cacheStore *cache.Store,
	historyRepo repository.HistoryRepository,
	producer *event.Producer,
	logger *slog.Logger,
) *ExplorerService {
	return &ExplorerService{
		searchClient: searchClient,
		imageClient:  imageClient,
		cache:        cacheStore,
		historyRepo:  historyRepo,
		producer:     producer,
		logger:       logger,
	}
}

// Search runs a web search for the user, serving from the cache when a fresh
// entry exists.
func (s *ExplorerService) Search(ctx context.Context, userID, query string) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, apperrors.InvalidInput("query must not be empty")
	}

	entry, err := s.lookupOrInvoke(ctx, domain.ToolSearch, userID, query, func(ctx context.Context) (*cache.Entry, error) {
		result, err := s.searchClient.CallTool(ctx, mcp.ToolTavilySearch, mcp.SearchArguments{
			Query: query,
			Limit: searchResultLimit,
		})
		if err != nil {
			return nil, err
		}

		rec := &domain.SearchRecord{
			ID:        uuid.New().String(),
			UserID:    userID,
			Query:     query,
			Response:  result,
			Endpoint:  s.searchClient.Endpoint(),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.historyRepo.CreateSearch(ctx, rec); err != nil {
			return nil, fmt.Errorf("persist search record: %w", err)
		}

		return &cache.Entry{Payload: result, SavedID: rec.ID}, nil
	})
	if err != nil {
		return nil, err
	}

	s.publishToolInvoked(ctx, domain.ToolSearch, userID, query, entry)

	return &SearchResult{
		Cached:  entry.cached,
		Result:  entry.entry.Payload,
		SavedID: entry.entry.SavedID,
	}, nil
}

// GenerateImage produces an image URL for the prompt, serving from the cache
// when a fresh entry exists. A provider response without a URL is rejected
// without persisting or caching anything.
func (s *ExplorerService) GenerateImage(ctx context.Context, userID, prompt string) (*ImageResult, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, apperrors.InvalidInput("prompt must not be empty")
	}

	entry, err := s.lookupOrInvoke(ctx, domain.ToolImage, userID, prompt, func(ctx context.Context) (*cache.Entry, error) {
		result, err := s.imageClient.CallTool(ctx, mcp.ToolGenerateImage, mcp.ImageArguments{Prompt: prompt})
		if err != nil {
			return nil, err
		}

		var parsed struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(result, &parsed); err != nil || parsed.URL == "" {
			return nil, apperrors.BadGatewayResponse(s.imageClient.Endpoint(), "tool response contains no image URL")
		}

		rec := &domain.ImageRecord{
			ID:        uuid.New().String(),
			UserID:    userID,
			Prompt:    prompt,
			ImageURL:  parsed.URL,
			Response:  result,
			Endpoint:  s.imageClient.Endpoint(),
			CreatedAt: time.Now().UTC(),
		}
		if err := s.historyRepo.CreateImage(ctx, rec); err != nil {
			return nil, fmt.Errorf("persist image record: %w", err)
		}

		payload, err := json.Marshal(parsed.URL)
		if err != nil {
			return nil, fmt.Errorf("marshal image url: %w", err)
		}

		return &cache.Entry{Payload: payload, SavedID: rec.ID}, nil
	})
	if err != nil {
		return nil, err
	}

	var imageURL string
	if err := json.Unmarshal(entry.entry.Payload, &imageURL); err != nil {
		return nil, fmt.Errorf("unmarshal cached image url: %w", err)
	}

	s.publishToolInvoked(ctx, domain.ToolImage, userID, prompt, entry)

	return &ImageResult{
		Cached:   entry.cached,
		ImageURL: imageURL,
		SavedID:  entry.entry.SavedID,
	}, nil
}

// resolvedEntry pairs a cache entry with how it was obtained.
type resolvedEntry struct {
	entry  *cache.Entry
	cached bool
}

// lookupOrInvoke implements the cache-aside flow: check the cache, elect a
// single invoker among concurrent misses, call invoke for the elected one,
// and publish its entry. Waiters that see the in-flight marker lapse without
// an entry fall through to their own invocation.
func (s *ExplorerService) lookupOrInvoke(
	ctx context.Context,
	kind domain.ToolKind,
	userID, input string,
	invoke func(ctx context.Context) (*cache.Entry, error),
) (*resolvedEntry, error) {
	key := cache.Key(kind, userID, input)

	entry, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("cache lookup: %w", err)
	}
	if entry != nil {
		return &resolvedEntry{entry: entry, cached: true}, nil
	}

	acquired, err := s.cache.AcquireInFlight(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("acquire in-flight marker: %w", err)
	}

	if !acquired {
		entry, err := s.cache.WaitForEntry(ctx, key)
		if err != nil {
			return nil, fmt.Errorf("wait for cache entry: %w", err)
		}
		if entry != nil {
			return &resolvedEntry{entry: entry, cached: true}, nil
		}
		// The marker lapsed without an entry; perform our own invocation.
		s.logger.WarnContext(ctx, "in-flight marker lapsed without cache entry",
			slog.String("kind", string(kind)),
			slog.String("user_id", userID),
		)
	} else {
		defer func() {
			if err := s.cache.ReleaseInFlight(ctx, key); err != nil {
				s.logger.WarnContext(ctx, "failed to release in-flight marker",
					slog.String("key", key),
					slog.String("error", err.Error()),
				)
			}
		}()
	}

	entry, err = invoke(ctx)
	if err != nil {
		return nil, err
	}

	// The record is already persisted; a cache write failure must not fail
	// the request or the caller would retry and persist a second record.
	if err := s.cache.Set(ctx, key, entry); err != nil {
		s.logger.ErrorContext(ctx, "failed to store cache entry",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
	}

	return &resolvedEntry{entry: entry, cached: false}, nil
}

// publishToolInvoked emits a tool.invoked event; failures are logged only.
func (s *ExplorerService) publishToolInvoked(ctx context.Context, kind domain.ToolKind, userID, input string, entry *resolvedEntry) {
	err := s.producer.PublishToolInvoked(ctx, event.ToolInvokedData{
		UserID:   userID,
		Kind:     kind,
		Input:    input,
		Cached:   entry.cached,
		RecordID: entry.entry.SavedID,
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to publish tool.invoked event",
			slog.String("user_id", userID),
			slog.String("kind", string(kind)),
			slog.String("error", err.Error()),
		)
	}
}

// ListHistory returns the user's dashboard entries, newest first.
func (s *ExplorerService) ListHistory(ctx context.Context, userID string, filter domain.HistoryFilter) ([]domain.HistoryItem, error) {
	if filter.Kind != "" && !filter.Kind.Valid() {
		return nil, apperrors.InvalidInput("type must be search or image")
	}

	items, err := s.historyRepo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	return items, nil
}

// DeleteHistory removes one of the user's history records. A record owned by
// another user is indistinguishable from a missing one. Cached entries built
// from the record are left to expire on their own.
func (s *ExplorerService) DeleteHistory(ctx context.Context, userID string, kind domain.ToolKind, id string) error {
	var err error
	switch kind {
	case domain.ToolSearch:
		err = s.historyRepo.DeleteSearch(ctx, userID, id)
	case domain.ToolImage:
		err = s.historyRepo.DeleteImage(ctx, userID, id)
	default:
		return apperrors.InvalidInput("type must be search or image")
	}
	if err != nil {
		return fmt.Errorf("delete history record: %w", err)
	}

	s.logger.InfoContext(ctx, "history record deleted",
		slog.String("user_id", userID),
		slog.String("kind", string(kind)),
		slog.String("record_id", id),
	)

	return nil
}
