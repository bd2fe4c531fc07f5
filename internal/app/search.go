package app

import (
	"context"
	"fmt"
	"strings"

	"github.com/evanschultz/mailkan/internal/domain"
)

// Suggest returns autocomplete entries; short queries return nil without a request.
func (s *Service) Suggest(ctx context.Context, query string) ([]domain.Suggestion, error) {
	if !domain.ShouldSuggest(query, s.Config().SuggestMinChars) {
		return nil, nil
	}
	out, err := s.backend.Suggestions(ctx, strings.TrimSpace(query))
	if err != nil {
		return nil, fmt.Errorf("suggestions: %w", err)
	}
	return out, nil
}

// SemanticSearch runs a vector search. A non-positive limit uses the configured default.
func (s *Service) SemanticSearch(ctx context.Context, query string, limit int) (domain.SemanticPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.SemanticPage{}, ErrEmptyQuery
	}
	if limit <= 0 {
		limit = s.Config().SearchLimit
	}
	page, err := s.backend.SemanticSearch(ctx, query, limit)
	if err != nil {
		return domain.SemanticPage{}, fmt.Errorf("semantic search: %w", err)
	}
	return page, nil
}

// KeywordSearch fetches one page of keyword results.
func (s *Service) KeywordSearch(ctx context.Context, query, pageToken string) (domain.KeywordPage, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return domain.KeywordPage{}, ErrEmptyQuery
	}
	page, err := s.backend.KeywordSearch(ctx, query, strings.TrimSpace(pageToken))
	if err != nil {
		return domain.KeywordPage{}, fmt.Errorf("keyword search: %w", err)
	}
	return page, nil
}

// LoadMore appends the next keyword page to prev. It is a no-op once the token runs out.
func (s *Service) LoadMore(ctx context.Context, query string, prev domain.KeywordPage) (domain.KeywordPage, error) {
	if !prev.HasMore() {
		return prev, nil
	}
	next, err := s.KeywordSearch(ctx, query, prev.NextPageToken)
	if err != nil {
		return prev, err
	}
	merged := domain.KeywordPage{
		Emails:        append(append([]domain.Email(nil), prev.Emails...), next.Emails...),
		NextPageToken: next.NextPageToken,
		TotalEstimate: next.TotalEstimate,
	}
	return merged, nil
}

// GenerateEmbeddings asks the backend to embed up to limit messages.
func (s *Service) GenerateEmbeddings(ctx context.Context, limit int) (domain.EmbeddingReport, error) {
	if limit <= 0 {
		return domain.EmbeddingReport{}, ErrInvalidLimit
	}
	rep, err := s.backend.GenerateEmbeddings(ctx, limit)
	if err != nil {
		return domain.EmbeddingReport{}, fmt.Errorf("generate embeddings: %w", err)
	}
	return rep, nil
}
