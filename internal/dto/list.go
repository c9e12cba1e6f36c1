package dto

import "github.com/parlorgames/parlor/internal/domain"

// DocumentListResponse is one page of documents, with full items.
type DocumentListResponse struct {
	Items      []DocumentResponse `json:"items"`
	NextCursor string             `json:"nextCursor,omitempty"`
}

// NewDocumentListResponse builds the page view. Items is never null.
func NewDocumentListResponse(page domain.Page[domain.Document]) DocumentListResponse {
	items := make([]DocumentResponse, len(page.Items))
	for i, d := range page.Items {
		items[i] = NewDocumentResponse(d)
	}
	return DocumentListResponse{Items: items, NextCursor: page.NextCursor}
}

// NameListResponse is one page of entity ids; the list shape for users and
// games.
type NameListResponse struct {
	Names      []string `json:"names"`
	NextCursor string   `json:"nextCursor,omitempty"`
}

// NewNameListResponse builds the page view from ids. Names is never null.
func NewNameListResponse(ids []string, nextCursor string) NameListResponse {
	if ids == nil {
		ids = []string{}
	}
	return NameListResponse{Names: ids, NextCursor: nextCursor}
}
