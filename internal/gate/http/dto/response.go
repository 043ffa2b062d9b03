package dto

import (
	"time"

	"github.com/allisson/docgate/internal/gate"
	sharetokenDomain "github.com/allisson/docgate/internal/sharetoken/domain"
)

// DecisionResponse is the structured outcome of an access check.
type DecisionResponse struct {
	Granted       bool       `json:"granted"`
	Reason        string     `json:"reason,omitempty"`
	RemainingUses *int       `json:"remaining_uses,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
}

// MapDecisionToResponse converts a gate decision to an API response.
func MapDecisionToResponse(decision *gate.Decision) DecisionResponse {
	response := DecisionResponse{
		Granted:       decision.Granted,
		Reason:        decision.Reason,
		RemainingUses: decision.RemainingUses,
	}
	if !decision.ExpiresAt.IsZero() {
		expiresAt := decision.ExpiresAt
		response.ExpiresAt = &expiresAt
	}
	return response
}

// ShareLinkResponse represents a share link in API responses. The secret
// appears only in the issue response; listings expose metadata alone.
type ShareLinkResponse struct {
	ID            string    `json:"id"`
	Secret        string    `json:"secret,omitempty"`
	DocumentID    int64     `json:"document_id"`
	MaxUses       int       `json:"max_uses"`
	UseCount      int       `json:"use_count"`
	RemainingUses *int      `json:"remaining_uses,omitempty"`
	IssuedBy      string    `json:"issued_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at"`
}

// MapTokenToShareLinkResponse converts a domain share token to an API response.
func MapTokenToShareLinkResponse(token *sharetokenDomain.ShareToken) ShareLinkResponse {
	return ShareLinkResponse{
		ID:            token.ID.String(),
		DocumentID:    token.TargetID,
		MaxUses:       token.MaxUses,
		UseCount:      token.UseCount,
		RemainingUses: token.Remaining(),
		IssuedBy:      token.IssuedBy,
		CreatedAt:     token.CreatedAt,
		ExpiresAt:     token.ExpiresAt,
	}
}

// ListShareLinksResponse represents a paginated list of share links.
type ListShareLinksResponse struct {
	Data []ShareLinkResponse `json:"data"`
}

// MapTokensToListResponse converts a slice of domain share tokens to a list response.
func MapTokensToListResponse(tokens []*sharetokenDomain.ShareToken) ListShareLinksResponse {
	data := make([]ShareLinkResponse, 0, len(tokens))
	for _, token := range tokens {
		data = append(data, MapTokenToShareLinkResponse(token))
	}

	return ListShareLinksResponse{
		Data: data,
	}
}
