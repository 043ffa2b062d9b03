package dto

import (
	"time"

	licenseDomain "github.com/allisson/docgate/internal/license/domain"
)

// LicenseStatusResponse is the license snapshot returned by the API.
type LicenseStatusResponse struct {
	Status      string     `json:"status"`
	Tier        string     `json:"tier"`
	Usable      bool       `json:"usable"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
	GraceEndsAt *time.Time `json:"grace_ends_at,omitempty"`
}

// MapSnapshotToResponse converts a domain status snapshot to an API response.
func MapSnapshotToResponse(snapshot *licenseDomain.StatusSnapshot) LicenseStatusResponse {
	return LicenseStatusResponse{
		Status:      string(snapshot.Status),
		Tier:        string(snapshot.Tier),
		Usable:      snapshot.Usable,
		ExpiresAt:   snapshot.ExpiresAt,
		GraceEndsAt: snapshot.GraceEndsAt,
	}
}
