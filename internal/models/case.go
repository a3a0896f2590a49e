package models

import "time"

// CaseStatus tracks whether a forensic case is still being worked.
type CaseStatus string

const (
	CaseOpen     CaseStatus = "open"
	CaseClosed   CaseStatus = "closed"
	CaseArchived CaseStatus = "archived"
)

// Case groups uploaded media files under one investigation.
type Case struct {
	ID          string     `json:"id"`
	OwnerUserID string     `json:"ownerUserId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      CaseStatus `json:"status"`
	MediaCount  int        `json:"mediaCount"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// CreateCaseParams is the payload for creating a case.
type CreateCaseParams struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}
