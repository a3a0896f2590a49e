package models

import "time"

// MediaFile is one uploaded media object belonging to a case.
// FilePath is the object-store locator the analysis pipeline downloads from.
type MediaFile struct {
	ID          string    `json:"id"`
	CaseID      string    `json:"caseId"`
	OwnerUserID string    `json:"ownerUserId"`
	FileName    string    `json:"fileName"`
	FilePath    string    `json:"filePath"`
	MediaType   MediaType `json:"mediaType"`
	ContentType string    `json:"contentType"`
	SizeBytes   int64     `json:"sizeBytes"`
	CreatedAt   time.Time `json:"createdAt"`
}
