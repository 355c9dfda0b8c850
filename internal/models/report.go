package models

import "time"

// ReportView is the API shape of a session's diagnosis report.
type ReportView struct {
	Initial     string    `json:"initial"`
	Current     string    `json:"current"`
	Modified    bool      `json:"modified"`
	GeneratedAt time.Time `json:"generated_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ArchivedReport is a finalised report kept in the report archive.
type ArchivedReport struct {
	ID        string                 `json:"id"`
	SessionID string                 `json:"session_id"`
	Title     string                 `json:"title"`
	Report    string                 `json:"report"`
	Initial   string                 `json:"initial,omitempty"`
	Metadata  map[string]interface{} `json:"metadata"`
	CreatedAt time.Time              `json:"created_at"`
}

// ArchiveHit is a single archive search result.
type ArchiveHit struct {
	Report  *ArchivedReport `json:"report"`
	Score   float64         `json:"score"`
	Snippet string          `json:"snippet,omitempty"`
}
