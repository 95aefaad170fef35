package models

import "time"

// BuildJob records one push-build-resolve cycle for history.
type BuildJob struct {
	ID           string     `gorm:"primaryKey;size:36" json:"id"`
	UserID       uint       `gorm:"not null;index" json:"userId"`
	Owner        string     `gorm:"size:100" json:"owner"`
	Repo         string     `gorm:"size:100" json:"repo"`
	Phase        string     `gorm:"size:20;not null;index" json:"phase"`
	CommitSHA    string     `gorm:"size:64" json:"commitSha,omitempty"`
	RunID        int64      `json:"runId,omitempty"`
	RunURL       string     `gorm:"size:512" json:"runUrl,omitempty"`
	DownloadURL  string     `gorm:"size:512" json:"downloadUrl,omitempty"`
	ArtifactName string     `gorm:"size:120" json:"artifactName,omitempty"`
	PollAttempts int        `json:"pollAttempts"`
	ErrorMessage string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt    time.Time  `json:"startedAt"`
	FinishedAt   *time.Time `json:"finishedAt,omitempty"`
	UpdatedAt    time.Time  `json:"-"`
}
