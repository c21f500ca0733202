package resumes

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound            = errors.New("resumes: resume not found")
	ErrNotAuthorized       = errors.New("resumes: user not authorized")
	ErrNoCredits           = errors.New("resumes: no credits remaining")
	ErrAnalysisUnparseable = errors.New("resumes: could not categorize analysis result")
	ErrAIUnavailable       = errors.New("resumes: ai service temporarily unavailable")
	ErrNoFile              = errors.New("resumes: no file uploaded")
	ErrFileType            = errors.New("resumes: resumes only (pdf/doc/docx)")
	ErrFileTooLarge        = errors.New("resumes: file exceeds upload limit")
)

// MaxTextLength caps the stored extracted text.
const MaxTextLength = 50000

// MaxFileSize is the largest accepted upload in bytes.
const MaxFileSize = 5_000_000

// Analysis is the ATS audit produced by the model.
type Analysis struct {
	Score              float64  `json:"score"`
	Summary            string   `json:"summary"`
	TopSkills          []string `json:"top_skills"`
	MissingKeywords    []string `json:"missing_keywords"`
	CriticalIssues     []string `json:"critical_issues"`
	ImprovementPlan    []string `json:"improvement_plan"`
	JobMatchPrediction string   `json:"job_match_prediction"`
}

// Metadata records where an upload came from.
type Metadata struct {
	IPAddress string `json:"ipAddress,omitempty"`
	UserAgent string `json:"userAgent,omitempty"`
	Country   string `json:"country,omitempty"`
}

// Resume is an uploaded document with its extracted text and latest analysis.
// UserID is empty for guest uploads.
type Resume struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user,omitempty"`
	OriginalName string    `json:"originalName"`
	MimeType     string    `json:"mimeType,omitempty"`
	Size         int64     `json:"size,omitempty"`
	ParsedText   string    `json:"parsedText,omitempty"`
	Analysis     *Analysis `json:"analysisResult,omitempty"`
	AnalysisType string    `json:"analysisType,omitempty"`
	Metadata     Metadata  `json:"metadata"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// ScoreCategory buckets the analysis score.
func (r Resume) ScoreCategory() string {
	if r.Analysis == nil || r.Analysis.Score == 0 {
		return "unknown"
	}
	switch s := r.Analysis.Score; {
	case s >= 80:
		return "excellent"
	case s >= 60:
		return "good"
	case s >= 40:
		return "fair"
	default:
		return "needs-improvement"
	}
}

// OwnedBy reports whether userID may read or analyze r. Guest uploads are
// open to anyone holding the id.
func (r Resume) OwnedBy(userID string) bool {
	return r.UserID == "" || r.UserID == userID
}

// Summary is the list projection of a resume.
type Summary struct {
	ID           string    `json:"id"`
	OriginalName string    `json:"originalName"`
	Score        *float64  `json:"score,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Filter selects resumes owned by UserID or listed in IDs.
type Filter struct {
	UserID string
	IDs    []string
}

// Empty reports whether f has no condition at all.
func (f Filter) Empty() bool { return f.UserID == "" && len(f.IDs) == 0 }

// Store persists resumes.
type Store interface {
	Create(ctx context.Context, r Resume) (Resume, error)
	Get(ctx context.Context, id string) (Resume, error)
	Update(ctx context.Context, r Resume) (Resume, error)
	// List returns resumes matching any condition of f, newest first.
	List(ctx context.Context, f Filter) ([]Resume, error)
}
