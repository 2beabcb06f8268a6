package dto

import "time"

// Export formats for progress reports.
const (
	ExportFormatCSV = "csv"
	ExportFormatPDF = "pdf"
)

// AttemptEntry summarises one quiz attempt in a progress report.
type AttemptEntry struct {
	ID          string    `json:"id"`
	QuizID      string    `json:"quizId"`
	QuizTitle   string    `json:"quizTitle"`
	ScoreAuto   *int      `json:"scoreAuto,omitempty"`
	SubmittedAt time.Time `json:"submittedAt"`
}

// ProgressResponse aggregates a student's completions and quiz results.
type ProgressResponse struct {
	StudentID      string            `json:"studentId"`
	Name           string            `json:"name"`
	Email          string            `json:"email"`
	TotalMaterials int               `json:"totalMaterials"`
	CompletedCount int               `json:"completedCount"`
	CompletionRate float64           `json:"completionRate"`
	AverageScore   *float64          `json:"averageScore,omitempty"`
	Completions    []CompletionEntry `json:"completions"`
	Attempts       []AttemptEntry    `json:"attempts"`
}

// ExportResponse points to a generated report file.
type ExportResponse struct {
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	ExpiresAt time.Time `json:"expiresAt"`
}
