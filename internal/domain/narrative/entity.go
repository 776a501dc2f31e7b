package narrative

import "time"

// NarrativeID identifier type
type NarrativeID string

// Narrative is an executive summary written for a stored access report
type Narrative struct {
    ID        NarrativeID `json:"id"`
    ReportID  string      `json:"report_id"`
    Provider  string      `json:"provider"` // openai | local
    Content   string      `json:"content"`  // JSON string from the narrator
    CreatedAt time.Time   `json:"created_at"`
}
