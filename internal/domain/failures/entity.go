package failures

import "time"

// Failure represents a persisted analysis failure entry
type Failure struct {
    ID          int64     `json:"id"`
    Analysis    string    `json:"analysis"`        // access | inactivity
    Phase       string    `json:"phase,omitempty"` // decode | validate | analyze | store
    Message     string    `json:"message"`
    DetailsJSON string    `json:"details_json,omitempty"` // raw JSON string
    CreatedAt   time.Time `json:"created_at"`
}
