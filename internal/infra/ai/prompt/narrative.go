package prompt

import "fmt"

// SystemPrompt provides strict directions and schema for JSON output.
func SystemPrompt() string {
    return `You are a senior SAP security auditor. You must produce one valid JSON object only (no markdown, no commentary) that follows the schema below. Do not include code fences.

Requirements:
- Output must be a single JSON object.
- Use lowercase severity values: critical, high, medium, low, info.
- counts.total must equal counts.critical + counts.high + counts.medium + counts.low.
- findings is an array of objects; include at least a title, severity, and summary. Keep items concise.
- Base every finding on the digest. Do not invent users, roles or numbers.

Schema (example with empty values):
{
  "report_id": "<string>",
  "counts": {"critical": 0, "high": 0, "medium": 0, "low": 0, "total": 0},
  "findings": [
    {
      "title": "<string>",
      "severity": "<critical|high|medium|low|info>",
      "summary": "<string>",
      "recommendation": "<string>"
    }
  ],
  "advice": "<string>"
}`
}

// UserPrompt wraps the report digest.
func UserPrompt(digest string) string {
    return fmt.Sprintf("Write the audit narrative for this SAP access report digest and respond with the JSON per schema. Digest: %s", digest)
}

type Counts struct {
    Critical int `json:"critical"`
    High     int `json:"high"`
    Medium   int `json:"medium"`
    Low      int `json:"low"`
    Total    int `json:"total"`
}

type Finding struct {
    Title          string `json:"title"`
    Severity       string `json:"severity"`
    Summary        string `json:"summary"`
    Recommendation string `json:"recommendation"`
}

// Narrative matches the schema used by the system prompt.
type Narrative struct {
    ReportID string    `json:"report_id"`
    Counts   Counts    `json:"counts"`
    Findings []Finding `json:"findings"`
    Advice   string    `json:"advice"`
}

func (n *Narrative) add(sev, title, summary, rec string) {
    n.Findings = append(n.Findings, Finding{Title: title, Severity: sev, Summary: summary, Recommendation: rec})
    switch sev {
    case "critical":
        n.Counts.Critical++
    case "high":
        n.Counts.High++
    case "medium":
        n.Counts.Medium++
    case "low":
        n.Counts.Low++
    }
    n.Counts.Total = n.Counts.Critical + n.Counts.High + n.Counts.Medium + n.Counts.Low
}
