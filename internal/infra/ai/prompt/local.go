package prompt

import (
    "context"
    "encoding/json"
    "fmt"
    "strings"
)

// CriticalRisk is the score from which a user is reported as a critical finding
const CriticalRisk = 50

var recommendations = map[string]string{
    "user_management": "Review the affected accounts with their owners and lock or remove what is no longer needed.",
    "security":        "Restrict the affected authorizations to named values and re-certify holders of critical objects.",
    "role_management": "Re-certify role assignments and split oversized role sets following least privilege.",
}

// Local builds the narrative offline from the digest, without calling a model
type Local struct{}

func (Local) Provider() string { return "local" }

func (Local) Narrate(ctx context.Context, digest string) (string, error) {
    if err := ctx.Err(); err != nil {
        return "", err
    }
    var d Digest
    if err := json.Unmarshal([]byte(digest), &d); err != nil {
        return "", fmt.Errorf("decode digest: %w", err)
    }

    out := Narrative{ReportID: d.ReportID, Findings: []Finding{}}

    var critical []string
    for _, u := range d.TopRisk {
        if u.RiskScore >= CriticalRisk {
            critical = append(critical, fmt.Sprintf("%s (%d)", u.Username, u.RiskScore))
        }
    }
    if len(critical) > 0 {
        out.add("critical", "High risk users",
            fmt.Sprintf("%d user(s) reach a risk score of %d or more: %s.", len(critical), CriticalRisk, strings.Join(critical, ", ")),
            "Review these accounts first: remove critical objects and wildcard values that are not justified.")
    }

    if d.Summary != nil {
        if d.Summary.Warning != "" {
            out.add("info", "Incomplete data", d.Summary.Warning, "Export the missing tables and rerun the analysis.")
        }
        for _, in := range d.Summary.Insights {
            out.add(severity(in.Impact), in.Title, in.Description, recommendations[in.Category])
        }
    }

    if len(out.Findings) == 0 {
        out.add("info", "No findings", "The digest contains no security insight.", "Keep exporting the tables regularly to track changes.")
    }

    switch {
    case out.Counts.Critical > 0:
        out.Advice = "Immediate action required: review high risk users, revoke unjustified critical authorizations and replace wildcard values."
    case out.Counts.High+out.Counts.Medium > 0:
        out.Advice = "Address the listed findings in the next access review cycle and re-certify role assignments."
    default:
        out.Advice = "Maintain good hygiene: lock unused accounts and review access periodically."
    }

    b, err := json.Marshal(out)
    if err != nil {
        return "", fmt.Errorf("failed to marshal narrative: %w", err)
    }
    return string(b), nil
}

func severity(impact string) string {
    switch strings.ToLower(impact) {
    case "high", "medium", "low":
        return strings.ToLower(impact)
    }
    return "info"
}
