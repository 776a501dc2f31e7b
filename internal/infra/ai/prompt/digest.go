package prompt

import (
    "encoding/json"
    "sort"

    "github.com/bryanwahyu/automaton-sapaudit/internal/domain/report"
)

// RiskUser is the compact form of a user in the digest
type RiskUser struct {
    Client    string `json:"client"`
    Username  string `json:"username"`
    RiskScore int    `json:"risk_score"`
}

// Digest is what gets sent to a narrator: the summary only, never row level data
type Digest struct {
    ReportID string          `json:"report_id"`
    Metadata report.Metadata `json:"metadata"`
    Summary  *report.Summary `json:"summary,omitempty"`
    TopRisk  []RiskUser      `json:"top_risk_users"`
}

// NewDigest picks the summary and the topN users with the highest risk score
func NewDigest(rep *report.AccessReport, topN int) Digest {
    d := Digest{ReportID: rep.ID, Metadata: rep.Metadata, Summary: rep.Summary, TopRisk: []RiskUser{}}
    for _, u := range rep.Users {
        if u.RiskScore > 0 {
            d.TopRisk = append(d.TopRisk, RiskUser{Client: u.Client, Username: u.Username, RiskScore: u.RiskScore})
        }
    }
    sort.SliceStable(d.TopRisk, func(i, j int) bool {
        if d.TopRisk[i].RiskScore != d.TopRisk[j].RiskScore {
            return d.TopRisk[i].RiskScore > d.TopRisk[j].RiskScore
        }
        return d.TopRisk[i].Username < d.TopRisk[j].Username
    })
    if topN > 0 && len(d.TopRisk) > topN {
        d.TopRisk = d.TopRisk[:topN]
    }
    return d
}

func (d Digest) JSON() (string, error) {
    b, err := json.Marshal(d)
    if err != nil {
        return "", err
    }
    return string(b), nil
}
