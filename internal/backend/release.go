package backend

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Release is the canonical gateway-side view of a backend release record.
// The backend has emitted both camelCase and snake_case field names across
// versions, and sometimes wraps records in a data envelope; all of that is
// absorbed here so the rest of the gateway sees exactly one shape.
type Release struct {
	ID            string
	EvidenceScore float64
	EvidenceURL   string
}

// Approval is one governance sign-off on a release.
type Approval struct {
	ID        string
	ReleaseID string
	Outcome   string
}

// OutcomeApproved is the approval outcome that counts toward promotion.
const OutcomeApproved = "APPROVED"

type rawRelease struct {
	ID                 string   `json:"id"`
	EvidenceScore      *float64 `json:"evidenceScore"`
	EvidenceScoreSnake *float64 `json:"evidence_score"`
	EvidenceURL        *string  `json:"evidenceUrl"`
	EvidenceURLSnake   *string  `json:"evidence_url"`
}

func (r rawRelease) normalize() Release {
	out := Release{ID: r.ID}
	switch {
	case r.EvidenceScore != nil:
		out.EvidenceScore = *r.EvidenceScore
	case r.EvidenceScoreSnake != nil:
		out.EvidenceScore = *r.EvidenceScoreSnake
	}
	switch {
	case r.EvidenceURL != nil:
		out.EvidenceURL = strings.TrimSpace(*r.EvidenceURL)
	case r.EvidenceURLSnake != nil:
		out.EvidenceURL = strings.TrimSpace(*r.EvidenceURLSnake)
	}
	return out
}

// DecodeRelease normalizes a release payload, unwrapping a data envelope if
// the backend used one.
func DecodeRelease(body []byte) (Release, error) {
	payload := unwrapData(body)

	var raw rawRelease
	if err := json.Unmarshal(payload, &raw); err != nil {
		return Release{}, fmt.Errorf("decode release: %w", err)
	}
	return raw.normalize(), nil
}

type rawApproval struct {
	ID             string `json:"id"`
	ReleaseID      string `json:"releaseId"`
	ReleaseIDSnake string `json:"release_id"`
	Outcome        string `json:"outcome"`
}

func (a rawApproval) normalize() Approval {
	out := Approval{ID: a.ID, ReleaseID: a.ReleaseID, Outcome: a.Outcome}
	if out.ReleaseID == "" {
		out.ReleaseID = a.ReleaseIDSnake
	}
	return out
}

// DecodeApprovals normalizes an approvals listing. The backend returns either
// a bare array or an array nested one or two envelope levels deep.
func DecodeApprovals(body []byte) ([]Approval, error) {
	payload := unwrapData(body)
	// A second unwrap covers the doubly nested data.data shape.
	payload = unwrapData(payload)

	var raw []rawApproval
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, fmt.Errorf("decode approvals: %w", err)
	}

	out := make([]Approval, 0, len(raw))
	for _, a := range raw {
		out = append(out, a.normalize())
	}
	return out, nil
}

// CountApproved returns how many approvals carry the approved outcome.
func CountApproved(approvals []Approval) int {
	n := 0
	for _, a := range approvals {
		if a.Outcome == OutcomeApproved {
			n++
		}
	}
	return n
}

// unwrapData returns the value of a top-level "data" key if the payload is an
// object carrying one, or the payload unchanged otherwise.
func unwrapData(body []byte) []byte {
	var wrapper struct {
		Data json.RawMessage `json:"data"`
	}
	if err := json.Unmarshal(body, &wrapper); err != nil {
		return body
	}
	if len(wrapper.Data) == 0 || string(wrapper.Data) == "null" {
		return body
	}
	return wrapper.Data
}
