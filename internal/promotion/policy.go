// Package promotion implements the production promotion policy engine. It
// reads governance state from the backend and evaluates whether a release
// meets the promotion criteria.
package promotion

import (
	"fmt"
	"os"
	"sync"

	"gopkg.in/yaml.v3"
)

// Default promotion thresholds, applied when no policy file is configured.
const (
	DefaultMinScore     = 70.0
	DefaultMinApprovals = 1
)

// Policy holds the promotion thresholds.
type Policy struct {
	MinScore     float64 `yaml:"min_score"`
	MinApprovals int     `yaml:"min_approvals"`
}

// DefaultPolicy returns the built-in thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MinScore:     DefaultMinScore,
		MinApprovals: DefaultMinApprovals,
	}
}

// Validate checks the policy for nonsensical thresholds.
func (p Policy) Validate() error {
	if p.MinScore < 0 || p.MinScore > 100 {
		return fmt.Errorf("min_score must be within [0, 100], got %v", p.MinScore)
	}
	if p.MinApprovals < 0 {
		return fmt.Errorf("min_approvals must be non-negative, got %d", p.MinApprovals)
	}
	return nil
}

// LoadPolicy reads a policy from a YAML file. Fields left out of the file
// keep their defaults.
func LoadPolicy(path string) (Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read policy file: %w", err)
	}

	p := DefaultPolicy()
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Policy{}, fmt.Errorf("parse policy file: %w", err)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// PolicyStore holds the active policy and allows atomic replacement, so a
// file watcher can swap thresholds under live traffic.
type PolicyStore struct {
	mu     sync.RWMutex
	policy Policy
}

// NewPolicyStore creates a store seeded with the given policy.
func NewPolicyStore(policy Policy) *PolicyStore {
	return &PolicyStore{policy: policy}
}

// Current returns the active policy.
func (s *PolicyStore) Current() Policy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.policy
}

// Set replaces the active policy.
func (s *PolicyStore) Set(policy Policy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.policy = policy
}
