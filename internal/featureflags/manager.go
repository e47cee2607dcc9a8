// Package featureflags evaluates FEATURE_FLAGS rules per user and plan.
package featureflags

import (
	"hash/fnv"
	"strconv"
	"strings"

	"proposta/internal/plans"
)

// ESignaturePlanGate, when enabled, limits signature requests to plans with the e_signature feature.
const ESignaturePlanGate = "e_signature_plan_gate"

// Subject is who a flag is evaluated for.
type Subject struct {
	UserID uint
	Plan   plans.Plan
}

// Manager evaluates flags parsed from "name=value,..." where value is
// on/off, N% (stable per-user rollout) or plan:<plan>[|<plan>].
type Manager struct {
	flags map[string]string
}

func NewManager(raw string) *Manager {
	out := make(map[string]string)
	for _, pair := range strings.Split(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key, value = normalize(key), normalize(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return &Manager{flags: out}
}

// Enabled evaluates name for a user whose plan is unknown; plan rules are off.
func (m *Manager) Enabled(name string, userID uint) bool {
	return m.EnabledFor(name, Subject{UserID: userID})
}

func (m *Manager) EnabledFor(name string, s Subject) bool {
	if m == nil {
		return false
	}
	value, ok := m.flags[normalize(name)]
	if !ok {
		return false
	}

	switch value {
	case "on", "true", "1":
		return true
	case "off", "false", "0":
		return false
	}

	if rest, ok := strings.CutPrefix(value, "plan:"); ok {
		if s.Plan == "" {
			return false
		}
		for _, p := range strings.Split(rest, "|") {
			if plans.Plan(strings.TrimSpace(p)) == s.Plan {
				return true
			}
		}
		return false
	}

	if pctRaw, ok := strings.CutSuffix(value, "%"); ok {
		pct, err := strconv.Atoi(pctRaw)
		if err != nil || pct <= 0 {
			return false
		}
		if pct >= 100 {
			return true
		}
		if s.UserID == 0 {
			return false
		}
		return rolloutBucket(name, s.UserID) < pct
	}
	return false
}

// Raw returns a copy of the configured rules.
func (m *Manager) Raw() map[string]string {
	out := make(map[string]string, len(m.flags))
	for k, v := range m.flags {
		out[k] = v
	}
	return out
}

// Snapshot evaluates every configured flag for s.
func (m *Manager) Snapshot(s Subject) map[string]bool {
	out := make(map[string]bool, len(m.flags))
	for name := range m.flags {
		out[name] = m.EnabledFor(name, s)
	}
	return out
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func rolloutBucket(name string, userID uint) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(normalize(name) + ":" + strconv.FormatUint(uint64(userID), 10)))
	return int(h.Sum32() % 100)
}
