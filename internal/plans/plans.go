// Package plans maps subscription tiers to proposal quotas and features.
package plans

import (
	_ "embed"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Plan identifies a subscription tier.
type Plan string

const (
	Free         Plan = "free"
	Intermediate Plan = "intermediate"
	Professional Plan = "professional"
)

// Unlimited is returned by QuotaFor and Remaining for unbounded plans.
const Unlimited = -1

// Feature names a capability unlocked by a plan.
type Feature string

const (
	FeatureESignature      Feature = "e_signature"
	FeatureCustomTemplates Feature = "custom_templates"
	FeaturePrioritySupport Feature = "priority_support"
)

// Definition is one catalog entry.
type Definition struct {
	ID         Plan      `yaml:"id" json:"id"`
	Name       string    `yaml:"name" json:"name"`
	PriceCents int64     `yaml:"price_cents" json:"price_cents"`
	Limit      int       `yaml:"limit" json:"limit"`
	Features   []Feature `yaml:"features" json:"features"`
}

// Unbounded reports whether the plan has no monthly cap.
func (d Definition) Unbounded() bool {
	return d.Limit < 0
}

//go:embed plans.yml
var catalogYAML []byte

var (
	catalog []Definition
	byID    map[Plan]Definition
)

func init() {
	defs, err := parseCatalog(catalogYAML)
	if err != nil {
		panic(fmt.Sprintf("plans: invalid embedded catalog: %v", err))
	}
	catalog = defs
	byID = make(map[Plan]Definition, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
}

func parseCatalog(raw []byte) ([]Definition, error) {
	var doc struct {
		Plans []Definition `yaml:"plans"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}
	seen := map[Plan]bool{}
	for _, d := range doc.Plans {
		if d.ID == "" {
			return nil, fmt.Errorf("plan without id")
		}
		if seen[d.ID] {
			return nil, fmt.Errorf("duplicate plan %q", d.ID)
		}
		seen[d.ID] = true
	}
	if !seen[Free] {
		return nil, fmt.Errorf("catalog must define %q", Free)
	}
	return doc.Plans, nil
}

// Catalog returns the plan definitions in display order.
func Catalog() []Definition {
	out := make([]Definition, len(catalog))
	copy(out, catalog)
	return out
}

// Parse validates a plan identifier.
func Parse(s string) (Plan, error) {
	p := Plan(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := byID[p]; !ok {
		return "", fmt.Errorf("unknown plan %q", s)
	}
	return p, nil
}

// Lookup returns the definition for p; unknown identifiers resolve to the free plan.
func Lookup(p Plan) Definition {
	if d, ok := byID[p]; ok {
		return d
	}
	return byID[Free]
}

// QuotaFor returns the monthly proposal limit, or Unlimited.
func QuotaFor(p Plan) int {
	d := Lookup(p)
	if d.Unbounded() {
		return Unlimited
	}
	return d.Limit
}

// Remaining returns how many proposals are left this month, or Unlimited.
func Remaining(p Plan, used int) int {
	q := QuotaFor(p)
	if q == Unlimited {
		return Unlimited
	}
	return max(0, q-used)
}

// CanCreate reports whether another proposal fits in the quota.
func CanCreate(p Plan, used int) bool {
	r := Remaining(p, used)
	return r == Unlimited || r > 0
}

// HasFeature reports whether the plan unlocks f.
func HasFeature(p Plan, f Feature) bool {
	for _, have := range Lookup(p).Features {
		if have == f {
			return true
		}
	}
	return false
}

// Period is the calendar month a usage counter belongs to.
type Period struct {
	Year  int
	Month time.Month
}

// PeriodOf returns the UTC calendar month containing t.
func PeriodOf(t time.Time) Period {
	t = t.UTC()
	return Period{Year: t.Year(), Month: t.Month()}
}

// Before reports whether p is an earlier month than o.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// Advance returns the period for now and whether the counter must reset.
// A marker at or after now is left untouched.
func (p Period) Advance(now time.Time) (Period, bool) {
	cur := PeriodOf(now)
	if p.Before(cur) {
		return cur, true
	}
	return p, false
}
