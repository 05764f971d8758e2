package domain

import (
	"fmt"
	"sort"
	"time"
)

// EnvironmentInspection holds the observations recorded for one environment.
type EnvironmentInspection struct {
	EnvironmentID string         `json:"environmentId"`
	Observations  []*Observation `json:"observations"`
}

// InspectionMap is the complete inspection state of one property. Entries
// keep the order in which environments first received an observation.
type InspectionMap []EnvironmentInspection

// Environment returns the observations recorded for envID.
func (m InspectionMap) Environment(envID string) []*Observation {
	for _, e := range m {
		if e.EnvironmentID == envID {
			return e.Observations
		}
	}
	return nil
}

// Add appends obs under its environment, creating the entry on first use.
func (m InspectionMap) Add(obs *Observation) InspectionMap {
	for i := range m {
		if m[i].EnvironmentID == obs.EnvironmentID {
			m[i].Observations = append(m[i].Observations, obs)
			return m
		}
	}
	return append(m, EnvironmentInspection{EnvironmentID: obs.EnvironmentID, Observations: []*Observation{obs}})
}

// Len returns the number of observations across all environments.
func (m InspectionMap) Len() int {
	n := 0
	for _, e := range m {
		n += len(e.Observations)
	}
	return n
}

// Stats are severity counts over an inspection.
type Stats struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Minor    int `json:"minor"`
	Major    int `json:"major"`
	Critical int `json:"critical"`
}

// Count tallies every observation in m. Statuses are normalized, so the
// per-severity counts always sum to Total.
func (m InspectionMap) Count() Stats {
	var s Stats
	for _, e := range m {
		for _, obs := range e.Observations {
			s.Add(obs.Status)
		}
	}
	return s
}

func (s *Stats) Add(sev Severity) {
	s.Total++
	switch NormalizeSeverity(string(sev)) {
	case SeverityMinor:
		s.Minor++
	case SeverityMajor:
		s.Major++
	case SeverityCritical:
		s.Critical++
	default:
		s.OK++
	}
}

// OKPercent is the rounded share of approved items, 0 when empty.
func (s Stats) OKPercent() int {
	if s.Total == 0 {
		return 0
	}
	return int(float64(s.OK)/float64(s.Total)*100 + 0.5)
}

// SortNewestFirst orders observations by creation time, newest first. Equal
// timestamps fall back to the key so the order is stable.
func SortNewestFirst(obs []*Observation) {
	sort.SliceStable(obs, func(i, j int) bool {
		if !obs[i].CreatedAt.Equal(obs[j].CreatedAt) {
			return obs[i].CreatedAt.After(obs[j].CreatedAt)
		}
		return obs[i].Key > obs[j].Key
	})
}

// ObservationKey builds the per-environment key of an observation created
// at t for the given category.
func ObservationKey(categoryID string, t time.Time) string {
	return fmt.Sprintf("%s-%d", categoryID, t.UnixMilli())
}
