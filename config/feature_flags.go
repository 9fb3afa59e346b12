package config

import (
	"hash/fnv"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// FeatureFlags toggles optional behaviour of the practice server. A flag
// can be rolled out to a share of learners, picked by a hash of their id.
type FeatureFlags struct {
	mu       sync.RWMutex
	features map[string]*Feature

	// learner id -> feature -> enabled
	overrides map[string]map[string]bool
}

// Feature represents a single feature flag.
type Feature struct {
	Name        string
	Description string
	Enabled     bool

	// RolloutPercent (0-100) applies when Enabled is true.
	RolloutPercent int
}

// Predefined feature flag names.
const (
	FeatureOpenRegistration = "learners.open_registration" // POST /register accepts new learners
	FeatureDealCache        = "practice.deal_cache"        // read deals through Redis
	FeatureDistributedLock  = "practice.distributed_lock"  // serialise next-exercise through Redis
	FeatureRepairFollowUps  = "scheduler.repair_followups" // background follow-up repair job
	FeatureConflictReview   = "practice.conflict_review"   // GET /exercises/conflict
)

// LoadFeatureFlags creates the default flag set and applies FEATURE_*
// environment overrides.
func LoadFeatureFlags() *FeatureFlags {
	ff := &FeatureFlags{
		features:  make(map[string]*Feature),
		overrides: make(map[string]map[string]bool),
	}
	ff.initializeDefaults()
	ff.loadFromEnvironment()
	return ff
}

func (ff *FeatureFlags) initializeDefaults() {
	defaults := []*Feature{
		{Name: FeatureOpenRegistration, Description: "Allow anyone to register", Enabled: true, RolloutPercent: 100},
		{Name: FeatureDealCache, Description: "Cache deals in Redis", Enabled: true, RolloutPercent: 100},
		{Name: FeatureDistributedLock, Description: "Lock next-exercise selection in Redis", Enabled: true, RolloutPercent: 100},
		{Name: FeatureRepairFollowUps, Description: "Recreate missing follow-up exercises", Enabled: true, RolloutPercent: 100},
		{Name: FeatureConflictReview, Description: "Offer exercises with disagreeing calls", Enabled: true, RolloutPercent: 100},
	}
	for _, f := range defaults {
		ff.features[f.Name] = f
	}
}

// loadFromEnvironment reads FEATURE_<NAME>=true|false and
// FEATURE_<NAME>_ROLLOUT=<percent>.
func (ff *FeatureFlags) loadFromEnvironment() {
	for name, f := range ff.features {
		key := featureNameToEnvKey(name)
		if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
			f.Enabled = v
		}
		if p, err := strconv.Atoi(os.Getenv(key + "_ROLLOUT")); err == nil && p >= 0 && p <= 100 {
			f.RolloutPercent = p
		}
	}
}

// featureNameToEnvKey maps "practice.deal_cache" to "FEATURE_PRACTICE_DEAL_CACHE".
func featureNameToEnvKey(name string) string {
	return "FEATURE_" + strings.ToUpper(strings.ReplaceAll(name, ".", "_"))
}

// IsEnabled reports whether the feature is globally on (100% rollout).
// Unknown features are off.
func (ff *FeatureFlags) IsEnabled(name string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	f, ok := ff.features[name]
	return ok && f.Enabled && f.RolloutPercent >= 100
}

// IsEnabledFor reports whether the feature is on for the learner.
func (ff *FeatureFlags) IsEnabledFor(name, learnerID string) bool {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	if byFeature, ok := ff.overrides[learnerID]; ok {
		if enabled, ok := byFeature[name]; ok {
			return enabled
		}
	}

	f, ok := ff.features[name]
	if !ok || !f.Enabled {
		return false
	}
	return inRollout(learnerID, name, f.RolloutPercent)
}

// inRollout deterministically assigns a learner to a bucket 0-99.
func inRollout(learnerID, name string, percent int) bool {
	if percent >= 100 {
		return true
	}
	if percent <= 0 {
		return false
	}
	h := fnv.New32a()
	_, _ = h.Write([]byte(learnerID + ":" + name))
	return int(h.Sum32()%100) < percent
}

// SetOverride forces a feature on or off for one learner.
func (ff *FeatureFlags) SetOverride(learnerID, name string, enabled bool) {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	if ff.overrides[learnerID] == nil {
		ff.overrides[learnerID] = make(map[string]bool)
	}
	ff.overrides[learnerID][name] = enabled
}

// SetEnabled switches a feature globally.
func (ff *FeatureFlags) SetEnabled(name string, enabled bool) error {
	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[name]
	if !ok {
		return &FeatureFlagError{Feature: name, Message: "unknown feature"}
	}
	f.Enabled = enabled
	return nil
}

// SetRolloutPercent sets the share of learners that see the feature.
func (ff *FeatureFlags) SetRolloutPercent(name string, percent int) error {
	if percent < 0 || percent > 100 {
		return &FeatureFlagError{Feature: name, Message: "rollout percent must be 0-100"}
	}

	ff.mu.Lock()
	defer ff.mu.Unlock()

	f, ok := ff.features[name]
	if !ok {
		return &FeatureFlagError{Feature: name, Message: "unknown feature"}
	}
	f.RolloutPercent = percent
	return nil
}

// Names returns the known feature names, sorted.
func (ff *FeatureFlags) Names() []string {
	ff.mu.RLock()
	defer ff.mu.RUnlock()

	names := make([]string, 0, len(ff.features))
	for name := range ff.features {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FeatureFlagError is returned for invalid flag operations.
type FeatureFlagError struct {
	Feature string
	Message string
}

func (e *FeatureFlagError) Error() string {
	return "feature flag " + e.Feature + ": " + e.Message
}
