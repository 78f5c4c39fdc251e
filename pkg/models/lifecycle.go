package models

import (
	"errors"
	"fmt"
	"time"
)

// TransitionRule moves objects to a cheaper storage tier after AfterDays.
type TransitionRule struct {
	AfterDays  int    `json:"after_days" mapstructure:"after_days"`
	TargetTier string `json:"target_tier" mapstructure:"target_tier"`
}

// LifecyclePolicy describes age-based tier transitions and final
// deletion for a storage container. Transitions must be strictly
// increasing in AfterDays and all precede ExpireAfterDays.
type LifecyclePolicy struct {
	TransitionRules []TransitionRule `json:"transition_rules" mapstructure:"transition_rules"`
	ExpireAfterDays int              `json:"expire_after_days" mapstructure:"expire_after_days"`
}

func (p *LifecyclePolicy) Validate() error {
	if p.ExpireAfterDays <= 0 {
		return errors.New("lifecycle expire_after_days must be positive")
	}

	prev := 0
	for i, rule := range p.TransitionRules {
		if rule.AfterDays <= prev && i > 0 {
			return fmt.Errorf("lifecycle transition %d: after_days must be strictly increasing", i)
		}
		if rule.AfterDays <= 0 {
			return fmt.Errorf("lifecycle transition %d: after_days must be positive", i)
		}
		if rule.AfterDays >= p.ExpireAfterDays {
			return fmt.Errorf("lifecycle transition %d: after_days must be before expiration", i)
		}
		prev = rule.AfterDays
	}
	return nil
}

// DaysUntilExpiration is the remaining retention for an object of the
// given age. Zero or negative means the object is already past its
// scheduled deletion.
func (p *LifecyclePolicy) DaysUntilExpiration(ageDays int) int {
	return p.ExpireAfterDays - ageDays
}

// CatalogObject is a snapshot of one stored object from a catalog scan.
// It has no identity beyond its key; age and size are recomputed on
// every scan.
type CatalogObject struct {
	Key          string    `json:"key"`
	AgeDays      int       `json:"age_days"`
	SizeBytes    int64     `json:"size_bytes"`
	LastModified time.Time `json:"last_modified"`
}

// ExpirationWarningRecord marks that a warning was already emitted for
// an object within its current expiration epoch. The epoch key changes
// when the object's age resets (overwrite), permitting a fresh warning.
type ExpirationWarningRecord struct {
	Key      string    `json:"key"`
	Epoch    string    `json:"epoch"`
	WarnedAt time.Time `json:"warned_at"`
}

// ExpirationWarning is one emitted pre-deletion alert.
type ExpirationWarning struct {
	Key             string    `json:"key"`
	DaysUntilExpiry int       `json:"days_until_expiry"`
	DeletionDate    time.Time `json:"deletion_date"`
	Message         string    `json:"message"`
}

// ExpirationAnomaly reports an object that is already past its
// expiration but still present, which points at policy or clock drift.
type ExpirationAnomaly struct {
	Key             string `json:"key"`
	DaysPastExpiry  int    `json:"days_past_expiry"`
	AgeDays         int    `json:"age_days"`
	ExpireAfterDays int    `json:"expire_after_days"`
}
