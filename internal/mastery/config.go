package mastery

import "fmt"

// Level bounds.
const (
	MinLevel = 1
	MaxLevel = 5
)

// CounterMode selects which answer count gates a promotion.
type CounterMode string

const (
	// CounterStreak counts answers recorded since the last level change.
	CounterStreak CounterMode = "streak"
	// CounterLifetime counts every answer recorded for the document.
	CounterLifetime CounterMode = "lifetime"
)

// fallbackConsistency applies to levels missing from the table.
const fallbackConsistency = 3

// Config holds the level transition thresholds.
type Config struct {
	LevelUpThreshold   float64 `yaml:"level_up_threshold"`
	LevelDownThreshold float64 `yaml:"level_down_threshold"`
	CorrectThreshold   float64 `yaml:"correct_threshold"`
	// RequiredConsistency is the number of answers needed at a level before
	// a promotion out of it.
	RequiredConsistency map[int]int `yaml:"required_consistency"`
	ConsistencyCounter  CounterMode `yaml:"consistency_counter"`
}

func DefaultConfig() Config {
	return Config{
		LevelUpThreshold:    8.0,
		LevelDownThreshold:  5.0,
		CorrectThreshold:    7.0,
		RequiredConsistency: map[int]int{1: 1, 2: 2, 3: 3, 4: 3, 5: 5},
		ConsistencyCounter:  CounterStreak,
	}
}

// Validate checks thresholds and the counter mode.
func (c Config) Validate() error {
	for name, v := range map[string]float64{
		"level_up_threshold":   c.LevelUpThreshold,
		"level_down_threshold": c.LevelDownThreshold,
		"correct_threshold":    c.CorrectThreshold,
	} {
		if v < 0 || v > 10 {
			return fmt.Errorf("%s %v outside [0, 10]", name, v)
		}
	}
	if c.LevelDownThreshold > c.LevelUpThreshold {
		return fmt.Errorf("level_down_threshold %v exceeds level_up_threshold %v", c.LevelDownThreshold, c.LevelUpThreshold)
	}
	for level, n := range c.RequiredConsistency {
		if level < MinLevel || level > MaxLevel {
			return fmt.Errorf("required_consistency has unknown level %d", level)
		}
		if n < 0 {
			return fmt.Errorf("required_consistency for level %d is negative", level)
		}
	}
	switch c.ConsistencyCounter {
	case CounterStreak, CounterLifetime:
	default:
		return fmt.Errorf("unknown consistency_counter %q", c.ConsistencyCounter)
	}
	return nil
}
