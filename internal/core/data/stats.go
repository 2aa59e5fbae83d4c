package data

import (
	"errors"

	"gorm.io/gorm"
)

// Mode is one of the four in-game modes.
type Mode uint8

const (
	ModeStandard Mode = iota
	ModeTaiko
	ModeCatch
	ModeMania
)

var modeNames = [...]string{"standard", "taiko", "catch", "mania"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// CustomMode is a server side play style layered over a Mode.
type CustomMode uint8

const (
	CustomModeVanilla CustomMode = iota
	CustomModeRelax
	CustomModeAutopilot
)

var customModePrefixes = [...]string{"VN", "RX", "AP"}

// Prefix returns the two letter code shown in front of a status text.
func (c CustomMode) Prefix() string {
	if int(c) < len(customModePrefixes) {
		return customModePrefixes[c]
	}
	return "??"
}

// Supports reports whether the custom mode can be played in mode.
func (c CustomMode) Supports(mode Mode) bool {
	switch c {
	case CustomModeVanilla:
		return mode <= ModeMania
	case CustomModeRelax:
		return mode <= ModeCatch
	case CustomModeAutopilot:
		return mode == ModeStandard
	}
	return false
}

// ModeStats holds an account's statistics for one mode and custom mode pair.
type ModeStats struct {
	ID          uint64     `gorm:"primaryKey"`
	AccountID   uint64     `gorm:"not null; uniqueIndex:idx_mode_stats"`
	Mode        Mode       `gorm:"not null; uniqueIndex:idx_mode_stats"`
	CustomMode  CustomMode `gorm:"not null; uniqueIndex:idx_mode_stats"`
	TotalScore  int64
	RankedScore int64
	PP          float32
	PlayCount   int32
	PlayTime    int64
	Accuracy    float32
	MaxCombo    int32
	Rank        int32
}

// NewModeStats returns zeroed statistics for every supported mode combination.
func NewModeStats(accountID uint64) []ModeStats {
	var stats []ModeStats
	for c := CustomModeVanilla; c <= CustomModeAutopilot; c++ {
		for m := ModeStandard; m <= ModeMania; m++ {
			if c.Supports(m) {
				stats = append(stats, ModeStats{AccountID: accountID, Mode: m, CustomMode: c})
			}
		}
	}
	return stats
}

// FindModeStats returns the statistics of an account for a single mode
// combination, or nil if there are none.
func FindModeStats(db *gorm.DB, accountID uint64, mode Mode, custom CustomMode) (*ModeStats, error) {
	var stats ModeStats
	err := db.Where("account_id = ? AND mode = ? AND custom_mode = ?", accountID, mode, custom).
		First(&stats).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	return &stats, nil
}

// FindAllModeStats returns every statistics row belonging to an account.
func FindAllModeStats(db *gorm.DB, accountID uint64) ([]ModeStats, error) {
	var stats []ModeStats
	if err := db.Where("account_id = ?", accountID).Order("custom_mode, mode").Find(&stats).Error; err != nil {
		return nil, err
	}
	return stats, nil
}
