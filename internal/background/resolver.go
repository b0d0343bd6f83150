// Package background selects the lock-screen background image and dim level
// for the current time of day.
package background

import (
	"github.com/dyluth/vigil/internal/config"
	"github.com/spf13/afero"
)

// Period is a slice of the day with its own background.
type Period string

const (
	PeriodMorning Period = "morning" // [06:00, 12:00)
	PeriodDay     Period = "day"     // [12:00, 18:00)
	PeriodEvening Period = "evening" // [18:00, 22:00)
	PeriodNight   Period = "night"   // everything else
)

// Fixed dim levels per period. They apply only when the period's image is used.
var periodDim = map[Period]float64{
	PeriodMorning: 0.25,
	PeriodDay:     0.35,
	PeriodEvening: 0.45,
	PeriodNight:   0.60,
}

// Selection is the resolved background.
type Selection struct {
	Path   string
	Dim    float64
	Period Period // empty when the static background was chosen
}

// PeriodForHour maps a local hour (0-23) to its period.
func PeriodForHour(hour int) Period {
	switch {
	case hour >= 6 && hour < 12:
		return PeriodMorning
	case hour >= 12 && hour < 18:
		return PeriodDay
	case hour >= 18 && hour < 22:
		return PeriodEvening
	default:
		return PeriodNight
	}
}

// Resolve picks the background for the given local hour.
//
// With time-of-day backgrounds disabled, or when the period's image is unset
// or missing from fs, the static background and its configured dim level are
// returned.
func Resolve(cfg *config.Config, hour int, fs afero.Fs) Selection {
	static := Selection{Path: cfg.BackgroundImage, Dim: cfg.DimLevel}
	if !cfg.TODEnabled {
		return static
	}

	period := PeriodForHour(hour)
	path := imageFor(cfg, period)
	if path == "" {
		return static
	}

	if ok, err := afero.Exists(fs, path); err != nil || !ok {
		return static
	}

	return Selection{Path: path, Dim: periodDim[period], Period: period}
}

func imageFor(cfg *config.Config, p Period) string {
	switch p {
	case PeriodMorning:
		return cfg.TODMorningImage
	case PeriodDay:
		return cfg.TODDayImage
	case PeriodEvening:
		return cfg.TODEveningImage
	default:
		return cfg.TODNightImage
	}
}
