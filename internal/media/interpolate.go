package media

import "time"

// Interpolate extrapolates the displayed playback position at now.
//
// While playing, the position advances with elapsed wall time since the
// snapshot was fetched and is clamped to the track length. Paused and stopped
// players show the polled position. ok is false when the track length is
// unknown, in which case no progress should be displayed.
func Interpolate(s *Snapshot, now time.Time) (positionUS int64, ok bool) {
	if s == nil || s.LengthUS <= 0 {
		return 0, false
	}

	pos := s.PositionUS
	if s.Playing() {
		elapsed := now.Sub(s.FetchedAt)
		if elapsed > 0 {
			pos += elapsed.Microseconds()
		}
	}

	if pos > s.LengthUS {
		pos = s.LengthUS
	}
	if pos < 0 {
		pos = 0
	}
	return pos, true
}

// Fraction returns position/length in [0, 1].
func Fraction(positionUS, lengthUS int64) float64 {
	if lengthUS <= 0 {
		return 0
	}
	f := float64(positionUS) / float64(lengthUS)
	if f > 1 {
		return 1
	}
	if f < 0 {
		return 0
	}
	return f
}
