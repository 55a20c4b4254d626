package release

import (
	"fmt"
	"math"
)

// UnlimitedTrains makes a pattern repeat forever.
const UnlimitedTrains = -1

// Pattern is the train/pulse timing of a release site. All times are in
// iterations.
//
// A pattern fires releases_per_train times per train, release_interval
// apart, and starts a new train every train_interval.
type Pattern struct {
	Delay           float64
	NumberOfTrains  int
	TrainInterval   float64
	TrainDuration   float64
	ReleaseInterval float64
}

// SingleRelease is the pattern of a site without an explicit pattern: one
// release at iteration 0.
func SingleRelease() Pattern {
	return Pattern{NumberOfTrains: 1, ReleaseInterval: 1}
}

// Unlimited reports whether the pattern repeats forever.
func (p Pattern) Unlimited() bool { return p.NumberOfTrains == UnlimitedTrains }

// ReleasesPerTrain returns ceil(train_duration / release_interval), at least 1.
func (p Pattern) ReleasesPerTrain() int {
	if p.ReleaseInterval <= 0 {
		return 1
	}
	n := int(math.Ceil(p.TrainDuration / p.ReleaseInterval))
	if n < 1 {
		return 1
	}
	return n
}

// TotalReleases returns trains × releases_per_train, or -1 when unlimited.
func (p Pattern) TotalReleases() int {
	if p.Unlimited() {
		return -1
	}
	return p.NumberOfTrains * p.ReleasesPerTrain()
}

// Validate checks the pattern can only produce non-decreasing times.
func (p Pattern) Validate() error {
	if p.ReleaseInterval <= 0 {
		return fmt.Errorf("release_interval must be positive, got %g", p.ReleaseInterval)
	}
	if p.Delay < 0 {
		return fmt.Errorf("delay must not be negative, got %g", p.Delay)
	}
	if p.TrainDuration < 0 {
		return fmt.Errorf("train_duration must not be negative, got %g", p.TrainDuration)
	}
	if p.NumberOfTrains < 0 && !p.Unlimited() {
		return fmt.Errorf("number_of_trains must be non-negative or unlimited, got %d", p.NumberOfTrains)
	}
	if p.NumberOfTrains != 1 && p.TrainInterval < p.TrainDuration {
		return fmt.Errorf("train_interval %g is shorter than train_duration %g", p.TrainInterval, p.TrainDuration)
	}
	return nil
}

// patternState is the position of a release event within its pattern.
type patternState struct {
	currentTrain          int
	currentReleaseInTrain int
	actualReleaseTime     float64
}

// advance computes the next firing time and steps the counters. It returns
// false once the last train is done.
func (s *patternState) advance(p Pattern) (eventTime float64, ok bool) {
	if !p.Unlimited() && s.currentTrain >= p.NumberOfTrains {
		return 0, false
	}
	s.actualReleaseTime = p.Delay +
		float64(s.currentTrain)*p.TrainInterval +
		float64(s.currentReleaseInTrain)*p.ReleaseInterval

	s.currentReleaseInTrain++
	if s.currentReleaseInTrain >= p.ReleasesPerTrain() {
		s.currentReleaseInTrain = 0
		s.currentTrain++
	}
	return math.Floor(s.actualReleaseTime), true
}
