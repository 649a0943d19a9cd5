package camera

// Thresholds drive profile suggestions.
type Thresholds struct {
	DarkExposureMicros float64
	DarkGain           float64
	SlowFPS            float64

	// Hits is the number of consecutive identical suggestions needed to switch.
	Hits int
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		DarkExposureMicros: 12000,
		DarkGain:           8.0,
		SlowFPS:            12.0,
		Hits:               2,
	}
}

// HysteresisState is owned by the streaming loop; it has no concurrent writers.
type HysteresisState struct {
	LastSuggested string
	Hits          int
	Current       Profile
}

// NewHysteresisState starts from the given active profile with no history.
func NewHysteresisState(initial Profile) *HysteresisState {
	return &HysteresisState{Current: initial}
}

// Selector maps samples to profiles.
type Selector struct {
	th Thresholds
}

func NewSelector(th Thresholds) *Selector {
	if th.Hits < 1 {
		th.Hits = 1
	}
	return &Selector{th: th}
}

// Suggest is pure: dark scenes get lowlight, slow frame rates get motion,
// everything else gets quality. A zero frame rate means "unknown".
func (s *Selector) Suggest(sample Sample) string {
	if sample.ExposureMicros >= s.th.DarkExposureMicros || sample.AnalogueGain >= s.th.DarkGain {
		return NameLowLight
	}
	if sample.FPS != 0 && sample.FPS <= s.th.SlowFPS {
		return NameMotion
	}
	return NameQuality
}

// Advance feeds one suggestion into h and returns the active profile. The
// active profile only changes once the same differing suggestion was seen
// Hits times in a row; the counter is then reset to 0.
func (s *Selector) Advance(h *HysteresisState, suggestion string) (Profile, bool) {
	if suggestion == h.LastSuggested {
		h.Hits++
	} else {
		h.LastSuggested = suggestion
		h.Hits = 1
	}

	if suggestion == h.Current.Name || h.Hits < s.th.Hits {
		return h.Current, false
	}

	next, ok := ByName(suggestion)
	if !ok {
		return h.Current, false
	}
	h.Current = next
	h.Hits = 0
	return h.Current, true
}
