package camera

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuggest(t *testing.T) {
	s := NewSelector(DefaultThresholds())

	tests := []struct {
		name   string
		sample Sample
		want   string
	}{
		{"neutral", NeutralSample(), NameQuality},
		{"bright", Sample{ExposureMicros: 2000, AnalogueGain: 1.5, FPS: 30}, NameQuality},
		{"long exposure", Sample{ExposureMicros: 12000, AnalogueGain: 1.0, FPS: 30}, NameLowLight},
		{"high gain", Sample{ExposureMicros: 100, AnalogueGain: 8.0, FPS: 30}, NameLowLight},
		{"dark wins over slow", Sample{ExposureMicros: 20000, AnalogueGain: 1.0, FPS: 5}, NameLowLight},
		{"slow", Sample{ExposureMicros: 5000, AnalogueGain: 2.0, FPS: 12}, NameMotion},
		{"just above slow", Sample{ExposureMicros: 5000, AnalogueGain: 2.0, FPS: 12.5}, NameQuality},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.Suggest(tt.sample))
		})
	}
}

func activeSequence(s *Selector, h *HysteresisState, suggestions ...string) []string {
	var out []string
	for _, sg := range suggestions {
		p, _ := s.Advance(h, sg)
		out = append(out, p.Name)
	}
	return out
}

func TestAdvanceSingleNoisySampleDoesNotSwitch(t *testing.T) {
	s := NewSelector(DefaultThresholds())
	h := NewHysteresisState(Quality)

	got := activeSequence(s, h, NameLowLight, NameQuality, NameLowLight, NameQuality)
	assert.Equal(t, []string{NameQuality, NameQuality, NameQuality, NameQuality}, got)
}

func TestAdvanceSwitchesOnSecondConsecutiveHit(t *testing.T) {
	s := NewSelector(DefaultThresholds())
	h := NewHysteresisState(Quality)

	p, switched := s.Advance(h, NameMotion)
	assert.Equal(t, NameQuality, p.Name)
	assert.False(t, switched)
	assert.Equal(t, 1, h.Hits)

	p, switched = s.Advance(h, NameMotion)
	assert.Equal(t, NameMotion, p.Name)
	assert.True(t, switched)
	assert.Equal(t, 0, h.Hits)
	assert.Equal(t, Motion, h.Current)
}

func TestAdvanceLowLightThenQuality(t *testing.T) {
	s := NewSelector(DefaultThresholds())
	h := NewHysteresisState(Quality)

	got := activeSequence(s, h, NameLowLight, NameLowLight, NameQuality)
	assert.Equal(t, []string{NameQuality, NameLowLight, NameLowLight}, got)
	assert.Equal(t, NameQuality, h.LastSuggested)
	assert.Equal(t, 1, h.Hits)
}

func TestAdvanceSameAsActiveNeverSwitches(t *testing.T) {
	s := NewSelector(DefaultThresholds())
	h := NewHysteresisState(Quality)

	for range 5 {
		_, switched := s.Advance(h, NameQuality)
		assert.False(t, switched)
	}
	assert.Equal(t, NameQuality, h.Current.Name)
}

func TestAdvanceCustomThreshold(t *testing.T) {
	th := DefaultThresholds()
	th.Hits = 3
	s := NewSelector(th)
	h := NewHysteresisState(Quality)

	got := activeSequence(s, h, NameMotion, NameMotion, NameMotion)
	assert.Equal(t, []string{NameQuality, NameQuality, NameMotion}, got)
}

func TestProfiles(t *testing.T) {
	p, ok := ByName(NameLowLight)
	assert.True(t, ok)
	assert.Equal(t, 8000, p.ShutterMicros)
	assert.Equal(t, "cdn_fast", p.DenoiseMode)
	assert.Equal(t, "3072x1728", p.Resolution())
	assert.Equal(t, "auto", Quality.Shutter())

	_, ok = ByName("night")
	assert.False(t, ok)
	assert.Len(t, Profiles(), 3)
}
