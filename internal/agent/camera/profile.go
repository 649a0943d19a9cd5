// Package camera drives the still camera: it samples the scene, picks a
// capture profile and takes pictures with the platform capture tool.
package camera

import (
	"fmt"
)

// Profile names.
const (
	NameQuality  = "quality"
	NameLowLight = "lowlight"
	NameMotion   = "motion"
)

// Profile is an immutable bundle of capture parameters. Profiles are compared by Name.
type Profile struct {
	Name    string
	Width   int
	Height  int
	Quality int

	// ShutterMicros fixes the shutter time; 0 leaves it to auto exposure.
	ShutterMicros int

	AutofocusRange string
	AutofocusSpeed string
	ExposureMode   string

	// DenoiseMode is passed to the capture tool when not empty.
	DenoiseMode string
}

var (
	Quality = Profile{
		Name: NameQuality, Width: 4608, Height: 2592, Quality: 100,
		AutofocusRange: "normal", AutofocusSpeed: "fast", ExposureMode: "sport",
	}
	LowLight = Profile{
		Name: NameLowLight, Width: 3072, Height: 1728, Quality: 92, ShutterMicros: 8000,
		AutofocusRange: "normal", AutofocusSpeed: "fast", ExposureMode: "sport",
		DenoiseMode: "cdn_fast",
	}
	Motion = Profile{
		Name: NameMotion, Width: 3072, Height: 1728, Quality: 90, ShutterMicros: 4000,
		AutofocusRange: "full", AutofocusSpeed: "fast", ExposureMode: "sport",
	}
)

// Profiles returns the fixed profile set in display order.
func Profiles() []Profile {
	return []Profile{Quality, LowLight, Motion}
}

// ByName looks a profile up.
func ByName(name string) (Profile, bool) {
	for _, p := range Profiles() {
		if p.Name == name {
			return p, true
		}
	}
	return Profile{}, false
}

// Resolution formats the profile size as WxH.
func (p Profile) Resolution() string {
	return fmt.Sprintf("%dx%d", p.Width, p.Height)
}

// Shutter formats the fixed shutter time, or "auto".
func (p Profile) Shutter() string {
	if p.ShutterMicros == 0 {
		return "auto"
	}
	return fmt.Sprintf("%dus", p.ShutterMicros)
}
