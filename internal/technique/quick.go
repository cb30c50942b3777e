package technique

import (
	"fmt"
	"strconv"
	"strings"
)

// QuickPreset is a parsed quick-start string of the form
//
//	in,hold1,out,hold2,minutes,bpm,tts,ambient,volume,motion,focus
//
// Blank or missing fields are nil/empty and mean "keep the current value".
type QuickPreset struct {
	In, Hold1, Out, Hold2 *float64
	Minutes               *int
	BPM                   *int
	TTS                   *bool
	Ambient               string
	Volume                *float64
	Motion                string
	Focus                 *bool
}

// ParseQuickPreset parses a quick-start string. Unknown trailing fields are ignored.
func ParseQuickPreset(s string) (QuickPreset, error) {
	var q QuickPreset
	parts := strings.Split(s, ",")
	field := func(i int) string {
		if i >= len(parts) {
			return ""
		}
		return strings.TrimSpace(parts[i])
	}

	durations := []**float64{&q.In, &q.Hold1, &q.Out, &q.Hold2}
	for i, dst := range durations {
		v, err := optFloat(field(i))
		if err != nil {
			return QuickPreset{}, fmt.Errorf("quick preset field %d: %w", i+1, err)
		}
		*dst = v
	}

	var err error
	if q.Minutes, err = optInt(field(4)); err != nil {
		return QuickPreset{}, fmt.Errorf("quick preset minutes: %w", err)
	}
	if q.BPM, err = optInt(field(5)); err != nil {
		return QuickPreset{}, fmt.Errorf("quick preset bpm: %w", err)
	}
	if q.TTS, err = optSwitch(field(6)); err != nil {
		return QuickPreset{}, fmt.Errorf("quick preset tts: %w", err)
	}
	q.Ambient = strings.ToLower(field(7))
	if q.Volume, err = optFloat(field(8)); err != nil {
		return QuickPreset{}, fmt.Errorf("quick preset volume: %w", err)
	}
	q.Motion = strings.ToLower(field(9))
	if q.Focus, err = optSwitch(field(10)); err != nil {
		return QuickPreset{}, fmt.Errorf("quick preset focus: %w", err)
	}
	return q, nil
}

// HasDurations reports whether any phase length was given.
func (q QuickPreset) HasDurations() bool {
	return q.In != nil || q.Hold1 != nil || q.Out != nil || q.Hold2 != nil
}

// ApplyTo overlays the preset's phase lengths on t and returns the result.
func (q QuickPreset) ApplyTo(t Technique) Technique {
	in, h1, out, h2 := t.Durations()
	pick := func(v *float64, cur float64) float64 {
		if v == nil {
			return cur
		}
		return *v
	}
	id := t.ID
	if id == "" {
		id = "custom"
	}
	next := FromDurations(id, pick(q.In, in), pick(q.Hold1, h1), pick(q.Out, out), pick(q.Hold2, h2))
	next.Name = t.Name
	next.Description = t.Description
	next.TimeBox = t.TimeBox
	return next
}

func optFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func optSwitch(s string) (*bool, error) {
	switch strings.ToLower(s) {
	case "":
		return nil, nil
	case "on", "true", "1", "yes":
		v := true
		return &v, nil
	case "off", "false", "0", "no":
		v := false
		return &v, nil
	}
	return nil, fmt.Errorf("invalid switch %q", s)
}
