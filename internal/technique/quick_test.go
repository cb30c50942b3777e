package technique

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseQuickPreset_Full(t *testing.T) {
	q, err := ParseQuickPreset("4,7,8,0,5,6,on,rain,0.3,off,on")
	require.NoError(t, err)

	require.NotNil(t, q.In)
	assert.Equal(t, 4.0, *q.In)
	assert.Equal(t, 0.0, *q.Hold2)
	assert.Equal(t, 5, *q.Minutes)
	assert.Equal(t, 6, *q.BPM)
	assert.True(t, *q.TTS)
	assert.Equal(t, "rain", q.Ambient)
	assert.Equal(t, 0.3, *q.Volume)
	assert.Equal(t, "off", q.Motion)
	assert.True(t, *q.Focus)
}

func TestParseQuickPreset_BlankFieldsKeepCurrent(t *testing.T) {
	q, err := ParseQuickPreset(",,6")
	require.NoError(t, err)
	assert.Nil(t, q.In)
	assert.Nil(t, q.Minutes)
	assert.Nil(t, q.TTS)
	assert.True(t, q.HasDurations())

	next := q.ApplyTo(FromDurations("box", 4, 4, 4, 4))
	in, h1, out, h2 := next.Durations()
	assert.Equal(t, []float64{4, 4, 6, 4}, []float64{in, h1, out, h2})
	assert.Equal(t, "box", next.ID)
}

func TestParseQuickPreset_Errors(t *testing.T) {
	_, err := ParseQuickPreset("x")
	assert.Error(t, err)
	_, err = ParseQuickPreset("4,4,4,4,1,6,maybe")
	assert.Error(t, err)
}

func TestQuickPreset_ApplyToKeepsTimeBox(t *testing.T) {
	base, err := Lookup("sos60")
	require.NoError(t, err)
	q, err := ParseQuickPreset("5")
	require.NoError(t, err)

	next := q.ApplyTo(base)
	assert.Equal(t, 60*time.Second, next.TimeBox)
	assert.Equal(t, 5*time.Second, next.Phases[0].Duration)
}
