package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecorder_HandsOffSummary(t *testing.T) {
	st := &fakeStore{}
	totals, err := NewRecorder(st).Record(context.Background(), Summary{
		RunID: "r1", TechniqueID: "478", Total: 57 * time.Second, Cycles: 3,
	})
	require.NoError(t, err)
	assert.Equal(t, []storeCall{{"478", 57, 3}}, st.calls)
	assert.Equal(t, 3, totals.TotalBreaths)
}

func TestRecorder_NoStore(t *testing.T) {
	_, err := NewRecorder(nil).Record(context.Background(), Summary{})
	assert.ErrorIs(t, err, ErrNoStore)

	var r *Recorder
	_, err = r.Record(context.Background(), Summary{})
	assert.ErrorIs(t, err, ErrNoStore)
}

func TestRecorder_StoreError(t *testing.T) {
	_, err := NewRecorder(&fakeStore{err: errStoreDown}).Record(context.Background(), Summary{})
	assert.ErrorIs(t, err, errStoreDown)
}
