package greenhouse

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSoil(seed int64) *Soil {
	return NewSoil(rand.New(rand.NewSource(seed)), DefaultSoil())
}

func TestSoil_UpdateState(t *testing.T) {
	s := newTestSoil(1)
	s.UpdateState()
	st := s.State()

	assert.InDelta(t, 6.4, st.PH, 1e-9)
	assert.GreaterOrEqual(t, st.Moisture, 47.5)
	assert.LessOrEqual(t, st.Moisture, 48.0)
	assert.InDelta(t, 17.0, st.Nitrogen, 1e-9)
}

func TestSoil_WaterSoil(t *testing.T) {
	s := newTestSoil(2)
	s.WaterSoil(10)
	st := s.State()

	assert.InDelta(t, 60.0, st.Moisture, 1e-9)
	assert.GreaterOrEqual(t, st.Nitrogen, 17.0)
	assert.Less(t, st.Nitrogen, 20.0)
}

func TestSoil_FertilizeAcidifies(t *testing.T) {
	s := newTestSoil(3)
	s.Fertilize(10)
	st := s.State()

	assert.InDelta(t, 30.0, st.Nitrogen, 1e-9)
	assert.InDelta(t, 6.7, st.PH, 1e-9)
}

func TestSoil_LimeRaisesPH(t *testing.T) {
	s := newTestSoil(4)
	s.Lime()
	assert.InDelta(t, 7.5, s.State().PH, 1e-9)

	s.Restore(SoilState{Moisture: 50, PH: 13.9, Nitrogen: 0})
	s.Lime()
	assert.Equal(t, 14.0, s.State().PH)
}

func TestSoil_Bounds(t *testing.T) {
	s := newTestSoil(5)
	r := rand.New(rand.NewSource(5))
	for i := 0; i < 3000; i++ {
		switch r.Intn(5) {
		case 0:
			s.WaterSoil(r.Float64() * 80)
		case 1:
			s.Fertilize(r.Float64() * 40)
		case 2:
			s.Lime()
		default:
			s.UpdateState()
		}
		st := s.State()
		require.GreaterOrEqual(t, st.Moisture, 0.0)
		require.LessOrEqual(t, st.Moisture, 100.0)
		require.GreaterOrEqual(t, st.PH, 0.0)
		require.LessOrEqual(t, st.PH, 14.0)
		require.GreaterOrEqual(t, st.Nitrogen, 0.0)
	}
}

func TestSoil_RestoreClamps(t *testing.T) {
	s := newTestSoil(6)
	s.Restore(SoilState{Moisture: 140, PH: -2, Nitrogen: -5})

	assert.Equal(t, SoilState{Moisture: 100, PH: 0, Nitrogen: 0}, s.State())
}

func TestSoil_EachMutationNotifiesOnce(t *testing.T) {
	s := newTestSoil(7)
	calls := 0
	s.Attach(func(SoilState) { calls++ })
	require.Equal(t, 1, calls)

	s.UpdateState()
	s.WaterSoil(5)
	s.Fertilize(5)
	s.Lime()
	assert.Equal(t, 5, calls)
}
