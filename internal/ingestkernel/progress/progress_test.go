package progress

import (
	"testing"

	"brag/internal/ingestkernel"

	"github.com/stretchr/testify/require"
)

func TestAddPhase_TracksTotalAndIncrement(t *testing.T) {
	m := NewManager()
	m.CreateState("src-a", nil, nil)
	m.AddPhase("src-a", ingestkernel.PhaseInitialization, 1)
	m.AddPhase("src-a", ingestkernel.PhaseEmbedding, 10)

	m.IncrementPhaseProgress("src-a", ingestkernel.PhaseEmbedding, 3)
	m.IncrementPhaseProgress("src-a", ingestkernel.PhaseEmbedding, 4)

	require.InDelta(t, 70.0, m.GetPhasePercentage("src-a", ingestkernel.PhaseEmbedding), 0.001)
}

func TestGetPhasePercentage_UndefinedUntilTotalSet(t *testing.T) {
	m := NewManager()
	m.CreateState("src-a", nil, nil)
	m.AddPhase("src-a", ingestkernel.PhaseDownloading, 0)
	require.Equal(t, -1.0, m.GetPhasePercentage("src-a", ingestkernel.PhaseDownloading))

	require.Equal(t, -1.0, m.GetPhasePercentage("missing-source", ingestkernel.PhaseDownloading))
}

func TestMarkCompleted_FiresSuccessExactlyOnce(t *testing.T) {
	m := NewManager()
	var successes, failures int
	m.CreateState("src-a", func() { successes++ }, func() { failures++ })
	m.AddPhase("src-a", ingestkernel.PhaseInitialization, 1)

	m.MarkCompleted("src-a")
	m.MarkCompleted("src-a") // second call must be a no-op: state already removed
	m.MarkFailed("src-a")    // likewise

	require.Equal(t, 1, successes)
	require.Equal(t, 0, failures)
	require.Nil(t, m.GetState("src-a"))
}

func TestMarkFailed_FiresFailureExactlyOnce(t *testing.T) {
	m := NewManager()
	var successes, failures int
	m.CreateState("src-b", func() { successes++ }, func() { failures++ })

	m.MarkFailed("src-b")
	m.MarkFailed("src-b")

	require.Equal(t, 0, successes)
	require.Equal(t, 1, failures)
	require.Nil(t, m.GetState("src-b"))
}

func TestRemoveSourceState_NoCallback(t *testing.T) {
	m := NewManager()
	var called bool
	m.CreateState("src-c", func() { called = true }, func() { called = true })
	m.RemoveSourceState("src-c")
	require.Nil(t, m.GetState("src-c"))
	require.False(t, called)

	// Marking after removal is a safe no-op.
	m.MarkCompleted("src-c")
	require.False(t, called)
}

func TestCurrentPhase_TracksMostRecentlyTouched(t *testing.T) {
	m := NewManager()
	m.CreateState("src-d", nil, nil)
	m.AddPhase("src-d", ingestkernel.PhaseInitialization, 1)
	m.AddPhase("src-d", ingestkernel.PhaseDownloading, 1)
	s := m.GetState("src-d")
	require.Equal(t, ingestkernel.PhaseDownloading, s.CurrentPhase())
}

func TestToDict_SnapshotsAllPhases(t *testing.T) {
	m := NewManager()
	m.CreateState("src-e", nil, nil)
	m.AddPhase("src-e", ingestkernel.PhaseInitialization, 1)
	m.IncrementPhaseProgress("src-e", ingestkernel.PhaseInitialization, 1)

	s := m.GetState("src-e")
	d := s.ToDict()
	require.Equal(t, string(ingestkernel.PhaseInitialization), d["current_phase"])
	phases := d["phases"].(map[string]any)
	initPhase := phases[string(ingestkernel.PhaseInitialization)].(map[string]any)
	require.Equal(t, 1, initPhase["current"])
	require.Equal(t, 1, initPhase["total"])
	require.InDelta(t, 100.0, initPhase["percentage"].(float64), 0.001)
}
