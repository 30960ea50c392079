package splitter_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skx/nexus-compiler/diagnostics"
	"github.com/skx/nexus-compiler/splitter"
)

func TestSplitSingleProgram(t *testing.T) {
	sink := diagnostics.New()
	programs, err := splitter.Split("{print(1)}$", sink)
	require.NoError(t, err)
	require.Len(t, programs, 1)
	require.Equal(t, 1, programs[0].Number)
	require.Equal(t, "{print(1)}$", programs[0].Source)
}

func TestSplitMultiplePrograms(t *testing.T) {
	sink := diagnostics.New()
	programs, err := splitter.Split("{}$ {}$", sink)
	require.NoError(t, err)
	require.Len(t, programs, 2)
	require.Equal(t, 1, programs[0].Number)
	require.Equal(t, 2, programs[1].Number)
}

func TestDollarInsideStringDoesNotSplit(t *testing.T) {
	sink := diagnostics.New()
	programs, err := splitter.Split(`{print("a$b")}$`, sink)
	require.NoError(t, err)
	require.Len(t, programs, 1)
}

func TestDollarInsideCommentDoesNotSplit(t *testing.T) {
	sink := diagnostics.New()
	programs, err := splitter.Split("{/* a $ b */}$", sink)
	require.NoError(t, err)
	require.Len(t, programs, 1)
}

func TestMissingTerminatorWarnsAndStillYieldsAProgram(t *testing.T) {
	sink := diagnostics.New()
	programs, err := splitter.Split("{print(1)}", sink)
	require.Error(t, err)
	require.Len(t, programs, 1)
	require.Equal(t, 1, sink.Count(diagnostics.Warning))
}

func TestProgramAfterFailedOneStillStartsAtNextByte(t *testing.T) {
	sink := diagnostics.New()
	programs, err := splitter.Split("{bad$ {good}$", sink)
	require.NoError(t, err)
	require.Len(t, programs, 2)
	require.Equal(t, "{bad$", programs[0].Source)
	require.Equal(t, " {good}$", programs[1].Source)
}
