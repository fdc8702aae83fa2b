package process

import (
	"errors"
	"os"
	"testing"

	"github.com/mitchellh/go-ps"
	"github.com/stretchr/testify/require"
)

// fakeProcess is a ps.Process with fixed fields.
type fakeProcess struct {
	pid  int
	name string
}

func (p fakeProcess) Pid() int           { return p.pid }
func (p fakeProcess) PPid() int          { return 1 }
func (p fakeProcess) Executable() string { return p.name }

func listOf(processes ...ps.Process) Lister {
	return func() ([]ps.Process, error) {
		return processes, nil
	}
}

// TestFind_MatchesIgnoringCaseAndExe finds a process by its base name.
func TestFind_MatchesIgnoringCaseAndExe(t *testing.T) {
	t.Parallel()

	list := listOf(
		fakeProcess{pid: 10, name: "bash"},
		fakeProcess{pid: 11, name: "NPCForge.EXE"},
	)

	name, found, err := Find(list, "npcforge.exe")
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, "NPCForge.EXE", name)
}

// TestFind_SkipsCurrentProcess never reports the caller itself.
func TestFind_SkipsCurrentProcess(t *testing.T) {
	t.Parallel()

	list := listOf(fakeProcess{pid: os.Getpid(), name: "forge-installer"})

	_, found, err := Find(list, "forge-installer")
	require.NoError(t, err)
	require.False(t, found)
}

// TestFind_ListError wraps the lister failure.
func TestFind_ListError(t *testing.T) {
	t.Parallel()

	errDenied := errors.New("denied")
	list := func() ([]ps.Process, error) {
		return nil, errDenied
	}

	_, _, err := Find(list, "dockerd")
	require.ErrorIs(t, err, errDenied)
}

// TestFind_NoNames returns quickly without listing.
func TestFind_NoNames(t *testing.T) {
	t.Parallel()

	list := func() ([]ps.Process, error) {
		t.Fatal("lister must not be called")

		return nil, nil
	}

	_, found, err := Find(list)
	require.NoError(t, err)
	require.False(t, found)
}
