package process

import (
	"fmt"
	"os"
	"strings"

	"github.com/mitchellh/go-ps"
)

// Lister returns the processes running on the machine.
type Lister func() ([]ps.Process, error)

// System lists processes through the operating system.
func System() ([]ps.Process, error) {
	return ps.Processes()
}

// Find returns the executable name of the first running process whose name
// matches one of names, ignoring case and a trailing ".exe". The current
// process is never reported.
func Find(list Lister, names ...string) (string, bool, error) {
	if list == nil {
		list = System
	}

	if len(names) == 0 {
		return "", false, nil
	}

	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[normalize(name)] = struct{}{}
	}

	processList, err := list()
	if err != nil {
		return "", false, fmt.Errorf("list processes: %w", err)
	}

	thisProcessID := os.Getpid()

	for _, p := range processList {
		if p.Pid() == thisProcessID {
			continue
		}

		if _, found := wanted[normalize(p.Executable())]; found {
			return p.Executable(), true, nil
		}
	}

	return "", false, nil
}

func normalize(name string) string {
	return strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".exe")
}
