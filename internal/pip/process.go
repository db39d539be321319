package pip

import (
	"os"
	"strings"

	ps "github.com/mitchellh/go-ps"
)

// OtherInstallProcesses scans the process table for pip invocations started
// by someone else. Two orchestrations mutating the same interpreter state can
// race; this surfaces the situation to operators without guarding it.
func OtherInstallProcesses() ([]string, error) {
	processes, err := ps.Processes()
	if err != nil {
		return nil, err
	}

	selfPID := os.Getpid()

	var names []string

	for _, process := range processes {
		if process.Pid() == selfPID {
			continue
		}

		name := process.Executable()
		if strings.HasPrefix(strings.ToLower(name), "pip") {
			names = append(names, name)
		}
	}

	return names, nil
}
