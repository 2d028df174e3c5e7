//go:build windows

package executor

import "os/exec"

// configureProcessGroup keeps the default cancellation, which kills only
// the interpreter process.
func configureProcessGroup(cmd *exec.Cmd) {}
