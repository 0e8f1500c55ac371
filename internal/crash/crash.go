/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash writes crash reports for panics and internal faults and
// terminates the process with a failure status.
package crash

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"licensexml/internal/classify"
	applog "licensexml/internal/log"
	"licensexml/internal/storage"
	"licensexml/internal/telemetry"
	"licensexml/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Exit codes.
const (
	ExitPanic = 2
	ExitFault = 3
)

// ReportDir returns where reports for the output root are kept. An empty
// root falls back to the temp dir.
func ReportDir(outputRoot string) string {
	if outputRoot == "" {
		return os.TempDir()
	}
	return filepath.Join(outputRoot, storage.IndexDirName, "crash")
}

// Recover captures a panic, logs an error with stacktrace,
// writes an error report file below the output root and exits.
//
// Usage: defer crash.Recover(outputRoot)
func Recover(outputRoot string) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(outputRoot, fmt.Sprintf("Panic: %v", r), "", stack)
		announce(l, reportPath)
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(ExitPanic)
	}
}

// Fault reports an internal fault (inconsistent classifier state, a
// decision that condenses to nothing) and exits. The classifier state dump
// is included when err carries one.
func Fault(outputRoot string, err error) {
	l := applog.WithComponent("crash")
	l.Error("internal fault", slog.Any("err", err))

	var dump string
	var ce *classify.ConsistencyError
	if errors.As(err, &ce) {
		dump = ce.Dump
	}
	reportPath, _ := writeReport(outputRoot, fmt.Sprintf("Fault: %v", err), dump, debug.Stack())
	announce(l, reportPath)
	exitFn(ExitFault)
}

func announce(l *slog.Logger, reportPath string) {
	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
}

func writeReport(outputRoot, cause, state string, stack []byte) (string, error) {
	dir := ReportDir(outputRoot)
	_ = os.MkdirAll(dir, 0o755)
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "licensexml Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if outputRoot != "" {
		_, _ = fmt.Fprintf(&buf, "Output: %s\n", outputRoot)
	}
	_, _ = fmt.Fprintf(&buf, "\n%s\n\n", cause)
	if state != "" {
		_, _ = fmt.Fprintf(&buf, "State:\n%s\n\n", state)
	}
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	// optionally upload anonymized crash report (opt-in via env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
