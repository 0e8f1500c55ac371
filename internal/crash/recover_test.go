/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// silenceStderr swallows the crash banner for the duration of the test.
func silenceStderr(t *testing.T) {
	t.Helper()
	oldStderr := os.Stderr
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stderr = w
	done := make(chan struct{})
	go func() {
		_, _ = io.Copy(io.Discard, r) // drain pipe
		close(done)
	}()
	t.Cleanup(func() {
		_ = w.Close()
		<-done
		os.Stderr = oldStderr
	})
}

func readOnlyReport(t *testing.T, dir string) string {
	t.Helper()
	files, _ := os.ReadDir(dir)
	for _, f := range files {
		if strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log") {
			b, err := os.ReadFile(filepath.Join(dir, f.Name()))
			if err != nil {
				t.Fatalf("read report: %v", err)
			}
			return string(b)
		}
	}
	t.Fatalf("expected crash report file under %s", dir)
	return ""
}

// TestRecover_Panic ensures Recover handles a panic, writes a report,
// and does not terminate the test process due to injected exitFn.
func TestRecover_Panic(t *testing.T) {
	silenceStderr(t)

	// Override exitFn to avoid os.Exit during test and to assert it was called
	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	root := t.TempDir()
	func() {
		defer Recover(root)
		panic("boom")
	}()

	b := readOnlyReport(t, ReportDir(root))
	if !strings.Contains(b, "Panic: boom") {
		t.Fatalf("report does not contain panic: %s", b)
	}
	if called != ExitPanic {
		t.Fatalf("expected exit code %d, got %d", ExitPanic, called)
	}
}

func TestRecoverWithoutPanicIsNoop(t *testing.T) {
	called := false
	oldExit := exitFn
	exitFn = func(int) { called = true }
	defer func() { exitFn = oldExit }()

	func() {
		defer Recover(t.TempDir())
	}()
	if called {
		t.Fatalf("exit must not be called without a panic")
	}
}
