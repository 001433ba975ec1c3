// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

package logging

import (
	"bytes"
	"os"
	"strings"
	"testing"
)

func TestSetDebugControlsDebugOutput(t *testing.T) {
	var buf bytes.Buffer
	L.SetOutput(&buf)
	t.Cleanup(func() {
		L.SetOutput(os.Stderr)
		SetDebug(false)
	})

	Debugf("agent socket %s unavailable", "/tmp/sock")
	if strings.Contains(buf.String(), "agent socket") {
		t.Fatalf("debug output visible without SetDebug: %q", buf.String())
	}

	SetDebug(true)
	Debugf("agent socket %s unavailable", "/tmp/sock")
	if !strings.Contains(buf.String(), "agent socket /tmp/sock unavailable") {
		t.Errorf("debug output missing after SetDebug(true): %q", buf.String())
	}
}
