// Copyright (c) 2026 Point Guard Team
// Point Guard - GPG password store manager
// This source code is licensed under the MIT license found in the LICENSE file.

package i18n

import (
	"strings"
	"testing"
)

func TestTranslateKnownMessage(t *testing.T) {
	Init("en")
	got := T("rm.aborted")
	if got != "Removal aborted." {
		t.Errorf("T(rm.aborted) = %q", got)
	}
}

func TestTranslateWithArguments(t *testing.T) {
	Init("en")
	got := T("mv.success", "a", "b")
	if !strings.Contains(got, "a") || !strings.Contains(got, "b") {
		t.Errorf("T(mv.success, a, b) = %q", got)
	}
}

func TestUnknownMessageFallsBackToID(t *testing.T) {
	Init("en")
	if got := T("no.such.message"); got != "no.such.message" {
		t.Errorf("T(no.such.message) = %q, want the ID itself", got)
	}
}

func TestGermanLocale(t *testing.T) {
	SetLang("de")
	t.Cleanup(func() { SetLang("en") })
	if got := T("rm.aborted"); got != "Löschen abgebrochen." {
		t.Errorf("T(rm.aborted) in de = %q", got)
	}
}
