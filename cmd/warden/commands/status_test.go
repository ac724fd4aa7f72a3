package commands

import (
	"strings"
	"testing"
)

func TestStatusCommand_PrintsConfig(t *testing.T) {
	useTempHome(t)

	output := captureOutput(t, func() {
		if err := runStatus(nil, nil); err != nil {
			t.Fatalf("runStatus error: %v", err)
		}
	})

	for _, want := range []string{
		"Warden Status",
		"Token:             Not configured",
		"Timezone:          America/Boise",
		"Direct add policy: reject",
		"Refresh schedule:  disabled",
		"Entries:  0 active, 0 pending post",
		"Requests: 0 open",
		"Status:  disabled",
	} {
		if !strings.Contains(output, want) {
			t.Fatalf("expected %q in output, got: %s", want, output)
		}
	}
}
