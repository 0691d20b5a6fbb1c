package core

import (
	"bytes"
	"errors"
	"os"
	"strings"
	"testing"
)

func TestLogErrorKeepsPercentSigns(t *testing.T) {
	var buf bytes.Buffer
	getLogger().SetOutput(&buf)
	defer getLogger().SetOutput(os.Stderr)

	LogError("%s", errors.New("bake at 100% of 3 %d bones"))
	if got := buf.String(); !strings.Contains(got, "bake at 100% of 3 %d bones") {
		t.Errorf("error text not logged verbatim: %q", got)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"debug":   LogLevelDebug,
		" WARN ":  LogLevelWarn,
		"warning": LogLevelWarn,
		"error":   LogLevelError,
		"fatal":   LogLevelFatal,
		"":        LogLevelInfo,
		"verbose": LogLevelInfo,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %d, want %d", in, got, want)
		}
	}
}
