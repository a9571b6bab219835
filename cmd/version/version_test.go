package version

import (
	"bytes"
	"strings"
	"testing"
)

func TestVersionText(t *testing.T) {
	cmd := NewCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs(nil)
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(buf.String()); got != "cq "+Version {
		t.Errorf("version output = %q", got)
	}
}

func TestVersionJSON(t *testing.T) {
	cmd := NewCommand()
	cmd.Flags().Bool("json", false, "")
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"--json"})
	if err := cmd.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"version":"`+Version+`"`) {
		t.Errorf("json output = %q", buf.String())
	}
}
