package completion

import (
	"bytes"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

func testRootCmd() *cobra.Command {
	root := &cobra.Command{Use: "cq"}
	root.AddCommand(&cobra.Command{Use: "run", Short: "Run an analysis"})
	root.AddCommand(&cobra.Command{Use: "match", Short: "Match two tables"})
	return root
}

func TestBashCompletion(t *testing.T) {
	root := testRootCmd()
	var buf bytes.Buffer
	root.SetOut(&buf)

	if err := root.GenBashCompletion(&buf); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	if !strings.Contains(output, "_cq") {
		t.Error("bash completion should contain _cq function")
	}
}

func TestZshCompletion(t *testing.T) {
	root := testRootCmd()
	var buf bytes.Buffer

	if err := root.GenZshCompletion(&buf); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	if !strings.Contains(output, "compdef") {
		t.Error("zsh completion should contain compdef")
	}
}

func TestFishCompletion(t *testing.T) {
	root := testRootCmd()
	var buf bytes.Buffer

	if err := root.GenFishCompletion(&buf, true); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	if !strings.Contains(output, "complete -c cq") {
		t.Error("fish completion should contain 'complete -c cq'")
	}
}

func TestPowerShellCompletion(t *testing.T) {
	root := testRootCmd()
	var buf bytes.Buffer

	if err := root.GenPowerShellCompletionWithDesc(&buf); err != nil {
		t.Fatal(err)
	}

	output := buf.String()
	if !strings.Contains(output, "cq") {
		t.Error("PowerShell completion should contain cq")
	}
}

func TestCompletionCommandWritesToOut(t *testing.T) {
	root := testRootCmd()
	root.AddCommand(NewCommand(root))
	var buf bytes.Buffer
	root.SetOut(&buf)
	root.SetArgs([]string{"completion", "bash"})

	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "# cq bash completion") {
		t.Error("completion output should start with the cq banner")
	}
}

func TestCompletionUnsupportedShell(t *testing.T) {
	root := testRootCmd()
	root.AddCommand(NewCommand(root))
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"completion", "tcsh"})

	if err := root.Execute(); err == nil {
		t.Error("expected an error for an unsupported shell")
	}
}
