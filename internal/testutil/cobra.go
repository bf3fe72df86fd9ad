package testutil

import (
	"bytes"
	"io"
	"os"
	"strings"
	"testing"

	"github.com/spf13/cobra"
)

// Execute runs c with args and returns everything written to stdout,
// including the JSON log lines and the command's own output.
func Execute(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()

	// Capture the output of the command to a string
	// https://stackoverflow.com/questions/10473800/in-go-how-do-i-capture-stdout-of-a-function-into-a-string#comment46866149_10476304
	old := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatal(err)
	}
	os.Stdout = w

	outC := make(chan string)
	go func() {
		var buf bytes.Buffer
		_, _ = io.Copy(&buf, r)
		outC <- buf.String()
	}()

	c.SetOut(w)
	c.SetErr(io.Discard)
	c.SetArgs(args)
	err = c.Execute()
	c.SetOut(nil)
	c.SetErr(nil)

	w.Close()
	os.Stdout = old
	out := <-outC

	return strings.TrimSpace(out), err
}
