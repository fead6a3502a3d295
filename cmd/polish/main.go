// Command polish polishes Korean text through a polishing service, streaming
// the answer and falling back to the one-shot endpoints when the stream fails.
//
// Usage:
//
//	polish [flags] [text...]
//
// Without text arguments the input is read from stdin.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Laisky/errors/v2"

	"github.com/zoobzio/polish"
	"github.com/zoobzio/polish/internal/terminal"
)

// DefaultURL is the public polishing service.
const DefaultURL = "https://texthelper.onrender.com"

const (
	exitOK      = 0
	exitFailed  = 1
	exitUsage   = 2
	reportGrace = time.Second
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func run(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	fs := flag.NewFlagSet("polish", flag.ContinueOnError)
	fs.SetOutput(stderr)
	url := fs.String("url", DefaultURL, "polishing service base URL")
	streamTimeout := fs.Duration("timeout", polish.DefaultStreamTimeout, "deadline for the streaming attempt")
	oneShotTimeout := fs.Duration("oneshot-timeout", 0, "deadline for each one-shot attempt (0 for none)")
	markers := fs.String("markers", strings.Join(polish.DefaultMarkers, ","), "comma separated in-band error markers")
	verbose := fs.Bool("v", false, "print an attempt report")
	if err := fs.Parse(args); err != nil {
		return exitUsage
	}

	text, err := readInput(fs.Args(), stdin)
	if err != nil {
		fmt.Fprintf(stderr, "read input: %v\n", err)
		return exitFailed
	}

	term := terminal.New(stdout, stderr)
	o, err := polish.New(*url, term, term,
		polish.WithStreamTimeout(*streamTimeout),
		polish.WithOneShotTimeout(*oneShotTimeout),
		polish.WithMarkers(splitMarkers(*markers)...),
	)
	if err != nil {
		fmt.Fprintf(stderr, "%v\n", err)
		return exitUsage
	}

	var rec *terminal.Recorder
	if *verbose {
		rec = terminal.NewRecorder()
		defer rec.Close()
	}

	result, err := o.Submit(ctx, text)
	if rec != nil && !errors.Is(err, polish.ErrEmptyInput) {
		terminal.Report(stderr, rec.Rows(reportGrace))
	}
	switch {
	case errors.Is(err, polish.ErrEmptyInput):
		return exitUsage
	case err != nil:
		return exitFailed
	}

	term.Print(result)
	return exitOK
}

func readInput(args []string, stdin io.Reader) (string, error) {
	if len(args) > 0 {
		return strings.Join(args, " "), nil
	}
	b, err := io.ReadAll(stdin)
	if err != nil {
		return "", errors.Wrap(err, "stdin")
	}
	return string(b), nil
}

func splitMarkers(s string) []string {
	var out []string
	for _, m := range strings.Split(s, ",") {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}
