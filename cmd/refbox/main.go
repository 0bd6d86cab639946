package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/wippyai/refbox"
	"github.com/wippyai/refbox/alloc"
	"github.com/wippyai/refbox/box"
	"github.com/wippyai/refbox/internal/shell"
)

type config struct {
	allocKind   string
	script      string
	limit       uint64
	pages       uint
	maxPages    uint
	interactive bool
	verbose     bool
}

func main() {
	var cfg config
	flag.StringVar(&cfg.allocKind, "alloc", "heap", "Allocator backend: heap or linear")
	flag.UintVar(&cfg.pages, "pages", 1, "Initial linear memory pages")
	flag.UintVar(&cfg.maxPages, "max-pages", 256, "Maximum linear memory pages")
	flag.Uint64Var(&cfg.limit, "limit", 0, "Byte budget for all allocations (0 = unlimited)")
	flag.StringVar(&cfg.script, "script", "", "Command script to run (default stdin)")
	flag.BoolVar(&cfg.interactive, "i", false, "Interactive mode with TUI")
	flag.BoolVar(&cfg.verbose, "v", false, "Log allocator and block events")
	flag.Parse()

	if err := run(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(cfg config) error {
	ctx := context.Background()

	if cfg.verbose {
		l, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("create logger: %w", err)
		}
		defer l.Sync()
		alloc.SetLogger(l)
		box.SetLogger(l)
	}

	base, closeAlloc, err := newAllocator(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeAlloc()

	tracked := alloc.NewTracking(base)
	store := box.NewStore(tracked, box.DefaultOptions())

	if cfg.interactive {
		if !term.IsTerminal(int(os.Stdin.Fd())) {
			return fmt.Errorf("interactive mode requires a terminal")
		}
		if err := runInteractive(store, cfg.allocKind); err != nil {
			return err
		}
		return reportLeaks(tracked)
	}

	var out io.Writer = os.Stdout
	sess := shell.New(store, out)

	switch {
	case cfg.script != "":
		f, err := os.Open(cfg.script)
		if err != nil {
			return fmt.Errorf("open script: %w", err)
		}
		defer f.Close()
		if err := sess.Run(f); err != nil {
			return fmt.Errorf("%s: %w", cfg.script, err)
		}
	case term.IsTerminal(int(os.Stdin.Fd())):
		prompt(sess, os.Stdin, out)
	default:
		if err := sess.Run(os.Stdin); err != nil {
			return fmt.Errorf("stdin: %w", err)
		}
	}

	if err := sess.Close(); err != nil {
		return fmt.Errorf("close session: %w", err)
	}
	return reportLeaks(tracked)
}

func newAllocator(ctx context.Context, cfg config) (refbox.Allocator, func(), error) {
	var (
		a       refbox.Allocator
		closeFn = func() {}
	)
	switch cfg.allocKind {
	case "heap":
		a = alloc.NewHeap()
	case "linear":
		lin, err := alloc.NewLinear(ctx, alloc.LinearConfig{
			InitialPages: uint32(cfg.pages),
			MaxPages:     uint32(cfg.maxPages),
		})
		if err != nil {
			return nil, nil, fmt.Errorf("create linear allocator: %w", err)
		}
		a = lin
		closeFn = func() { _ = lin.Close(ctx) }
	default:
		return nil, nil, fmt.Errorf("unknown allocator %q (want heap or linear)", cfg.allocKind)
	}

	if cfg.limit > 0 {
		a = alloc.NewLimited(a, cfg.limit)
	}
	return a, closeFn, nil
}

// prompt reads commands from a terminal, reporting errors and continuing.
func prompt(sess *shell.Session, in io.Reader, out io.Writer) {
	sc := bufio.NewScanner(in)
	fmt.Fprint(out, "> ")
	for sc.Scan() {
		if err := sess.Exec(sc.Text()); err != nil {
			fmt.Fprintf(out, "error: %v\n", err)
		}
		fmt.Fprint(out, "> ")
	}
	fmt.Fprintln(out)
}

func reportLeaks(tr *alloc.Tracking) error {
	if n := tr.Live(); n > 0 {
		return fmt.Errorf("%d allocator region(s) still live", n)
	}
	return nil
}
