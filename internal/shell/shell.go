// Package shell interprets a small line-oriented command language that
// drives a box.Store through named handles.
package shell

import (
	"bufio"
	"encoding/hex"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/wippyai/refbox"
	"github.com/wippyai/refbox/box"
)

const usage = `commands:
  new NAME SIZE          construct a block of SIZE bytes
  clone SRC DST          clone handle SRC into DST
  get NAME               dump the item bytes
  set NAME OFFSET HEX    write hex bytes at OFFSET
  destroy NAME           destroy a handle
  list                   show live handles
  stats                  show allocator usage
  help                   show this text`

// Session holds the named handles of one interpreter run.
// Names are removed when their handle is destroyed, so commands can never
// reach a destroyed handle.
type Session struct {
	store   *box.Store
	handles map[string]*box.Handle
	out     io.Writer
}

// New creates a session over store that writes its output to out.
func New(store *box.Store, out io.Writer) *Session {
	return &Session{
		store:   store,
		handles: make(map[string]*box.Handle),
		out:     out,
	}
}

// Exec runs one command line. Blank lines and # comments are ignored.
func (s *Session) Exec(line string) error {
	if i := strings.IndexByte(line, '#'); i >= 0 {
		line = line[:i]
	}
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "new":
		return s.cmdNew(args)
	case "clone":
		return s.cmdClone(args)
	case "get":
		return s.cmdGet(args)
	case "set":
		return s.cmdSet(args)
	case "destroy":
		return s.cmdDestroy(args)
	case "list":
		return s.cmdList(args)
	case "stats":
		return s.cmdStats(args)
	case "help":
		fmt.Fprintln(s.out, usage)
		return nil
	default:
		return fmt.Errorf("unknown command %q (try help)", cmd)
	}
}

// Run executes every line of r, stopping at the first failing command.
func (s *Session) Run(r io.Reader) error {
	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		if err := s.Exec(sc.Text()); err != nil {
			return fmt.Errorf("line %d: %w", lineNo, err)
		}
	}
	return sc.Err()
}

// Names returns the live handle names in order.
func (s *Session) Names() []string {
	names := make([]string, 0, len(s.handles))
	for name := range s.handles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close destroys every remaining handle and closes the store.
func (s *Session) Close() error {
	for _, name := range s.Names() {
		s.handles[name].Destroy()
		delete(s.handles, name)
	}
	return s.store.Close()
}

func (s *Session) cmdNew(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: new NAME SIZE")
	}
	name := args[0]
	if _, ok := s.handles[name]; ok {
		return fmt.Errorf("handle %q already exists", name)
	}
	size, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("size: %w", err)
	}

	var id uint64
	h, err := s.store.New(uint32(size), func([]byte) {
		fmt.Fprintf(s.out, "destructor block #%d (created as %s)\n", id, name)
	})
	if err != nil {
		return fmt.Errorf("new %s: %w", name, err)
	}
	id = h.ID()
	s.handles[name] = h

	fmt.Fprintf(s.out, "%s: block #%d, %d bytes at %d, refs %d\n", name, id, h.Size(), h.Addr(), h.Refs())
	return nil
}

func (s *Session) cmdClone(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: clone SRC DST")
	}
	src, err := s.lookup(args[0])
	if err != nil {
		return err
	}
	dst := args[1]
	if _, ok := s.handles[dst]; ok {
		return fmt.Errorf("handle %q already exists", dst)
	}

	h := src.Clone()
	s.handles[dst] = h
	fmt.Fprintf(s.out, "%s: block #%d, refs %d\n", dst, h.ID(), h.Refs())
	return nil
}

func (s *Session) cmdGet(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: get NAME")
	}
	h, err := s.lookup(args[0])
	if err != nil {
		return err
	}
	fmt.Fprintf(s.out, "%s: % x\n", args[0], h.Get())
	return nil
}

func (s *Session) cmdSet(args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("usage: set NAME OFFSET HEX")
	}
	h, err := s.lookup(args[0])
	if err != nil {
		return err
	}
	off, err := strconv.ParseUint(args[1], 0, 32)
	if err != nil {
		return fmt.Errorf("offset: %w", err)
	}
	data, err := hex.DecodeString(args[2])
	if err != nil {
		return fmt.Errorf("hex: %w", err)
	}

	item := h.Get()
	if off+uint64(len(data)) > uint64(len(item)) {
		return fmt.Errorf("write of %d bytes at %d exceeds %d-byte item", len(data), off, len(item))
	}
	copy(item[off:], data)
	fmt.Fprintf(s.out, "%s: wrote %d bytes at %d\n", args[0], len(data), off)
	return nil
}

func (s *Session) cmdDestroy(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: destroy NAME")
	}
	name := args[0]
	h, err := s.lookup(name)
	if err != nil {
		return err
	}

	id, refs := h.ID(), h.Refs()
	delete(s.handles, name)
	h.Destroy()

	if refs > 1 {
		fmt.Fprintf(s.out, "%s: destroyed, block #%d refs %d\n", name, id, refs-1)
	} else {
		fmt.Fprintf(s.out, "%s: destroyed, block #%d released\n", name, id)
	}
	return nil
}

func (s *Session) cmdList(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: list")
	}
	for _, name := range s.Names() {
		h := s.handles[name]
		fmt.Fprintf(s.out, "%-8s block #%d  refs %d  %d bytes at %d\n", name, h.ID(), h.Refs(), h.Size(), h.Addr())
	}
	return nil
}

func (s *Session) cmdStats(args []string) error {
	if len(args) != 0 {
		return fmt.Errorf("usage: stats")
	}
	fmt.Fprintf(s.out, "blocks %d, handles %d\n", s.store.Len(), len(s.handles))
	if r, ok := s.store.Allocator().(refbox.StatsReporter); ok {
		st := r.Stats()
		fmt.Fprintf(s.out, "allocs %d, frees %d, failures %d, live %d (%d bytes)\n",
			st.Allocs, st.Frees, st.Failures, st.Live, st.LiveBytes)
	}
	return nil
}

func (s *Session) lookup(name string) (*box.Handle, error) {
	h, ok := s.handles[name]
	if !ok {
		return nil, fmt.Errorf("no handle named %q", name)
	}
	return h, nil
}
