package shell

import (
	"bytes"
	"strings"
	"testing"

	"github.com/wippyai/refbox"
	"github.com/wippyai/refbox/alloc"
	"github.com/wippyai/refbox/box"
	"github.com/wippyai/refbox/errors"
)

func newTestSession(t *testing.T, limit uint64) (*Session, *bytes.Buffer, *alloc.Tracking) {
	t.Helper()
	var a refbox.Allocator = alloc.NewHeap()
	if limit > 0 {
		a = alloc.NewLimited(a, limit)
	}
	tr := alloc.NewTracking(a)
	out := &bytes.Buffer{}
	return New(box.NewStore(tr, box.DefaultOptions()), out), out, tr
}

func TestSession_Lifecycle(t *testing.T) {
	s, out, tr := newTestSession(t, 0)

	script := `
# build, share, and release one block
new a 4
set a 0 deadbeef
clone a b
destroy a
get b
destroy b
`
	if err := s.Run(strings.NewReader(script)); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	got := out.String()
	for _, want := range []string{
		"a: block #1, 4 bytes",
		"a: wrote 4 bytes at 0",
		"b: block #1, refs 2",
		"a: destroyed, block #1 refs 1",
		"b: de ad be ef",
		"destructor block #1 (created as a)",
		"b: destroyed, block #1 released",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("output missing %q:\n%s", want, got)
		}
	}

	if strings.Index(got, "destructor block #1") > strings.Index(got, "b: destroyed") {
		t.Error("destructor output should precede the destroy summary")
	}
	if tr.Live() != 0 {
		t.Fatalf("%d regions leaked", tr.Live())
	}
}

func TestSession_ListAndStats(t *testing.T) {
	s, out, _ := newTestSession(t, 0)
	for _, line := range []string{"new x 8", "clone x y", "new z 2"} {
		if err := s.Exec(line); err != nil {
			t.Fatalf("%q: %v", line, err)
		}
	}
	out.Reset()

	if err := s.Exec("list"); err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 3 || !strings.HasPrefix(lines[0], "x") || !strings.Contains(lines[1], "refs 2") {
		t.Fatalf("unexpected list output:\n%s", out.String())
	}

	out.Reset()
	if err := s.Exec("stats"); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "blocks 2, handles 3") ||
		!strings.Contains(out.String(), "live 4") {
		t.Fatalf("unexpected stats output:\n%s", out.String())
	}

	if got := s.Names(); len(got) != 3 || got[0] != "x" || got[2] != "z" {
		t.Fatalf("Names = %v", got)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}

func TestSession_Errors(t *testing.T) {
	s, _, _ := newTestSession(t, 0)
	if err := s.Exec("new a 4"); err != nil {
		t.Fatal(err)
	}

	tests := []string{
		"frobnicate",
		"new",
		"new a 4",
		"new b zero",
		"new b 0",
		"clone missing c",
		"clone a a",
		"get",
		"get missing",
		"set a 0 zz",
		"set a 2 aabbcc",
		"set a x 00",
		"destroy missing",
		"list extra",
		"stats extra",
	}
	for _, line := range tests {
		t.Run(line, func(t *testing.T) {
			if err := s.Exec(line); err == nil {
				t.Fatalf("%q should fail", line)
			}
		})
	}

	if err := s.Exec("destroy a"); err != nil {
		t.Fatal(err)
	}
	if err := s.Exec("get a"); err == nil {
		t.Fatal("get after destroy should fail, not panic")
	}
}

func TestSession_OutOfMemory(t *testing.T) {
	s, _, tr := newTestSession(t, 32)

	if err := s.Exec("new big 64"); !errors.IsKind(err, errors.KindOutOfMemory) {
		t.Fatalf("expected out_of_memory, got %v", err)
	}
	if tr.Live() != 0 {
		t.Fatalf("failed new leaked %d regions", tr.Live())
	}
	if err := s.Exec("new small 16"); err != nil {
		t.Fatalf("new within budget failed: %v", err)
	}
}

func TestSession_RunReportsLine(t *testing.T) {
	s, _, _ := newTestSession(t, 0)
	err := s.Run(strings.NewReader("new a 1\n\nget nope\n"))
	if err == nil || !strings.Contains(err.Error(), "line 3") {
		t.Fatalf("expected error at line 3, got %v", err)
	}
}

func TestSession_CloseDestroysRemaining(t *testing.T) {
	s, out, tr := newTestSession(t, 0)
	_ = s.Exec("new a 4")
	_ = s.Exec("clone a b")

	if err := s.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if tr.Live() != 0 {
		t.Fatalf("%d regions leaked", tr.Live())
	}
	if !strings.Contains(out.String(), "destructor block #1") {
		t.Fatal("destructor did not run on Close")
	}
}
