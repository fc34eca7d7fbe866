package fsutil

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	if runtime.GOOS == "windows" {
		t.Setenv("USERPROFILE", home)
	}
	cases := []struct{ in, want string }{
		{in: "", want: ""},
		{in: "/etc/relayd.yaml", want: "/etc/relayd.yaml"},
		{in: "~", want: home},
		{in: "~/relayd/cfg.toml", want: filepath.Join(home, "relayd", "cfg.toml")},
	}
	for _, tc := range cases {
		got, err := ExpandHome(tc.in)
		if err != nil {
			t.Fatalf("ExpandHome(%q) err=%v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("ExpandHome(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestIsRegularFile(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "relayd.yaml")
	if err := os.WriteFile(p, []byte("addr: :1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !IsRegularFile(p) {
		t.Fatalf("expected %s to be a regular file", p)
	}
	if IsRegularFile(d) {
		t.Fatalf("directory reported as regular file")
	}
	if IsRegularFile(filepath.Join(d, "missing.yaml")) {
		t.Fatalf("missing file reported as regular file")
	}
}
