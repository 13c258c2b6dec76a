package shared

import (
	"errors"
	"testing"
)

func TestOpenBrowser(t *testing.T) {
	t.Run("unsupported platform", func(t *testing.T) {
		original := getRuntime
		defer func() { getRuntime = original }()
		getRuntime = func() string { return "plan9" }

		err := OpenBrowser("https://example.com/story.jpg")
		if !errors.Is(err, ErrNotImplemented) {
			t.Errorf("expected ErrNotImplemented, got %v", err)
		}
	})

	tests := []struct {
		name string
		url  string
	}{
		{"empty", ""},
		{"relative", "/media/story.jpg"},
		{"file scheme", "file:///etc/passwd"},
		{"missing host", "https://"},
	}
	for _, tt := range tests {
		t.Run("rejects "+tt.name, func(t *testing.T) {
			if err := OpenBrowser(tt.url); !errors.Is(err, ErrInvalidArgument) {
				t.Errorf("expected ErrInvalidArgument, got %v", err)
			}
		})
	}
}

func TestOpenerCommand(t *testing.T) {
	tests := []struct {
		goos string
		bin  string
	}{
		{"darwin", "open"},
		{"linux", "xdg-open"},
		{"windows", "rundll32"},
	}
	for _, tt := range tests {
		t.Run(tt.goos, func(t *testing.T) {
			cmd, err := openerCommand(tt.goos, "https://example.com/a.mp4")
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if cmd.Args[0] != tt.bin {
				t.Errorf("expected %s, got %s", tt.bin, cmd.Args[0])
			}
			if last := cmd.Args[len(cmd.Args)-1]; last != "https://example.com/a.mp4" {
				t.Errorf("expected url as last arg, got %s", last)
			}
		})
	}
}
