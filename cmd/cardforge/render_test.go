package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/xob0t/cardforge/pkg/cardspec"
	"github.com/xob0t/cardforge/pkg/export"
)

func TestRenderQuickMode(t *testing.T) {
	out := filepath.Join(t.TempDir(), "card.png")
	err := runRender(context.Background(), []string{
		"-o", out,
		"--template", "Confetti",
		"--message", "Happy 30th!",
		"--photo", "qr:hello",
		"--filter", "grayscale",
		"--stickers", "star, deco:cake",
	})
	if err != nil {
		t.Fatalf("runRender: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte("\x89PNG")) {
		t.Errorf("output is not a PNG")
	}
}

func TestRenderCardMode(t *testing.T) {
	dir := t.TempDir()
	c, d := cardspec.ExampleJSON()
	cardPath := filepath.Join(dir, "card.json")
	dataPath := filepath.Join(dir, "data.json")
	if err := os.WriteFile(cardPath, []byte(c), 0644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(dataPath, []byte(d), 0644); err != nil {
		t.Fatal(err)
	}

	out := filepath.Join(dir, "card.jpg")
	if err := runRender(context.Background(), []string{"-o", out, "--card", cardPath, "--data", dataPath}); err != nil {
		t.Fatalf("runRender: %v", err)
	}
	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(data, []byte{0xFF, 0xD8}) {
		t.Errorf("output is not a JPEG")
	}
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	tests := []struct {
		name string
		args []string
	}{
		{"no output", []string{"--template", "Classic"}},
		{"bad format", []string{"-o", filepath.Join(dir, "card.webp")}},
		{"bad template", []string{"-o", filepath.Join(dir, "a.png"), "--template", "Nope"}},
		{"bad preset", []string{"-o", filepath.Join(dir, "b.png"), "--preset", "huge"}},
		{"bad color", []string{"-o", filepath.Join(dir, "c.png"), "--color", "blurple"}},
		{"bad quick", []string{"-o", filepath.Join(dir, "d.png"), "--quick", "99"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runRender(context.Background(), tt.args); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestMoveExport(t *testing.T) {
	src := filepath.Join(t.TempDir(), "export.png")
	if err := os.WriteFile(src, []byte("png"), 0644); err != nil {
		t.Fatal(err)
	}
	h := &export.FileHandle{Path: src, Format: export.PNG}

	dst := filepath.Join(t.TempDir(), "out.png")
	if err := moveExport(h, dst); err != nil {
		t.Fatalf("moveExport: %v", err)
	}
	if got, _ := os.ReadFile(dst); string(got) != "png" {
		t.Errorf("dst = %q", got)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Errorf("source still present")
	}
	if err := h.Release(); err != nil {
		t.Errorf("Release after move: %v", err)
	}
}
