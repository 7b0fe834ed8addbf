package attachment_test

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/conversation"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/attachment"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
)

var (
	pngBytes  = append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 16)...)
	jpegBytes = append([]byte{0xFF, 0xD8, 0xFF, 0xE0}, bytes.Repeat([]byte{1}, 16)...)
	webpBytes = append([]byte("RIFF\x00\x00\x00\x00WEBPVP8 "), bytes.Repeat([]byte{2}, 16)...)
)

func writeFile(t *testing.T, dir, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestSniff(t *testing.T) {
	cases := []struct {
		data []byte
		want string
		ok   bool
	}{
		{pngBytes, "image/png", true},
		{jpegBytes, "image/jpeg", true},
		{webpBytes, "image/webp", true},
		{[]byte("GIF89a......"), "", false},
		{[]byte("RIFF"), "", false},
	}
	for i, tc := range cases {
		got, ok := attachment.Sniff(tc.data)
		if got != tc.want || ok != tc.ok {
			t.Fatalf("case %d: got %q,%v want %q,%v", i, got, ok, tc.want, tc.ok)
		}
	}
}

func TestLoadReadsImagesInOrder(t *testing.T) {
	dir := t.TempDir()
	paths := []string{
		writeFile(t, dir, "nozzle.png", pngBytes),
		writeFile(t, dir, "vat.JPEG", jpegBytes),
		writeFile(t, dir, "plate", webpBytes),
	}

	images, err := attachment.Load(paths, attachment.DefaultLimits())
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	want := []struct{ name, contentType string }{
		{"nozzle.png", "image/png"},
		{"vat.JPEG", "image/jpeg"},
		{"plate.webp", "image/webp"},
	}
	for i, w := range want {
		if images[i].Name != w.name || images[i].ContentType != w.contentType {
			t.Fatalf("image %d: got %s/%s want %s/%s", i, images[i].Name, images[i].ContentType, w.name, w.contentType)
		}
	}
}

func TestLoadOpensAtMostFiveFiles(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 5; i++ {
		paths = append(paths, writeFile(t, dir, fmt.Sprintf("%d.png", i), pngBytes))
	}
	// the sixth and seventh do not exist; opening them would fail
	paths = append(paths, filepath.Join(dir, "missing-1.png"), filepath.Join(dir, "missing-2.png"))

	images, err := attachment.Load(paths, attachment.DefaultLimits())
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if len(images) != conversation.MaxImages {
		t.Fatalf("expected %d images, got %d", conversation.MaxImages, len(images))
	}
}

func TestLoadRejectsInvalidImages(t *testing.T) {
	dir := t.TempDir()
	small := attachment.Limits{MaxImageBytes: 20, MaxTotalBytes: 30}

	cases := []struct {
		name   string
		paths  []string
		limits attachment.Limits
		want   error
	}{
		{"gif", []string{writeFile(t, dir, "a.gif", []byte("GIF89a000000"))}, attachment.DefaultLimits(), attachment.ErrUnsupportedFormat},
		{"empty", []string{writeFile(t, dir, "b.png", nil)}, attachment.DefaultLimits(), attachment.ErrEmptyImage},
		{"too large", []string{writeFile(t, dir, "c.png", append(pngBytes, 0, 0, 0))}, attachment.Limits{MaxImageBytes: int64(len(pngBytes))}, attachment.ErrImageTooLarge},
		{"total", []string{
			writeFile(t, dir, "d.png", pngBytes[:16]),
			writeFile(t, dir, "e.png", pngBytes[:16]),
		}, small, attachment.ErrTotalTooLarge},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := attachment.Load(tc.paths, tc.limits)
			var vErr *session.ValidationError
			if !errors.As(err, &vErr) || vErr.Reason != session.ReasonInvalidImage {
				t.Fatalf("expected invalid image validation error, got %v", err)
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v in chain, got %v", tc.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := attachment.Load([]string{filepath.Join(t.TempDir(), "nope.png")}, attachment.DefaultLimits())
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist error, got %v", err)
	}
}
