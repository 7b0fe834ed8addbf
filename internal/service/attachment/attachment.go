// Package attachment reads the images of one send attempt and checks them
// against what the helpdesk backend accepts.
package attachment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/zhouzirui/elio-helpdesk/client/internal/model/conversation"
	"github.com/zhouzirui/elio-helpdesk/client/internal/service/session"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported image format")
	ErrImageTooLarge     = errors.New("image exceeds size limit")
	ErrTotalTooLarge     = errors.New("attachments exceed total size limit")
	ErrEmptyImage        = errors.New("image is empty")
)

const mib = 1 << 20

// Limits bounds the size of attachments.
type Limits struct {
	MaxImageBytes int64
	MaxTotalBytes int64
}

// DefaultLimits mirrors the backend: 3 MiB per image, 20 MiB per request.
func DefaultLimits() Limits {
	return Limits{MaxImageBytes: 3 * mib, MaxTotalBytes: 20 * mib}
}

var extensions = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
	"image/webp": ".webp",
}

// Sniff returns the content type of a JPEG, PNG or WEBP payload.
func Sniff(data []byte) (string, bool) {
	switch {
	case bytes.HasPrefix(data, []byte{0xFF, 0xD8, 0xFF}):
		return "image/jpeg", true
	case bytes.HasPrefix(data, []byte("\x89PNG\r\n\x1a\n")):
		return "image/png", true
	case len(data) >= 12 && string(data[:4]) == "RIFF" && string(data[8:12]) == "WEBP":
		return "image/webp", true
	default:
		return "", false
	}
}

// Load opens at most conversation.MaxImages files and returns them in order.
func Load(paths []string, limits Limits) ([]conversation.Image, error) {
	if len(paths) > conversation.MaxImages {
		paths = paths[:conversation.MaxImages]
	}

	images := make([]conversation.Image, 0, len(paths))
	var total int64
	for _, path := range paths {
		data, err := readLimited(path, limits.MaxImageBytes)
		if err != nil {
			return nil, err
		}
		img, err := FromBytes(filepath.Base(path), data, limits)
		if err != nil {
			return nil, err
		}
		total += int64(len(img.Data))
		if limits.MaxTotalBytes > 0 && total > limits.MaxTotalBytes {
			return nil, session.NewInvalidImage(ErrTotalTooLarge)
		}
		images = append(images, img)
	}
	return images, nil
}

// FromBytes validates an in-memory image, e.g. one received from an upload.
func FromBytes(name string, data []byte, limits Limits) (conversation.Image, error) {
	if len(data) == 0 {
		return conversation.Image{}, session.NewInvalidImage(fmt.Errorf("%s: %w", name, ErrEmptyImage))
	}
	if limits.MaxImageBytes > 0 && int64(len(data)) > limits.MaxImageBytes {
		return conversation.Image{}, session.NewInvalidImage(fmt.Errorf("%s: %w", name, ErrImageTooLarge))
	}
	contentType, ok := Sniff(data)
	if !ok {
		return conversation.Image{}, session.NewInvalidImage(fmt.Errorf("%s: %w", name, ErrUnsupportedFormat))
	}
	return conversation.Image{
		Name:        withExtension(name, contentType),
		ContentType: contentType,
		Data:        data,
	}, nil
}

func readLimited(path string, limit int64) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open image: %w", err)
	}
	defer f.Close()

	var r io.Reader = f
	if limit > 0 {
		// one extra byte so FromBytes can tell "exactly at the limit" from "over it"
		r = io.LimitReader(f, limit+1)
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", filepath.Base(path), err)
	}
	return data, nil
}

// withExtension makes sure the file name carries an extension the backend
// accepts; it filters uploads by extension before looking at the bytes.
func withExtension(name, contentType string) string {
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "image"
	}
	ext := strings.ToLower(filepath.Ext(name))
	switch {
	case ext == extensions[contentType]:
		return name
	case contentType == "image/jpeg" && ext == ".jpeg":
		return name
	default:
		return strings.TrimSuffix(name, filepath.Ext(name)) + extensions[contentType]
	}
}
