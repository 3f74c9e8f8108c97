// Package util - Loading recorded frames from disk.
package util

import (
	"bytes"
	"context"
	"image"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/pkg/errors"

	"github.com/nvr-ai/go-detect/images"
)

// FramePrefix is the file name prefix of recorded frames, e.g. frame-12.jpg.
const FramePrefix = "frame-"

// ImageFile represents an image file.
type ImageFile struct {
	// Path is the path to the image file.
	Path string
	// Data is the raw bytes of the image file.
	Data []byte
	// Frame is the frame number of the image file.
	Frame int
}

// Decode decodes the image data.
func (f ImageFile) Decode() (image.Image, error) {
	img, _, err := images.Decode(bytes.NewReader(f.Data))
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", f.Path)
	}
	return img, nil
}

// IsImageFile reports whether name has a supported image extension.
func IsImageFile(name string) bool {
	_, err := images.FormatFromExt(name)
	return err == nil
}

// FrameNumber parses the number in a frame-<n>.<ext> file name.
func FrameNumber(name string) (int, error) {
	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	if !strings.HasPrefix(base, FramePrefix) {
		return 0, errors.Errorf("%s: expected a %s<n> file name", name, FramePrefix)
	}
	n, err := strconv.Atoi(strings.TrimPrefix(base, FramePrefix))
	if err != nil {
		return 0, errors.Wrapf(err, "%s: invalid frame number", name)
	}
	return n, nil
}

// LoadDirectoryImageFiles reads all image files from a directory.
//
// Arguments:
//   - dir: Directory path containing frame-<n> image files.
//
// Returns:
//   - []ImageFile: The image files sorted by frame number.
//   - error: Error if the directory or a file cannot be read, or a name has no frame number.
func LoadDirectoryImageFiles(dir string) ([]ImageFile, error) {
	files, err := os.ReadDir(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "read directory %s", dir)
	}

	var frames []ImageFile
	for _, file := range files {
		if file.IsDir() || !IsImageFile(file.Name()) {
			continue
		}

		frame, err := FrameNumber(file.Name())
		if err != nil {
			return nil, err
		}
		imgPath := filepath.Join(dir, file.Name())
		data, err := os.ReadFile(imgPath)
		if err != nil {
			return nil, errors.Wrapf(err, "read %s", imgPath)
		}
		frames = append(frames, ImageFile{
			Path:  imgPath,
			Data:  data,
			Frame: frame,
		})
	}

	sort.SliceStable(frames, func(i, j int) bool {
		return frames[i].Frame < frames[j].Frame
	})

	return frames, nil
}

// DirectorySource replays recorded frames in frame-number order.
//
// It is safe for concurrent use; each frame is returned once.
type DirectorySource struct {
	mu    sync.Mutex
	files []ImageFile
	next  int
	loop  bool
}

// NewDirectorySource loads every frame in dir. With loop set the source restarts after the
// last frame instead of returning io.EOF.
func NewDirectorySource(dir string, loop bool) (*DirectorySource, error) {
	files, err := LoadDirectoryImageFiles(dir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Errorf("no image files in %s", dir)
	}
	return &DirectorySource{files: files, loop: loop}, nil
}

// Len returns the number of recorded frames.
func (s *DirectorySource) Len() int {
	return len(s.files)
}

// Next decodes the next frame. It returns io.EOF after the last frame unless looping.
func (s *DirectorySource) Next(ctx context.Context) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	if s.next >= len(s.files) {
		if !s.loop {
			s.mu.Unlock()
			return nil, io.EOF
		}
		s.next = 0
	}
	file := s.files[s.next]
	s.next++
	s.mu.Unlock()

	return file.Decode()
}
