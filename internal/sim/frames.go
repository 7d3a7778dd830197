package sim

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// QueueSource replays a scripted sequence of frames. Nil entries model an
// empty sensor window; once the queue drains, every further capture sees
// no finger.
type QueueSource struct {
	mu     sync.Mutex
	frames [][]byte
}

// NewQueueSource builds a source from the given frames in order.
func NewQueueSource(frames ...[]byte) *QueueSource {
	return &QueueSource{frames: frames}
}

// Push appends frames to the script.
func (q *QueueSource) Push(frames ...[]byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.frames = append(q.frames, frames...)
}

// NextFrame implements FrameSource.
func (q *QueueSource) NextFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.frames) == 0 {
		return nil, nil
	}
	frame := q.frames[0]
	q.frames = q.frames[1:]
	return frame, nil
}

// DirSource feeds fingerprint image files from a directory, in name order:
// each capture consumes the next file. Useful for driving the soft sensor
// with real scans when no hardware is attached.
type DirSource struct {
	mu    sync.Mutex
	files []string
	idx   int
}

// NewDirSource lists the image files under dir.
func NewDirSource(dir string) (*DirSource, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read image dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch filepath.Ext(e.Name()) {
		case ".png", ".jpg", ".jpeg":
			files = append(files, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(files)
	if len(files) == 0 {
		return nil, fmt.Errorf("no image files in %s", dir)
	}
	return &DirSource{files: files}, nil
}

// NextFrame implements FrameSource.
func (d *DirSource) NextFrame(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.idx >= len(d.files) {
		return nil, nil
	}
	data, err := os.ReadFile(d.files[d.idx])
	if err != nil {
		return nil, err
	}
	d.idx++
	return data, nil
}
