package ffmpeg

import (
	"bufio"
	"io"
	"strconv"
	"strings"
)

// Progress is one block of ffmpeg -progress output.
type Progress struct {
	Frame           int64
	FPS             float64
	DroppedFrames   int64
	DuplicateFrames int64
	Speed           float64
	// Done is set on the final block, written when ffmpeg exits.
	Done bool
}

// ReadProgress parses key=value lines from r and calls fn once per block.
// A block ends with a progress=continue or progress=end line. It returns when
// r is exhausted.
func ReadProgress(r io.Reader, fn func(Progress)) error {
	scanner := bufio.NewScanner(r)
	block := make(map[string]string)

	for scanner.Scan() {
		key, value, ok := strings.Cut(strings.TrimSpace(scanner.Text()), "=")
		if !ok {
			continue
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		if key != "progress" {
			block[key] = value
			continue
		}
		fn(parseProgress(block, value == "end"))
		block = make(map[string]string)
	}
	return scanner.Err()
}

func parseProgress(block map[string]string, done bool) Progress {
	p := Progress{Done: done}
	p.Frame, _ = strconv.ParseInt(block["frame"], 10, 64)
	p.FPS, _ = strconv.ParseFloat(block["fps"], 64)
	p.DroppedFrames, _ = strconv.ParseInt(block["drop_frames"], 10, 64)
	p.DuplicateFrames, _ = strconv.ParseInt(block["dup_frames"], 10, 64)
	// speed is "N/A" until the first frame
	p.Speed, _ = strconv.ParseFloat(strings.TrimSuffix(block["speed"], "x"), 64)
	return p
}
