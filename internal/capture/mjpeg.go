package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
)

const maxFrameBytes = 10 * 1024 * 1024

// readJPEGFrames splits a stream of concatenated JPEG images and hands each
// one to emit. It returns nil when the stream ends after at least one frame.
func readJPEGFrames(ctx context.Context, r io.Reader, emit func([]byte)) error {
	reader := bufio.NewReaderSize(r, 512*1024)
	framesRead := 0

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err := findJPEGStart(reader); err != nil {
			if errors.Is(err, io.EOF) {
				if framesRead > 0 {
					return nil
				}
				return fmt.Errorf("no frames received from ffmpeg")
			}
			return err
		}

		frame, err := readUntilJPEGEnd(reader)
		if err != nil {
			// stream ended mid-frame
			if errors.Is(err, io.EOF) && framesRead > 0 {
				return nil
			}
			return err
		}

		framesRead++
		emit(frame)
	}
}

// findJPEGStart consumes input up to and including the FF D8 marker.
func findJPEGStart(r *bufio.Reader) error {
	for {
		b, err := r.ReadByte()
		if err != nil {
			return err
		}
		if b != 0xFF {
			continue
		}
		// skip fill bytes
		for b == 0xFF {
			if b, err = r.ReadByte(); err != nil {
				return err
			}
		}
		if b == 0xD8 {
			return nil
		}
	}
}

// readUntilJPEGEnd returns one frame including both markers.
func readUntilJPEGEnd(r *bufio.Reader) ([]byte, error) {
	data := []byte{0xFF, 0xD8}

	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		data = append(data, b)

		if b == 0xFF {
			next, err := r.ReadByte()
			if err != nil {
				return nil, err
			}
			data = append(data, next)
			if next == 0xD9 {
				return data, nil
			}
		}

		if len(data) > maxFrameBytes {
			return nil, fmt.Errorf("jpeg frame too large: %d bytes", len(data))
		}
	}
}
