package capture

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/your-org/visora/internal/config"
)

const firstFrameTimeout = 5 * time.Second

var errDeviceClosed = errors.New("device closed")

// FFmpegSource reads MJPEG frames from a local camera, a file or a URL
// through an ffmpeg subprocess.
type FFmpegSource struct {
	Device      string
	InputFormat string // empty picks v4l2/avfoundation/dshow for local cameras
	Width       int
}

func NewFFmpegSource(cfg config.CaptureConfig) *FFmpegSource {
	return &FFmpegSource{
		Device:      cfg.Device,
		InputFormat: cfg.InputFormat,
		Width:       cfg.FrameWidth,
	}
}

// Open starts ffmpeg and waits for the first frame so a missing camera is
// reported here rather than on the first read.
func (s *FFmpegSource) Open(ctx context.Context) (Device, error) {
	runCtx, cancel := context.WithCancel(context.Background())

	args := []string{"-hide_banner", "-loglevel", "warning"}
	args = append(args, inputArgs(s.Device, s.InputFormat, runtime.GOOS)...)
	args = append(args, "-i", s.Device)
	if s.Width > 0 {
		args = append(args, "-vf", fmt.Sprintf("scale=%d:-2", s.Width))
	}
	args = append(args,
		"-f", "image2pipe",
		"-vcodec", "mjpeg",
		"-q:v", "5",
		"pipe:1",
	)

	cmd := exec.CommandContext(runCtx, "ffmpeg", args...)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("ffmpeg stderr pipe: %w", err)
	}
	if err := cmd.Start(); err != nil {
		cancel()
		return nil, fmt.Errorf("start ffmpeg: %w", err)
	}

	go func() {
		scanner := bufio.NewScanner(stderr)
		for scanner.Scan() {
			slog.Warn("ffmpeg stderr", "device", s.Device, "output", scanner.Text())
		}
	}()

	dev := newStreamDevice(cancel)
	go func() {
		err := readJPEGFrames(runCtx, stdout, dev.push)
		if waitErr := cmd.Wait(); err == nil && waitErr != nil && runCtx.Err() == nil {
			err = fmt.Errorf("ffmpeg exited: %w", waitErr)
		}
		if err == nil {
			err = io.EOF
		}
		dev.fail(err)
	}()

	waitCtx, waitCancel := context.WithTimeout(ctx, firstFrameTimeout)
	defer waitCancel()
	if err := dev.waitFirst(waitCtx); err != nil {
		_ = dev.Close()
		return nil, fmt.Errorf("open %s: %w", s.Device, err)
	}
	return dev, nil
}

// streamDevice keeps only the newest decoded frame. ReadFrame never returns
// the same frame twice.
type streamDevice struct {
	cancel context.CancelFunc

	mu     sync.Mutex
	latest []byte
	seq    uint64
	served uint64
	err    error
	update chan struct{}
}

func newStreamDevice(cancel context.CancelFunc) *streamDevice {
	return &streamDevice{cancel: cancel, update: make(chan struct{})}
}

func (d *streamDevice) push(frame []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.latest = frame
	d.seq++
	close(d.update)
	d.update = make(chan struct{})
}

func (d *streamDevice) fail(err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err == nil {
		d.err = err
	}
	close(d.update)
	d.update = make(chan struct{})
}

func (d *streamDevice) waitFirst(ctx context.Context) error {
	for {
		d.mu.Lock()
		if d.seq > 0 {
			d.mu.Unlock()
			return nil
		}
		if d.err != nil {
			err := d.err
			d.mu.Unlock()
			return err
		}
		ch := d.update
		d.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return fmt.Errorf("waiting for first frame: %w", ctx.Err())
		}
	}
}

func (d *streamDevice) ReadFrame(ctx context.Context) ([]byte, error) {
	for {
		d.mu.Lock()
		if d.seq > d.served {
			d.served = d.seq
			frame := d.latest
			d.mu.Unlock()
			return frame, nil
		}
		if d.err != nil {
			err := d.err
			d.mu.Unlock()
			return nil, err
		}
		ch := d.update
		d.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (d *streamDevice) Close() error {
	d.cancel()
	d.fail(errDeviceClosed)
	return nil
}

func isRemote(device string) bool {
	return strings.Contains(device, "://")
}

func isLocalCamera(device, goos string) bool {
	if isRemote(device) {
		return false
	}
	switch goos {
	case "linux":
		return strings.HasPrefix(device, "/dev/video")
	case "darwin":
		return isDigits(device)
	case "windows":
		return strings.HasPrefix(device, "video=")
	}
	return false
}

// inputArgs returns the ffmpeg options that precede -i.
func inputArgs(device, format, goos string) []string {
	if format == "" && isLocalCamera(device, goos) {
		switch goos {
		case "linux":
			format = "v4l2"
		case "darwin":
			format = "avfoundation"
		case "windows":
			format = "dshow"
		}
	}
	if format != "" {
		args := []string{"-f", format}
		if format == "avfoundation" {
			args = append(args, "-framerate", "30")
		}
		return args
	}

	switch {
	case strings.HasPrefix(device, "rtsp://") || strings.HasPrefix(device, "rtsps://"):
		return []string{"-rtsp_transport", "tcp", "-timeout", "5000000"}
	case strings.HasPrefix(device, "http://") || strings.HasPrefix(device, "https://"):
		return []string{"-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5"}
	case !isRemote(device):
		// files play at native rate so frames are spaced in time
		return []string{"-re"}
	}
	return nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
