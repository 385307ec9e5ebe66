package capture

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func jpegBlob(body ...byte) []byte {
	out := []byte{0xFF, 0xD8}
	out = append(out, body...)
	return append(out, 0xFF, 0xD9)
}

func TestReadJPEGFrames_SplitsStream(t *testing.T) {
	a := jpegBlob(0x01, 0x02)
	b := jpegBlob(0x03, 0xFF, 0x00, 0x04) // stuffed 0xFF inside the body
	var stream []byte
	stream = append(stream, 0x00, 0x11) // garbage before the first frame
	stream = append(stream, a...)
	stream = append(stream, b...)

	var got [][]byte
	err := readJPEGFrames(context.Background(), bytes.NewReader(stream), func(f []byte) {
		got = append(got, f)
	})
	if err != nil {
		t.Fatalf("readJPEGFrames: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 frames, got %d", len(got))
	}
	if !reflect.DeepEqual(got[0], a) || !reflect.DeepEqual(got[1], b) {
		t.Errorf("frames differ: %x / %x", got[0], got[1])
	}
}

func TestReadJPEGFrames_FillBytesBeforeMarker(t *testing.T) {
	stream := append([]byte{0xFF, 0xFF}, jpegBlob(0x42)[1:]...)

	var got [][]byte
	if err := readJPEGFrames(context.Background(), bytes.NewReader(stream), func(f []byte) {
		got = append(got, f)
	}); err != nil {
		t.Fatalf("readJPEGFrames: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(got))
	}
}

func TestReadJPEGFrames_EmptyStream(t *testing.T) {
	err := readJPEGFrames(context.Background(), bytes.NewReader(nil), func([]byte) {})
	if err == nil {
		t.Fatal("expected error for a stream without frames")
	}
}

func TestReadJPEGFrames_TruncatedTail(t *testing.T) {
	stream := append(jpegBlob(0x01), 0xFF, 0xD8, 0x02)

	n := 0
	if err := readJPEGFrames(context.Background(), bytes.NewReader(stream), func([]byte) { n++ }); err != nil {
		t.Fatalf("truncated tail after a frame should end cleanly, got %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 frame, got %d", n)
	}
}

func TestReadJPEGFrames_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := readJPEGFrames(ctx, bytes.NewReader(jpegBlob()), func([]byte) {})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestStreamDevice_LatestFrameOnly(t *testing.T) {
	d := newStreamDevice(func() {})
	d.push([]byte("one"))
	d.push([]byte("two"))

	got, err := d.ReadFrame(context.Background())
	if err != nil || string(got) != "two" {
		t.Fatalf("expected newest frame, got %q / %v", got, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := d.ReadFrame(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected to wait for a fresh frame, got %v", err)
	}

	go d.push([]byte("three"))
	got, err = d.ReadFrame(context.Background())
	if err != nil || string(got) != "three" {
		t.Fatalf("expected fresh frame, got %q / %v", got, err)
	}
}

func TestStreamDevice_CloseFailsReads(t *testing.T) {
	cancelled := false
	d := newStreamDevice(func() { cancelled = true })
	if err := d.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if !cancelled {
		t.Error("expected ffmpeg context cancelled")
	}
	if _, err := d.ReadFrame(context.Background()); !errors.Is(err, errDeviceClosed) {
		t.Fatalf("expected errDeviceClosed, got %v", err)
	}
	if err := d.waitFirst(context.Background()); !errors.Is(err, errDeviceClosed) {
		t.Fatalf("expected waitFirst to fail after close, got %v", err)
	}
}

func TestInputArgs(t *testing.T) {
	tests := []struct {
		name   string
		device string
		format string
		goos   string
		want   []string
	}{
		{"linux camera", "/dev/video0", "", "linux", []string{"-f", "v4l2"}},
		{"mac camera", "0", "", "darwin", []string{"-f", "avfoundation", "-framerate", "30"}},
		{"windows camera", "video=Integrated Camera", "", "windows", []string{"-f", "dshow"}},
		{"explicit format", "/dev/video2", "mjpeg", "linux", []string{"-f", "mjpeg"}},
		{"rtsp", "rtsp://cam.local/stream", "", "linux", []string{"-rtsp_transport", "tcp", "-timeout", "5000000"}},
		{"http", "http://cam.local/mjpg", "", "linux", []string{"-reconnect", "1", "-reconnect_streamed", "1", "-reconnect_delay_max", "5"}},
		{"file", "testdata/face.mp4", "", "linux", []string{"-re"}},
		{"other remote", "srt://host:9000", "", "linux", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := inputArgs(tt.device, tt.format, tt.goos)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("inputArgs() = %v, want %v", got, tt.want)
			}
		})
	}
}
