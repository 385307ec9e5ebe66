package vision

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"

	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/visora/internal/config"
)

const detectorModel = "det_10g.onnx"

// InitRuntime loads the ONNX Runtime shared library. Callers must call
// ort.DestroyEnvironment (via the returned func) on shutdown.
func InitRuntime(libPath string) (func(), error) {
	if libPath == "" {
		libPath = defaultONNXLibPath()
	}
	ort.SetSharedLibraryPath(libPath)
	if err := ort.InitializeEnvironment(); err != nil {
		return nil, fmt.Errorf("init onnx runtime: %w", err)
	}
	return func() { _ = ort.DestroyEnvironment() }, nil
}

// LoadDetector loads the face detector from the configured models directory.
func LoadDetector(cfg config.VisionConfig) (*Detector, error) {
	path := filepath.Join(cfg.ModelsDir, detectorModel)
	slog.Info("loading detection model", "path", path)

	det, err := NewDetector(path, float32(cfg.DetectionThreshold), nil)
	if err != nil {
		return nil, fmt.Errorf("load detector: %w", err)
	}
	return det, nil
}

func defaultONNXLibPath() string {
	switch runtime.GOOS {
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}
