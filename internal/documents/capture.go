package documents

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"time"

	apperrors "github.com/doclexa/doclexa/internal/errors"
	"go.uber.org/zap"
)

// Capture takes photos with the local camera for the document pool.
type Capture struct {
	dataDir string
	device  string
	picker  *Picker
	logger  *zap.Logger
}

// NewCapture creates a camera capture helper. Photos land under
// dataDir/captures.
func NewCapture(dataDir, device string, picker *Picker, logger *zap.Logger) *Capture {
	if device == "" {
		device = "0"
	}
	return &Capture{
		dataDir: dataDir,
		device:  device,
		picker:  picker,
		logger:  logger,
	}
}

// CaptureImage takes a photo and admits it into the pool.
func (c *Capture) CaptureImage(ctx context.Context) (*Document, error) {
	timestamp := time.Now().Format("20060102_150405")
	filename := fmt.Sprintf("Photo_%s.jpg", timestamp)
	fullPath := filepath.Join(c.dataDir, "captures", filename)

	if err := os.MkdirAll(filepath.Dir(fullPath), 0755); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCaptureUnavailable.Code, "cannot create capture directory")
	}

	var err error
	switch runtime.GOOS {
	case "darwin":
		err = c.captureMacOS(ctx, fullPath)
	case "linux":
		err = c.captureLinux(ctx, fullPath)
	case "windows":
		err = c.captureWindows(ctx, fullPath)
	default:
		return nil, apperrors.New(apperrors.ErrCaptureUnavailable.Code,
			fmt.Sprintf("camera capture not supported on %s", runtime.GOOS))
	}
	if err != nil {
		c.logger.Warn("camera capture failed", zap.Error(err))
		return nil, apperrors.Wrap(err, apperrors.ErrCaptureUnavailable.Code, "camera capture failed")
	}

	return c.picker.PickImage(fullPath)
}

// captureMacOS uses imagesnap with an ffmpeg/avfoundation fallback.
func (c *Capture) captureMacOS(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "imagesnap", "-w", "1.0", path)
	if err := cmd.Run(); err == nil {
		return nil
	}

	cmd = exec.CommandContext(ctx, "ffmpeg", "-f", "avfoundation",
		"-video_size", "1280x720", "-i", c.device, "-vframes", "1", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to capture image on macOS: %w", err)
	}
	return nil
}

// captureLinux uses fswebcam with an ffmpeg/v4l2 fallback.
func (c *Capture) captureLinux(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "fswebcam", "-r", "1280x720", "--no-banner", path)
	if err := cmd.Run(); err == nil {
		return nil
	}

	cmd = exec.CommandContext(ctx, "ffmpeg", "-f", "v4l2",
		"-video_size", "1280x720", "-i", "/dev/video"+c.device, "-vframes", "1", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to capture image on Linux: %w. Install fswebcam or ffmpeg", err)
	}
	return nil
}

// captureWindows uses ffmpeg with dshow.
func (c *Capture) captureWindows(ctx context.Context, path string) error {
	cmd := exec.CommandContext(ctx, "ffmpeg", "-f", "dshow",
		"-i", "video="+c.device, "-vframes", "1", path)
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("failed to capture image on Windows: %w. Install ffmpeg", err)
	}
	return nil
}
