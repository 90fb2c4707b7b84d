// Package camera captures frames from a local video device with gocv.
package camera

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"gocv.io/x/gocv"

	"pantryscan/internal/config"
	"pantryscan/internal/logger"
	"pantryscan/internal/model"
	"pantryscan/internal/service/capture"
)

// readFailureLimit is how many consecutive failed reads end the capture loop,
// e.g. when the device is unplugged.
const readFailureLimit = 50

// DeviceSource is a capture.FrameSource backed by gocv.VideoCapture. Frames
// are JPEG encoded at the configured low-resolution preset.
type DeviceSource struct {
	device string
	width  int
	height int
	logger *logger.Logger

	mu      sync.Mutex
	capture *gocv.VideoCapture
	stop    chan struct{}
	done    chan struct{}
}

// NewDeviceSource creates a source for the configured camera device.
func NewDeviceSource(cfg *config.Config, logger *logger.Logger) *DeviceSource {
	return &DeviceSource{
		device: cfg.CameraDevice,
		width:  cfg.CaptureWidth,
		height: cfg.CaptureHeight,
		logger: logger,
	}
}

// Configure opens the device and starts delivering frames to handler.
func (s *DeviceSource) Configure(ctx context.Context, handler capture.FrameHandler) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture != nil {
		return errors.New("camera device already configured")
	}

	vc, err := gocv.OpenVideoCapture(s.device)
	if err != nil {
		return fmt.Errorf("open camera device %s: %w", s.device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return fmt.Errorf("camera device %s is not available", s.device)
	}
	if s.width > 0 && s.height > 0 {
		vc.Set(gocv.VideoCaptureFrameWidth, float64(s.width))
		vc.Set(gocv.VideoCaptureFrameHeight, float64(s.height))
	}

	s.capture = vc
	s.stop = make(chan struct{})
	s.done = make(chan struct{})
	go s.readLoop(vc, handler, s.stop, s.done)

	s.logger.Info("Camera device %s opened at %dx%d", s.device, s.width, s.height)
	return nil
}

// Release stops the read loop and closes the device.
func (s *DeviceSource) Release() error {
	s.mu.Lock()
	vc, stop, done := s.capture, s.stop, s.done
	s.capture, s.stop, s.done = nil, nil, nil
	s.mu.Unlock()

	if vc == nil {
		return nil
	}
	close(stop)
	<-done

	if err := vc.Close(); err != nil {
		return fmt.Errorf("close camera device %s: %w", s.device, err)
	}
	s.logger.Info("Camera device %s released", s.device)
	return nil
}

func (s *DeviceSource) readLoop(vc *gocv.VideoCapture, handler capture.FrameHandler, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	mat := gocv.NewMat()
	defer mat.Close()

	var seq uint64
	failures := 0

	for {
		select {
		case <-stop:
			return
		default:
		}

		if ok := vc.Read(&mat); !ok || mat.Empty() {
			failures++
			if failures >= readFailureLimit {
				s.logger.Error("Camera device %s stopped delivering frames", s.device)
				return
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		failures = 0

		buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
		if err != nil {
			s.logger.Error("Failed to encode frame: %v", err)
			continue
		}
		data := make([]byte, len(buf.GetBytes()))
		copy(data, buf.GetBytes())
		buf.Close()

		seq++
		handler(model.Frame{
			Seq:        seq,
			Data:       data,
			Width:      mat.Cols(),
			Height:     mat.Rows(),
			CapturedAt: time.Now(),
		})
	}
}
