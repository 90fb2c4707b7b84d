package capture

import (
	"context"
	"errors"

	"pantryscan/internal/model"
)

// ErrCaptureUnavailable reports that no frame source could be acquired.
var ErrCaptureUnavailable = errors.New("capture unavailable")

// FrameHandler receives every frame produced by a FrameSource. It must not
// block; the controller's handler only schedules the frame.
type FrameHandler func(frame model.Frame)

// FrameSource is a camera or any other producer of frames.
//
// Configure acquires the device and starts invoking handler once per frame
// from the source's own goroutine. Release stops delivery and frees the
// device; after Release returns, handler is not called again.
type FrameSource interface {
	Configure(ctx context.Context, handler FrameHandler) error
	Release() error
}
