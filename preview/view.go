package preview

import (
	"image"
	"sync"

	"github.com/golang/geo/r2"
	"github.com/pkg/errors"

	"go.viam.com/camview/geometry"
	"go.viam.com/camview/logging"
)

// ErrNoTransform is returned by methods that need a transform before one has been computed.
var ErrNoTransform = errors.New("no preview transform; preview size or surface not set")

// StateCallback is told when the view's surface becomes usable and when it goes away.
type StateCallback interface {
	OnReady(v *View)
	OnDestroyed(v *View)
}

// View holds the state of a surface showing a camera preview and keeps its transform current.
// The transform is recomputed from scratch whenever the preview size, surface size, mirror flag
// or display state changes. Until a preview size is set no transform is computed and frames are
// shown untransformed.
type View struct {
	display Display
	logger  logging.Logger

	mu          sync.Mutex
	previewSize *geometry.Size
	viewSize    geometry.Size
	available   bool
	mirror      bool
	transform   geometry.Affine
	computed    bool
	callback    StateCallback
	listeners   []func(geometry.Affine)
}

// NewView returns a View that reads rotation and orientation from display.
func NewView(display Display, logger logging.Logger) *View {
	return &View{
		display:   display,
		logger:    logger,
		transform: geometry.Identity(),
	}
}

// SetStateCallback replaces the state callback. nil clears it.
func (v *View) SetStateCallback(cb StateCallback) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.callback = cb
}

// OnTransform registers fn to be called with every newly computed transform.
func (v *View) OnTransform(fn func(geometry.Affine)) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.listeners = append(v.listeners, fn)
}

// SetPreviewSize sets the frame size and recomputes the transform.
func (v *View) SetPreviewSize(size geometry.Size) {
	v.mu.Lock()
	v.previewSize = &size
	v.mu.Unlock()
	v.update()
}

// PreviewSize returns the frame size, if one was set.
func (v *View) PreviewSize() (geometry.Size, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.previewSize == nil {
		return geometry.Size{}, false
	}
	return *v.previewSize, true
}

// SetMirror sets whether frames are mirrored and recomputes the transform.
func (v *View) SetMirror(mirror bool) {
	v.mu.Lock()
	v.mirror = mirror
	v.mu.Unlock()
	v.update()
}

// Mirror returns the mirror flag.
func (v *View) Mirror() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.mirror
}

// SurfaceAvailable is called by the host once the surface exists.
func (v *View) SurfaceAvailable(width, height int) {
	v.mu.Lock()
	v.available = true
	v.viewSize = geometry.NewSize(width, height)
	cb := v.callback
	v.mu.Unlock()

	if cb != nil {
		cb.OnReady(v)
	}
	v.update()
}

// SurfaceSizeChanged is called by the host when the surface is resized.
func (v *View) SurfaceSizeChanged(width, height int) {
	v.mu.Lock()
	v.viewSize = geometry.NewSize(width, height)
	v.mu.Unlock()
	v.update()
}

// DisplayChanged is called by the host when the display rotation or configuration changes.
func (v *View) DisplayChanged() {
	v.update()
}

// SurfaceDestroyed is called by the host when the surface goes away. The transform is dropped.
func (v *View) SurfaceDestroyed() {
	v.mu.Lock()
	v.available = false
	v.computed = false
	v.transform = geometry.Identity()
	cb := v.callback
	v.mu.Unlock()

	if cb != nil {
		cb.OnDestroyed(v)
	}
}

// Size returns the current surface size.
func (v *View) Size() geometry.Size {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.viewSize
}

// Transform returns the current transform. The bool is false while there is none, in which
// case the identity is returned.
func (v *View) Transform() (geometry.Affine, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.transform, v.computed
}

// ViewToFrame maps a point on the view, such as a tap, to pixel coordinates in the preview
// frame.
func (v *View) ViewToFrame(pt r2.Point) (r2.Point, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.computed {
		return r2.Point{}, ErrNoTransform
	}
	frameRect := image.Rect(0, 0, v.previewSize.Width, v.previewSize.Height)
	frameToView := v.transform.Mul(StretchToView(frameRect, v.viewSize))
	viewToFrame, err := frameToView.Invert()
	if err != nil {
		return r2.Point{}, err
	}
	return viewToFrame.Apply(pt), nil
}

// Render draws frame as the surface currently shows it.
func (v *View) Render(frame image.Image, opts *RenderOptions) (*image.NRGBA, error) {
	v.mu.Lock()
	size := v.viewSize
	t := v.transform
	v.mu.Unlock()
	return Render(frame, size, t, opts)
}

func (v *View) update() {
	v.mu.Lock()
	if v.previewSize == nil || !v.available {
		v.mu.Unlock()
		return
	}

	rotation, orientation := v.display.State()
	params := Params{
		Preview:          *v.previewSize,
		View:             v.viewSize,
		Rotation:         rotation,
		DefaultLandscape: IsDefaultLandscape(rotation, orientation),
		Mirror:           v.mirror,
	}
	t, err := ComputeTransform(params)
	if err != nil {
		v.computed = false
		v.transform = geometry.Identity()
		v.mu.Unlock()
		v.logger.Warnw("cannot compute preview transform", "error", err)
		return
	}
	v.transform = t
	v.computed = true
	listeners := append([]func(geometry.Affine){}, v.listeners...)
	v.mu.Unlock()

	v.logger.Debugw("preview transform updated",
		"preview", params.Preview.String(),
		"view", params.View.String(),
		"rotation", rotation.Degrees(),
		"default_landscape", params.DefaultLandscape,
		"mirror", params.Mirror,
		"transform", t.String(),
	)
	for _, fn := range listeners {
		fn(t)
	}
}
