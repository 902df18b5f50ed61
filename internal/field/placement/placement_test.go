package placement

import (
	"math"
	"testing"
	"time"

	"github.com/louisbranch/solarfield/internal/field/event"
	"github.com/louisbranch/solarfield/internal/field/geom"
	apperrors "github.com/louisbranch/solarfield/internal/platform/errors"
	"github.com/louisbranch/solarfield/internal/platform/id"
)

const tol = 1e-9

var viewport = Viewport{Width: 800, Height: 600}

func center() Pixel {
	return Pixel{X: viewport.Width / 2, Y: viewport.Height / 2}
}

func TestViewportNDC(t *testing.T) {
	tests := []struct {
		name  string
		pixel Pixel
		wantX float64
		wantY float64
	}{
		{name: "top left", pixel: Pixel{0, 0}, wantX: -1, wantY: 1},
		{name: "bottom right", pixel: Pixel{800, 600}, wantX: 1, wantY: -1},
		{name: "center", pixel: center(), wantX: 0, wantY: 0},
		{name: "quarter", pixel: Pixel{200, 150}, wantX: -0.5, wantY: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			x, y := viewport.NDC(tt.pixel)
			if math.Abs(x-tt.wantX) > tol || math.Abs(y-tt.wantY) > tol {
				t.Fatalf("NDC = (%v, %v), want (%v, %v)", x, y, tt.wantX, tt.wantY)
			}
		})
	}
}

func TestCenterClickFromTopDownCamera(t *testing.T) {
	const (
		cameraHeight = 10.0
		groundHeight = 2.0
	)
	camera := Camera{
		Position: geom.V(3, 4, cameraHeight),
		Target:   geom.V(3, 4, 0),
		Up:       geom.V(0, 0, 1),
		FovY:     60,
	}

	point, ok := ComputeWorldPoint(center(), viewport, camera, groundHeight)
	if !ok {
		t.Fatal("expected intersection")
	}
	if want := geom.V(3, 4, groundHeight); !point.ApproxEqual(want, tol) {
		t.Fatalf("point = %+v, want %+v", point, want)
	}
}

func TestTopDownCameraWithYUp(t *testing.T) {
	camera := Camera{Position: geom.V(1, 10, -2), Target: geom.V(1, 0, -2), Up: geom.V(0, 1, 0), FovY: 75}

	point, ok := ComputeWorldPoint(center(), viewport, camera, DefaultGroundHeight)
	if !ok {
		t.Fatal("expected intersection")
	}
	if want := geom.V(1, DefaultGroundHeight, -2); !point.ApproxEqual(want, tol) {
		t.Fatalf("point = %+v, want %+v", point, want)
	}

	corner, ok := ComputeWorldPoint(Pixel{10, 20}, viewport, camera, DefaultGroundHeight)
	if !ok {
		t.Fatal("expected off-center intersection")
	}
	if math.Abs(corner.Y-DefaultGroundHeight) > tol {
		t.Fatalf("corner y = %v, want %v", corner.Y, DefaultGroundHeight)
	}
	if corner.ApproxEqual(point, 1e-3) {
		t.Fatal("expected off-center click to land elsewhere")
	}
}

func TestDefaultCameraCenterClick(t *testing.T) {
	point, ok := ComputeWorldPoint(center(), viewport, DefaultCamera(), DefaultGroundHeight)
	if !ok {
		t.Fatal("expected intersection")
	}
	// The view ray (0,-5,-10) from (0,5,10) reaches y=-0.5 at 1.1 times its length.
	if want := geom.V(0, -0.5, -1); !point.ApproxEqual(want, 1e-9) {
		t.Fatalf("point = %+v, want %+v", point, want)
	}
}

func TestClickSidesMatchScreenSides(t *testing.T) {
	camera := DefaultCamera()
	left, ok := ComputeWorldPoint(Pixel{100, 450}, viewport, camera, DefaultGroundHeight)
	if !ok {
		t.Fatal("expected left intersection")
	}
	right, ok := ComputeWorldPoint(Pixel{700, 450}, viewport, camera, DefaultGroundHeight)
	if !ok {
		t.Fatal("expected right intersection")
	}
	if left.X >= 0 || right.X <= 0 {
		t.Fatalf("left x = %v right x = %v, want negative and positive", left.X, right.X)
	}
	lower, ok := ComputeWorldPoint(Pixel{400, 590}, viewport, camera, DefaultGroundHeight)
	if !ok {
		t.Fatal("expected lower intersection")
	}
	if lower.Z <= right.Z {
		t.Fatalf("lower click z = %v, want nearer the camera than %v", lower.Z, right.Z)
	}
}

func TestNoIntersection(t *testing.T) {
	tests := []struct {
		name     string
		pointer  Pixel
		viewport Viewport
		camera   Camera
	}{
		{
			name:     "parallel",
			pointer:  center(),
			viewport: viewport,
			camera:   Camera{Position: geom.V(0, 0, 10), Target: geom.V(0, 0, 0), Up: geom.V(0, 1, 0), FovY: 75},
		},
		{
			name:     "diverging",
			pointer:  center(),
			viewport: viewport,
			camera:   Camera{Position: geom.V(0, 1, 10), Target: geom.V(0, 3, 0), Up: geom.V(0, 1, 0), FovY: 75},
		},
		{
			name:     "above horizon",
			pointer:  Pixel{400, 0},
			viewport: viewport,
			camera:   Camera{Position: geom.V(0, 1, 10), Target: geom.V(0, 0.5, 0), Up: geom.V(0, 1, 0), FovY: 75},
		},
		{
			name:     "NaN pointer",
			pointer:  Pixel{math.NaN(), 5},
			viewport: viewport,
			camera:   DefaultCamera(),
		},
		{
			name:     "infinite pointer",
			pointer:  Pixel{400, math.Inf(1)},
			viewport: viewport,
			camera:   DefaultCamera(),
		},
		{
			name:     "NaN camera",
			pointer:  center(),
			viewport: viewport,
			camera:   Camera{Position: geom.V(math.NaN(), 5, 10), Up: geom.V(0, 1, 0), FovY: 75},
		},
		{
			name:     "empty viewport",
			pointer:  center(),
			viewport: Viewport{},
			camera:   DefaultCamera(),
		},
		{
			name:     "camera on target",
			pointer:  center(),
			viewport: viewport,
			camera:   Camera{Position: geom.V(1, 1, 1), Target: geom.V(1, 1, 1), FovY: 75},
		},
		{
			name:     "bad fov",
			pointer:  center(),
			viewport: viewport,
			camera:   Camera{Position: geom.V(0, 5, 10), Up: geom.V(0, 1, 0)},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if point, ok := ComputeWorldPoint(tt.pointer, tt.viewport, tt.camera, DefaultGroundHeight); ok {
				t.Fatalf("expected no intersection, got %+v", point)
			}
			_, err := Locate(tt.pointer, tt.viewport, tt.camera, DefaultGroundHeight)
			if !apperrors.HasCode(err, apperrors.CodeNoIntersection) {
				t.Fatalf("expected no intersection error, got %v", err)
			}
			if apperrors.IsFatal(err) {
				t.Fatal("geometry errors must be recoverable")
			}
		})
	}
}

func TestNewCreated(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 123456789, time.UTC)
	evt, err := NewCreated(geom.V(1, -0.5, 2), "panel-1", now)
	if err != nil {
		t.Fatalf("new created: %v", err)
	}
	if evt.Type != event.TypeSolarPanelCreated || evt.EntityID != "panel-1" {
		t.Fatalf("unexpected envelope %+v", evt)
	}
	if got := string(evt.PayloadJSON); got != `{"id":"panel-1","x":1,"y":-0.5,"z":2}` {
		t.Fatalf("payload = %s", got)
	}

	generated, err := NewCreated(geom.V(0, 0, 0), "", now)
	if err != nil {
		t.Fatalf("new created: %v", err)
	}
	if !id.Valid(generated.EntityID) {
		t.Fatalf("generated id %q is not valid", generated.EntityID)
	}
}
