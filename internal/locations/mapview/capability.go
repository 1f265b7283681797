// Package mapview decides which map surface a form gets and models its
// contract: an interactive map emitting picks, or a static preview with
// instructions for copying coordinates by hand.
package mapview

import (
	"errors"
	"net/url"
	"strconv"
	"sync"

	"pickup_portal_backend/internal/locations/domain"
)

// Mode names a capability variant.
type Mode string

const (
	ModeInteractive Mode = "interactive"
	ModeStatic      Mode = "static"
)

var (
	// ErrPicksUnsupported is returned for map picks on a static surface.
	ErrPicksUnsupported = errors.New("map picks are not available; enter coordinates manually")
	// ErrSubscriptionClosed is returned for picks after the map was torn down.
	ErrSubscriptionClosed = errors.New("map subscription closed")
)

// PickFunc receives a validated pick or drag-end position.
type PickFunc func(domain.Coordinate) error

// Rendering is what the client needs to draw the map surface.
type Rendering struct {
	Mode            Mode               `json:"mode"`
	Center          *domain.Coordinate `json:"center,omitempty"`
	Zoom            int                `json:"zoom"`
	MarkerDraggable bool               `json:"markerDraggable"`
	TileURL         string             `json:"tileUrl,omitempty"`
	Attribution     string             `json:"attribution,omitempty"`
	PreviewURL      string             `json:"previewUrl,omitempty"`
	ExternalURL     string             `json:"externalUrl,omitempty"`
	Instructions    *Instructions      `json:"instructions,omitempty"`
}

// Capability is the map surface chosen for a session.
type Capability interface {
	Mode() Mode
	// Render describes the surface. The subscription is nil when the
	// surface cannot emit picks.
	Render(center *domain.Coordinate, zoom int, markerDraggable bool, onPick PickFunc) (Rendering, *Subscription)
}

// Subscription carries pick events from the rendered map to the reconciler.
type Subscription struct {
	mu     sync.Mutex
	onPick PickFunc
	closed bool
}

func newSubscription(onPick PickFunc) *Subscription {
	return &Subscription{onPick: onPick}
}

// Emit validates a pick and forwards it.
func (s *Subscription) Emit(lat, lng float64) error {
	coord, err := domain.NewCoordinate(lat, lng)
	if err != nil {
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSubscriptionClosed
	}
	onPick := s.onPick
	s.mu.Unlock()

	return onPick(coord)
}

// Close stops forwarding picks.
func (s *Subscription) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
}

// Interactive is a tile map with a click/drag marker.
type Interactive struct {
	tileURL     string
	attribution string
}

func (Interactive) Mode() Mode { return ModeInteractive }

func (m Interactive) Render(center *domain.Coordinate, zoom int, markerDraggable bool, onPick PickFunc) (Rendering, *Subscription) {
	return Rendering{
		Mode:            ModeInteractive,
		Center:          center,
		Zoom:            zoom,
		MarkerDraggable: markerDraggable,
		TileURL:         m.tileURL,
		Attribution:     m.attribution,
	}, newSubscription(onPick)
}

// Static is a read-only preview plus written instructions. Numeric entry is
// the only input path.
type Static struct {
	previewURL   string
	externalURL  string
	instructions Instructions
}

func (Static) Mode() Mode { return ModeStatic }

func (m Static) Render(center *domain.Coordinate, zoom int, _ bool, _ PickFunc) (Rendering, *Subscription) {
	instructions := m.instructions
	r := Rendering{
		Mode:         ModeStatic,
		Center:       center,
		Zoom:         zoom,
		ExternalURL:  m.externalURL,
		Instructions: &instructions,
	}
	if center != nil {
		r.PreviewURL = staticPreviewURL(m.previewURL, *center, zoom)
		r.ExternalURL = externalLink(m.externalURL, *center)
	}
	return r, nil
}

func staticPreviewURL(base string, center domain.Coordinate, zoom int) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return ""
	}
	point := strconv.FormatFloat(center.Latitude, 'f', 6, 64) + "," + strconv.FormatFloat(center.Longitude, 'f', 6, 64)
	q := u.Query()
	q.Set("center", point)
	q.Set("zoom", strconv.Itoa(zoom))
	q.Set("size", "600x300")
	q.Set("markers", point+",red-pushpin")
	u.RawQuery = q.Encode()
	return u.String()
}

func externalLink(base string, center domain.Coordinate) string {
	u, err := url.Parse(base)
	if err != nil || base == "" {
		return base
	}
	q := u.Query()
	q.Set("q", center.String())
	u.RawQuery = q.Encode()
	return u.String()
}
