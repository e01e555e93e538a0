// Package shape translates between the client's drawing primitives and the
// flat column layout the store persists.
//
// Rectangles and circles fit the numeric columns directly. Pencil paths and
// text carry a variable-length payload, which is encoded into the points
// column beside an anchor x/y so every variant shares one row shape.
package shape

import (
	"encoding/json"
	"errors"
	"fmt"
)

const (
	TypeRect   = "rect"
	TypeCircle = "circle"
	TypePencil = "pencil"
	TypeText   = "text"
)

var ErrUnknownType = errors.New("shape: unknown type")

// Fields is the column mapping of one shape.
type Fields struct {
	Type   string
	X      float64
	Y      float64
	Width  float64
	Height float64
	Radius float64
	Points string // encoded side-channel payload for pencil/text
}

// wireShape is the superset of all client shape variants.
type wireShape struct {
	ID       string    `json:"id"`
	Type     string    `json:"type"`
	X        float64   `json:"x"`
	Y        float64   `json:"y"`
	Width    float64   `json:"width"`
	Height   float64   `json:"height"`
	CenterX  float64   `json:"centerX"`
	CenterY  float64   `json:"centerY"`
	Radius   float64   `json:"radius"`
	Points   []float64 `json:"points"`
	Content  string    `json:"content"`
	FontSize float64   `json:"fontSize"`
}

type textPayload struct {
	Content  string  `json:"content"`
	FontSize float64 `json:"fontSize"`
}

// Decode parses a client shape payload and maps it to its column form. The
// returned uid is the client-generated stable identifier; it may be empty on
// legacy creates and the caller decides whether to mint one.
func Decode(raw []byte) (uid string, f Fields, err error) {
	var w wireShape
	if err := json.Unmarshal(raw, &w); err != nil {
		return "", Fields{}, fmt.Errorf("shape: decode: %w", err)
	}

	f.Type = w.Type
	switch w.Type {
	case TypeRect:
		f.X, f.Y = w.X, w.Y
		f.Width, f.Height = w.Width, w.Height
	case TypeCircle:
		f.X, f.Y = w.CenterX, w.CenterY
		f.Radius = w.Radius
	case TypePencil:
		if len(w.Points) < 2 {
			return "", Fields{}, errors.New("shape: pencil path needs at least one point")
		}
		f.X, f.Y = w.Points[0], w.Points[1]
		encoded, err := json.Marshal(w.Points)
		if err != nil {
			return "", Fields{}, fmt.Errorf("shape: encode points: %w", err)
		}
		f.Points = string(encoded)
	case TypeText:
		f.X, f.Y = w.X, w.Y
		encoded, err := json.Marshal(textPayload{Content: w.Content, FontSize: w.FontSize})
		if err != nil {
			return "", Fields{}, fmt.Errorf("shape: encode text: %w", err)
		}
		f.Points = string(encoded)
	default:
		return "", Fields{}, fmt.Errorf("%w: %q", ErrUnknownType, w.Type)
	}

	return w.ID, f, nil
}

// Rewire reverses the column mapping back into the client's shape form, for
// replay endpoints that return full shapes rather than raw rows.
func Rewire(uid string, f Fields) (json.RawMessage, error) {
	switch f.Type {
	case TypeRect:
		return json.Marshal(struct {
			ID     string  `json:"id"`
			Type   string  `json:"type"`
			X      float64 `json:"x"`
			Y      float64 `json:"y"`
			Width  float64 `json:"width"`
			Height float64 `json:"height"`
		}{uid, TypeRect, f.X, f.Y, f.Width, f.Height})
	case TypeCircle:
		return json.Marshal(struct {
			ID      string  `json:"id"`
			Type    string  `json:"type"`
			CenterX float64 `json:"centerX"`
			CenterY float64 `json:"centerY"`
			Radius  float64 `json:"radius"`
		}{uid, TypeCircle, f.X, f.Y, f.Radius})
	case TypePencil:
		var points []float64
		if f.Points != "" {
			if err := json.Unmarshal([]byte(f.Points), &points); err != nil {
				return nil, fmt.Errorf("shape: decode stored points: %w", err)
			}
		}
		return json.Marshal(struct {
			ID     string    `json:"id"`
			Type   string    `json:"type"`
			Points []float64 `json:"points"`
		}{uid, TypePencil, points})
	case TypeText:
		var payload textPayload
		if f.Points != "" {
			if err := json.Unmarshal([]byte(f.Points), &payload); err != nil {
				return nil, fmt.Errorf("shape: decode stored text: %w", err)
			}
		}
		return json.Marshal(struct {
			ID       string  `json:"id"`
			Type     string  `json:"type"`
			X        float64 `json:"x"`
			Y        float64 `json:"y"`
			Content  string  `json:"content"`
			FontSize float64 `json:"fontSize"`
		}{uid, TypeText, f.X, f.Y, payload.Content, payload.FontSize})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, f.Type)
	}
}
