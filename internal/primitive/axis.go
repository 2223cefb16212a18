package primitive

import (
	"fmt"
	"strings"

	"github.com/kestrelworks/spatial-core/internal/geometry"
	"github.com/kestrelworks/spatial-core/internal/pose"
)

// Axis is a parsed metric axis token. Entity-local axes carry the role
// of the pair member they follow ("A" or "B") and must be resolved
// against that entity's live axes each tick; world axes are constant.
type Axis struct {
	// Role is "A" or "B" for entity-local axes, empty for world axes.
	Role string
	// Name is the canonical local direction (up, forward, right,
	// majorDiagonal, minorDiagonal) or the world axis letter (X, Y, Z).
	Name string
	// Flip negates the resolved direction.
	Flip bool
}

// World reports the constant world direction, or false for
// entity-local axes.
func (a Axis) World() (geometry.Vec3, bool) {
	if a.Role != "" {
		return geometry.Vec3{}, false
	}
	var v geometry.Vec3
	switch a.Name {
	case "X":
		v = geometry.Vec3{X: 1}
	case "Y":
		v = geometry.Vec3{Y: 1}
	case "Z":
		v = geometry.Vec3{Z: 1}
	default:
		return geometry.Vec3{}, false
	}
	if a.Flip {
		v = v.Neg()
	}
	return v, true
}

// Resolve returns the axis direction given the owning entity's current
// axes. World axes ignore the argument.
func (a Axis) Resolve(ax pose.Axes) geometry.Vec3 {
	if v, ok := a.World(); ok {
		return v
	}
	var v geometry.Vec3
	switch a.Name {
	case "up":
		v = ax.Up
	case "forward":
		v = ax.Forward
	case "right":
		v = ax.Right
	case "majorDiagonal":
		v = ax.MajorDiagonal
	case "minorDiagonal":
		v = ax.MinorDiagonal
	}
	if a.Flip {
		v = v.Neg()
	}
	return v
}

// ParseAxis parses an axis token. Local tokens are a direction name
// followed by the pair role, e.g. "upA", "rightB", "minorDiagonalA";
// down/left/back are aliases for the flipped opposite direction. World
// tokens are the bare letters X, Y, Z. A leading '-' flips the sign of
// any token.
func ParseAxis(token string) (Axis, error) {
	raw := token
	flip := false
	if strings.HasPrefix(token, "-") {
		flip = true
		token = token[1:]
	}
	switch token {
	case "X", "Y", "Z":
		return Axis{Name: token, Flip: flip}, nil
	}
	var role string
	switch {
	case strings.HasSuffix(token, "A"):
		role = "A"
	case strings.HasSuffix(token, "B"):
		role = "B"
	default:
		return Axis{}, fmt.Errorf("%w: axis %q must end in A or B", ErrInvalidSpec, raw)
	}
	name := token[:len(token)-1]
	switch name {
	case "up", "forward", "right", "majorDiagonal", "minorDiagonal":
	case "forth":
		name = "forward"
	case "down":
		name, flip = "up", !flip
	case "left":
		name, flip = "right", !flip
	case "back", "backward":
		name, flip = "forward", !flip
	default:
		return Axis{}, fmt.Errorf("%w: unknown axis %q", ErrInvalidSpec, raw)
	}
	return Axis{Role: role, Name: name, Flip: flip}, nil
}
