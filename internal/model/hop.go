package model

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// Hop is one single-pool leg of a route.
type Hop struct {
	From   common.Address `json:"from"`
	To     common.Address `json:"to"`
	Stable bool           `json:"stable"`
}

// CurveKind names the pricing curve of a pool.
type CurveKind string

const (
	CurveVolatile CurveKind = "volatile"
	CurveStable   CurveKind = "stable"
)

// CurveOf maps the stable flag to its CurveKind.
func CurveOf(stable bool) CurveKind {
	if stable {
		return CurveStable
	}
	return CurveVolatile
}

// ParseCurveKind accepts "stable"/"volatile" (and the s/v shorthands).
func ParseCurveKind(input string) (CurveKind, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "stable", "s":
		return CurveStable, nil
	case "volatile", "v", "":
		return CurveVolatile, nil
	default:
		return "", fmt.Errorf("invalid curve kind: %s", input)
	}
}

// Stable reports whether the kind selects the stable curve.
func (k CurveKind) Stable() bool {
	return k == CurveStable
}
