package fund

import (
	"math"
	"strings"
)

// PopupSize is the outer size of the checkout window in CSS pixels.
type PopupSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Viewport is the size of the screen area the popup is placed on.
type Viewport struct {
	Width  int
	Height int
}

type SizePreset string

const (
	SizeSmall  SizePreset = "sm"
	SizeMedium SizePreset = "md"
	SizeLarge  SizePreset = "lg"
)

// The hosted checkout is laid out for 460x712.
const (
	checkoutWidth  = 460
	checkoutHeight = 712
)

var presetWidthRatio = map[SizePreset]float64{
	SizeSmall:  0.23,
	SizeMedium: 0.29,
	SizeLarge:  0.35,
}

// SizeFunc sizes the popup for a checkout URL.
type SizeFunc func(checkoutURL string) PopupSize

// FundingPopupSize picks the popup size for a preset. The width is a share of
// the viewport width and the height keeps the checkout's aspect ratio, shrunk
// to fit the viewport height. Versioned (/v2/) checkouts and unknown
// viewports get the native 460x712.
func FundingPopupSize(preset SizePreset, checkoutURL string, vp Viewport) PopupSize {
	native := PopupSize{Width: checkoutWidth, Height: checkoutHeight}
	if strings.Contains(checkoutURL, "/v2/") || vp.Width <= 0 || vp.Height <= 0 {
		return native
	}
	ratio, ok := presetWidthRatio[preset]
	if !ok {
		ratio = presetWidthRatio[SizeMedium]
	}
	width := int(math.Round(float64(vp.Width) * ratio))
	height := width * checkoutHeight / checkoutWidth
	if height > vp.Height {
		height = vp.Height
		width = height * checkoutWidth / checkoutHeight
	}
	return PopupSize{Width: width, Height: height}
}

// FixedSizer sizes every popup for the same preset and viewport.
func FixedSizer(preset SizePreset, vp Viewport) SizeFunc {
	return func(checkoutURL string) PopupSize {
		return FundingPopupSize(preset, checkoutURL, vp)
	}
}
