package holders

// Bar chart of the largest token holders, rendered with gg.

import (
	"fmt"
	"image/color"
	"math/big"
	"os"
	"path/filepath"

	"github.com/fogleman/gg"
	"go.uber.org/zap"

	"wrapsync/internal/appstate"
	logging "wrapsync/internal/infra/log"
)

const (
	chartWidth  = 1600
	chartHeight = 900

	chartAreaLeft   = 120.0
	chartAreaRight  = 1520.0
	chartAreaTop    = 180.0
	chartAreaBottom = 760.0

	barSpacing = 24.0

	titleFontSize = 40.0
	labelFontSize = 22.0
)

var (
	backgroundColor = color.Black
	barColor        = color.RGBA{90, 140, 255, 255}
	textColor       = color.White
	mutedColor      = color.RGBA{160, 160, 160, 255}
)

var fontPaths = []string{
	"etc/fonts/Inter-Regular.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/liberation/LiberationSans-Regular.ttf",
	"/System/Library/Fonts/Supplemental/Arial.ttf",
}

// Bar is one holder as drawn on the chart.
type Bar struct {
	Label  string
	Amount string
	Share  float64 // fraction of the largest bar, 0..1
}

// TopBars picks the n largest holders of a view and scales them against the
// largest balance.
func TopBars(view appstate.View, n int) []Bar {
	holders := view.Holders
	if n > 0 && len(holders) > n {
		holders = holders[:n]
	}
	if len(holders) == 0 {
		return nil
	}

	max := new(big.Float).SetInt(holders[0].Balance)
	bars := make([]Bar, 0, len(holders))
	for _, h := range holders {
		share := 0.0
		if max.Sign() > 0 {
			share, _ = new(big.Float).Quo(new(big.Float).SetInt(h.Balance), max).Float64()
		}
		bars = append(bars, Bar{
			Label:  ShortAddress(h.Address),
			Amount: appstate.FormatAmount(h.Balance, view.TokenDecimalsBase, 2),
			Share:  share,
		})
	}
	return bars
}

// ShortAddress keeps the first 6 and last 4 characters.
func ShortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}

func loadFont(dc *gg.Context, size float64) bool {
	for _, path := range fontPaths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if err := dc.LoadFontFace(path, size); err == nil {
			return true
		}
	}
	return false
}

// RenderChart draws the top n holders of view into a PNG at path.
func RenderChart(view appstate.View, n int, path string) error {
	bars := TopBars(view, n)
	if len(bars) == 0 {
		return fmt.Errorf("no holders to draw")
	}

	dc := gg.NewContext(chartWidth, chartHeight)
	dc.SetColor(backgroundColor)
	dc.Clear()

	fontLoaded := loadFont(dc, titleFontSize)
	if !fontLoaded {
		logging.LogWarn("No TTF font found, using the built-in face", zap.Strings("tried_paths", fontPaths))
	}

	title := "Top holders"
	if view.TokenSymbol != nil {
		title = fmt.Sprintf("Top %s holders", *view.TokenSymbol)
	}
	dc.SetColor(textColor)
	dc.DrawString(title, chartAreaLeft, 90)

	if fontLoaded {
		loadFont(dc, labelFontSize)
	}
	if view.TokenSupply != nil {
		dc.SetColor(mutedColor)
		supply := appstate.FormatAmount(view.TokenSupply, view.TokenDecimalsBase, 2)
		dc.DrawString(fmt.Sprintf("Total supply %s · %d holders", supply, len(view.Holders)), chartAreaLeft, 135)
	}

	dc.SetColor(mutedColor)
	dc.SetLineWidth(1)
	dc.DrawLine(chartAreaLeft, chartAreaBottom, chartAreaRight, chartAreaBottom)
	dc.Stroke()

	areaWidth := chartAreaRight - chartAreaLeft
	areaHeight := chartAreaBottom - chartAreaTop
	barWidth := (areaWidth - barSpacing*float64(len(bars)-1)) / float64(len(bars))

	for i, bar := range bars {
		x := chartAreaLeft + float64(i)*(barWidth+barSpacing)
		h := bar.Share * areaHeight
		y := chartAreaBottom - h

		dc.SetColor(barColor)
		dc.DrawRectangle(x, y, barWidth, h)
		dc.Fill()

		dc.SetColor(textColor)
		dc.DrawStringAnchored(bar.Amount, x+barWidth/2, y-16, 0.5, 0)
		dc.SetColor(mutedColor)
		dc.DrawStringAnchored(bar.Label, x+barWidth/2, chartAreaBottom+32, 0.5, 0)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create charts directory: %w", err)
	}
	if err := dc.SavePNG(path); err != nil {
		return fmt.Errorf("failed to save chart: %w", err)
	}

	logging.LogInfo("Holders chart generated",
		zap.String("filename", path),
		zap.Int("barsCount", len(bars)))
	return nil
}
