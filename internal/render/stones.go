package render

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

const blackStoneSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
<circle cx="50" cy="50" r="46" fill="#1b1b1b" stroke="#000000" stroke-width="3"/>
<circle cx="36" cy="34" r="12" fill="#4a4a4a"/>
</svg>`

const whiteStoneSVG = `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 100 100">
<circle cx="50" cy="50" r="46" fill="#f4f4f0" stroke="#8a8a80" stroke-width="3"/>
<circle cx="38" cy="36" r="12" fill="#ffffff"/>
</svg>`

type stoneKey struct {
	cell int
	size int
}

// stoneCache rasterizes each stone SVG once per size.
type stoneCache struct {
	mu   sync.RWMutex
	imgs map[stoneKey]image.Image
}

func (c *stoneCache) get(cell, size int) (image.Image, error) {
	key := stoneKey{cell: cell, size: size}
	c.mu.RLock()
	img, ok := c.imgs[key]
	c.mu.RUnlock()
	if ok {
		return img, nil
	}

	var src string
	switch cell {
	case 1:
		src = blackStoneSVG
	case 2:
		src = whiteStoneSVG
	default:
		return nil, fmt.Errorf("no stone for cell %d", cell)
	}
	img, err := rasterizeSVG([]byte(src), size)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.imgs == nil {
		c.imgs = make(map[stoneKey]image.Image)
	}
	c.imgs[key] = img
	c.mu.Unlock()
	return img, nil
}

func rasterizeSVG(data []byte, size int) (image.Image, error) {
	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse stone svg: %w", err)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	raster := rasterx.NewDasher(size, size, scanner)
	icon.Draw(raster, 1.0)
	return img, nil
}
