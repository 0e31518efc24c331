package system

import (
	"bytes"
	"image"
	"sync"
)

// CanvasPool переиспользует RGBA-холсты между слайдами: холст 2160x3840
// весит ~33 МБ, и без пула GC начинает заметно тормозить параллельный
// рендер. Пулы раскладываются по размеру холста.
type CanvasPool struct {
	pools map[[2]int]*sync.Pool
	mu    sync.RWMutex
}

var canvases = &CanvasPool{
	pools: make(map[[2]int]*sync.Pool),
}

// GetCanvas возвращает холст указанного размера. Содержимое не обнуляется:
// вызывающий обязан перерисовать холст целиком.
func GetCanvas(w, h int) *image.RGBA {
	return canvases.Get(w, h)
}

// PutCanvas возвращает холст в пул.
func PutCanvas(img *image.RGBA) {
	canvases.Put(img)
}

func (p *CanvasPool) Get(w, h int) *image.RGBA {
	key := [2]int{w, h}
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if !exists {
		p.mu.Lock()
		// Double check
		pool, exists = p.pools[key]
		if !exists {
			pool = &sync.Pool{
				New: func() interface{} {
					return image.NewRGBA(image.Rect(0, 0, w, h))
				},
			}
			p.pools[key] = pool
		}
		p.mu.Unlock()
	}

	return pool.Get().(*image.RGBA)
}

func (p *CanvasPool) Put(img *image.RGBA) {
	if img == nil {
		return
	}
	key := [2]int{img.Rect.Dx(), img.Rect.Dy()}
	p.mu.RLock()
	pool, exists := p.pools[key]
	p.mu.RUnlock()

	if exists {
		pool.Put(img)
	}
}

// Пул буферов PNG-кодирования: слайды кодируются в память и пишутся на
// диск одним вызовом.
var encodeBuffers = sync.Pool{
	New: func() interface{} {
		return new(bytes.Buffer)
	},
}

func GetEncodeBuffer() *bytes.Buffer {
	return encodeBuffers.Get().(*bytes.Buffer)
}

func PutEncodeBuffer(b *bytes.Buffer) {
	if b == nil {
		return
	}
	b.Reset()
	encodeBuffers.Put(b)
}
