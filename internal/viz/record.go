package viz

import (
	"errors"
	"image"
	"image/color"
	"image/gif"
	"io"
	"os"
)

var ErrNoFrames = errors.New("viz: no frames recorded")

// Recorder turns canvas frames into an animated GIF. Each dot becomes a
// DotSize square.
type Recorder struct {
	DotSize int
	// Delay between frames, in hundredths of a second.
	Delay  int
	frames []*image.Paletted
}

func NewRecorder() *Recorder {
	return &Recorder{DotSize: 3, Delay: 2}
}

var recordPalette = color.Palette{color.Black, color.White}

// Capture appends the current canvas contents as a frame.
func (r *Recorder) Capture(c *Canvas) {
	d := max(r.DotSize, 1)
	pw, ph := c.PixelWidth(), c.PixelHeight()
	img := image.NewPaletted(image.Rect(0, 0, pw*d, ph*d), recordPalette)
	for y := 0; y < ph; y++ {
		for x := 0; x < pw; x++ {
			if !c.IsSet(x, y) {
				continue
			}
			for dy := 0; dy < d; dy++ {
				for dx := 0; dx < d; dx++ {
					img.SetColorIndex(x*d+dx, y*d+dy, 1)
				}
			}
		}
	}
	r.frames = append(r.frames, img)
}

func (r *Recorder) Frames() int { return len(r.frames) }

func (r *Recorder) Reset() { r.frames = r.frames[:0] }

func (r *Recorder) Encode(w io.Writer) error {
	if len(r.frames) == 0 {
		return ErrNoFrames
	}
	anim := &gif.GIF{Image: r.frames, Delay: make([]int, len(r.frames))}
	for i := range anim.Delay {
		anim.Delay[i] = r.Delay
	}
	return gif.EncodeAll(w, anim)
}

func (r *Recorder) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := r.Encode(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
