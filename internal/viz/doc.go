// Package viz draws worlds in the terminal: a braille canvas, side and
// orbit projections of the body shapes, a bubbletea live view with energy
// and contact history, and GIF capture of the canvas.
package viz
