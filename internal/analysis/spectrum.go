package analysis

import (
	"errors"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
)

var ErrShortSeries = errors.New("analysis: series too short")

type PowerSpectrum struct {
	// Frequencies in Hz, from 0 to the Nyquist frequency.
	Frequencies []float64
	Power       []float64
	// Dominant is the strongest non-zero frequency.
	Dominant      float64
	DominantPower float64
}

// Spectrum computes the one-sided power spectrum of series sampled every dt
// seconds. The mean is removed first so a constant offset does not mask
// the oscillation.
func Spectrum(series []float64, dt float64) (*PowerSpectrum, error) {
	n := len(series)
	if n < 4 {
		return nil, ErrShortSeries
	}
	if dt <= 0 {
		return nil, errors.New("analysis: sample interval must be positive")
	}

	mean := 0.0
	for _, v := range series {
		mean += v
	}
	mean /= float64(n)
	centered := make([]float64, n)
	for i, v := range series {
		centered[i] = v - mean
	}

	coeffs := fft.FFTReal(centered)
	half := n/2 + 1
	ps := &PowerSpectrum{
		Frequencies: make([]float64, half),
		Power:       make([]float64, half),
	}
	for k := 0; k < half; k++ {
		ps.Frequencies[k] = float64(k) / (float64(n) * dt)
		a := cmplx.Abs(coeffs[k]) / float64(n)
		ps.Power[k] = a * a
		if k > 0 && ps.Power[k] > ps.DominantPower {
			ps.DominantPower = ps.Power[k]
			ps.Dominant = ps.Frequencies[k]
		}
	}
	return ps, nil
}

// Total is the summed power over all frequencies.
func (ps *PowerSpectrum) Total() float64 {
	sum := 0.0
	for _, p := range ps.Power {
		sum += p
	}
	return sum
}

// HighFrequencyRatio is the share of power at or above cutoff Hz.
func (ps *PowerSpectrum) HighFrequencyRatio(cutoff float64) float64 {
	total := ps.Total()
	if total == 0 {
		return 0
	}
	high := 0.0
	for k, f := range ps.Frequencies {
		if f >= cutoff {
			high += ps.Power[k]
		}
	}
	return high / total
}
