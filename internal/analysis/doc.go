// Package analysis inspects recorded runs.
//
//   - [Spectrum]: power spectrum of a sample series, used to find solver
//     jitter in resting contacts
//   - [Divergence]: separation growth of two runs that start a perturbation apart
//   - [NewPortrait]: two series plotted against each other
//   - [SweepToASCII]: metric values over a swept parameter
//
// # Jitter Detection
//
// A settled stack should have a quiet kinetic energy series. Power at high
// frequencies means contacts are fighting each other:
//
//	ps, _ := analysis.Spectrum(kinetic, dt)
//	if ps.HighFrequencyRatio(5) > 0.5 {
//	    // the stack is buzzing
//	}
package analysis
