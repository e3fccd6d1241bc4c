package pitch

import (
	"math"
	"math/cmplx"
	"sort"

	"github.com/mjibson/go-dsp/fft"

	"github.com/tunelab/intone/internal/audio"
)

// FFTDetector implements pitch detection using FFT peak picking with
// quadratic interpolation. Tuned for singing voice.
type FFTDetector struct {
	minFrequency  float64 // Lowest frequency to detect (Hz)
	maxFrequency  float64 // Highest frequency to detect (Hz)
	peakThreshold float64 // Minimum peak height as fraction of highest peak
	silenceDB     float64 // Below this dB level the frame is silence
}

// NewFFTDetector creates a detector covering the vocal range.
func NewFFTDetector() *FFTDetector {
	return &FFTDetector{
		minFrequency:  80.0,   // below D2, nothing a singer produces
		maxFrequency:  1000.0, // above B5 harmonics dominate anyway
		peakThreshold: 0.2,
		silenceDB:     -45.0,
	}
}

// Detect analyzes an audio buffer and returns one raw pitch reading.
// Frames judged silent come back with Hz=0 and zero confidence.
func (d *FFTDetector) Detect(buffer *audio.Buffer, timeSec float64) (Reading, error) {
	if buffer == nil || len(buffer.Samples) == 0 {
		return Reading{}, ErrEmptyBuffer
	}
	if len(buffer.Samples) < 512 {
		return Reading{}, ErrShortBuffer
	}

	rms := buffer.RMS()
	db := -100.0
	if rms > 1e-7 {
		db = 20 * math.Log10(rms)
	}

	if db < d.silenceDB {
		return Reading{TimeSec: timeSec, RMS: rms}, nil
	}

	windowed := applyHannWindow(buffer.Samples)
	complexSamples := make([]complex128, len(windowed))
	for i, sample := range windowed {
		complexSamples[i] = complex(float64(sample), 0)
	}

	spectrum := fft.FFT(complexSamples)

	hz, salience := d.findFundamental(spectrum, buffer.SampleRate)
	if hz < d.minFrequency || hz > d.maxFrequency {
		return Reading{TimeSec: timeSec, RMS: rms}, nil
	}

	return Reading{
		TimeSec:    timeSec,
		Hz:         hz,
		Confidence: salience,
		RMS:        rms,
	}, nil
}

// applyHannWindow applies a Hann window to the audio samples.
func applyHannWindow(samples []float32) []float32 {
	windowed := make([]float32, len(samples))
	n := float64(len(samples) - 1)
	for i, sample := range samples {
		coeff := 0.5 * (1 - math.Cos(2*math.Pi*float64(i)/n))
		windowed[i] = sample * float32(coeff)
	}
	return windowed
}

type peak struct {
	bin       int
	magnitude float64
	frequency float64
}

// findFundamental picks the strongest interpolated spectral peak in the
// vocal range and reports it with a 0..1 salience measure (how much the
// winning peak dominates the in-range spectrum).
func (d *FFTDetector) findFundamental(spectrum []complex128, sampleRate int) (float64, float64) {
	half := spectrum[:len(spectrum)/2]
	binSizeHz := float64(sampleRate) / float64(len(spectrum))

	minBin := int(d.minFrequency / binSizeHz)
	if minBin < 1 {
		minBin = 1 // avoid DC component
	}
	maxBin := int(d.maxFrequency / binSizeHz)
	if maxBin >= len(half) {
		maxBin = len(half) - 1
	}

	maxMagnitude := 0.0
	totalMagnitude := 0.0
	for i := minBin; i <= maxBin; i++ {
		m := cmplx.Abs(half[i])
		totalMagnitude += m
		if m > maxMagnitude {
			maxMagnitude = m
		}
	}
	if maxMagnitude == 0 || totalMagnitude == 0 {
		return 0, 0
	}

	var peaks []peak
	for i := minBin + 1; i < maxBin; i++ {
		magnitude := cmplx.Abs(half[i])
		prev := cmplx.Abs(half[i-1])
		next := cmplx.Abs(half[i+1])

		if magnitude <= prev || magnitude <= next || magnitude < maxMagnitude*d.peakThreshold {
			continue
		}

		// Quadratic interpolation for sub-bin peak location:
		// delta = 0.5 * (R[k-1] - R[k+1]) / (R[k-1] - 2*R[k] + R[k+1])
		freq := float64(i) * binSizeHz
		if denom := prev - 2*magnitude + next; denom != 0 {
			delta := 0.5 * (prev - next) / denom
			freq = (float64(i) + delta) * binSizeHz
		}
		peaks = append(peaks, peak{bin: i, magnitude: magnitude, frequency: freq})
	}
	if len(peaks) == 0 {
		return 0, 0
	}

	sort.Slice(peaks, func(i, j int) bool {
		return peaks[i].magnitude > peaks[j].magnitude
	})

	// Salience: energy share of the winner and its two neighbor bins
	// relative to everything in range. Pure tones land near 1, noise
	// spreads energy and lands near 0.
	best := peaks[0]
	local := best.magnitude
	if best.bin-1 >= minBin {
		local += cmplx.Abs(half[best.bin-1])
	}
	if best.bin+1 <= maxBin {
		local += cmplx.Abs(half[best.bin+1])
	}
	salience := local / totalMagnitude
	if salience > 1 {
		salience = 1
	}

	return best.frequency, salience
}
