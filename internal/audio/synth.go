package audio

import "math"

// Tone is one sine segment to render: a pitch held from StartSec to EndSec.
type Tone struct {
	StartSec float64
	EndSec   float64
	Hz       float64
}

const (
	toneAmplitude = 0.4
	// Attack/release ramp keeping note boundaries click-free.
	envelopeSec = 0.02
)

// RenderTones synthesizes the tones into a mono buffer at the given sample
// rate. Gaps between tones render as silence. The buffer extends to the end
// of the last tone plus tailSec of silence.
func RenderTones(tones []Tone, sampleRate int, tailSec float64) *Buffer {
	end := 0.0
	for _, t := range tones {
		if t.EndSec > end {
			end = t.EndSec
		}
	}
	total := int((end + tailSec) * float64(sampleRate))
	samples := make([]float32, total)

	for _, t := range tones {
		if t.Hz <= 0 || t.EndSec <= t.StartSec {
			continue
		}
		start := int(t.StartSec * float64(sampleRate))
		stop := int(t.EndSec * float64(sampleRate))
		if stop > total {
			stop = total
		}
		ramp := int(envelopeSec * float64(sampleRate))
		if ramp*2 > stop-start {
			ramp = (stop - start) / 2
		}
		for i := start; i < stop; i++ {
			tSec := float64(i-start) / float64(sampleRate)
			v := toneAmplitude * math.Sin(2*math.Pi*t.Hz*tSec)

			// Envelope
			if i-start < ramp {
				v *= float64(i-start) / float64(ramp)
			} else if stop-i < ramp {
				v *= float64(stop-i) / float64(ramp)
			}
			samples[i] += float32(v)
		}
	}

	return &Buffer{Samples: samples, SampleRate: sampleRate}
}
