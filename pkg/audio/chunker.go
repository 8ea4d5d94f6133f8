package audio

import (
	"math"
	"sync"
)

const (
	// TargetSampleRate is the rate the transcription backend expects.
	TargetSampleRate = 16000
	BytesPerSample   = 2
	FrameDurationMs  = 100
)

// FrameSizeBytes is the size of one fixed-duration frame: 100ms of 16-bit
// mono samples at the target rate.
func FrameSizeBytes() int {
	return TargetSampleRate * BytesPerSample * FrameDurationMs / 1000
}

// Chunker normalizes variable-rate, variable-size inbound audio into
// fixed-size frames at the target sample rate. Partial remainders are held
// until more data arrives or Flush is called.
type Chunker struct {
	mu        sync.Mutex
	inputRate int
	raw       []byte // pending input bytes awaiting sample alignment
	out       []byte // resampled bytes awaiting a full frame
	frameSize int
}

func NewChunker(inputRate int) *Chunker {
	if inputRate <= 0 {
		inputRate = TargetSampleRate
	}
	return &Chunker{
		inputRate: inputRate,
		frameSize: FrameSizeBytes(),
	}
}

// Write accepts an arbitrary-size chunk of PCM bytes and returns zero or
// more complete frames.
func (c *Chunker) Write(p []byte) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inputRate == TargetSampleRate {
		c.out = append(c.out, p...)
	} else {
		c.raw = append(c.raw, p...)
		usable := len(c.raw) - len(c.raw)%BytesPerSample
		if usable > 0 {
			samples := BytesToSamples(c.raw[:usable])
			c.raw = c.raw[usable:]
			resampled := ResampleLinear(samples, c.inputRate, TargetSampleRate)
			c.out = append(c.out, SamplesToBytes(resampled)...)
		}
	}

	return c.cutFrames()
}

// Flush returns the held remainder as a final, possibly short, frame.
// Returns nil when nothing is buffered.
func (c *Chunker) Flush() []byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.raw) > 0 && c.inputRate != TargetSampleRate {
		usable := len(c.raw) - len(c.raw)%BytesPerSample
		if usable > 0 {
			samples := BytesToSamples(c.raw[:usable])
			resampled := ResampleLinear(samples, c.inputRate, TargetSampleRate)
			c.out = append(c.out, SamplesToBytes(resampled)...)
		}
		c.raw = nil
	}

	if len(c.out) == 0 {
		return nil
	}

	remainder := make([]byte, len(c.out))
	copy(remainder, c.out)
	c.out = c.out[:0]
	return remainder
}

// Buffered returns how many output bytes are held below a full frame.
func (c *Chunker) Buffered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.out)
}

func (c *Chunker) cutFrames() [][]byte {
	var frames [][]byte
	for len(c.out) >= c.frameSize {
		frame := make([]byte, c.frameSize)
		copy(frame, c.out[:c.frameSize])
		frames = append(frames, frame)
		c.out = c.out[c.frameSize:]
	}
	return frames
}

// ResampleLinear converts 16-bit mono samples between rates using linear
// interpolation, clamping to the int16 range.
func ResampleLinear(in []int16, inRate, outRate int) []int16 {
	if inRate == outRate || len(in) == 0 {
		return append([]int16(nil), in...)
	}
	ratio := float64(outRate) / float64(inRate)
	outLen := int(math.Round(float64(len(in)) * ratio))
	if outLen <= 1 {
		return []int16{}
	}
	out := make([]int16, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) / ratio
		i0 := int(math.Floor(srcPos))
		i1 := i0 + 1
		if i1 >= len(in) {
			i1 = len(in) - 1
		}
		f := srcPos - float64(i0)
		v := float64(in[i0])*(1.0-f) + float64(in[i1])*f
		if v > math.MaxInt16 {
			v = math.MaxInt16
		}
		if v < math.MinInt16 {
			v = math.MinInt16
		}
		out[i] = int16(v)
	}
	return out
}

// BytesToSamples decodes little-endian 16-bit PCM.
func BytesToSamples(pcm []byte) []int16 {
	samples := make([]int16, len(pcm)/2)
	for i := range samples {
		samples[i] = int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
	}
	return samples
}

// SamplesToBytes encodes samples as little-endian 16-bit PCM.
func SamplesToBytes(samples []int16) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		pcm[i*2] = byte(s & 0xFF)
		pcm[i*2+1] = byte((s >> 8) & 0xFF)
	}
	return pcm
}
