package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// wavFormatPCM is the RIFF format tag for uncompressed PCM.
const wavFormatPCM = 1

// DecodeWAVFile reads a RIFF/WAV file from path and returns its contents as
// a mono Buffer. See [DecodeWAV] for format constraints.
func DecodeWAVFile(path string) (*Buffer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("audio: open %q: %w", path, err)
	}
	defer f.Close()
	buf, err := DecodeWAV(f)
	if err != nil {
		return nil, fmt.Errorf("audio: decode %q: %w", path, err)
	}
	return buf, nil
}

// DecodeWAV decodes a RIFF/WAV stream carrying 16-bit signed little-endian
// PCM and returns a mono Buffer. Multi-channel input is down-mixed to mono
// by averaging all channels per frame. Non-PCM encodings are rejected with
// ErrInvalidAudio.
func DecodeWAV(r io.Reader) (*Buffer, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("audio: read wav: %w", err)
	}
	if len(data) < 12 || string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		return nil, fmt.Errorf("%w: not a RIFF/WAVE stream", ErrInvalidAudio)
	}

	var (
		sampleRate    int
		channels      int
		bitsPerSample int
		format        int
		pcm           []byte
		haveFmt       bool
	)

	// Walk the chunk list. Chunks are word-aligned; a chunk with an odd
	// size is followed by one padding byte.
	off := 12
	for off+8 <= len(data) {
		id := string(data[off : off+4])
		size := int(binary.LittleEndian.Uint32(data[off+4 : off+8]))
		body := off + 8
		if body+size > len(data) {
			size = len(data) - body
		}
		switch id {
		case "fmt ":
			if size < 16 {
				return nil, fmt.Errorf("%w: fmt chunk too short", ErrInvalidAudio)
			}
			format = int(binary.LittleEndian.Uint16(data[body : body+2]))
			channels = int(binary.LittleEndian.Uint16(data[body+2 : body+4]))
			sampleRate = int(binary.LittleEndian.Uint32(data[body+4 : body+8]))
			bitsPerSample = int(binary.LittleEndian.Uint16(data[body+14 : body+16]))
			haveFmt = true
		case "data":
			pcm = data[body : body+size]
		}
		off = body + size
		if size%2 == 1 {
			off++
		}
	}

	if !haveFmt || pcm == nil {
		return nil, fmt.Errorf("%w: missing fmt or data chunk", ErrInvalidAudio)
	}
	if format != wavFormatPCM {
		return nil, fmt.Errorf("%w: unsupported wav format tag %d (want PCM)", ErrInvalidAudio, format)
	}
	if bitsPerSample != 16 {
		return nil, fmt.Errorf("%w: unsupported bit depth %d (want 16)", ErrInvalidAudio, bitsPerSample)
	}
	if channels <= 0 {
		return nil, fmt.Errorf("%w: channel count %d", ErrInvalidAudio, channels)
	}

	return NewBuffer(pcmToMono(pcm, channels), sampleRate)
}

// EncodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container. Used when handing audio to a whisper server that
// expects a WAV upload.
func EncodeWAV(pcm []byte, sampleRate, channels int) []byte {
	const bps = 16
	byteRate := sampleRate * channels * bps / 8
	blockAlign := channels * bps / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	// RIFF chunk descriptor
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize)) // file size − 8
	copy(buf[8:12], "WAVE")

	// fmt sub-chunk
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)                 // sub-chunk size (PCM)
	binary.LittleEndian.PutUint16(buf[20:22], wavFormatPCM)       // audio format: PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))   // num channels
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate)) // sample rate
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))   // byte rate
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign)) // block align
	binary.LittleEndian.PutUint16(buf[34:36], bps)                // bits per sample

	// data sub-chunk
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// SamplesToPCM converts normalised float64 samples back to 16-bit signed
// little-endian PCM bytes, clamping out-of-range values.
func SamplesToPCM(samples []float64) []byte {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := s * 32767.0
		if v > 32767 {
			v = 32767
		} else if v < -32768 {
			v = -32768
		}
		binary.LittleEndian.PutUint16(pcm[i*2:i*2+2], uint16(int16(v)))
	}
	return pcm
}

// pcmToMono down-mixes interleaved 16-bit PCM to mono float64 samples
// normalised to [-1.0, 1.0] by averaging all channels per frame. Any
// trailing partial frame is ignored.
func pcmToMono(pcm []byte, channels int) []float64 {
	if channels <= 1 {
		n := len(pcm) / 2
		samples := make([]float64, n)
		for i := 0; i < n; i++ {
			sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
			samples[i] = float64(sample) / 32768.0
		}
		return samples
	}
	frames := len(pcm) / (2 * channels)
	mono := make([]float64, frames)
	for i := 0; i < frames; i++ {
		var sum float64
		for ch := 0; ch < channels; ch++ {
			idx := (i*channels + ch) * 2
			sample := int16(binary.LittleEndian.Uint16(pcm[idx : idx+2]))
			sum += float64(sample) / 32768.0
		}
		mono[i] = sum / float64(channels)
	}
	return mono
}
