package audio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
)

// HeaderSize is the size of the minimal WAV header produced by EncodePCM.
const HeaderSize = 44

// BitsPerSample is the only sample width the player deals in (PCM-16).
const BitsPerSample = 16

// WAVHeader represents the header structure of a minimal single-chunk WAV file
type WAVHeader struct {
	ChunkID       [4]byte // "RIFF"
	ChunkSize     uint32  // File size - 8 bytes
	Format        [4]byte // "WAVE"
	Subchunk1ID   [4]byte // "fmt "
	Subchunk1Size uint32  // 16 for PCM
	AudioFormat   uint16  // 1 for PCM
	NumChannels   uint16  // Number of channels
	SampleRate    uint32  // Sample rate
	ByteRate      uint32  // SampleRate * NumChannels * BitsPerSample / 8
	BlockAlign    uint16  // NumChannels * BitsPerSample / 8
	BitsPerSample uint16  // Bits per sample
	Subchunk2ID   [4]byte // "data"
	Subchunk2Size uint32  // Number of bytes in the data
}

// EncodePCM wraps raw little-endian 16-bit PCM bytes in a minimal WAV
// container: a 44-byte header followed by the sample bytes unmodified.
// The input is assumed well formed; the function is pure and never fails.
func EncodePCM(pcm []byte, sampleRate, channels int) []byte {
	dataSize := uint32(len(pcm))

	header := WAVHeader{
		ChunkID:       [4]byte{'R', 'I', 'F', 'F'},
		ChunkSize:     36 + dataSize,
		Format:        [4]byte{'W', 'A', 'V', 'E'},
		Subchunk1ID:   [4]byte{'f', 'm', 't', ' '},
		Subchunk1Size: 16,
		AudioFormat:   1, // PCM
		NumChannels:   uint16(channels),
		SampleRate:    uint32(sampleRate),
		ByteRate:      uint32(sampleRate) * uint32(channels) * BitsPerSample / 8,
		BlockAlign:    uint16(channels) * BitsPerSample / 8,
		BitsPerSample: BitsPerSample,
		Subchunk2ID:   [4]byte{'d', 'a', 't', 'a'},
		Subchunk2Size: dataSize,
	}

	buf := bytes.NewBuffer(make([]byte, 0, HeaderSize+len(pcm)))

	// binary.Write cannot fail on a bytes.Buffer with fixed-size fields
	binary.Write(buf, binary.LittleEndian, header)
	buf.Write(pcm)

	return buf.Bytes()
}

// ValidateWAV validates a WAV byte buffer without decoding the audio data
func ValidateWAV(data []byte) error {
	if len(data) < HeaderSize {
		return fmt.Errorf("WAV data too short: need at least %d bytes, got %d", HeaderSize, len(data))
	}

	if string(data[0:4]) != "RIFF" {
		return fmt.Errorf("invalid WAV file: missing RIFF header")
	}

	if string(data[8:12]) != "WAVE" {
		return fmt.Errorf("invalid WAV file: missing WAVE format")
	}

	if string(data[12:16]) != "fmt " {
		return fmt.Errorf("invalid WAV file: missing fmt chunk")
	}

	if string(data[36:40]) != "data" {
		return fmt.Errorf("invalid WAV file: missing data chunk")
	}

	return nil
}

// Info describes the contents of an encoded WAV buffer
type Info struct {
	SampleRate    uint32  `json:"sample_rate"`
	Channels      uint16  `json:"channels"`
	BitsPerSample uint16  `json:"bits_per_sample"`
	Duration      float64 `json:"duration_seconds"`
	DataSize      uint32  `json:"data_size_bytes"`
}

// GetInfo extracts format metadata from an encoded WAV buffer
func GetInfo(data []byte) (*Info, error) {
	if err := ValidateWAV(data); err != nil {
		return nil, err
	}

	var header WAVHeader
	if err := binary.Read(bytes.NewReader(data), binary.LittleEndian, &header); err != nil {
		return nil, fmt.Errorf("failed to read WAV header: %w", err)
	}

	if header.SampleRate == 0 {
		return nil, fmt.Errorf("invalid sample rate: 0")
	}

	bytesPerSample := uint32(header.BitsPerSample) / 8 * uint32(header.NumChannels)
	duration := float64(header.Subchunk2Size/bytesPerSample) / float64(header.SampleRate)

	return &Info{
		SampleRate:    header.SampleRate,
		Channels:      header.NumChannels,
		BitsPerSample: header.BitsPerSample,
		Duration:      duration,
		DataSize:      header.Subchunk2Size,
	}, nil
}

// GetDuration calculates the duration of an encoded WAV buffer in seconds
func GetDuration(data []byte) (float64, error) {
	info, err := GetInfo(data)
	if err != nil {
		return 0, err
	}
	return info.Duration, nil
}

// SineWave generates little-endian PCM-16 mono bytes for a sine tone.
// Used by the backend simulator and tests to synthesize playable audio.
func SineWave(frequency float64, duration float64, sampleRate int) []byte {
	numSamples := int(float64(sampleRate) * duration)
	pcm := make([]byte, numSamples*2)

	amplitude := 16383.0 // Half of max int16 to avoid clipping
	for i := 0; i < numSamples; i++ {
		t := float64(i) / float64(sampleRate)
		sample := int16(amplitude * math.Sin(2*math.Pi*frequency*t))
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(sample))
	}

	return pcm
}
