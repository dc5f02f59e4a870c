package audio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/hajimehoshi/go-mp3"
)

// pcmStream is a decoder-agnostic source of interleaved int16 samples,
// produced by either the wav or mp3 decoder below and consumed by the
// portaudio player.
type pcmStream struct {
	sampleRate int
	channels   int
	// next returns the next chunk of interleaved int16 samples, or
	// io.EOF when the stream is exhausted.
	next func() ([]int16, error)
	// close releases any file handle the decoder opened.
	close func() error
}

// openStream opens path and dispatches to the wav or mp3 decoder by
// extension, per spec §3's two supported formats.
func openStream(path string) (*pcmStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ErrDecode{Path: path, Err: err}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		s, err := openWav(f)
		if err != nil {
			f.Close()
			return nil, &ErrDecode{Path: path, Err: err}
		}
		return s, nil
	case ".mp3":
		s, err := openMP3(f)
		if err != nil {
			f.Close()
			return nil, &ErrDecode{Path: path, Err: err}
		}
		return s, nil
	default:
		f.Close()
		return nil, &ErrDecode{Path: path, Err: fmt.Errorf("unsupported extension %q", filepath.Ext(path))}
	}
}

func openWav(f *os.File) (*pcmStream, error) {
	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if !decoder.IsValidFile() {
		return nil, fmt.Errorf("not a valid WAV file")
	}

	const chunkFrames = 4096
	buf := &goaudio.IntBuffer{
		Data:   make([]int, chunkFrames*int(decoder.NumChans)),
		Format: &goaudio.Format{SampleRate: int(decoder.SampleRate), NumChannels: int(decoder.NumChans)},
	}

	return &pcmStream{
		sampleRate: int(decoder.SampleRate),
		channels:   int(decoder.NumChans),
		next: func() ([]int16, error) {
			n, err := decoder.PCMBuffer(buf)
			if err != nil {
				return nil, err
			}
			if n == 0 {
				return nil, io.EOF
			}
			out := make([]int16, n)
			for i, v := range buf.Data[:n] {
				out[i] = int16(v)
			}
			return out, nil
		},
		close: f.Close,
	}, nil
}

func openMP3(f *os.File) (*pcmStream, error) {
	decoder, err := mp3.NewDecoder(f)
	if err != nil {
		return nil, err
	}

	const chunkBytes = 4096 * 2 * 2 // frames * stereo * 16-bit
	raw := make([]byte, chunkBytes)

	return &pcmStream{
		sampleRate: decoder.SampleRate(),
		channels:   2, // go-mp3 always decodes to interleaved stereo
		next: func() ([]int16, error) {
			n, err := decoder.Read(raw)
			if n == 0 && err != nil {
				return nil, err
			}
			samples := make([]int16, n/2)
			for i := range samples {
				lo := raw[2*i]
				hi := raw[2*i+1]
				samples[i] = int16(uint16(lo) | uint16(hi)<<8)
			}
			if err == io.EOF && n > 0 {
				return samples, nil // flush the final partial chunk, report EOF next call
			}
			return samples, err
		},
		close: f.Close,
	}, nil
}
