// Package sound plays the shutter feedback clip on the kiosk speaker.
package sound

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ebitengine/oto/v3"
	"github.com/hajimehoshi/go-mp3"
	"github.com/youpy/go-wav"
)

const (
	outputRate     = 44100
	outputChannels = 2
)

// Player holds a decoded clip and a shared audio context. A Player with no
// clip (empty path, unreadable file, or no audio device) is valid and plays
// nothing, so callers never have to branch on kiosk audio being present.
type Player struct {
	mu     sync.Mutex
	otoCtx *oto.Context
	pcm    []byte
}

// NewPlayer loads the clip at path. Failures are logged and produce a
// silent player rather than an error; a booth without a speaker still
// takes photos.
func NewPlayer(path string) *Player {
	p := &Player{}
	if path == "" {
		return p
	}

	pcm, err := decodeFile(path)
	if err != nil {
		slog.Warn("sound disabled", "file", path, "error", err)
		return p
	}

	otoCtx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   outputRate,
		ChannelCount: outputChannels,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		slog.Warn("sound disabled, no audio device", "error", err)
		return p
	}
	<-ready

	p.otoCtx = otoCtx
	p.pcm = pcm
	return p
}

// Play blocks until the clip has finished. Run it in a goroutine when the
// caller should not wait.
func (p *Player) Play() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.otoCtx == nil || len(p.pcm) == 0 {
		return
	}

	player := p.otoCtx.NewPlayer(bytes.NewReader(p.pcm))
	defer player.Close()
	player.Play()
	for player.IsPlaying() {
	}
}

func decodeFile(path string) ([]byte, error) {
	fileData, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var pcmData []byte
	var sampleRate int
	var channelCount int

	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav":
		wavReader := wav.NewReader(bytes.NewReader(fileData))
		format, err := wavReader.Format()
		if err != nil {
			return nil, fmt.Errorf("reading wav format: %w", err)
		}
		wavReader = wav.NewReader(bytes.NewReader(fileData))
		pcmData, err = io.ReadAll(wavReader)
		if err != nil {
			return nil, fmt.Errorf("decoding wav data: %w", err)
		}
		sampleRate = int(format.SampleRate)
		channelCount = int(format.NumChannels)

	case ".mp3":
		decoder, err := mp3.NewDecoder(bytes.NewReader(fileData))
		if err != nil {
			return nil, fmt.Errorf("creating mp3 decoder: %w", err)
		}
		pcmData, err = io.ReadAll(decoder)
		if err != nil {
			return nil, fmt.Errorf("decoding mp3 data: %w", err)
		}
		sampleRate = decoder.SampleRate()
		channelCount = 2

	default:
		return nil, fmt.Errorf("unsupported sound format %q", filepath.Ext(path))
	}

	if sampleRate != outputRate || channelCount != outputChannels {
		pcmData = convertAudio(pcmData, sampleRate, channelCount, outputRate, outputChannels)
	}
	return pcmData, nil
}

func convertAudio(pcmData []byte, fromRate, fromChannels, toRate, toChannels int) []byte {
	sampleCount := len(pcmData) / 2
	samples := make([]int16, sampleCount)
	for i := 0; i < sampleCount; i++ {
		samples[i] = int16(binary.LittleEndian.Uint16(pcmData[i*2 : i*2+2]))
	}

	var stereoSamples []int16
	if fromChannels == 1 && toChannels == 2 {
		stereoSamples = make([]int16, sampleCount*2)
		for i := 0; i < sampleCount; i++ {
			stereoSamples[i*2] = samples[i]
			stereoSamples[i*2+1] = samples[i]
		}
	} else {
		stereoSamples = samples
	}

	var resampledSamples []int16
	if fromRate != toRate {
		// Linear interpolation is plenty for a shutter click.
		ratio := float64(toRate) / float64(fromRate)
		newSampleCount := int(float64(len(stereoSamples)) * ratio)
		resampledSamples = make([]int16, newSampleCount)

		for i := 0; i < newSampleCount; i++ {
			srcPos := float64(i) / ratio
			srcIdx := int(srcPos)

			if srcIdx >= len(stereoSamples)-1 {
				resampledSamples[i] = stereoSamples[len(stereoSamples)-1]
			} else {
				frac := srcPos - float64(srcIdx)
				sample1 := float64(stereoSamples[srcIdx])
				sample2 := float64(stereoSamples[srcIdx+1])
				resampledSamples[i] = int16(sample1 + frac*(sample2-sample1))
			}
		}
	} else {
		resampledSamples = stereoSamples
	}

	out := make([]byte, len(resampledSamples)*2)
	for i, s := range resampledSamples {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(s))
	}
	return out
}
