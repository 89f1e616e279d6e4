package audio

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/wav"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeFileWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "blip.wav")
	f, err := os.Create(path)
	require.NoError(t, err)

	format := beep.Format{SampleRate: 22050, NumChannels: 2, Precision: 2}
	require.NoError(t, wav.Encode(f, beep.Silence(2205), format))
	require.NoError(t, f.Close())

	buffer, err := decodeFile(path)
	require.NoError(t, err)
	assert.Equal(t, 2205, buffer.Len())
	assert.Equal(t, beep.SampleRate(22050), buffer.Format().SampleRate)
}

func TestDecodeFileErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := decodeFile(filepath.Join(dir, "missing.ogg"))
	assert.Error(t, err)

	flac := filepath.Join(dir, "sound.flac")
	require.NoError(t, os.WriteFile(flac, []byte("fLaC"), 0o644))
	_, err = decodeFile(flac)
	assert.ErrorContains(t, err, "unsupported audio format")

	broken := filepath.Join(dir, "broken.wav")
	require.NoError(t, os.WriteFile(broken, []byte("not a wav"), 0o644))
	_, err = decodeFile(broken)
	assert.Error(t, err)
}

func TestPlayerVolumeClamped(t *testing.T) {
	p := NewPlayer(nil)
	p.SetVolume(1.7)
	assert.Equal(t, 1.0, p.GetVolume())
	p.SetVolume(-1)
	assert.Equal(t, 0.0, p.GetVolume())
}

func TestVolumeExponent(t *testing.T) {
	assert.InDelta(t, 0.0, volumeExponent(1), 1e-9)
	assert.InDelta(t, -1.0, volumeExponent(0.5), 1e-9)
	assert.InDelta(t, 0.25, math.Pow(2, volumeExponent(0.25)), 1e-9)
}
