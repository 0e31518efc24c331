package system

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPickEncoder(t *testing.T) {
	tests := []struct {
		name     string
		encoders string
		want     string
	}{
		{"nvenc wins", "V..... h264_nvenc\n V..... h264_videotoolbox\n V..... libx264", "h264_nvenc"},
		{"videotoolbox", "V..... h264_videotoolbox\n V..... libx264", "h264_videotoolbox"},
		{"qsv", "V..... h264_qsv\n V..... libx264", "h264_qsv"},
		{"software only", "V..... libx264\n V..... libx265", "libx264"},
		{"empty output", "", "libx264"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pickEncoder(tt.encoders))
		})
	}
}

func TestWorkersAtLeastOne(t *testing.T) {
	assert.GreaterOrEqual(t, Workers(), 1)
}

func TestFindMusicPicksNewest(t *testing.T) {
	dir := t.TempDir()
	old := filepath.Join(dir, "old.mp3")
	newer := filepath.Join(dir, "newer.wav")
	ignored := filepath.Join(dir, "notes.txt")

	require.NoError(t, os.WriteFile(old, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(ignored, []byte("x"), 0o644))

	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(old, base, base))
	require.NoError(t, os.Chtimes(newer, base.Add(10*time.Minute), base.Add(10*time.Minute)))
	// The text file is the most recent but must never win.
	require.NoError(t, os.Chtimes(ignored, base.Add(time.Hour), base.Add(time.Hour)))

	got, err := FindMusic(dir)
	require.NoError(t, err)
	assert.Equal(t, newer, got)
}

func TestFindMusicEmptyIsNotAnError(t *testing.T) {
	got, err := FindMusic(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = FindMusic(filepath.Join(t.TempDir(), "no-such-dir"))
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCanvasPoolSizes(t *testing.T) {
	a := GetCanvas(64, 128)
	require.Equal(t, 64, a.Rect.Dx())
	require.Equal(t, 128, a.Rect.Dy())
	PutCanvas(a)

	b := GetCanvas(32, 32)
	assert.Equal(t, 32, b.Rect.Dx())
	PutCanvas(b)
	PutCanvas(nil)
}

func TestEncodeBufferResetOnPut(t *testing.T) {
	b := GetEncodeBuffer()
	b.WriteString("stale")
	PutEncodeBuffer(b)

	c := GetEncodeBuffer()
	assert.Zero(t, c.Len())
	PutEncodeBuffer(c)
}
