package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleProbeJSON = `{
  "streams": [
    {
      "codec_type": "video",
      "codec_name": "h264",
      "width": 1920,
      "height": 1080,
      "avg_frame_rate": "30000/1001"
    },
    {
      "codec_type": "audio",
      "codec_name": "aac",
      "channels": 2,
      "sample_rate": "48000"
    }
  ],
  "format": {
    "format_name": "mov,mp4,m4a,3gp,3g2,mj2",
    "duration": "734.217000",
    "size": "1569312412",
    "bit_rate": "17100000"
  }
}`

func TestProbe_ParsesFFprobeJSON(t *testing.T) {
	p := NewProber("")
	var gotArgs []string
	p.run = func(_ context.Context, name string, args ...string) ([]byte, error) {
		assert.Equal(t, DefaultFFprobeBin, name)
		gotArgs = args
		return []byte(sampleProbeJSON), nil
	}

	result, err := p.Probe(context.Background(), "raw/interview.mp4")
	require.NoError(t, err)

	assert.Equal(t, []string{
		"-v", "error", "-print_format", "json",
		"-show_format", "-show_streams", "raw/interview.mp4",
	}, gotArgs)

	assert.Equal(t, "raw/interview.mp4", result.Path)
	assert.InDelta(t, 734.217, result.DurationSeconds, 0.001)
	assert.Equal(t, int64(1569312412), result.SizeBytes)
	assert.Equal(t, int64(17100000), result.BitRate)

	require.Len(t, result.Streams, 2)
	assert.Equal(t, "video", result.Streams[0].Type)
	assert.Equal(t, "h264", result.Streams[0].Codec)
	assert.Equal(t, 1920, result.Streams[0].Width)
	assert.Equal(t, "audio", result.Streams[1].Type)
	assert.Equal(t, 2, result.Streams[1].Channels)
}

func TestProbe_PropagatesRunError(t *testing.T) {
	p := NewProber("/usr/local/bin/ffprobe")
	p.run = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return nil, errors.New("ffprobe: raw/missing.mp4: No such file or directory")
	}

	_, err := p.Probe(context.Background(), "raw/missing.mp4")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "No such file or directory")
}

func TestProbe_RejectsEmptyPath(t *testing.T) {
	p := NewProber("")
	_, err := p.Probe(context.Background(), "  ")
	require.Error(t, err)
}

func TestProbe_RejectsMalformedOutput(t *testing.T) {
	p := NewProber("")
	p.run = func(_ context.Context, _ string, _ ...string) ([]byte, error) {
		return []byte("not json"), nil
	}

	_, err := p.Probe(context.Background(), "raw/a.mp4")
	require.Error(t, err)
}

func TestFileSizeGiB(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "clip.mp4")
	require.NoError(t, os.WriteFile(path, make([]byte, 512*1024), 0o644))

	g, err := FileSizeGiB(path)
	require.NoError(t, err)
	assert.InDelta(t, 512.0/(1024*1024), g, 1e-9)

	t.Run("missing file", func(t *testing.T) {
		_, err := FileSizeGiB(filepath.Join(dir, "nope.mp4"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not found")
	})

	t.Run("directory", func(t *testing.T) {
		_, err := FileSizeGiB(dir)
		require.Error(t, err)
	})
}

func TestTotalSizeGiB(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.mp4")
	b := filepath.Join(dir, "b.mp4")
	require.NoError(t, os.WriteFile(a, make([]byte, 1024), 0o644))
	require.NoError(t, os.WriteFile(b, make([]byte, 2048), 0o644))

	g, err := TotalSizeGiB([]string{a, b})
	require.NoError(t, err)
	assert.InDelta(t, 3072.0/(1<<30), g, 1e-12)
}
