package source

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		name       string
		uri        string
		wantBucket string
		wantKey    string
		wantErr    bool
	}{
		{"simple", "s3://media-vault/raw/interview.mp4", "media-vault", "raw/interview.mp4", false},
		{"nested key", "s3://b/a/b/c.mov", "b", "a/b/c.mov", false},
		{"missing key", "s3://bucket-only", "", "", true},
		{"missing bucket", "s3:///just/a/key.mp4", "", "", true},
		{"wrong scheme", "https://example.com/a.mp4", "", "", true},
		{"plain path", "raw/a.mp4", "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantBucket, bucket)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestIsRemote(t *testing.T) {
	assert.True(t, IsRemote("s3://bucket/key.mp4"))
	assert.False(t, IsRemote("raw/key.mp4"))
	assert.False(t, IsRemote("/abs/path.mp4"))
}

type fakeS3 struct {
	body []byte
	err  error
}

func (f *fakeS3) GetObject(_ context.Context, _ *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(bytes.NewReader(f.body))}, nil
}

func TestFetch_WritesObjectToDestDir(t *testing.T) {
	payload := bytes.Repeat([]byte("frame"), 4096)
	f := &S3Fetcher{client: &fakeS3{body: payload}}

	dir := t.TempDir()
	local, err := f.Fetch(context.Background(), "s3://media-vault/raw/interview.mp4", dir)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(dir, "interview.mp4"), local)
	got, err := os.ReadFile(local)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestFetch_RejectsNonS3URI(t *testing.T) {
	f := &S3Fetcher{client: &fakeS3{}}
	_, err := f.Fetch(context.Background(), "raw/local.mp4", t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, (&Config{}).Validate())
	assert.NoError(t, (&Config{AccessKeyID: "k", SecretAccessKey: "s"}).Validate())
	assert.Error(t, (&Config{AccessKeyID: "k"}).Validate())
	assert.Error(t, (&Config{SecretAccessKey: "s"}).Validate())
}
