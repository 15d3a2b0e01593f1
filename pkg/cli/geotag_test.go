package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kamataryo/geotag/internal/exif/exiftest"
	"github.com/kamataryo/geotag/internal/logger"
	"github.com/kamataryo/geotag/pkg/common"
	"github.com/kamataryo/geotag/pkg/s3client"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const trackGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg>
    <trkpt lat="35.0" lon="139.0"><time>2024-05-01T10:00:00Z</time></trkpt>
    <trkpt lat="35.001" lon="139.002"><time>2024-05-01T10:01:00Z</time></trkpt>
  </trkseg></trk>
</gpx>`

func setup(t *testing.T) (trackPath, pattern, outDir string) {
	t.Helper()
	root := t.TempDir()

	trackPath = filepath.Join(root, "track.gpx")
	require.NoError(t, os.WriteFile(trackPath, []byte(trackGPX), 0644))

	photos := filepath.Join(root, "photos", "day1")
	require.NoError(t, os.MkdirAll(photos, 0755))
	exiftest.WriteJPEG(t, filepath.Join(photos, "a.jpg"), "2024:05:01 10:00:30")

	return trackPath, filepath.Join(root, "photos", "**", "*.jpg"), filepath.Join(root, "out")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(os.Stderr) })

	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(io.Discard)
	cmd.SetErr(io.Discard)
	err := cmd.ExecuteContext(context.Background())
	return buf.String(), err
}

func TestRootCommand_TagsImages(t *testing.T) {
	trackPath, pattern, outDir := setup(t)

	logs, err := execute(t, trackPath, pattern, "-o", outDir, "--utc-offset", "Z")
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "a.jpg"))
	assert.Contains(t, logs, "1/1 tagged")
}

func TestRootCommand_OutputDirFromEnv(t *testing.T) {
	trackPath, pattern, outDir := setup(t)
	t.Setenv("GEOTAG_OUTPUT_DIR", outDir)
	t.Setenv("GEOTAG_UTC_OFFSET", "+00:00")

	_, err := execute(t, trackPath, pattern)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "a.jpg"))
}

func TestRootCommand_ConfigFile(t *testing.T) {
	trackPath, pattern, outDir := setup(t)
	cfgPath := filepath.Join(t.TempDir(), "geotag.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("output_dir: "+outDir+"\nutc_offset: Z\n"), 0644))

	_, err := execute(t, trackPath, pattern, "--config", cfgPath)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(outDir, "a.jpg"))
}

func TestRootCommand_NoImagesMatchedSucceeds(t *testing.T) {
	trackPath, _, outDir := setup(t)

	logs, err := execute(t, trackPath, filepath.Join(t.TempDir(), "*.jpg"), "-o", outDir)
	require.NoError(t, err)
	assert.Contains(t, logs, "No images match")
}

func TestRootCommand_MissingTrackFails(t *testing.T) {
	_, pattern, outDir := setup(t)

	_, err := execute(t, filepath.Join(t.TempDir(), "missing.gpx"), pattern, "-o", outDir)
	assert.ErrorIs(t, err, common.ErrSourceUnavailable)
	assert.NoDirExists(t, outDir)
}

func TestRootCommand_RequiresOutputDir(t *testing.T) {
	trackPath, pattern, _ := setup(t)

	_, err := execute(t, trackPath, pattern)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "output_dir is required")
}

func TestRootCommand_RequiresTwoArgs(t *testing.T) {
	_, err := execute(t, "track.gpx")
	assert.Error(t, err)
}

type recordingClient struct {
	mu      sync.Mutex
	keys    []string
	checked []string
}

func (c *recordingClient) UploadFile(ctx context.Context, reader io.Reader, objectKey string, size int64, metadata map[string]string, contentType string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, objectKey)
	return nil
}

func (c *recordingClient) ObjectExists(ctx context.Context, objectKey string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checked = append(c.checked, objectKey)
	return false, nil
}

func (c *recordingClient) GetBucketName() string { return "photos" }
func (c *recordingClient) GetEndpoint() string   { return "localhost:9000" }
func (c *recordingClient) GetPrefix() string     { return "" }

func TestRootCommand_Publish(t *testing.T) {
	trackPath, pattern, outDir := setup(t)

	client := &recordingClient{}
	orig := s3client.NewMinIOFunc
	s3client.NewMinIOFunc = func(ctx context.Context, cfg s3client.Config) (s3client.S3Interface, error) {
		assert.Equal(t, "photos", cfg.Bucket)
		return client, nil
	}
	t.Cleanup(func() { s3client.NewMinIOFunc = orig })

	_, err := execute(t, trackPath, pattern, "-o", outDir, "--utc-offset", "Z",
		"--publish", "--s3-endpoint", "localhost:9000", "--s3-bucket", "photos",
		"--s3-access-key", "key", "--s3-secret-key", "secret", "--s3-skip-existing")
	require.NoError(t, err)
	assert.Equal(t, []string{"a.jpg"}, client.checked)
	assert.Equal(t, []string{"a.jpg"}, client.keys)
}
