package rtlsdr

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func writeTempIQFile(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "capture.iq")
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func TestFileSource_StreamsWholeFileOnce(t *testing.T) {
	data := make([]byte, BufferChunkSize+37)
	for i := range data {
		data[i] = byte(i)
	}
	path := writeTempIQFile(t, data)

	src := NewFileSource(path, 1, testLogger())
	dataChan := make(chan []byte, 100)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	err := src.StartCapture(ctx, dataChan)
	require.NoError(t, err)

	var total int
	close(dataChan)
	for chunk := range dataChan {
		total += len(chunk)
	}
	assert.Equal(t, len(data), total)

	select {
	case <-src.Done:
	default:
		t.Fatal("Done should be closed after StartCapture returns")
	}
}

func TestFileSource_LoopsConfiguredCount(t *testing.T) {
	data := []byte{1, 2, 3, 4}
	path := writeTempIQFile(t, data)

	src := NewFileSource(path, 3, testLogger())
	dataChan := make(chan []byte, 100)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, src.StartCapture(ctx, dataChan))

	var total int
	close(dataChan)
	for chunk := range dataChan {
		total += len(chunk)
	}
	assert.Equal(t, len(data)*3, total)
}

func TestFileSource_ZeroOrNegativeLoopsBecomesOne(t *testing.T) {
	src := NewFileSource("/does/not/matter", 0, testLogger())
	assert.Equal(t, 1, src.loops)
}

func TestFileSource_MissingFileReturnsError(t *testing.T) {
	src := NewFileSource(filepath.Join(t.TempDir(), "missing.iq"), 1, testLogger())
	dataChan := make(chan []byte, 1)
	err := src.StartCapture(context.Background(), dataChan)
	assert.Error(t, err)
}

func TestFileSource_ContextCancelStopsEarly(t *testing.T) {
	data := make([]byte, BufferChunkSize*4)
	path := writeTempIQFile(t, data)

	src := NewFileSource(path, 0, testLogger())
	src.loops = 1000
	dataChan := make(chan []byte) // unbuffered: StartCapture blocks on send
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- src.StartCapture(ctx, dataChan) }()

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("StartCapture did not observe context cancellation")
	}
}
