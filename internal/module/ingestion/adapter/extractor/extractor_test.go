package extractor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/appliance-rag/internal/module/ingestion/domain"
)

// mockRunner は CommandRunner のテストダブルです
type mockRunner struct {
	output []byte
	err    error
	name   string
	args   []string
}

func (m *mockRunner) Run(_ context.Context, name string, args ...string) ([]byte, error) {
	m.name = name
	m.args = args
	return m.output, m.err
}

func TestPdftotextExtractor_Extract(t *testing.T) {
	runner := &mockRunner{output: []byte("Page one  |  Col\n\fPage two\n\f")}
	e := NewPdftotextExtractor(WithRunner(runner), WithBinary("/usr/local/bin/pdftotext"))

	ext, err := e.Extract(context.Background(), "/tmp/manual.pdf")
	require.NoError(t, err)

	assert.Equal(t, 2, ext.PageCount)
	assert.Equal(t, "Page one  |  Col\n\n\nPage two", ext.Text)
	assert.Equal(t, "/usr/local/bin/pdftotext", runner.name)
	assert.Equal(t, []string{"-layout", "-enc", "UTF-8", "/tmp/manual.pdf", "-"}, runner.args)
	assert.Equal(t, domain.ExtractorQuality, e.Name())
}

func TestPdftotextExtractor_NoFormFeed(t *testing.T) {
	e := NewPdftotextExtractor(WithRunner(&mockRunner{output: []byte("single page")}))

	ext, err := e.Extract(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Equal(t, 1, ext.PageCount)
	assert.Equal(t, "single page", ext.Text)
}

func TestPdftotextExtractor_EmptyOutput(t *testing.T) {
	e := NewPdftotextExtractor(WithRunner(&mockRunner{output: []byte("\f\f")}))

	ext, err := e.Extract(context.Background(), "a.pdf")
	require.NoError(t, err)
	assert.Empty(t, ext.Text)
	assert.Equal(t, 0, ext.PageCount)
}

func TestPdftotextExtractor_RunnerError(t *testing.T) {
	e := NewPdftotextExtractor(WithRunner(&mockRunner{err: errors.New("exit status 1")}))

	ext, err := e.Extract(context.Background(), "a.pdf")
	require.Error(t, err)
	assert.Nil(t, ext)
	assert.Contains(t, err.Error(), "pdftotext failed")
}

func TestPdftotextExtractor_CheckAvailable(t *testing.T) {
	e := NewPdftotextExtractor(WithBinary("definitely-not-a-real-pdftotext-binary"))
	assert.ErrorIs(t, e.CheckAvailable(), ErrPdftotextNotFound)
}

func TestPlainTextExtractor_Extract(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.md")
	require.NoError(t, os.WriteFile(path, []byte("# Filter\n\nReplace every 6 months.\xff\n"), 0o644))

	ext, err := NewPlainTextExtractor().Extract(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "# Filter\n\nReplace every 6 months.", ext.Text)
	assert.Equal(t, 1, ext.PageCount)

	_, err = NewPlainTextExtractor().Extract(context.Background(), filepath.Join(dir, "missing.txt"))
	require.Error(t, err)
}

func TestPDFReaderExtractor_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.pdf")
	require.NoError(t, os.WriteFile(path, []byte("not a pdf"), 0o644))

	ext, err := NewPDFReaderExtractor().Extract(context.Background(), path)
	require.Error(t, err)
	assert.Nil(t, ext)
}

func TestExecRunner_Run(t *testing.T) {
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}

	out, err := ExecRunner{}.Run(context.Background(), "/bin/sh", "-c", "printf hello")
	require.NoError(t, err)
	assert.Equal(t, "hello", string(out))

	_, err = ExecRunner{}.Run(context.Background(), "/bin/sh", "-c", "echo broken >&2; exit 3")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broken")
}
