package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/kapture/internal/common"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func batchConfig() common.BatchConfig {
	return common.BatchConfig{
		BaseHost:    "https://myservice.example.com",
		URLTemplate: "/kb_view.do?sysparm_article={KB}",
	}
}

func TestLoadTargetsCSV(t *testing.T) {
	path := writeFile(t, "targets.csv",
		"kb,url\n"+
			"KB0010001,\n"+
			",https://myservice.example.com/kb_view.do?sysparm_article=KB0010002\n"+
			",\n"+ // skipped: empty row
			"KB0010003,https://myservice.example.com/target/https%3A%2F%2Fmyservice.example.com%2Fkb_view.do%3Fsysparm_article%3DKB0010003\n")

	targets, err := LoadTargets(path, batchConfig())
	require.NoError(t, err)
	require.Len(t, targets, 3)

	assert.Equal(t, "KB0010001", targets[0].ID)
	assert.Equal(t, "https://myservice.example.com/kb_view.do?sysparm_article=KB0010001", targets[0].DirectURL)
	assert.Equal(t, 1, targets[0].Row)

	assert.Equal(t, "KB0010002", targets[1].ID)
	assert.Equal(t, targets[1].SourceURL, targets[1].DirectURL)

	// Redirect wrapper unwrapped, KB column names the target.
	assert.Equal(t, "KB0010003", targets[2].ID)
	assert.Equal(t, "https://myservice.example.com/kb_view.do?sysparm_article=KB0010003", targets[2].DirectURL)
	assert.Contains(t, targets[2].SourceURL, "/target/")
	assert.Equal(t, 4, targets[2].Row)
}

func TestLoadTargetsYAML(t *testing.T) {
	path := writeFile(t, "targets.yaml", `targets:
  - kb: KB0020001
  - url: https://myservice.example.com/kb_view.do?sysparm_article=KB0020002
  - kb: not-a-kb
`)

	targets, err := LoadTargets(path, batchConfig())
	require.NoError(t, err)
	require.Len(t, targets, 2)
	assert.Equal(t, "KB0020001", targets[0].ID)
	assert.Equal(t, "KB0020002", targets[1].ID)
}

func TestLoadTargetsMaxTargets(t *testing.T) {
	path := writeFile(t, "targets.csv", "kb\nKB0000001\nKB0000002\nKB0000003\n")

	cfg := batchConfig()
	cfg.MaxTargets = 2
	targets, err := LoadTargets(path, cfg)
	require.NoError(t, err)
	assert.Len(t, targets, 2)
}

func TestLoadTargetsSkipDirect(t *testing.T) {
	wrapped := "https://myservice.example.com/target/https%3A%2F%2Fmyservice.example.com%2Fkb_view.do%3Fsysparm_article%3DKB0030001"
	path := writeFile(t, "targets.csv", "url\n"+wrapped+"\n")

	cfg := batchConfig()
	cfg.SkipDirect = true
	targets, err := LoadTargets(path, cfg)
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, wrapped, targets[0].DirectURL)
}

func TestLoadTargetsRowLabelWithoutKB(t *testing.T) {
	path := writeFile(t, "targets.csv", "url\nhttps://myservice.example.com/some_page.do\n")

	targets, err := LoadTargets(path, batchConfig())
	require.NoError(t, err)
	require.Len(t, targets, 1)
	assert.Equal(t, "ROW1", targets[0].ID)
}

func TestTargetsFromArgs(t *testing.T) {
	t.Run("KB number expands against the template", func(t *testing.T) {
		targets, err := TargetsFromArgs([]string{"KB0010001"}, batchConfig())
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "KB0010001", targets[0].ID)
		assert.Equal(t, "https://myservice.example.com/kb_view.do?sysparm_article=KB0010001", targets[0].DirectURL)
	})

	t.Run("URL argument passes through", func(t *testing.T) {
		targets, err := TargetsFromArgs([]string{"https://myservice.example.com/kb_view.do?sysparm_article=KB0010002"}, batchConfig())
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "KB0010002", targets[0].ID)
	})

	t.Run("URL without a KB number gets an argument label", func(t *testing.T) {
		targets, err := TargetsFromArgs([]string{"https://myservice.example.com/some_page.do"}, batchConfig())
		require.NoError(t, err)
		require.Len(t, targets, 1)
		assert.Equal(t, "ARG1", targets[0].ID)
	})

	t.Run("unusable argument errors", func(t *testing.T) {
		_, err := TargetsFromArgs([]string{"not-a-kb"}, batchConfig())
		assert.ErrorContains(t, err, "argument 1")
	})

	t.Run("no arguments errors", func(t *testing.T) {
		_, err := TargetsFromArgs(nil, batchConfig())
		assert.ErrorContains(t, err, "no targets")
	})
}

func TestLoadTargetsErrors(t *testing.T) {
	t.Run("unknown extension", func(t *testing.T) {
		path := writeFile(t, "targets.xlsx", "whatever")
		_, err := LoadTargets(path, batchConfig())
		assert.ErrorContains(t, err, "unsupported target file extension")
	})

	t.Run("missing columns", func(t *testing.T) {
		path := writeFile(t, "targets.csv", "name,owner\nfoo,bar\n")
		_, err := LoadTargets(path, batchConfig())
		assert.ErrorContains(t, err, "KB or URL column")
	})

	t.Run("no usable rows", func(t *testing.T) {
		path := writeFile(t, "targets.csv", "kb\nnot-a-kb\n")
		_, err := LoadTargets(path, batchConfig())
		assert.ErrorContains(t, err, "no usable targets")
	})
}
