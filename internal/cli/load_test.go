package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const snvBundle = `
samples:
  - id: S1
    assay: myeloid_GMSv1
variants:
  - kind: snv
    body:
      SAMPLE_ID: S1
      ID: var-001
      CHROM: "13"
      POS: 28034141
  - kind: snv
    body:
      SAMPLE_ID: S1
      ID: var-002
      CHROM: "9"
      POS: 5073770
`

// writeBundle writes bundle content next to a fresh database path and
// returns both.
func writeBundle(t *testing.T, name, content string) (bundlePath, dbPath string) {
	t.Helper()
	dir := t.TempDir()
	bundlePath = filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(bundlePath, []byte(content), 0o644))
	return bundlePath, filepath.Join(dir, "varq.db")
}

func runLoadCommand(t *testing.T, dbPath string, format string, files ...string) (*bytes.Buffer, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: format, Database: dbPath}
	cmd := NewLoadCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(buf)
	cmd.SetArgs(files)
	return buf, cmd.Execute()
}

func TestLoadRequiresDB(t *testing.T) {
	bundlePath, _ := writeBundle(t, "bundle.yaml", snvBundle)

	buf, err := runLoadCommand(t, "", "text", bundlePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--db is required")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E001]")
}

func TestLoadBundle(t *testing.T) {
	bundlePath, dbPath := writeBundle(t, "bundle.yaml", snvBundle)

	buf, err := runLoadCommand(t, dbPath, "text", bundlePath)
	require.NoError(t, err)

	output := buf.String()
	assert.Contains(t, output, "1 sample(s), 2 variant(s) (2 new, 0 already stored)")
	assert.Contains(t, output, "Loaded 2 new document(s), 0 already stored")
}

func TestLoadIdempotent(t *testing.T) {
	bundlePath, dbPath := writeBundle(t, "bundle.yaml", snvBundle)

	_, err := runLoadCommand(t, dbPath, "text", bundlePath)
	require.NoError(t, err)

	buf, err := runLoadCommand(t, dbPath, "text", bundlePath)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Loaded 0 new document(s), 2 already stored")
}

func TestLoadJSONBundle(t *testing.T) {
	// JSON parses through the same path as YAML.
	bundle := `{
  "samples": [{"id": "S1", "assay": "solid_GMSv3"}],
  "variants": [
    {"kind": "cnv", "body": {"SAMPLE_ID": "S1", "ID": "cnv-001", "genes": ["BRAF"]}}
  ]
}`
	bundlePath, dbPath := writeBundle(t, "bundle.json", bundle)

	buf, err := runLoadCommand(t, dbPath, "text", bundlePath)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Loaded 1 new document(s)")
}

func TestLoadJSONFormat(t *testing.T) {
	bundlePath, dbPath := writeBundle(t, "bundle.yaml", snvBundle)

	buf, err := runLoadCommand(t, dbPath, "json", bundlePath)
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   LoadReport `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 2, resp.Data.TotalInserted)
	assert.Equal(t, 0, resp.Data.TotalSkipped)
	require.Len(t, resp.Data.Files, 1)
	assert.Equal(t, 1, resp.Data.Files[0].Samples)
	assert.Equal(t, 2, resp.Data.Files[0].Variants)
}

func TestLoadMultipleFiles(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "varq.db")

	first := filepath.Join(dir, "first.yaml")
	require.NoError(t, os.WriteFile(first, []byte(snvBundle), 0o644))

	second := filepath.Join(dir, "second.yaml")
	secondBundle := `
samples:
  - id: S2
    assay: myeloid_GMSv1
variants:
  - kind: snv
    body:
      SAMPLE_ID: S2
      ID: var-101
`
	require.NoError(t, os.WriteFile(second, []byte(secondBundle), 0o644))

	buf, err := runLoadCommand(t, dbPath, "text", first, second)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Loaded 3 new document(s), 0 already stored")
}

func TestLoadMissingFile(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "varq.db")

	buf, err := runLoadCommand(t, dbPath, "text", "/nonexistent/bundle.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "loading /nonexistent/bundle.yaml")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E002]")
}

func TestLoadVariantWithoutSampleID(t *testing.T) {
	bundle := `
samples:
  - id: S1
    assay: myeloid_GMSv1
variants:
  - kind: snv
    body:
      ID: var-001
      CHROM: "13"
`
	bundlePath, dbPath := writeBundle(t, "bundle.yaml", bundle)

	_, err := runLoadCommand(t, dbPath, "text", bundlePath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "variant 0")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestLoadOrphanVariant(t *testing.T) {
	// The bundle's variant references a sample the bundle never
	// registers, so the whole batch is rejected.
	bundle := `
variants:
  - kind: snv
    body:
      SAMPLE_ID: ghost
      ID: var-001
`
	bundlePath, dbPath := writeBundle(t, "bundle.yaml", bundle)

	buf, err := runLoadCommand(t, dbPath, "text", bundlePath)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, buf.String(), "Error [E401]")
}

func TestLoadRegistersAssayUpdate(t *testing.T) {
	bundlePath, dbPath := writeBundle(t, "bundle.yaml", snvBundle)
	_, err := runLoadCommand(t, dbPath, "text", bundlePath)
	require.NoError(t, err)

	// Re-registering S1 under a new assay updates the registration
	// without disturbing stored variants.
	rebind := `
samples:
  - id: S1
    assay: solid_GMSv3
`
	rebindPath := filepath.Join(filepath.Dir(bundlePath), "rebind.yaml")
	require.NoError(t, os.WriteFile(rebindPath, []byte(rebind), 0o644))

	buf, err := runLoadCommand(t, dbPath, "text", rebindPath)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "1 sample(s), 0 variant(s)")
}
