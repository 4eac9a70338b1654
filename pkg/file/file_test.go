package file_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/geo-checkin/pkg/file"
)

type sample struct {
	Name  string `yaml:"name"`
	Count int    `yaml:"count"`
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestIsFileExists(t *testing.T) {
	fs := file.NewFileService()
	path := writeFile(t, "present.txt", "x")

	exists, err := fs.IsFileExists(path)
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = fs.IsFileExists(filepath.Join(t.TempDir(), "missing.txt"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestReadFileRaw(t *testing.T) {
	fs := file.NewFileService()
	path := writeFile(t, "ca.pem", "-----BEGIN CERTIFICATE-----")

	data, err := fs.ReadFileRaw(path)

	require.NoError(t, err)
	assert.Equal(t, "-----BEGIN CERTIFICATE-----", string(data))

	_, err = fs.ReadFileRaw(filepath.Join(t.TempDir(), "missing.pem"))
	assert.Error(t, err)
}

func TestReadYamlFile_KeepsDefaults(t *testing.T) {
	fs := file.NewFileService()
	path := writeFile(t, "config.yaml", "name: checkin\n")
	v := sample{Count: 3}

	require.NoError(t, fs.ReadYamlFile(path, &v))

	assert.Equal(t, sample{Name: "checkin", Count: 3}, v)
}

func TestReadYamlFile_EmptyFile(t *testing.T) {
	fs := file.NewFileService()
	path := writeFile(t, "empty.yaml", "")
	v := sample{Name: "default"}

	require.NoError(t, fs.ReadYamlFile(path, &v))
	assert.Equal(t, "default", v.Name)
}

func TestReadYamlFile_UnknownField(t *testing.T) {
	fs := file.NewFileService()
	path := writeFile(t, "config.yaml", "name: checkin\ncolour: red\n")

	assert.Error(t, fs.ReadYamlFile(path, &sample{}))
}
