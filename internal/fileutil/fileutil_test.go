package fileutil

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindInsensitive(t *testing.T) {
	tmpDir := t.TempDir()

	for _, name := range []string{"TestFile.mid", "UPPERCASE.SF2", "lowercase.mid"} {
		require.NoError(t, os.WriteFile(filepath.Join(tmpDir, name), []byte("x"), 0o644))
	}

	tests := []struct {
		name     string
		search   string
		wantBase string
	}{
		{"exact match", "TestFile.mid", "TestFile.mid"},
		{"lowercase search", "testfile.mid", "TestFile.mid"},
		{"uppercase search", "TESTFILE.MID", "TestFile.mid"},
		{"mixed search for uppercase file", "Uppercase.sf2", "UPPERCASE.SF2"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := FindInsensitive(filepath.Join(tmpDir, tt.search))
			require.NoError(t, err)
			assert.Equal(t, tt.wantBase, filepath.Base(got))
		})
	}
}

func TestFindInsensitiveNotFound(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := FindInsensitive(filepath.Join(tmpDir, "nope.mid"))
	assert.Error(t, err)
}
