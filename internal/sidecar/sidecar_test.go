package sidecar

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/harrison/treedump/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_ObjectForm(t *testing.T) {
	data := []byte(`{
  "ignore_patterns": "*.log\n# comment\nbuild/",
  "files": [
    {"id": "a.txt", "lineFrom": 1, "lineTo": 5},
    {"id": "sub/c.txt", "checked": true}
  ]
}`)

	sc, err := Parse(data)
	require.NoError(t, err)

	assert.Equal(t, "*.log\n# comment\nbuild/", sc.IgnorePatterns)
	require.Len(t, sc.Files, 2)
	assert.Equal(t, "a.txt", sc.Files[0].ID)
	require.NotNil(t, sc.Files[0].LineFrom)
	assert.Equal(t, 1, *sc.Files[0].LineFrom)
	assert.Equal(t, 5, *sc.Files[0].LineTo)
	assert.True(t, sc.Files[0].HasRange())
	assert.False(t, sc.Files[1].HasRange())
	require.NotNil(t, sc.Files[1].Checked)
	assert.True(t, *sc.Files[1].Checked)
}

func TestParse_MissingFieldsDefaultEmpty(t *testing.T) {
	sc, err := Parse([]byte(`{}`))
	require.NoError(t, err)
	assert.Equal(t, "", sc.IgnorePatterns)
	assert.Empty(t, sc.Files)
}

func TestParse_LegacyArrayForm(t *testing.T) {
	sc, err := Parse([]byte(`[{"id": "/r/a.txt"}, {"id": "/r/b.txt"}]`))
	require.NoError(t, err)
	assert.Equal(t, "", sc.IgnorePatterns)
	require.Len(t, sc.Files, 2)
	assert.Equal(t, "/r/a.txt", sc.Files[0].ID)
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"whitespace", "  \n "},
		{"truncated json", `{"files": [`},
		{"not json", "ignore_patterns = *.log"},
		{"wrong field type", `{"ignore_patterns": 42}`},
		{"files not an array", `{"files": "a.txt"}`},
		{"fractional line", `{"files": [{"id": "a", "lineFrom": 1.5}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc, err := Parse([]byte(tt.data))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
			assert.Equal(t, models.Sidecar{}, sc)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file is empty state", func(t *testing.T) {
		sc, err := Load(filepath.Join(dir, "nope.json"))
		require.NoError(t, err)
		assert.Equal(t, models.Sidecar{}, sc)
	})

	t.Run("malformed file", func(t *testing.T) {
		path := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(path, []byte("{oops"), 0644))

		sc, err := Load(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrMalformed)
		assert.Equal(t, models.Sidecar{}, sc)
	})

	t.Run("valid file", func(t *testing.T) {
		path := filepath.Join(dir, DefaultName)
		require.NoError(t, os.WriteFile(path, []byte(`{"ignore_patterns":"*.tmp","files":[{"id":"x"}]}`), 0644))

		sc, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, "*.tmp", sc.IgnorePatterns)
		assert.Len(t, sc.Files, 1)
	})
}

func TestEncodeParseRoundTrip(t *testing.T) {
	in := models.Sidecar{
		IgnorePatterns: "*.log\n\n  node_modules  \n",
		Files: []models.FileRecord{
			{ID: "a.txt", LineFrom: models.IntPtr(3), LineTo: models.IntPtr(9)},
			{ID: "sub/c.txt", Checked: models.BoolPtr(false)},
		},
	}

	data, err := Encode(in)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"ignore_patterns"`)
	assert.Contains(t, string(data), `"lineFrom": 3`)

	out, err := Parse(data)
	require.NoError(t, err)
	assert.Equal(t, in, out)
}

func TestEncode_NilFilesWrittenAsArray(t *testing.T) {
	data, err := Encode(models.Sidecar{})
	require.NoError(t, err)
	assert.Contains(t, string(data), `"files": []`)
}

func TestBuildIndex(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "r")
	files := []models.FileRecord{
		{ID: "a.txt", LineFrom: models.IntPtr(1), LineTo: models.IntPtr(5)},
		{ID: "sub/c.txt"},
		{ID: ""},
		{ID: "   "},
		{ID: filepath.Join(root, "legacy.txt")},
	}

	idx := BuildIndex(root, files)

	assert.Len(t, idx, 3)
	rec, ok := idx[filepath.Join(root, "a.txt")]
	require.True(t, ok)
	assert.Equal(t, 5, *rec.LineTo)
	assert.Contains(t, idx, filepath.Join(root, "sub", "c.txt"))
	assert.Contains(t, idx, filepath.Join(root, "legacy.txt"))

	assert.Equal(t, []string{
		filepath.Join(root, "a.txt"),
		filepath.Join(root, "legacy.txt"),
		filepath.Join(root, "sub", "c.txt"),
	}, idx.Keys())
}

func TestBuildIndex_DuplicateLaterWins(t *testing.T) {
	idx := BuildIndex("/r", []models.FileRecord{
		{ID: "a.txt", LineFrom: models.IntPtr(1), LineTo: models.IntPtr(2)},
		{ID: "./a.txt", LineFrom: models.IntPtr(7), LineTo: models.IntPtr(8)},
	})
	require.Len(t, idx, 1)
	assert.Equal(t, 7, *idx[filepath.Join("/r", "a.txt")].LineFrom)
}

func TestRelativeID(t *testing.T) {
	root := filepath.Join(string(filepath.Separator), "r")

	assert.Equal(t, "a.txt", RelativeID(root, filepath.Join(root, "a.txt")))
	assert.Equal(t, "sub/c.txt", RelativeID(root, filepath.Join(root, "sub", "c.txt")))
	assert.Equal(t, "sub/c.txt", RelativeID(root, "sub/c.txt"))
	assert.Equal(t, "sub/c.txt", RelativeID(root, "./sub/c.txt"))

	outside := filepath.Join(string(filepath.Separator), "elsewhere", "x.txt")
	assert.Equal(t, outside, RelativeID(root, outside))

	assert.Equal(t, "", RelativeID(root, ""))
	assert.Equal(t, "  ", RelativeID(root, "  "))
}

func TestSplitPatterns(t *testing.T) {
	text := "*.log\n\n   # a comment\n  node_modules  \r\n#also comment\nbuild/\n"
	assert.Equal(t, []string{"*.log", "node_modules", "build/"}, SplitPatterns(text))
	assert.Equal(t, []string{}, SplitPatterns(""))
}

func TestPath(t *testing.T) {
	assert.Equal(t, filepath.Join("/r", DefaultName), Path("/r", ""))
	assert.Equal(t, filepath.Join("/r", "custom.json"), Path("/r", "custom.json"))
}
