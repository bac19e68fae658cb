package similarity

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
)

func sampleIndex() *Index {
	return &Index{
		Meta: Metadata{
			BuildID:       "5b8f3c1e-4a57-4d5b-9a57-0d7c6e1f2a90",
			Method:        MethodCosine,
			MinSimilarity: 0.1,
			TopN:          2,
			UserCount:     3,
			ItemCount:     3,
			TrainedAt:     time.Date(2026, 3, 14, 9, 26, 53, 589793000, time.UTC),
		},
		Neighbors: map[string][]Neighbor{
			"i1": {{ItemID: "i2", Score: 0.81649655}, {ItemID: "i3", Score: 0.33333334}},
			"i2": {{ItemID: "i1", Score: 0.81649655}},
			"i3": {},
		},
		ItemIndex: map[string]int{"i1": 0, "i2": 1, "i3": 2},
		UserIndex: map[string]int{"u1": 0, "u2": 1, "u3": 2},
	}
}

func TestSaveLoad_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "models", "itemcf.json")
	idx := sampleIndex()

	require.NoError(t, Save(path, idx))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, idx, loaded)
}

func TestSaveLoad_ComputedIndex(t *testing.T) {
	m := BuildMatrix([]domain.InteractionRecord{
		rec("u1", "a", 3), rec("u1", "b", 1), rec("u2", "a", 1),
		rec("u2", "c", 2), rec("u3", "b", 5), rec("u3", "c", 1),
	})
	idx, err := Compute(t.Context(), m, Options{MinSimilarity: 0, TopN: 10})
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "idx.json")
	require.NoError(t, Save(path, idx))
	loaded, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, idx.Neighbors, loaded.Neighbors)
	assert.Equal(t, idx.ItemIndex, loaded.ItemIndex)
	assert.Equal(t, idx.UserIndex, loaded.UserIndex)
	assert.True(t, idx.Meta.TrainedAt.Equal(loaded.Meta.TrainedAt))
}

func TestSave_ReplacesExistingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "idx.json")
	first := sampleIndex()
	require.NoError(t, Save(path, first))

	second := sampleIndex()
	second.Meta.BuildID = "second"
	second.Neighbors = map[string][]Neighbor{"x": {}}
	require.NoError(t, Save(path, second))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "second", loaded.Meta.BuildID)
	assert.Equal(t, 1, loaded.Len())

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary files must not be left behind")
}

func TestLoad_Failures(t *testing.T) {
	dir := t.TempDir()

	writeFile := func(t *testing.T, name, body string) string {
		t.Helper()
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o600))
		return p
	}

	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(dir, "nope.json"))
		require.Error(t, err)
		assert.True(t, IsPersistenceError(err))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := Load(writeFile(t, "garbage.json", "not json"))
		require.Error(t, err)
		assert.True(t, IsPersistenceError(err))
	})

	t.Run("wrong version", func(t *testing.T) {
		_, err := Load(writeFile(t, "v9.json", `{"format_version":9,"neighbors":{}}`))
		require.Error(t, err)
		assert.ErrorIs(t, err, errVersionMismatch)
	})

	t.Run("tampered neighbors", func(t *testing.T) {
		path := filepath.Join(dir, "tampered.json")
		require.NoError(t, Save(path, sampleIndex()))
		data, err := os.ReadFile(path)
		require.NoError(t, err)
		tampered := bytes.Replace(data, []byte("0.33333334"), []byte("0.93333334"), 1)
		require.NotEqual(t, data, tampered)
		require.NoError(t, os.WriteFile(path, tampered, 0o600))

		_, err = Load(path)
		require.Error(t, err)
		assert.ErrorIs(t, err, errChecksumMismatch)
	})
}

func TestNeighborJSON(t *testing.T) {
	var n Neighbor
	require.NoError(t, n.UnmarshalJSON([]byte(`["i7",0.25]`)))
	assert.Equal(t, Neighbor{ItemID: "i7", Score: 0.25}, n)

	b, err := n.MarshalJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `["i7",0.25]`, string(b))

	assert.Error(t, n.UnmarshalJSON([]byte(`["i7"]`)))
	assert.Error(t, n.UnmarshalJSON([]byte(`["i7","x"]`)))
}

func TestIndex_Similar(t *testing.T) {
	idx := sampleIndex()

	assert.Len(t, idx.Similar("i1", 1), 1)
	assert.Len(t, idx.Similar("i1", 10), 2)
	assert.Empty(t, idx.Similar("missing", 5))
	assert.Empty(t, idx.Similar("i1", 0))
	assert.Equal(t, 3, idx.NeighborCount())

	var empty *Index
	assert.Equal(t, 0, empty.Len())
	assert.False(t, empty.Has("i1"))
	assert.Nil(t, empty.Similar("i1", 3))
}
