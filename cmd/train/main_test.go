package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/recommendation-engine/internal/config"
	"github.com/actuallystonmai/recommendation-engine/internal/domain"
	"github.com/actuallystonmai/recommendation-engine/internal/similarity"
	"github.com/actuallystonmai/recommendation-engine/internal/strategy"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	t.Chdir(t.TempDir())
	t.Setenv("MODEL_PATH", filepath.Join(t.TempDir(), "itemcf.json"))
	cfg, err := config.Load()
	require.NoError(t, err)
	return cfg
}

func writeEvents(t *testing.T, f eventsFile) string {
	t.Helper()
	data, err := json.Marshal(f)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestTrain_FromEventsFile(t *testing.T) {
	cfg := testConfig(t)
	path := writeEvents(t, eventsFile{
		Items: []string{"i1", "i2", "i3"},
		Events: []domain.Event{
			{UserID: "u1", ItemID: "i1"}, {UserID: "u1", ItemID: "i2"},
			{UserID: "u2", ItemID: "i1"}, {UserID: "u2", ItemID: "i2"},
		},
	})

	src, closeSrc, err := openSource(context.Background(), cfg, path, false)
	require.NoError(t, err)
	defer closeSrc()

	params := strategy.TrainParams{MinInteractions: 1, SaveCache: true}
	require.NoError(t, train(context.Background(), cfg, src, strategy.NameItemCF, "u1", params, zerolog.Nop()))

	idx, err := similarity.Load(cfg.Recommender.ModelPath)
	require.NoError(t, err)
	assert.True(t, idx.Has("i1"))
	assert.True(t, idx.Has("i2"))
}

func TestTrain_Demo(t *testing.T) {
	cfg := testConfig(t)
	src, closeSrc, err := openSource(context.Background(), cfg, "", true)
	require.NoError(t, err)
	defer closeSrc()

	params := strategy.TrainParams{MinInteractions: 1, SaveCache: false}
	require.NoError(t, train(context.Background(), cfg, src, "item_cf", "user_001", params, zerolog.Nop()))

	_, err = os.Stat(cfg.Recommender.ModelPath)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTrain_UnknownAlgorithm(t *testing.T) {
	cfg := testConfig(t)
	src, closeSrc, err := openSource(context.Background(), cfg, "", true)
	require.NoError(t, err)
	defer closeSrc()

	err = train(context.Background(), cfg, src, "nope", "u1", strategy.DefaultTrainParams(), zerolog.Nop())
	assert.ErrorIs(t, err, domain.ErrAlgorithmNotFound)
}

func TestOpenSource_BadEventsFile(t *testing.T) {
	cfg := testConfig(t)
	path := filepath.Join(t.TempDir(), "events.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, _, err := openSource(context.Background(), cfg, path, false)
	assert.Error(t, err)

	_, _, err = openSource(context.Background(), cfg, filepath.Join(t.TempDir(), "missing.json"), false)
	assert.Error(t, err)
}
