package seeds

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/actuallystonmai/recommendation-engine/internal/domain"
)

type fakeWriter struct {
	existing int
	items    []domain.Item
	events   []domain.Event
	failOn   string
}

func (f *fakeWriter) CountItems(context.Context) (int, error) {
	if f.failOn == "count" {
		return 0, errors.New("count failed")
	}
	return f.existing + len(f.items), nil
}

func (f *fakeWriter) InsertItems(_ context.Context, items []domain.Item) error {
	if f.failOn == "items" {
		return errors.New("insert failed")
	}
	f.items = append(f.items, items...)
	return nil
}

func (f *fakeWriter) AddEvents(_ context.Context, events []domain.Event) error {
	if f.failOn == "events" {
		return errors.New("copy failed")
	}
	f.events = append(f.events, events...)
	return nil
}

func TestGenerate_Deterministic(t *testing.T) {
	opts := DefaultOptions()

	items1, events1 := Generate(opts)
	items2, events2 := Generate(opts)

	assert.Equal(t, items1, items2)
	assert.Equal(t, events1, events2)
	assert.Len(t, items1, opts.Items)
	assert.Len(t, events1, opts.Events)
}

func TestGenerate_EventsReferenceCatalog(t *testing.T) {
	opts := Options{Seed: 7, Items: 10, Users: 4, Events: 200}
	items, events := Generate(opts)

	catalog := make(map[string]bool, len(items))
	for _, it := range items {
		catalog[it.ID] = true
	}
	users := map[string]bool{}
	for _, e := range events {
		assert.True(t, catalog[e.ItemID], "unknown item %s", e.ItemID)
		assert.Contains(t, eventKinds, e.Kind)
		users[e.UserID] = true
	}
	assert.LessOrEqual(t, len(users), opts.Users)
}

func TestGenerate_Empty(t *testing.T) {
	items, events := Generate(Options{Seed: 1, Items: 0, Users: 5, Events: 10})
	assert.Empty(t, items)
	assert.Empty(t, events)
}

func TestSetup(t *testing.T) {
	tests := []struct {
		name       string
		writer     *fakeWriter
		wantErr    bool
		wantItems  int
		wantEvents int
	}{
		{name: "fresh database", writer: &fakeWriter{}, wantItems: 50, wantEvents: 400},
		{name: "already seeded", writer: &fakeWriter{existing: 3}},
		{name: "count fails", writer: &fakeWriter{failOn: "count"}, wantErr: true},
		{name: "insert fails", writer: &fakeWriter{failOn: "items"}, wantErr: true},
		{name: "events fail", writer: &fakeWriter{failOn: "events"}, wantErr: true, wantItems: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Setup(context.Background(), tt.writer, DefaultOptions(), zerolog.Nop())
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
			assert.Len(t, tt.writer.items, tt.wantItems)
			assert.Len(t, tt.writer.events, tt.wantEvents)
		})
	}
}
