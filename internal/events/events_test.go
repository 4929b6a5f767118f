package events

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"shollu-partner/internal/config"
	"shollu-partner/internal/shollu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	events []shollu.RemoteEvent
	err    error
}

func (f fakeSource) Events(context.Context) ([]shollu.RemoteEvent, error) {
	return f.events, f.err
}

func TestDefaultsRouteByKind(t *testing.T) {
	c, err := NewCatalog(Defaults())
	require.NoError(t, err)

	quran, err := c.Get(1)
	require.NoError(t, err)
	assert.True(t, quran.Quran())

	prayer, err := c.Lookup("3")
	require.NoError(t, err)
	assert.False(t, prayer.Quran())

	_, err = c.Get(2)
	assert.ErrorIs(t, err, ErrUnknownEvent)
	_, err = c.Lookup("abc")
	assert.ErrorIs(t, err, ErrUnknownEvent)
}

func TestLabels(t *testing.T) {
	c, err := NewCatalog(Defaults())
	require.NoError(t, err)

	assert.Equal(t, "Tidak ada event", c.Labels(nil))
	assert.Equal(t, "Sholat Champions", c.Labels([]int{3}))
	assert.Equal(t, "Pejuang Quran, Event ID: 9", c.Labels([]int{1, 9}))
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
events:
  - id: 7
    label: Tahfidz Ramadhan
    kind: quran-tracking
  - id: 8
    label: Subuh Berjamaah
    kind: prayer-attendance
`), 0o600))

	c, err := LoadFile(path)
	require.NoError(t, err)
	all := c.All()
	require.Len(t, all, 2)
	assert.Equal(t, 7, all[0].ID)
	assert.True(t, all[0].Quran())
}

func TestRejectsInvalidCatalog(t *testing.T) {
	_, err := NewCatalog([]Event{{ID: 1, Label: "x", Kind: "other"}})
	assert.ErrorIs(t, err, ErrInvalidKind)

	_, err = NewCatalog([]Event{{ID: 1, Kind: KindPrayer}, {ID: 1, Kind: KindQuran}})
	assert.Error(t, err)
}

func TestLoadRemote(t *testing.T) {
	src := fakeSource{events: []shollu.RemoteEvent{
		{ID: 5, Label: "Sholat Remaja", Kind: "prayer-attendance"},
		{ID: 6, Label: "Lainnya", Kind: "quiz"},
	}}
	c, err := Load(context.Background(), config.Events{Source: config.EventsRemote}, src)
	require.NoError(t, err)
	all := c.All()
	require.Len(t, all, 1)
	assert.Equal(t, 5, all[0].ID)

	c, err = Load(context.Background(), config.Events{Source: config.EventsRemote}, fakeSource{err: errors.New("down")})
	require.NoError(t, err)
	assert.Len(t, c.All(), 2)
}
