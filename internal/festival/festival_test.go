// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package festival

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const smallTable = `
- id: diwali
  name: Diwali
  region: India
  images: [/images/festivals/diwali-1.png]
- id: christmas
  name: Christmas
  description: Joy and giving
  region: Global
  images: [/images/festivals/christmas-1.png, /images/festivals/christmas-2.png]
`

func TestDefaultTable(t *testing.T) {
	s, err := NewDefault()
	require.NoError(t, err)

	all := s.All()
	require.NotEmpty(t, all)

	d, ok := s.Find("diwali")
	require.True(t, ok)
	assert.Equal(t, "Diwali", d.Name)
	assert.Equal(t, "India", d.Region)
	assert.NotEmpty(t, d.DefaultMessage)
	assert.NotEmpty(t, d.Colors.Primary)
	for _, f := range all {
		assert.NotEmpty(t, f.Images, "festival %s has no images", f.ID)
	}
}

func TestFindUnknown(t *testing.T) {
	s, err := NewDefault()
	require.NoError(t, err)

	_, ok := s.Find("no-such-festival")
	assert.False(t, ok)
}

func TestImage(t *testing.T) {
	s, err := newStore("", []byte(smallTable))
	require.NoError(t, err)

	img, err := s.Image("christmas", 1)
	require.NoError(t, err)
	assert.Equal(t, "/images/festivals/christmas-2.png", img)

	_, err = s.Image("christmas", 2)
	assert.True(t, errors.Is(err, ErrImageOutOfRange))

	_, err = s.Image("christmas", -1)
	assert.True(t, errors.Is(err, ErrImageOutOfRange))

	_, err = s.Image("holi", 0)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestSearch(t *testing.T) {
	s, err := NewDefault()
	require.NoError(t, err)

	t.Run("region filter keeps only that region", func(t *testing.T) {
		got := s.Search(Query{Region: "India"})
		require.NotEmpty(t, got)
		for _, f := range got {
			assert.Equal(t, "India", f.Region)
		}
	})

	t.Run("region is case-insensitive", func(t *testing.T) {
		assert.Equal(t, len(s.Search(Query{Region: "India"})), len(s.Search(Query{Region: "india"})))
	})

	t.Run("text matches name", func(t *testing.T) {
		got := s.Search(Query{Text: "diwa"})
		require.Len(t, got, 1)
		assert.Equal(t, "diwali", got[0].ID)
	})

	t.Run("empty query returns everything", func(t *testing.T) {
		assert.Len(t, s.Search(Query{}), len(s.All()))
	})

	t.Run("unknown region returns nothing", func(t *testing.T) {
		assert.Empty(t, s.Search(Query{Region: "Atlantis"}))
	})
}

func TestParseRejectsBadTables(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not yaml", "::::"},
		{"missing name", "- id: x\n  images: [/a.png]\n"},
		{"id not a slug", "- id: New Year\n  name: X\n  images: [/a.png]\n"},
		{"duplicate id", "- id: a\n  name: A\n  images: [/a.png]\n- id: a\n  name: B\n  images: [/b.png]\n"},
		{"no images", "- id: a\n  name: A\n"},
		{"empty", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestParseDerivesMissingID(t *testing.T) {
	tbl, err := parse([]byte("- name: Eid al-Adha\n  images: [/a.png]\n"))
	require.NoError(t, err)
	require.Len(t, tbl.list, 1)
	assert.Equal(t, "eid-al-adha", tbl.list[0].ID)
	assert.Equal(t, 0, tbl.byID["eid-al-adha"])
}

func TestAllReturnsCopy(t *testing.T) {
	s, err := newStore("", []byte(smallTable))
	require.NoError(t, err)

	all := s.All()
	all[0].Name = "changed"

	f, _ := s.Find(all[0].ID)
	assert.Equal(t, "Diwali", f.Name)
}

func TestRegions(t *testing.T) {
	s, err := newStore("", []byte(smallTable))
	require.NoError(t, err)
	assert.Equal(t, []string{"India", "Global"}, s.Regions())
}

func TestReloadKeepsPreviousTableOnError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "festivals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smallTable), 0o644))

	s, err := Open(path)
	require.NoError(t, err)
	require.Len(t, s.All(), 2)

	require.NoError(t, os.WriteFile(path, []byte("- id: [broken"), 0o644))
	assert.Error(t, s.Reload())
	assert.Len(t, s.All(), 2)
}

func TestWatchReloadsOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "festivals.yaml")
	require.NoError(t, os.WriteFile(path, []byte(smallTable), 0o644))

	s, err := Open(path)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan struct{}, 1)
	require.NoError(t, s.Watch(ctx, func() {
		select {
		case reloaded <- struct{}{}:
		default:
		}
	}))

	one := "- id: holi\n  name: Holi\n  region: India\n  images: [/images/festivals/holi-1.png]\n"
	require.NoError(t, os.WriteFile(path, []byte(one), 0o644))

	require.Eventually(t, func() bool {
		_, ok := s.Find("holi")
		return ok
	}, 5*time.Second, 20*time.Millisecond)
	require.Eventually(t, func() bool { return len(reloaded) == 1 }, time.Second, 10*time.Millisecond)
}

func TestWatchEmbeddedIsNoop(t *testing.T) {
	s, err := NewDefault()
	require.NoError(t, err)
	assert.NoError(t, s.Watch(context.Background(), nil))
}
