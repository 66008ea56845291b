// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package generator

import (
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"tyohaarify/internal/cardtmpl"
	"tyohaarify/internal/festival"
	"tyohaarify/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	store, err := festival.NewDefault()
	require.NoError(t, err)
	return New(store)
}

func TestReduceSelectFestivalSeedsMessage(t *testing.T) {
	g := newGenerator(t)
	diwali, _ := g.Festivals().Find("diwali")
	holi, _ := g.Festivals().Find("holi")

	s := g.Reduce(Initial(), SelectFestival{ID: "diwali"})
	want := models.CardState{
		FestivalID: "diwali",
		TemplateID: cardtmpl.Default,
		Message:    diwali.DefaultMessage,
	}
	if diff := cmp.Diff(want, s); diff != "" {
		t.Errorf("state mismatch (-want +got):\n%s", diff)
	}

	// An untouched default follows the festival.
	s = g.Reduce(g.Reduce(s, SelectImage{Index: 2}), SelectFestival{ID: "holi"})
	assert.Equal(t, holi.DefaultMessage, s.Message)
	assert.Equal(t, 0, s.ImageIndex)

	// A custom message is kept.
	s = g.Reduce(s, SetMessage{Text: "Happy days"})
	s = g.Reduce(s, SelectFestival{ID: "diwali"})
	assert.Equal(t, "Happy days", s.Message)
}

func TestReduceClearsGeneratedHTMLOnInputChange(t *testing.T) {
	g := newGenerator(t)
	s := g.Reduce(Initial(), SelectFestival{ID: "diwali"})
	s, err := g.Generate(s)
	require.NoError(t, err)
	require.NotEmpty(t, s.GeneratedHTML)

	same := g.Reduce(s, SelectFestival{ID: "diwali"})
	assert.Equal(t, s.GeneratedHTML, same.GeneratedHTML, "no-op action keeps the preview")

	changed := g.Reduce(s, SelectTemplate{ID: "neon"})
	assert.Empty(t, changed.GeneratedHTML)
	if diff := cmp.Diff(s.Inputs(), changed.Inputs()); diff == "" {
		t.Error("expected template change to alter inputs")
	}
}

func TestReduceSanitisesText(t *testing.T) {
	g := newGenerator(t)
	s := g.Reduce(Initial(), SetMessage{Text: "  <b>Joy</b> & light<script>x()</script> "})
	assert.Equal(t, "Joy & light", s.Message)

	s = g.Reduce(s, SetSender{Name: strings.Repeat("a", MaxSenderLength+10)})
	assert.Len(t, s.SenderName, MaxSenderLength)

	api := g.Sanitize(models.CardState{FestivalID: "holi", Message: "<i>Rang</i> barse", SenderName: "<img src=x>Priya"})
	assert.Equal(t, "Rang barse", api.Message)
	assert.Equal(t, "Priya", api.SenderName)
}

func TestReduceImageAndUpload(t *testing.T) {
	g := newGenerator(t)
	s := g.Reduce(Initial(), UploadImage{DataURL: "data:image/jpeg;base64,AAAA"})
	assert.True(t, s.HasCustomImage())

	s = g.Reduce(s, SelectImage{Index: 1})
	assert.False(t, s.HasCustomImage())
	assert.Equal(t, 1, s.ImageIndex)

	s = g.Reduce(s, Reset{})
	if diff := cmp.Diff(Initial(), s); diff != "" {
		t.Errorf("reset mismatch (-want +got):\n%s", diff)
	}
}

func TestGenerate(t *testing.T) {
	g := newGenerator(t)

	_, err := g.Generate(Initial())
	assert.ErrorIs(t, err, ErrIdle)

	s := g.Reduce(Initial(), SelectFestival{ID: "diwali"})
	out, err := g.Generate(s)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out.GeneratedHTML, "<!DOCTYPE html>"))
	assert.Contains(t, out.GeneratedHTML, `src="/images/festivals/diwali-1.png"`)

	again, err := g.Generate(s)
	require.NoError(t, err)
	assert.Equal(t, out.GeneratedHTML, again.GeneratedHTML)

	s.TemplateID = "nope"
	_, err = g.Generate(s)
	assert.ErrorIs(t, err, cardtmpl.ErrUnknownTemplate)

	s.TemplateID = ""
	s.ImageIndex = 9
	_, err = g.Generate(s)
	assert.ErrorIs(t, err, festival.ErrImageOutOfRange)

	s.CustomImage = "data:image/jpeg;base64,AAAA"
	out, err = g.Generate(s)
	require.NoError(t, err)
	assert.Contains(t, out.GeneratedHTML, "data:image/jpeg;base64,AAAA")

	_, err = g.Generate(models.CardState{FestivalID: "atlantis"})
	assert.ErrorIs(t, err, festival.ErrNotFound)
}

func TestGenerateDefaultsMessage(t *testing.T) {
	g := newGenerator(t)
	out, err := g.Generate(models.CardState{FestivalID: "holi", TemplateID: "minimal"})
	require.NoError(t, err)
	assert.Contains(t, out.GeneratedHTML, "Holi filled with sweet moments")
}

func TestPreviewDocument(t *testing.T) {
	doc := "<!DOCTYPE html><html><head><title>x</title></head><body></body></html>"

	got := PreviewDocument(doc, 800, 400)
	assert.Contains(t, got, "scale(0.5000)")
	assert.Less(t, strings.Index(got, "data-preview"), strings.Index(got, "</head>"))

	assert.Contains(t, PreviewDocument(doc, 800, 1200), "scale(1.0000)")
	assert.True(t, strings.HasPrefix(PreviewDocument("<div></div>", 800, 400), "<style"))
}

func TestParseAction(t *testing.T) {
	tests := []struct {
		kind, value string
		want        Action
	}{
		{"festival", "holi", SelectFestival{ID: "holi"}},
		{"template", "neon", SelectTemplate{ID: "neon"}},
		{"image", "2", SelectImage{Index: 2}},
		{"message", "hi", SetMessage{Text: "hi"}},
		{"sender", "Asha", SetSender{Name: "Asha"}},
		{"upload", "", UploadImage{}},
		{"reset", "", Reset{}},
	}
	for _, tt := range tests {
		got, err := ParseAction(tt.kind, tt.value)
		require.NoError(t, err, tt.kind)
		assert.Equal(t, tt.want, got)
	}

	for _, bad := range [][2]string{{"image", "-1"}, {"image", "x"}, {"explode", ""}} {
		_, err := ParseAction(bad[0], bad[1])
		assert.Error(t, err, bad[0])
	}
}

func TestDebouncerRunsLatestOnly(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var calls atomic.Int32
	var last atomic.Int32
	for i := 1; i <= 5; i++ {
		n := int32(i)
		d.Trigger(func() {
			calls.Add(1)
			last.Store(n)
		})
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, int32(5), last.Load())
}

func TestDebouncerStopCancelsPending(t *testing.T) {
	d := NewDebouncer(time.Hour)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()
	d.Trigger(func() { calls.Add(1) })
	assert.Zero(t, calls.Load())
}

func TestSessionFlushPublishesPreview(t *testing.T) {
	g := newGenerator(t)
	var persisted atomic.Int32
	hub := NewHub(g, time.Hour, 0, func(string, models.CardState) { persisted.Add(1) })
	defer hub.Close()

	s := hub.Get("tab-1", Initial())
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.Apply(SelectFestival{ID: "diwali"})
	ev := s.Flush()
	require.NotEmpty(t, ev.HTML)

	select {
	case got := <-events:
		assert.Equal(t, ev, got)
	case <-time.After(time.Second):
		t.Fatal("no preview event")
	}
	assert.Equal(t, ev.HTML, s.Preview())
	assert.Equal(t, ev.HTML, s.State().GeneratedHTML)
	assert.Equal(t, int32(1), persisted.Load())
	assert.Same(t, s, hub.Get("tab-1", models.CardState{}))
}

func TestSessionFailureKeepsPreview(t *testing.T) {
	g := newGenerator(t)
	hub := NewHub(g, time.Hour, 0, nil)
	defer hub.Close()

	s := hub.Get("tab-2", Initial())
	s.Apply(SelectFestival{ID: "diwali"})
	good := s.Flush()
	require.NotEmpty(t, good.HTML)

	s.Apply(SelectTemplate{ID: "missing"})
	ev := s.Flush()
	assert.Equal(t, RefreshNotice, ev.Notice)
	assert.Equal(t, good.HTML, s.Preview())
}

func TestSessionIdleProducesNoEvent(t *testing.T) {
	g := newGenerator(t)
	hub := NewHub(g, time.Hour, 0, nil)
	defer hub.Close()

	s := hub.Get("tab-3", Initial())
	s.Apply(SetMessage{Text: "hello"})
	assert.Equal(t, PreviewEvent{}, s.Flush())
}

func TestSessionDebouncedRegeneration(t *testing.T) {
	g := newGenerator(t)
	hub := NewHub(g, 10*time.Millisecond, 0, nil)
	defer hub.Close()

	s := hub.Get("tab-4", Initial())
	events, unsubscribe := s.Subscribe()
	defer unsubscribe()

	s.Apply(SelectFestival{ID: "holi"})
	s.Apply(SelectTemplate{ID: "neon"})

	select {
	case ev := <-events:
		assert.Contains(t, ev.HTML, "Holi")
	case <-time.After(2 * time.Second):
		t.Fatal("debounced preview never arrived")
	}
}

func TestHubSweep(t *testing.T) {
	g := newGenerator(t)
	hub := NewHub(g, time.Hour, time.Minute, nil)
	defer hub.Close()

	idle := hub.Get("idle", Initial())
	watched := hub.Get("watched", Initial())
	events, unsubscribe := watched.Subscribe()
	defer unsubscribe()

	assert.Equal(t, 1, hub.Sweep(time.Now().Add(2*time.Minute)))
	_, ok := hub.Lookup("idle")
	assert.False(t, ok)
	_, ok = hub.Lookup("watched")
	assert.True(t, ok)

	// Closed sessions close late subscribers immediately.
	ch, _ := idle.Subscribe()
	_, open := <-ch
	assert.False(t, open)
	assert.NotNil(t, events)
}
