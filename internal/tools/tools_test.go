// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tyohaarify/internal/ai"
	"tyohaarify/internal/festival"
	"tyohaarify/internal/generator"
	"tyohaarify/internal/models"
)

func newService(t *testing.T, registry *ai.Registry, stats StatsReader) *Service {
	t.Helper()
	store, err := festival.NewDefault()
	require.NoError(t, err)
	return NewService(generator.New(store), registry, stats)
}

type fakeStats struct {
	got   string
	stats []models.FestivalStats
}

func (f *fakeStats) FestivalStats(_ context.Context, id string) ([]models.FestivalStats, error) {
	f.got = id
	return f.stats, nil
}

type flagAll struct{}

func (flagAll) CheckSafety(context.Context, string) (*ai.ModerationResult, error) {
	return &ai.ModerationResult{Safe: false, Categories: []string{"harassment"}}, nil
}

func TestDecode(t *testing.T) {
	call, err := Decode(CreateGreeting, json.RawMessage(`{"festivalId":"holi","imageIndex":2}`))
	require.NoError(t, err)
	args, ok := call.(CreateGreetingArgs)
	require.True(t, ok)
	assert.Equal(t, "holi", args.FestivalID)
	require.NotNil(t, args.ImageIndex)
	assert.Equal(t, 2, *args.ImageIndex)

	call, err = Decode(SearchFestivals, nil)
	require.NoError(t, err)
	assert.Equal(t, SearchFestivalsArgs{}, call)

	_, err = Decode("send_email", nil)
	assert.ErrorIs(t, err, ErrUnknownTool)
	assert.Equal(t, http.StatusInternalServerError, Status(err))

	_, err = Decode(ValidateGreeting, json.RawMessage(`{"message":42}`))
	assert.ErrorIs(t, err, ErrInvalidArguments)
	assert.Equal(t, http.StatusBadRequest, Status(err))
}

func TestCreateGreeting(t *testing.T) {
	s := newService(t, nil, nil)

	out, err := s.Run(context.Background(), CreateGreeting, json.RawMessage(`{"festivalId":"diwali","senderName":"<b>Meera</b>"}`))
	require.NoError(t, err)
	g := out.(*Greeting)

	assert.Equal(t, "Diwali", g.Festival.Name)
	assert.Equal(t, "classic", g.Template)
	assert.Equal(t, "/images/festivals/diwali-1.png", g.Image)
	assert.True(t, strings.HasPrefix(g.HTML, "<!DOCTYPE html>"))
	assert.Contains(t, g.HTML, "Meera")
	assert.NotContains(t, g.HTML, "<b>Meera")
	assert.Equal(t, "May the divine light of Diwali bring peace, prosperity and happiness to your home.", g.Message)
}

func TestCreateGreetingErrors(t *testing.T) {
	s := newService(t, nil, nil)
	idx := 99

	tests := []struct {
		name   string
		args   CreateGreetingArgs
		status int
	}{
		{"missing festival", CreateGreetingArgs{}, http.StatusBadRequest},
		{"unknown festival", CreateGreetingArgs{FestivalID: "halloween"}, http.StatusNotFound},
		{"unknown template", CreateGreetingArgs{FestivalID: "holi", TemplateID: "nope"}, http.StatusNotFound},
		{"image out of range", CreateGreetingArgs{FestivalID: "holi", ImageIndex: &idx}, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Dispatch(context.Background(), tt.args)
			require.Error(t, err)
			assert.Equal(t, tt.status, Status(err))
		})
	}
}

func TestCustomizeTemplate(t *testing.T) {
	s := newService(t, nil, nil)

	out, err := s.CustomizeTemplate(CustomizeTemplateArgs{TemplateID: "split", FestivalID: "eid", Message: "Eid Mubarak"})
	require.NoError(t, err)
	assert.Equal(t, 900, out.Width)
	assert.Equal(t, 600, out.Height)
	assert.Contains(t, out.HTML, "Eid Mubarak")

	_, err = s.CustomizeTemplate(CustomizeTemplateArgs{FestivalID: "eid"})
	assert.ErrorIs(t, err, ErrInvalidArguments)
}

func TestSearchFestivals(t *testing.T) {
	s := newService(t, nil, nil)

	nepal := s.SearchFestivals(SearchFestivalsArgs{Region: "nepal"})
	assert.Equal(t, 2, nepal.Count)
	for _, f := range nepal.Festivals {
		assert.Equal(t, "Nepal", f.Region)
	}

	none := s.SearchFestivals(SearchFestivalsArgs{Region: "Atlantis"})
	assert.Equal(t, 0, none.Count)
	assert.NotNil(t, none.Festivals)

	lights := s.SearchFestivals(SearchFestivalsArgs{Query: "lights"})
	require.NotZero(t, lights.Count)
	assert.Equal(t, "diwali", lights.Festivals[0].ID)
}

func TestValidateGreeting(t *testing.T) {
	s := newService(t, nil, nil)
	ctx := context.Background()

	ok := s.ValidateGreeting(ctx, ValidateGreetingArgs{Message: "Happy Holi!"})
	assert.True(t, ok.Valid)
	assert.Empty(t, ok.Issues)
	assert.Equal(t, 11, ok.Length)
	assert.False(t, ok.Moderated)

	empty := s.ValidateGreeting(ctx, ValidateGreetingArgs{Message: "   "})
	assert.False(t, empty.Valid)
	assert.Equal(t, []string{"message is empty"}, empty.Issues)

	long := s.ValidateGreeting(ctx, ValidateGreetingArgs{
		Message:    strings.Repeat("ॐ", generator.MaxMessageLength+1),
		SenderName: strings.Repeat("x", generator.MaxSenderLength+1),
	})
	assert.False(t, long.Valid)
	assert.Len(t, long.Issues, 2)
	assert.Equal(t, generator.MaxMessageLength+1, long.Length)
}

func TestValidateGreetingModeration(t *testing.T) {
	reg := ai.NewRegistry("", nil)
	reg.SetModerator(flagAll{})
	s := newService(t, reg, nil)

	v := s.ValidateGreeting(context.Background(), ValidateGreetingArgs{Message: "hello"})
	assert.True(t, v.Moderated)
	assert.False(t, v.Valid)
	assert.Equal(t, []string{"message flagged: harassment"}, v.Issues)
}

func TestFestivalAnalytics(t *testing.T) {
	ctx := context.Background()

	t.Run("sample numbers without a store", func(t *testing.T) {
		s := newService(t, nil, nil)
		a, err := s.FestivalAnalytics(ctx, FestivalAnalyticsArgs{FestivalID: "tihar"})
		require.NoError(t, err)
		assert.Equal(t, "sample", a.Source)
		require.Len(t, a.Stats, 1)
		again, _ := s.FestivalAnalytics(ctx, FestivalAnalyticsArgs{FestivalID: "tihar"})
		assert.Equal(t, a.Stats, again.Stats)

		all, err := s.FestivalAnalytics(ctx, FestivalAnalyticsArgs{})
		require.NoError(t, err)
		assert.Len(t, all.Stats, 12)
	})

	t.Run("reads the store", func(t *testing.T) {
		stats := &fakeStats{stats: []models.FestivalStats{{FestivalID: "holi", Generated: 3}}}
		s := newService(t, nil, stats)
		a, err := s.FestivalAnalytics(ctx, FestivalAnalyticsArgs{FestivalID: "holi"})
		require.NoError(t, err)
		assert.Equal(t, "store", a.Source)
		assert.Equal(t, "holi", stats.got)
		assert.Equal(t, 3, a.Stats[0].Generated)
	})

	t.Run("unknown festival", func(t *testing.T) {
		s := newService(t, nil, nil)
		_, err := s.FestivalAnalytics(ctx, FestivalAnalyticsArgs{FestivalID: "nope"})
		assert.True(t, errors.Is(err, festival.ErrNotFound))
	})
}
