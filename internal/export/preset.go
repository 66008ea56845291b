// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package export

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"tyohaarify/internal/models"
)

// Preset is a named social-media output size.
type Preset struct {
	Name   string `json:"name"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// Presets lists the social sizes in display order.
var Presets = []Preset{
	{Name: "instagram-post", Width: 1080, Height: 1080},
	{Name: "instagram-story", Width: 1080, Height: 1920},
	{Name: "facebook-post", Width: 1200, Height: 630},
	{Name: "twitter-post", Width: 1200, Height: 675},
	{Name: "whatsapp-status", Width: 1080, Height: 1920},
	{Name: "linkedin-post", Width: 1200, Height: 627},
}

// FindPreset looks up a preset by name.
func FindPreset(name string) (Preset, bool) {
	for _, p := range Presets {
		if p.Name == name {
			return p, true
		}
	}
	return Preset{}, false
}

// ExportPreset renders state at a preset's size. The preset name is the
// filename purpose.
func (e *Exporter) ExportPreset(ctx context.Context, state models.CardState, preset Preset, format models.ExportFormat) (*models.ExportArtifact, error) {
	return e.Export(ctx, Request{
		State:   state,
		Format:  format,
		Width:   preset.Width,
		Height:  preset.Height,
		Purpose: preset.Name,
	})
}

// Bundle renders every preset concurrently and returns them as a zip
// archive. Any failure fails the whole bundle.
func (e *Exporter) Bundle(ctx context.Context, state models.CardState, format models.ExportFormat) ([]byte, string, error) {
	artifacts := make([]*models.ExportArtifact, len(Presets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(2)
	for i, p := range Presets {
		g.Go(func() error {
			a, err := e.ExportPreset(gctx, state, p, format)
			if err != nil {
				return fmt.Errorf("%s: %w", p.Name, err)
			}
			artifacts[i] = a
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, "", fmt.Errorf("export bundle: %w", err)
	}

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, a := range artifacts {
		f, err := zw.CreateHeader(&zip.FileHeader{
			Name:     a.Filename,
			Method:   zip.Store,
			Modified: a.CreatedAt.Truncate(time.Second),
		})
		if err != nil {
			return nil, "", fmt.Errorf("export bundle: %w", err)
		}
		if _, err := f.Write(a.Data); err != nil {
			return nil, "", fmt.Errorf("export bundle: %w", err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, "", fmt.Errorf("export bundle: %w", err)
	}

	var festivalName string
	if f, ok := e.gen.Festivals().Find(state.FestivalID); ok {
		festivalName = f.Name
	}
	return buf.Bytes(), cardStem(festivalName) + "-social.zip", nil
}
