// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package tools

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"unicode/utf8"

	"tyohaarify/internal/cardtmpl"
	"tyohaarify/internal/festival"
	"tyohaarify/internal/generator"
	"tyohaarify/internal/models"
)

// Greeting is the result of create_greeting and POST /api/generate-card.
type Greeting struct {
	HTML       string                 `json:"html"`
	FestivalID string                 `json:"festivalId"`
	Festival   models.FestivalSummary `json:"festival"`
	Template   string                 `json:"template"`
	Image      string                 `json:"image"`
	ImageIndex int                    `json:"imageIndex"`
	Message    string                 `json:"message"`
	SenderName string                 `json:"senderName"`
}

// CreateGreeting renders a card. The template defaults to the classic
// layout and the image index to 0.
func (s *Service) CreateGreeting(args CreateGreetingArgs) (*Greeting, error) {
	state, f, err := s.render(args.FestivalID, args.TemplateID, args.ImageIndex, args.Message, args.SenderName)
	if err != nil {
		return nil, err
	}

	image, _ := s.gen.Festivals().Image(f.ID, state.ImageIndex)
	message := state.Message
	if strings.TrimSpace(message) == "" {
		message = f.DefaultMessage
	}
	return &Greeting{
		HTML:       state.GeneratedHTML,
		FestivalID: f.ID,
		Festival:   f.Summary(),
		Template:   state.TemplateID,
		Image:      image,
		ImageIndex: state.ImageIndex,
		Message:    message,
		SenderName: state.SenderName,
	}, nil
}

// CustomizedTemplate is the result of customize_template.
type CustomizedTemplate struct {
	HTML       string `json:"html"`
	TemplateID string `json:"templateId"`
	Name       string `json:"name"`
	FestivalID string `json:"festivalId"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
}

// CustomizeTemplate renders a specific template and reports its natural
// size. Both ids are required.
func (s *Service) CustomizeTemplate(args CustomizeTemplateArgs) (*CustomizedTemplate, error) {
	if args.TemplateID == "" || args.FestivalID == "" {
		return nil, fmt.Errorf("%w: templateId and festivalId are required", ErrInvalidArguments)
	}
	state, f, err := s.render(args.FestivalID, args.TemplateID, args.ImageIndex, args.Message, args.SenderName)
	if err != nil {
		return nil, err
	}
	tmpl, _ := cardtmpl.Lookup(state.TemplateID)
	w, h := tmpl.Size()
	return &CustomizedTemplate{
		HTML:       state.GeneratedHTML,
		TemplateID: tmpl.ID(),
		Name:       tmpl.Name(),
		FestivalID: f.ID,
		Width:      w,
		Height:     h,
	}, nil
}

func (s *Service) render(festivalID, templateID string, imageIndex *int, message, sender string) (models.CardState, *models.Festival, error) {
	if strings.TrimSpace(festivalID) == "" {
		return models.CardState{}, nil, fmt.Errorf("%w: festivalId is required", ErrInvalidArguments)
	}
	f, ok := s.gen.Festivals().Find(festivalID)
	if !ok {
		return models.CardState{}, nil, fmt.Errorf("%w: %s", festival.ErrNotFound, festivalID)
	}

	state := s.gen.Sanitize(models.CardState{
		FestivalID: f.ID,
		TemplateID: templateID,
		Message:    message,
		SenderName: sender,
	})
	if imageIndex != nil {
		state.ImageIndex = *imageIndex
	}
	state, err := s.gen.Generate(state)
	if err != nil {
		return models.CardState{}, nil, err
	}
	return state, f, nil
}

// FestivalList is the result of search_festivals.
type FestivalList struct {
	Festivals []models.Festival `json:"festivals"`
	Count     int               `json:"count"`
}

// SearchFestivals filters the festival table by region and free text.
func (s *Service) SearchFestivals(args SearchFestivalsArgs) *FestivalList {
	list := s.gen.Festivals().Search(festival.Query{Region: args.Region, Text: args.Query})
	if list == nil {
		list = []models.Festival{}
	}
	return &FestivalList{Festivals: list, Count: len(list)}
}

// Validation is the result of validate_greeting.
type Validation struct {
	Valid     bool     `json:"valid"`
	Issues    []string `json:"issues"`
	Length    int      `json:"length"`
	Moderated bool     `json:"moderated"`
}

// ValidateGreeting checks message and sender lengths and, when a moderator
// is configured, runs the text through it. Moderation outages are logged
// and do not fail validation.
func (s *Service) ValidateGreeting(ctx context.Context, args ValidateGreetingArgs) *Validation {
	msg := strings.TrimSpace(args.Message)
	v := &Validation{Issues: []string{}, Length: utf8.RuneCountInString(msg)}

	switch {
	case msg == "":
		v.Issues = append(v.Issues, "message is empty")
	case v.Length > generator.MaxMessageLength:
		v.Issues = append(v.Issues, fmt.Sprintf("message exceeds %d characters", generator.MaxMessageLength))
	}
	if utf8.RuneCountInString(strings.TrimSpace(args.SenderName)) > generator.MaxSenderLength {
		v.Issues = append(v.Issues, fmt.Sprintf("sender name exceeds %d characters", generator.MaxSenderLength))
	}
	if strings.ContainsAny(msg, "<>") {
		v.Issues = append(v.Issues, "message contains markup, which will be removed")
	}

	if msg != "" && s.ai != nil && s.ai.Moderates() {
		res, err := s.ai.CheckText(ctx, msg+"\n"+args.SenderName)
		if err != nil {
			slog.Warn("greeting moderation unavailable", "error", err)
		} else {
			v.Moderated = true
			if !res.Safe {
				v.Issues = append(v.Issues, "message flagged: "+strings.Join(res.Categories, ", "))
			}
		}
	}

	v.Valid = len(v.Issues) == 0
	return v
}

// Analytics is the result of festival_analytics.
type Analytics struct {
	Stats  []models.FestivalStats `json:"stats"`
	Source string                 `json:"source"` // "store" or "sample"
}

// FestivalAnalytics reports event counts. Without a stats store it returns
// stable sample numbers derived from the festival id.
func (s *Service) FestivalAnalytics(ctx context.Context, args FestivalAnalyticsArgs) (*Analytics, error) {
	var ids []string
	if args.FestivalID != "" {
		if _, ok := s.gen.Festivals().Find(args.FestivalID); !ok {
			return nil, fmt.Errorf("%w: %s", festival.ErrNotFound, args.FestivalID)
		}
		ids = []string{args.FestivalID}
	} else {
		for _, f := range s.gen.Festivals().All() {
			ids = append(ids, f.ID)
		}
	}

	if s.stats != nil {
		stats, err := s.stats.FestivalStats(ctx, args.FestivalID)
		if err != nil {
			return nil, fmt.Errorf("festival analytics: %w", err)
		}
		if stats == nil {
			stats = []models.FestivalStats{}
		}
		return &Analytics{Stats: stats, Source: "store"}, nil
	}

	out := &Analytics{Source: "sample"}
	for _, id := range ids {
		out.Stats = append(out.Stats, sampleStats(id))
	}
	return out, nil
}

func sampleStats(id string) models.FestivalStats {
	h := fnv.New32a()
	h.Write([]byte(id))
	n := int(h.Sum32()%900) + 100
	return models.FestivalStats{
		FestivalID: id,
		Generated:  n,
		Exported:   n * 2 / 5,
		Shared:     n / 5,
	}
}
