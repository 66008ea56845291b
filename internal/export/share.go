// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

package export

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/skip2/go-qrcode"

	"tyohaarify/internal/models"
)

// ErrUnknownPlatform is returned by Share for platforms without an intent URL.
var ErrUnknownPlatform = errors.New("export: unknown share platform")

// Platforms lists the share targets with an intent URL.
var Platforms = []string{"whatsapp", "twitter", "facebook", "linkedin", "telegram", "email"}

// DefaultShareTTL is how long a shared card stays reachable.
const DefaultShareTTL = 30 * 24 * time.Hour

// ObjectStore is the subset of the storage client used for shared artifacts.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, key, contentType string, body io.Reader, size int64) error
	PublicBucket() string
	FileURL(key string) string
}

// ShareRecorder persists share rows so /s/{token} can resolve them.
type ShareRecorder interface {
	CreateSharedCard(ctx context.Context, card *models.SharedCard) error
}

// ShareResult tells the caller how to share an artifact.
type ShareResult struct {
	Platform     string `json:"platform"`
	Token        string `json:"token,omitempty"`
	URL          string `json:"url,omitempty"`
	IntentURL    string `json:"intentUrl,omitempty"`
	QRCode       string `json:"qrCode,omitempty"` // PNG data URL encoding URL
	Manual       bool   `json:"manual"`
	Instructions string `json:"instructions,omitempty"`
	Filename     string `json:"filename"`
}

// Sharer publishes artifacts to object storage and builds share links.
type Sharer struct {
	objects ObjectStore
	records ShareRecorder
	baseURL string
	ttl     time.Duration
	now     func() time.Time
}

// NewSharer creates a sharer. objects may be nil, in which case every share
// is manual. records may be nil to skip persistence.
func NewSharer(objects ObjectStore, records ShareRecorder, baseURL string) *Sharer {
	return &Sharer{
		objects: objects,
		records: records,
		baseURL: strings.TrimRight(baseURL, "/"),
		ttl:     DefaultShareTTL,
		now:     time.Now,
	}
}

// Share uploads artifact and returns the link, the platform intent and a QR
// code. Without object storage the result asks the user to attach the
// downloaded file manually.
func (s *Sharer) Share(ctx context.Context, artifact *models.ExportArtifact, festivalID, platform string) (*ShareResult, error) {
	platform = strings.ToLower(strings.TrimSpace(platform))
	if platform != "" && !knownPlatform(platform) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPlatform, platform)
	}

	res := &ShareResult{Platform: platform, Filename: artifact.Filename}
	if s.objects == nil {
		res.Manual = true
		res.Instructions = manualInstructions(platform)
		return res, nil
	}

	token := strings.ReplaceAll(uuid.NewString(), "-", "")
	key := "shares/" + token + "/" + artifact.Filename
	if err := s.objects.Upload(ctx, s.objects.PublicBucket(), key, artifact.ContentType,
		bytes.NewReader(artifact.Data), int64(len(artifact.Data))); err != nil {
		return nil, fmt.Errorf("share upload: %w", err)
	}

	if s.records != nil {
		now := s.now()
		expires := now.Add(s.ttl)
		row := &models.SharedCard{
			ID:          uuid.New(),
			Token:       token,
			FestivalID:  festivalID,
			S3Key:       key,
			ContentType: artifact.ContentType,
			CreatedAt:   now,
			ExpiresAt:   &expires,
		}
		if err := s.records.CreateSharedCard(ctx, row); err != nil {
			return nil, fmt.Errorf("share record: %w", err)
		}
		res.URL = s.baseURL + "/s/" + token
	} else {
		res.URL = s.objects.FileURL(key)
	}
	res.Token = token

	png, err := qrcode.Encode(res.URL, qrcode.Medium, 256)
	if err != nil {
		slog.Warn("qr code generation failed", "url", res.URL, "error", err)
	} else {
		res.QRCode = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}
	res.IntentURL = IntentURL(platform, res.URL, "A greeting card for you")
	return res, nil
}

func knownPlatform(p string) bool {
	for _, known := range Platforms {
		if p == known {
			return true
		}
	}
	return false
}

// IntentURL returns the link that opens platform's composer prefilled with
// text and link, or "" for an empty or unknown platform.
func IntentURL(platform, link, text string) string {
	q := url.QueryEscape
	switch platform {
	case "whatsapp":
		return "https://wa.me/?text=" + q(text+" "+link)
	case "twitter":
		return "https://twitter.com/intent/tweet?text=" + q(text) + "&url=" + q(link)
	case "facebook":
		return "https://www.facebook.com/sharer/sharer.php?u=" + q(link)
	case "linkedin":
		return "https://www.linkedin.com/sharing/share-offsite/?url=" + q(link)
	case "telegram":
		return "https://t.me/share/url?url=" + q(link) + "&text=" + q(text)
	case "email":
		return "mailto:?subject=" + url.PathEscape(text) + "&body=" + url.PathEscape(link)
	}
	return ""
}

func manualInstructions(platform string) string {
	if platform == "" {
		return "Download the card and attach it to your message."
	}
	return "Download the card and attach it in " + platform + "."
}
