package caldav

import (
	"bytes"
	"context"
	"fmt"
	"net/http"

	"github.com/emersion/go-ical"
	"github.com/google/uuid"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
	"github.com/GeloSwift/Life-Planner-Code/internal/transport"
)

// GenerateUID mints the globally unique identifier for a new event
// document. The uid never changes once stored on a session.
func GenerateUID() string {
	return uuid.New().String()
}

// EventURL builds the event resource URL. Collection URLs end with a
// slash, so the uid is appended verbatim.
func EventURL(collectionURL, uid string) string {
	return collectionURL + uid + ".ics"
}

// PutEvent creates or overwrites the event document stored under uid in
// the link's calendar collection. Any 2xx answer counts as success.
func (s *Service) PutEvent(ctx context.Context, link models.AppleCalendarLink, uid string, cal *ical.Calendar) error {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return fmt.Errorf("caldav: encode event document: %w", err)
	}

	target := EventURL(link.CollectionURL, uid)
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, &buf)
	if err != nil {
		return fmt.Errorf("caldav: build put request: %w", err)
	}
	req.Header.Set("Content-Type", "text/calendar; charset=utf-8")

	resp, err := s.httpClient(link).Do(req)
	if err != nil {
		return fmt.Errorf("caldav: put event: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return transport.FromResponse(resp)
	}
	s.logger.Debug("stored caldav event", "url", target, "status", resp.StatusCode)
	return nil
}

// DeleteEvent removes the event document under uid. A 404 counts as
// success so deletes stay idempotent.
func (s *Service) DeleteEvent(ctx context.Context, link models.AppleCalendarLink, uid string) error {
	target := EventURL(link.CollectionURL, uid)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, target, nil)
	if err != nil {
		return fmt.Errorf("caldav: build delete request: %w", err)
	}

	resp, err := s.httpClient(link).Do(req)
	if err != nil {
		return fmt.Errorf("caldav: delete event: %w", err)
	}
	defer resp.Body.Close()

	if (resp.StatusCode >= 200 && resp.StatusCode <= 299) || resp.StatusCode == http.StatusNotFound {
		s.logger.Debug("deleted caldav event", "url", target, "status", resp.StatusCode)
		return nil
	}
	return transport.FromResponse(resp)
}
