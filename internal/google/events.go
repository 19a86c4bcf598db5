package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/GeloSwift/Life-Planner-Code/internal/models"
	"github.com/GeloSwift/Life-Planner-Code/internal/transport"
)

// ErrEventNotFound reports that the provider no longer knows the event id.
var ErrEventNotFound = errors.New("google: event not found")

// EventsClient performs the event calls against the Google Calendar API. A
// typed service is built per call from the caller's bearer token, so one
// client serves every user; extra options let tests point it at a local
// server.
type EventsClient struct {
	logger    *slog.Logger
	extraOpts []option.ClientOption
}

// NewEventsClient creates the events transport.
func NewEventsClient(logger *slog.Logger, opts ...option.ClientOption) *EventsClient {
	return &EventsClient{logger: logger, extraOpts: opts}
}

func (c *EventsClient) service(ctx context.Context, accessToken string) (*calendar.Service, error) {
	opts := append([]option.ClientOption{
		option.WithTokenSource(oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken})),
	}, c.extraOpts...)
	svc, err := calendar.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google: create calendar service: %w", err)
	}
	return svc, nil
}

// Create inserts the event and returns the provider-assigned id.
func (c *EventsClient) Create(ctx context.Context, accessToken, calendarID string, ev *calendar.Event) (string, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return "", err
	}
	created, err := svc.Events.Insert(calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", wrapAPIError(err)
	}
	c.logger.Debug("created google event", "eventID", created.Id)
	return created.Id, nil
}

// Update overwrites the event stored under eventID.
func (c *EventsClient) Update(ctx context.Context, accessToken, calendarID, eventID string, ev *calendar.Event) error {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return err
	}
	if _, err := svc.Events.Update(calendarID, eventID, ev).Context(ctx).Do(); err != nil {
		return wrapAPIError(err)
	}
	c.logger.Debug("updated google event", "eventID", eventID)
	return nil
}

// Delete removes the event. A missing event counts as success so deletes
// stay idempotent.
func (c *EventsClient) Delete(ctx context.Context, accessToken, calendarID, eventID string) error {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return err
	}
	if err := svc.Events.Delete(calendarID, eventID).Context(ctx).Do(); err != nil {
		if isGone(err) {
			c.logger.Debug("google event already gone", "eventID", eventID)
			return nil
		}
		return wrapAPIError(err)
	}
	return nil
}

// Get fetches a single event, mapping missing ids to ErrEventNotFound.
func (c *EventsClient) Get(ctx context.Context, accessToken, calendarID, eventID string) (*calendar.Event, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	ev, err := svc.Events.Get(calendarID, eventID).Context(ctx).Do()
	if err != nil {
		if isGone(err) {
			return nil, ErrEventNotFound
		}
		return nil, wrapAPIError(err)
	}
	return ev, nil
}

// Instances lists the event's materialized occurrences, cancelled ones
// included, decoding the provider payload into the internal shape at this
// boundary.
func (c *EventsClient) Instances(ctx context.Context, accessToken, calendarID, eventID string) ([]models.EventInstance, error) {
	svc, err := c.service(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	var out []models.EventInstance
	pageToken := ""
	for {
		call := svc.Events.Instances(calendarID, eventID).ShowDeleted(true).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		page, err := call.Do()
		if err != nil {
			return nil, wrapAPIError(err)
		}
		for _, item := range page.Items {
			out = append(out, decodeInstance(item))
		}
		if page.NextPageToken == "" {
			return out, nil
		}
		pageToken = page.NextPageToken
	}
}

// decodeInstance maps one provider instance payload. The original start
// comes as either a zoned timestamp or a bare date for all-day events.
func decodeInstance(item *calendar.Event) models.EventInstance {
	inst := models.EventInstance{Status: models.InstanceConfirmed}
	if item.Status == string(models.InstanceCancelled) {
		inst.Status = models.InstanceCancelled
	}
	origin := item.OriginalStartTime
	if origin == nil {
		origin = item.Start
	}
	if origin == nil {
		return inst
	}
	switch {
	case origin.DateTime != "":
		if ts, err := time.Parse(time.RFC3339, origin.DateTime); err == nil {
			inst.OriginalStart = ts
		}
	case origin.Date != "":
		if day, err := time.Parse(time.DateOnly, origin.Date); err == nil {
			inst.OriginalStart = day
			inst.AllDay = true
		}
	}
	return inst
}

func wrapAPIError(err error) error {
	var ge *googleapi.Error
	if !errors.As(err, &ge) {
		return err
	}
	body := ge.Message
	if body == "" {
		body = strings.TrimSpace(ge.Body)
	}
	return &transport.Error{Status: ge.Code, Body: body}
}

func isGone(err error) bool {
	var ge *googleapi.Error
	return errors.As(err, &ge) && (ge.Code == http.StatusNotFound || ge.Code == http.StatusGone)
}
