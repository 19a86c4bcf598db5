// Package syncer is the synchronization engine: it projects workout
// sessions into the two external calendar providers, keeps the per-session
// event references current and reconciles state the user changed directly
// in the external calendar.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-ical"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"

	"github.com/GeloSwift/Life-Planner-Code/internal/caldav"
	"github.com/GeloSwift/Life-Planner-Code/internal/google"
	"github.com/GeloSwift/Life-Planner-Code/internal/models"
)

// ErrNotConnected reports a sync attempt against a provider the user has
// not connected.
var ErrNotConnected = errors.New("calendar not connected")

// ErrSessionDeleted reports that the session's external series was deleted
// in the provider's calendar; the session has been purged rather than
// resynced.
var ErrSessionDeleted = errors.New("session deleted externally")

// TokenRefresher mints access tokens from a stored refresh token.
type TokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error)
}

// GoogleEvents is the slice of the Google event transport the engine uses.
type GoogleEvents interface {
	Create(ctx context.Context, accessToken, calendarID string, ev *calendar.Event) (string, error)
	Update(ctx context.Context, accessToken, calendarID, eventID string, ev *calendar.Event) error
	Delete(ctx context.Context, accessToken, calendarID, eventID string) error
	Get(ctx context.Context, accessToken, calendarID, eventID string) (*calendar.Event, error)
	Instances(ctx context.Context, accessToken, calendarID, eventID string) ([]models.EventInstance, error)
}

// AppleEvents is the slice of the CalDAV service the engine uses.
type AppleEvents interface {
	PutEvent(ctx context.Context, link models.AppleCalendarLink, uid string, cal *ical.Calendar) error
	DeleteEvent(ctx context.Context, link models.AppleCalendarLink, uid string) error
}

// RefStore is the writeback surface of the session store: external event
// references, exception-date unions, and the purge of sessions whose series
// was deleted externally. Nothing else is ever written by the engine.
type RefStore interface {
	SetEventRef(ctx context.Context, sessionID int64, provider models.Provider, ref string) error
	AddExceptions(ctx context.Context, sessionID int64, dates []string) (int, error)
	DeleteSession(ctx context.Context, id int64) error
}

// Syncer pushes sessions to the external calendars. All collaborators are
// injected; the struct holds no per-user state, so one Syncer serves every
// request.
type Syncer struct {
	logger      *slog.Logger
	tokens      TokenRefresher
	google      GoogleEvents
	apple       AppleEvents
	refs        RefStore
	calendarID  string
	frontendURL string

	now    func() time.Time
	newUID func() string
}

// NewSyncer wires the engine. calendarID is the Google calendar events are
// written to ("primary" for the user's default), frontendURL feeds the deep
// links in event descriptions.
func NewSyncer(logger *slog.Logger, tokens TokenRefresher, g GoogleEvents, a AppleEvents, refs RefStore, calendarID, frontendURL string) *Syncer {
	if calendarID == "" {
		calendarID = "primary"
	}
	return &Syncer{
		logger:      logger,
		tokens:      tokens,
		google:      g,
		apple:       a,
		refs:        refs,
		calendarID:  calendarID,
		frontendURL: frontendURL,
		now:         time.Now,
		newUID:      caldav.GenerateUID,
	}
}

// SyncSession pushes one session to one provider and returns the external
// event reference to persist. On failure the previous reference is returned
// unchanged together with the error: a failed sync never destroys a working
// link. For the Google provider a reconciliation pass runs first; a series
// deleted externally surfaces as ErrSessionDeleted after the session is
// purged.
func (s *Syncer) SyncSession(ctx context.Context, user *models.User, sess *models.Session, provider models.Provider) (string, error) {
	switch provider {
	case models.ProviderGoogle:
		return s.syncGoogle(ctx, user, sess)
	case models.ProviderApple:
		return s.syncApple(ctx, user, sess)
	}
	return "", fmt.Errorf("unknown calendar provider %q", provider)
}

func (s *Syncer) syncGoogle(ctx context.Context, user *models.User, sess *models.Session) (string, error) {
	prev := sess.GoogleEventID
	if !user.Google.Ready() {
		return prev, fmt.Errorf("google: %w", ErrNotConnected)
	}
	if sess.ScheduledAt == nil {
		return prev, fmt.Errorf("session %d has no scheduled time", sess.ID)
	}

	// Auth errors keep their type through this boundary so callers can tell
	// the user to reconnect.
	tok, err := s.tokens.Refresh(ctx, user.Google.RefreshToken)
	if err != nil {
		return prev, err
	}

	// Reconciliation pre-step for already-linked sessions: merge occurrence
	// cancellations made in the external calendar and catch series deleted
	// there. A failed pass is skipped, never blocking the forward sync.
	if prev != "" {
		res, err := s.reconcile(ctx, tok.AccessToken, user, sess)
		switch {
		case err != nil:
			s.logger.Warn("reconciliation skipped", "sessionID", sess.ID, "error", err)
		case res.ShouldDelete:
			s.purgeDeleted(ctx, user, sess)
			return "", ErrSessionDeleted
		}
	}

	ev := google.BuildEvent(sess, user.Location(), s.frontendURL)
	if prev == "" {
		id, err := s.google.Create(ctx, tok.AccessToken, s.calendarID, ev)
		if err != nil {
			return prev, fmt.Errorf("create google event: %w", err)
		}
		sess.GoogleEventID = id
		if err := s.refs.SetEventRef(ctx, sess.ID, models.ProviderGoogle, id); err != nil {
			return id, fmt.Errorf("persist google event id: %w", err)
		}
		s.logger.Info("created google event", "sessionID", sess.ID, "eventID", id)
		return id, nil
	}

	if err := s.google.Update(ctx, tok.AccessToken, s.calendarID, prev, ev); err != nil {
		return prev, fmt.Errorf("update google event: %w", err)
	}
	s.logger.Debug("updated google event", "sessionID", sess.ID, "eventID", prev)
	return prev, nil
}

func (s *Syncer) syncApple(ctx context.Context, user *models.User, sess *models.Session) (string, error) {
	prev := sess.AppleEventUID
	if !user.Apple.Ready() {
		return prev, fmt.Errorf("apple: %w", ErrNotConnected)
	}
	if sess.ScheduledAt == nil {
		return prev, fmt.Errorf("session %d has no scheduled time", sess.ID)
	}

	// The UID is minted client-side but only persisted once the server
	// confirmed the PUT; until then the session keeps its previous link.
	uid := prev
	if uid == "" {
		uid = s.newUID()
	}

	doc := caldav.BuildEvent(sess, uid, user.Location(), s.frontendURL, s.now())
	if err := s.apple.PutEvent(ctx, user.Apple, uid, doc); err != nil {
		return prev, fmt.Errorf("put caldav event: %w", err)
	}

	if uid != prev {
		sess.AppleEventUID = uid
		if err := s.refs.SetEventRef(ctx, sess.ID, models.ProviderApple, uid); err != nil {
			return uid, fmt.Errorf("persist caldav event uid: %w", err)
		}
		s.logger.Info("created caldav event", "sessionID", sess.ID, "uid", uid)
	} else {
		s.logger.Debug("updated caldav event", "sessionID", sess.ID, "uid", uid)
	}
	return uid, nil
}

// SyncAll pushes every syncable session to the provider sequentially,
// accumulating per-session failures instead of aborting the batch: one bad
// session or one provider hiccup must not block the rest.
func (s *Syncer) SyncAll(ctx context.Context, user *models.User, sessions []*models.Session, provider models.Provider) models.SyncReport {
	var report models.SyncReport
	for _, sess := range sessions {
		if !sess.Syncable() {
			continue
		}
		report.Total++

		_, err := s.SyncSession(ctx, user, sess, provider)
		switch {
		case errors.Is(err, ErrSessionDeleted):
			// The series vanished with its session; not this batch's failure.
		case err != nil:
			s.logger.Error("session sync failed", "sessionID", sess.ID, "provider", provider, "error", err)
			report.Errors = append(report.Errors, fmt.Sprintf("Session %d: %v", sess.ID, err))
		default:
			report.Synced++
		}
	}
	s.logger.Info("batch sync finished", "provider", provider, "synced", report.Synced, "total", report.Total, "failed", len(report.Errors))
	return report
}

// DeleteRemote removes the session's events from every linked provider,
// best effort: a failed delete is logged and the other provider is still
// attempted. Called before the session itself is deleted.
func (s *Syncer) DeleteRemote(ctx context.Context, user *models.User, sess *models.Session) {
	if user.Google.Ready() && sess.GoogleEventID != "" {
		tok, err := s.tokens.Refresh(ctx, user.Google.RefreshToken)
		if err != nil {
			s.logger.Warn("google delete skipped", "sessionID", sess.ID, "error", err)
		} else if err := s.google.Delete(ctx, tok.AccessToken, s.calendarID, sess.GoogleEventID); err != nil {
			s.logger.Warn("google delete failed", "sessionID", sess.ID, "eventID", sess.GoogleEventID, "error", err)
		}
	}
	if user.Apple.Ready() && sess.AppleEventUID != "" {
		if err := s.apple.DeleteEvent(ctx, user.Apple, sess.AppleEventUID); err != nil {
			s.logger.Warn("caldav delete failed", "sessionID", sess.ID, "uid", sess.AppleEventUID, "error", err)
		}
	}
}
