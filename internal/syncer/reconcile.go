package syncer

import (
	"context"
	"errors"
	"fmt"

	"github.com/GeloSwift/Life-Planner-Code/internal/google"
	"github.com/GeloSwift/Life-Planner-Code/internal/models"
)

// ReconcileResult is the outcome of one reconciliation pass. ShouldDelete
// means the whole external series is gone and the session should be purged;
// AddedExceptions lists the occurrence dates newly observed as cancelled.
type ReconcileResult struct {
	ShouldDelete    bool
	AddedExceptions []string
}

// Reconcile pulls externally made changes back into a Google-linked
// session: occurrences the user cancelled in the calendar become exception
// dates, a deleted series becomes a delete signal. Sessions without a
// Google link are left alone — the CalDAV provider exposes no instance
// listing and is reconciled only by forward-sync overwrite and by the
// cascade on deletion.
//
// A non-nil error means the pass was skipped; callers log it and move on,
// so a transient provider failure degrades to stale exceptions instead of
// blocking the user's workflow.
func (s *Syncer) Reconcile(ctx context.Context, user *models.User, sess *models.Session) (ReconcileResult, error) {
	if sess.GoogleEventID == "" || !user.Google.Ready() {
		return ReconcileResult{}, nil
	}
	tok, err := s.tokens.Refresh(ctx, user.Google.RefreshToken)
	if err != nil {
		return ReconcileResult{}, err
	}
	return s.reconcile(ctx, tok.AccessToken, user, sess)
}

func (s *Syncer) reconcile(ctx context.Context, accessToken string, user *models.User, sess *models.Session) (ReconcileResult, error) {
	ev, err := s.google.Get(ctx, accessToken, s.calendarID, sess.GoogleEventID)
	if errors.Is(err, google.ErrEventNotFound) {
		return ReconcileResult{ShouldDelete: true}, nil
	}
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("fetch google event: %w", err)
	}
	// Google soft-deletes a series by answering with a cancelled event
	// rather than a 404.
	if ev.Status == string(models.InstanceCancelled) {
		return ReconcileResult{ShouldDelete: true}, nil
	}

	// Non-recurring sessions carry no exception dates; existence was all
	// there was to check.
	if !sess.Recurring() {
		return ReconcileResult{}, nil
	}

	instances, err := s.google.Instances(ctx, accessToken, s.calendarID, sess.GoogleEventID)
	if err != nil {
		return ReconcileResult{}, fmt.Errorf("list google instances: %w", err)
	}

	loc := user.Location()
	var added []string
	seen := make(map[string]bool)
	for _, inst := range instances {
		if inst.Status != models.InstanceCancelled {
			continue
		}
		date := inst.OriginalDate(loc)
		if date == "" || seen[date] || sess.HasException(date) {
			continue
		}
		seen[date] = true
		added = append(added, date)
	}
	if len(added) == 0 {
		return ReconcileResult{}, nil
	}

	// Union, never replace: a concurrent pass cannot drop a previously
	// recorded exception.
	if _, err := s.refs.AddExceptions(ctx, sess.ID, added); err != nil {
		return ReconcileResult{}, fmt.Errorf("persist exception dates: %w", err)
	}
	sess.RecurrenceExceptions = append(sess.RecurrenceExceptions, added...)
	s.logger.Info("merged externally cancelled occurrences", "sessionID", sess.ID, "added", len(added))
	return ReconcileResult{AddedExceptions: added}, nil
}

// ReconcileAll runs the reconciliation pre-step over a user's sessions,
// purging the ones whose external series vanished and merging newly
// cancelled dates into the rest. It returns the surviving sessions; a
// failed pass keeps its session as-is.
func (s *Syncer) ReconcileAll(ctx context.Context, user *models.User, sessions []*models.Session) []*models.Session {
	survivors := make([]*models.Session, 0, len(sessions))
	for _, sess := range sessions {
		res, err := s.Reconcile(ctx, user, sess)
		if err != nil {
			s.logger.Warn("reconciliation skipped", "sessionID", sess.ID, "error", err)
			survivors = append(survivors, sess)
			continue
		}
		if res.ShouldDelete {
			s.purgeDeleted(ctx, user, sess)
			continue
		}
		survivors = append(survivors, sess)
	}
	return survivors
}

// purgeDeleted cascades an externally deleted Google series: the CalDAV
// counterpart is removed best effort and the session is purged from
// storage instead of being resynced into a calendar the user just cleaned.
func (s *Syncer) purgeDeleted(ctx context.Context, user *models.User, sess *models.Session) {
	s.logger.Info("google series deleted externally, purging session", "sessionID", sess.ID)
	if user.Apple.Ready() && sess.AppleEventUID != "" {
		if err := s.apple.DeleteEvent(ctx, user.Apple, sess.AppleEventUID); err != nil {
			s.logger.Warn("cascade caldav delete failed", "sessionID", sess.ID, "uid", sess.AppleEventUID, "error", err)
		}
	}
	if err := s.refs.DeleteSession(ctx, sess.ID); err != nil {
		s.logger.Warn("session purge failed", "sessionID", sess.ID, "error", err)
	}
}
