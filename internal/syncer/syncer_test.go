package syncer

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/calendar/v3"

	"github.com/GeloSwift/Life-Planner-Code/internal/google"
	"github.com/GeloSwift/Life-Planner-Code/internal/models"
	"github.com/GeloSwift/Life-Planner-Code/internal/store"
	"github.com/GeloSwift/Life-Planner-Code/internal/transport"
)

// fakeTokens hands out a static access token, or fails every refresh.
type fakeTokens struct {
	refreshCalls int
	err          error
}

func (f *fakeTokens) Refresh(_ context.Context, _ string) (*oauth2.Token, error) {
	f.refreshCalls++
	if f.err != nil {
		return nil, f.err
	}
	return &oauth2.Token{AccessToken: "at-test"}, nil
}

// fakeGoogle records the event calls it receives. failCreateCall / failUpdateCall
// make the nth call of that kind fail with callErr.
type fakeGoogle struct {
	createCalls    int
	updateCalls    int
	deleteCalls    int
	getCalls       int
	instancesCalls int

	created    []*calendar.Event
	updatedIDs []string
	deletedIDs []string

	createID       string
	failCreateCall int
	failUpdateCall int
	callErr        error

	getEvent  *calendar.Event
	getErr    error
	instances []models.EventInstance
	instErr   error
}

func (f *fakeGoogle) Create(_ context.Context, _, _ string, ev *calendar.Event) (string, error) {
	f.createCalls++
	if f.failCreateCall == f.createCalls {
		return "", f.callErr
	}
	f.created = append(f.created, ev)
	return f.createID, nil
}

func (f *fakeGoogle) Update(_ context.Context, _, _, eventID string, _ *calendar.Event) error {
	f.updateCalls++
	if f.failUpdateCall == f.updateCalls {
		return f.callErr
	}
	f.updatedIDs = append(f.updatedIDs, eventID)
	return nil
}

func (f *fakeGoogle) Delete(_ context.Context, _, _, eventID string) error {
	f.deleteCalls++
	f.deletedIDs = append(f.deletedIDs, eventID)
	return nil
}

func (f *fakeGoogle) Get(_ context.Context, _, _, _ string) (*calendar.Event, error) {
	f.getCalls++
	if f.getErr != nil {
		return nil, f.getErr
	}
	if f.getEvent != nil {
		return f.getEvent, nil
	}
	return &calendar.Event{Status: "confirmed"}, nil
}

func (f *fakeGoogle) Instances(_ context.Context, _, _, _ string) ([]models.EventInstance, error) {
	f.instancesCalls++
	if f.instErr != nil {
		return nil, f.instErr
	}
	return f.instances, nil
}

// fakeApple records PUT/DELETE calls.
type fakeApple struct {
	putUIDs     []string
	putDocs     []*ical.Calendar
	putErr      error
	deletedUIDs []string
	deleteErr   error
}

func (f *fakeApple) PutEvent(_ context.Context, _ models.AppleCalendarLink, uid string, cal *ical.Calendar) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.putUIDs = append(f.putUIDs, uid)
	f.putDocs = append(f.putDocs, cal)
	return nil
}

func (f *fakeApple) DeleteEvent(_ context.Context, _ models.AppleCalendarLink, uid string) error {
	if f.deleteErr != nil {
		return f.deleteErr
	}
	f.deletedUIDs = append(f.deletedUIDs, uid)
	return nil
}

type testEnv struct {
	syncer *Syncer
	tokens *fakeTokens
	google *fakeGoogle
	apple  *fakeApple
	store  *store.Memory
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tokens: &fakeTokens{},
		google: &fakeGoogle{createID: "ev-new"},
		apple:  &fakeApple{},
		store:  store.NewMemory(),
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	env.syncer = NewSyncer(logger, env.tokens, env.google, env.apple, env.store, "primary", "https://planner.example")
	env.syncer.now = func() time.Time { return time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC) }
	env.syncer.newUID = func() string { return "uid-fixed" }
	return env
}

func connectedUser() *models.User {
	return &models.User{
		ID:       7,
		Email:    "user@example.com",
		Timezone: "UTC",
		Google:   models.GoogleCalendarLink{Connected: true, RefreshToken: "rt-1"},
		Apple: models.AppleCalendarLink{
			Connected:     true,
			AppleID:       "user@example.com",
			AppPassword:   "app-pass",
			CollectionURL: "https://cal.example/home/",
		},
	}
}

func plannedSession(t *testing.T, env *testEnv, user *models.User) *models.Session {
	t.Helper()
	start := time.Date(2026, 1, 5, 18, 30, 0, 0, time.UTC)
	sess := &models.Session{
		UserID:      user.ID,
		Title:       "Push day",
		Status:      models.SessionPlanned,
		ScheduledAt: &start,
	}
	require.NoError(t, env.store.SaveSession(context.Background(), sess))
	return sess
}

func TestSyncSessionGoogleCreatesThenUpdates(t *testing.T) {
	env := newTestEnv(t)
	user := connectedUser()
	sess := plannedSession(t, env, user)

	ref, err := env.syncer.SyncSession(context.Background(), user, sess, models.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "ev-new", ref)
	assert.Equal(t, 1, env.google.createCalls)
	assert.Zero(t, env.google.updateCalls)

	stored, err := env.store.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "ev-new", stored.GoogleEventID, "ref persisted after provider confirmed creation")

	// Second pass with no session change must update, not create, and keep
	// the reference.
	ref, err = env.syncer.SyncSession(context.Background(), user, stored, models.ProviderGoogle)
	require.NoError(t, err)
	assert.Equal(t, "ev-new", ref)
	assert.Equal(t, 1, env.google.createCalls)
	assert.Equal(t, 1, env.google.updateCalls)
	assert.Equal(t, []string{"ev-new"}, env.google.updatedIDs)
}

func TestSyncSessionGoogleRefreshesEveryCall(t *testing.T) {
	env := newTestEnv(t)
	user := connectedUser()
	sess := plannedSession(t, env, user)

	_, err := env.syncer.SyncSession(context.Background(), user, sess, models.ProviderGoogle)
	require.NoError(t, err)
	_, err = env.syncer.SyncSession(context.Background(), user, sess, models.ProviderGoogle)
	require.NoError(t, err)

	assert.Equal(t, 2, env.tokens.refreshCalls, "access tokens are never cached across calls")
}

func TestSyncSessionGoogleKeepsRefOnFailure(t *testing.T) {
	env := newTestEnv(t)
	env.google.failUpdateCall = 1
	env.google.callErr = &transport.Error{Status: http.StatusInternalServerError, Body: "boom"}

	user := connectedUser()
	sess := plannedSession(t, env, user)
	sess.GoogleEventID = "ev-old"
	require.NoError(t, env.store.SaveSession(context.Background(), sess))

	ref, err := env.syncer.SyncSession(context.Background(), user, sess, models.ProviderGoogle)
	require.Error(t, err)
	assert.Equal(t, "ev-old", ref, "a failed sync never destroys a working link")

	var terr *transport.Error
	assert.ErrorAs(t, err, &terr)

	stored, err := env.store.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "ev-old", stored.GoogleEventID)
}

func TestSyncSessionGoogleAuthErrorKeepsType(t *testing.T) {
	env := newTestEnv(t)
	env.tokens.err = &google.AuthRefreshError{Status: http.StatusBadRequest, Body: "invalid_grant"}

	user := connectedUser()
	sess := plannedSession(t, env, user)

	_, err := env.syncer.SyncSession(context.Background(), user, sess, models.ProviderGoogle)
	var refErr *google.AuthRefreshError
	require.ErrorAs(t, err, &refErr, "handlers must still see the auth taxonomy")
	assert.Zero(t, env.google.createCalls)
}

func TestSyncSessionNotConnected(t *testing.T) {
	env := newTestEnv(t)
	user := &models.User{ID: 7}
	sess := plannedSession(t, env, user)

	_, err := env.syncer.SyncSession(context.Background(), user, sess, models.ProviderGoogle)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = env.syncer.SyncSession(context.Background(), user, sess, models.ProviderApple)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func TestSyncSessionGoogleDeletedExternally(t *testing.T) {
	env := newTestEnv(t)
	env.google.getErr = google.ErrEventNotFound

	user := connectedUser()
	sess := plannedSession(t, env, user)
	sess.GoogleEventID = "ev-gone"
	sess.AppleEventUID = "uid-linked"
	require.NoError(t, env.store.SaveSession(context.Background(), sess))

	ref, err := env.syncer.SyncSession(context.Background(), user, sess, models.ProviderGoogle)
	assert.ErrorIs(t, err, ErrSessionDeleted)
	assert.Empty(t, ref)

	// Cascade: the CalDAV counterpart went with it, the session is purged,
	// and no forward sync was attempted.
	assert.Equal(t, []string{"uid-linked"}, env.apple.deletedUIDs)
	assert.Zero(t, env.google.createCalls)
	assert.Zero(t, env.google.updateCalls)
	_, err = env.store.GetSession(context.Background(), sess.ID)
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestSyncSessionAppleMintsUIDOnce(t *testing.T) {
	env := newTestEnv(t)
	user := connectedUser()
	sess := plannedSession(t, env, user)

	ref, err := env.syncer.SyncSession(context.Background(), user, sess, models.ProviderApple)
	require.NoError(t, err)
	assert.Equal(t, "uid-fixed", ref)

	stored, err := env.store.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, "uid-fixed", stored.AppleEventUID)

	// Re-sync overwrites the same document instead of minting a new UID.
	ref, err = env.syncer.SyncSession(context.Background(), user, stored, models.ProviderApple)
	require.NoError(t, err)
	assert.Equal(t, "uid-fixed", ref)
	assert.Equal(t, []string{"uid-fixed", "uid-fixed"}, env.apple.putUIDs)
}

func TestSyncSessionApplePutFailureKeepsPreviousUID(t *testing.T) {
	env := newTestEnv(t)
	env.apple.putErr = &transport.Error{Status: http.StatusForbidden, Body: "quota"}

	user := connectedUser()
	sess := plannedSession(t, env, user)

	ref, err := env.syncer.SyncSession(context.Background(), user, sess, models.ProviderApple)
	require.Error(t, err)
	assert.Empty(t, ref, "no UID is persisted before the server confirmed the PUT")

	stored, err := env.store.GetSession(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.AppleEventUID)
}

func TestSyncSessionUnscheduled(t *testing.T) {
	env := newTestEnv(t)
	user := connectedUser()
	sess := &models.Session{ID: 1, UserID: user.ID, Title: "Backlog", Status: models.SessionPlanned}

	_, err := env.syncer.SyncSession(context.Background(), user, sess, models.ProviderGoogle)
	assert.Error(t, err)
}

func TestSyncAllAggregatesPerSessionErrors(t *testing.T) {
	env := newTestEnv(t)
	env.google.failCreateCall = 2
	env.google.callErr = &transport.Error{Status: http.StatusInternalServerError, Body: "backend melted"}

	user := connectedUser()
	first := plannedSession(t, env, user)
	second := plannedSession(t, env, user)
	third := plannedSession(t, env, user)

	report := env.syncer.SyncAll(context.Background(), user,
		[]*models.Session{first, second, third}, models.ProviderGoogle)

	assert.Equal(t, 2, report.Synced)
	assert.Equal(t, 3, report.Total)
	require.Len(t, report.Errors, 1)
	assert.Contains(t, report.Errors[0], "Session 2:")
	assert.Contains(t, report.Errors[0], "500")

	// Sessions 1 and 3 still got their events.
	assert.Equal(t, 3, env.google.createCalls)
	for _, id := range []int64{first.ID, third.ID} {
		stored, err := env.store.GetSession(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, "ev-new", stored.GoogleEventID)
	}
}

func TestSyncAllSkipsUnsyncableSessions(t *testing.T) {
	env := newTestEnv(t)
	user := connectedUser()

	start := time.Date(2026, 1, 5, 18, 30, 0, 0, time.UTC)
	done := &models.Session{UserID: user.ID, Title: "Done", Status: models.SessionCompleted, ScheduledAt: &start}
	unscheduled := &models.Session{UserID: user.ID, Title: "Someday", Status: models.SessionPlanned}
	require.NoError(t, env.store.SaveSession(context.Background(), done))
	require.NoError(t, env.store.SaveSession(context.Background(), unscheduled))

	report := env.syncer.SyncAll(context.Background(), user,
		[]*models.Session{done, unscheduled}, models.ProviderGoogle)

	assert.Zero(t, report.Total)
	assert.Zero(t, report.Synced)
	assert.Empty(t, report.Errors)
	assert.Zero(t, env.google.createCalls)
}

func TestSyncAllSkipsExternallyDeletedWithoutError(t *testing.T) {
	env := newTestEnv(t)
	env.google.getErr = google.ErrEventNotFound

	user := connectedUser()
	sess := plannedSession(t, env, user)
	sess.GoogleEventID = "ev-gone"
	require.NoError(t, env.store.SaveSession(context.Background(), sess))

	report := env.syncer.SyncAll(context.Background(), user,
		[]*models.Session{sess}, models.ProviderGoogle)

	assert.Equal(t, 1, report.Total)
	assert.Zero(t, report.Synced)
	assert.Empty(t, report.Errors, "a purge is not a sync failure")
}

func TestDeleteRemoteBothProviders(t *testing.T) {
	env := newTestEnv(t)
	user := connectedUser()
	sess := plannedSession(t, env, user)
	sess.GoogleEventID = "ev-1"
	sess.AppleEventUID = "uid-1"

	env.syncer.DeleteRemote(context.Background(), user, sess)

	assert.Equal(t, []string{"ev-1"}, env.google.deletedIDs)
	assert.Equal(t, []string{"uid-1"}, env.apple.deletedUIDs)
}

func TestDeleteRemoteSkipsUnlinkedProviders(t *testing.T) {
	env := newTestEnv(t)
	user := connectedUser()
	sess := plannedSession(t, env, user)

	env.syncer.DeleteRemote(context.Background(), user, sess)

	assert.Zero(t, env.google.deleteCalls)
	assert.Empty(t, env.apple.deletedUIDs)
}
