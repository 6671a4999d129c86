package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/holocron/tracker/tracker"
)

func TestObserveReconcile(t *testing.T) {
	m := New()
	ok := tracker.Result{
		Kind:    tracker.OwnerScript,
		Added:   make([]tracker.Association, 3),
		Removed: make([]tracker.Association, 1),
	}

	m.ObserveReconcile(ok, nil)
	m.ObserveReconcile(tracker.Result{Kind: tracker.OwnerGame}, &tracker.NotFoundError{Entity: "Game", ID: 4})
	m.ObserveReconcile(tracker.Result{Kind: tracker.OwnerGame}, &tracker.UnknownRoleError{Name: "Lunatic"})
	m.ObserveReconcile(tracker.Result{Kind: tracker.OwnerGame, Added: make([]tracker.Association, 5)}, errors.New("disk full"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconcile.WithLabelValues("script", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconcile.WithLabelValues("game", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconcile.WithLabelValues("game", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.reconcile.WithLabelValues("game", "error")))

	// failed reconciliations rolled back, so their rows are not counted
	assert.Equal(t, 3.0, testutil.ToFloat64(m.rows.WithLabelValues("script", "added")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rows.WithLabelValues("script", "removed")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.rows.WithLabelValues("game", "added")))
}

func TestObserveRequest_Unmatched(t *testing.T) {
	m := New()

	m.ObserveRequest("GET", "", 404, time.Millisecond)
	m.ObserveRequest("GET", "/api/games/{id}", 200, time.Millisecond)
	m.ObserveRequest("GET", "/api/games/{id}", 200, time.Millisecond)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "unmatched", "404")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues("GET", "/api/games/{id}", "200")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.requests))
}
