package tracker_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holocron/tracker/tracker"
)

func TestFieldError_UnwrapsToKind(t *testing.T) {
	cause := errors.New("UNIQUE constraint failed: roles.name")
	err := fmt.Errorf("create role: %w", tracker.Conflict("name", tracker.MsgAlreadyInUse, cause))

	assert.ErrorIs(t, err, tracker.ErrConflict)
	assert.NotErrorIs(t, err, tracker.ErrIntegrity)
	assert.True(t, tracker.IsClientError(err))

	var fe *tracker.FieldError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, map[string]any{"name": "already in use"}, fe.Messages())
}

func TestUnknownIntegrity(t *testing.T) {
	err := tracker.UnknownIntegrity(errors.New("disk I/O error"))
	assert.ErrorIs(t, err, tracker.ErrIntegrity)
	assert.Equal(t, map[string]any{"unknown": "unknown, see logs"}, err.Messages())
	assert.NotContains(t, fmt.Sprint(err.Messages()), "disk")
}

func TestValidationError(t *testing.T) {
	var verr tracker.ValidationError
	assert.NoError(t, verr.Err())

	verr.Add("name", "Missing data for required field.")
	verr.Add("team", "Must be one of: DEMON.")
	err := verr.Err()

	require.Error(t, err)
	assert.ErrorIs(t, err, tracker.ErrValidation)
	assert.Equal(t, "validation failed: name: Missing data for required field.; team: Must be one of: DEMON.", err.Error())
	assert.False(t, tracker.IsNotFound(err))
}

func TestNotFoundError(t *testing.T) {
	err := &tracker.NotFoundError{Entity: "Script", ID: 3}
	assert.True(t, tracker.IsNotFound(err))
	assert.False(t, tracker.IsClientError(err))
	assert.Equal(t, "script 3 not found", err.Error())
}

func TestTeamAlignment(t *testing.T) {
	assert.Equal(t, tracker.AlignmentEvil, tracker.TeamDemon.Alignment())
	assert.Equal(t, tracker.AlignmentEvil, tracker.TeamMinion.Alignment())
	assert.Equal(t, tracker.AlignmentGood, tracker.TeamOutsider.Alignment())
	assert.Equal(t, tracker.AlignmentGood, tracker.TeamTownsfolk.Alignment())
	assert.False(t, tracker.Team("LUNATIC").Valid())
}

func TestDate_Scan(t *testing.T) {
	var d tracker.Date
	require.NoError(t, d.Scan("2024-02-29"))
	assert.Equal(t, "2024-02-29", d.String())

	require.NoError(t, d.Scan([]byte("2023-12-31T00:00:00Z")))
	assert.Equal(t, "2023-12-31", d.String())

	require.NoError(t, d.Scan(time.Date(2022, time.June, 1, 15, 4, 5, 0, time.FixedZone("X", 3600))))
	assert.Equal(t, "2022-06-01", d.String())

	assert.Error(t, d.Scan(42))
	assert.Error(t, d.Scan("not a date"))
}
