package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSentinelCodesAreDistinct(t *testing.T) {
	assert.False(t, errors.Is(ErrNotEnrollmentOwner, ErrUnauthorized))
	assert.False(t, errors.Is(ErrNotEnrollmentOwner, ErrForbidden))
	assert.Equal(t, http.StatusForbidden, ErrNotEnrollmentOwner.Status)

	sentinels := []*Error{
		ErrUnauthorized, ErrForbidden, ErrNotEnrollmentOwner, ErrSectionNotFound,
		ErrAlreadyEnrolled, ErrSectionFull, ErrPrerequisitesNotMet, ErrScheduleConflict,
		ErrDropPeriodEnded, ErrInvalidStatus, ErrSectionInactive, ErrUnsupportedExportFmt,
		ErrNoSections, ErrNoClassrooms, ErrUnsatisfiable, ErrSearchBudgetExceeded,
		ErrInvalidTimeFormat, ErrScheduleGenerationBusy,
	}
	statusByCode := make(map[string]int, len(sentinels))
	for _, e := range sentinels {
		if status, ok := statusByCode[e.Code]; ok && status != e.Status {
			t.Errorf("code %s shared by statuses %d and %d", e.Code, status, e.Status)
		}
		statusByCode[e.Code] = e.Status
	}
}

func TestCloneKeepsIdentity(t *testing.T) {
	clone := Clone(ErrNotEnrollmentOwner, "enrollment belongs to someone else")
	assert.ErrorIs(t, clone, ErrNotEnrollmentOwner)
	assert.Equal(t, "enrollment belongs to someone else", clone.Message)
	assert.Equal(t, "enrollment does not belong to student", ErrNotEnrollmentOwner.Message)

	detailed := WithDetails(ErrUnsatisfiable, "", map[string]int{"competingSections": 41})
	assert.ErrorIs(t, detailed, ErrUnsatisfiable)
	assert.Equal(t, ErrUnsatisfiable.Message, detailed.Message)
	assert.Nil(t, ErrUnsatisfiable.Details)
	assert.Nil(t, Clone(nil, "x"))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	wrapped := fmt.Errorf("enroll: %w", ErrSectionFull)
	got := FromError(wrapped)
	require.NotNil(t, got)
	assert.Equal(t, "SECTION_FULL", got.Code)

	boom := errors.New("db down")
	internal := FromError(boom)
	assert.Equal(t, ErrInternal.Code, internal.Code)
	assert.Equal(t, http.StatusInternalServerError, internal.Status)
	assert.ErrorIs(t, internal, boom)
	assert.Equal(t, "internal server error: db down", internal.Error())
}
