package service

import (
	"context"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnroll(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e, created, err := f.enrollments.Enroll(ctx, learnerID, f.course.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, model.EnrollmentEnrolled, e.Status)

	again, created, err := f.enrollments.Enroll(ctx, learnerID, f.course.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, e.ID, again.ID)

	_, _, err = f.enrollments.Enroll(ctx, learnerID, f.course.ID+100)
	assert.ErrorIs(t, err, util.ErrCourseNotFound)

	list, err := f.enrollments.List(ctx, learnerID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].Course)
	assert.Equal(t, "Go Basics", list[0].Course.Title)
}
