package service

import (
	"context"
	"sync"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/progress"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteProgressRequiresEnrollment(t *testing.T) {
	f := newFixture(t)

	_, err := f.progress.WriteProgress(context.Background(), learnerID, f.course.ID, progress.WriteRequest{
		ModuleID:    f.module(0).ID,
		ContentID:   f.content(0, 0),
		IsCompleted: true,
	})
	assert.ErrorIs(t, err, util.ErrNotEnrolled)

	_, err = f.progress.GetProgress(context.Background(), learnerID, f.course.ID)
	assert.ErrorIs(t, err, util.ErrNotEnrolled)
}

func TestGetProgressEmptyRecord(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)

	view, err := f.progress.GetProgress(context.Background(), learnerID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.OverallProgress)
	assert.Empty(t, view.ModuleProgress)

	state, err := f.progress.GetState(context.Background(), learnerID, f.course.ID)
	require.NoError(t, err)
	require.Len(t, state.Modules, 3)
	assert.Equal(t, progress.StatusUnlocked, state.Modules[0].Status)
	assert.Equal(t, progress.StatusLocked, state.Modules[1].Status)
	assert.Equal(t, progress.StatusUnlocked, state.Modules[2].Status, "optional modules are never locked")
	assert.Equal(t, f.quizID(), state.Modules[1].QuizID)
	assert.False(t, state.CertificateReady)
}

func TestWriteProgressLockedModule(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)

	_, err := f.progress.WriteProgress(context.Background(), learnerID, f.course.ID, progress.WriteRequest{
		ModuleID:    f.module(1).ID,
		ContentID:   f.content(1, 0),
		IsCompleted: true,
	})
	var locked *progress.LockedModuleError
	require.ErrorAs(t, err, &locked)
	assert.Equal(t, f.module(1).ID, locked.ModuleID)

	view, err := f.progress.GetProgress(context.Background(), learnerID, f.course.ID)
	require.NoError(t, err)
	assert.Empty(t, view.ModuleProgress, "rejected writes are not persisted")
}

func TestWriteProgressUnknownContent(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)

	_, err := f.progress.WriteProgress(context.Background(), learnerID, f.course.ID, progress.WriteRequest{
		ModuleID:    f.module(0).ID,
		ContentID:   f.content(1, 0),
		IsCompleted: true,
	})
	assert.True(t, progress.IsMissing(err))
}

func TestWriteProgressUnlocksNextModule(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)

	res := f.set(t, learnerID, 0, 0, true)
	// 1 of 4 compulsory units
	assert.Equal(t, 25, res.OverallProgress)

	res = f.set(t, learnerID, 0, 1, true)
	assert.Equal(t, 50, res.OverallProgress)
	require.Len(t, res.UserProgress.ModuleProgress, 1)
	assert.True(t, res.UserProgress.ModuleProgress[0].IsCompleted)
	assert.Equal(t, []uint{f.content(0, 0), f.content(0, 1)}, res.UserProgress.ModuleProgress[0].CompletedContent)
	assert.Equal(t, f.module(0).ID, res.UserProgress.LastAccessedModule)

	state, err := f.progress.GetState(context.Background(), learnerID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusComplete, state.Modules[0].Status)
	assert.Equal(t, progress.StatusUnlocked, state.Modules[1].Status)

	enrollment, err := f.enrollments.Require(context.Background(), learnerID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentInProgress, enrollment.Status)
	assert.Equal(t, 50, enrollment.Progress)

	assert.Contains(t, f.notificationTypes(t, learnerID), model.NotificationModuleUnlocked)
}

func TestWriteProgressIsIdempotent(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)

	first := f.set(t, learnerID, 0, 0, true)
	again := f.set(t, learnerID, 0, 0, true)
	assert.Equal(t, first.OverallProgress, again.OverallProgress)
	assert.Equal(t, first.UserProgress.ModuleProgress, again.UserProgress.ModuleProgress)

	cleared := f.set(t, learnerID, 0, 0, false)
	assert.Equal(t, 0, cleared.OverallProgress)
}

func TestWriteProgressOptionalContentDoesNotCount(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)

	res := f.set(t, learnerID, 2, 0, true)
	assert.Equal(t, 0, res.OverallProgress)

	view, err := f.progress.GetProgress(context.Background(), learnerID, f.course.ID)
	require.NoError(t, err)
	require.Len(t, view.ModuleProgress, 1)
	assert.True(t, view.ModuleProgress[0].IsCompleted)
}

func TestUnmarkingContentRelocksOnNextLoad(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)
	f.finishIntro(t)
	f.set(t, learnerID, 1, 0, true)

	// 每次请求都按存储记录重新计算，已完成的后续内容仍计入进度
	res := f.set(t, learnerID, 0, 1, false)
	assert.Equal(t, 50, res.OverallProgress)

	state, err := f.progress.GetState(context.Background(), learnerID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusUnlocked, state.Modules[0].Status)
	assert.Equal(t, progress.StatusLocked, state.Modules[1].Status)
}

func TestProgressIsPerUser(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)
	f.enroll(t, outsiderID)
	f.finishIntro(t)

	view, err := f.progress.GetProgress(context.Background(), outsiderID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, view.OverallProgress)
}

func TestConcurrentWritesToSameModuleKeepBoth(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)
	ctx := context.Background()

	setBoth := func(done bool) {
		var wg sync.WaitGroup
		for j := 0; j < 2; j++ {
			j := j
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.progress.WriteProgress(ctx, learnerID, f.course.ID, progress.WriteRequest{
					ModuleID:    f.module(0).ID,
					ContentID:   f.content(0, j),
					IsCompleted: done,
				})
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
	}

	for i := 0; i < 10; i++ {
		setBoth(true)
		view, err := f.progress.GetProgress(ctx, learnerID, f.course.ID)
		require.NoError(t, err)
		require.Len(t, view.ModuleProgress, 1)
		assert.Equal(t, []uint{f.content(0, 0), f.content(0, 1)}, view.ModuleProgress[0].CompletedContent)
		assert.Equal(t, 50, view.OverallProgress)

		setBoth(false)
		view, err = f.progress.GetProgress(ctx, learnerID, f.course.ID)
		require.NoError(t, err)
		require.Len(t, view.ModuleProgress, 1)
		assert.Empty(t, view.ModuleProgress[0].CompletedContent)
		assert.Equal(t, 0, view.OverallProgress)
	}

	var rows int64
	require.NoError(t, f.db.Model(&model.CourseProgress{}).
		Where("user_id = ? AND course_id = ?", learnerID, f.course.ID).
		Count(&rows).Error)
	assert.Equal(t, int64(1), rows)
}
