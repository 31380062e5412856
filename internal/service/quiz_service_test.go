package service

import (
	"context"
	"testing"

	"lms_backend/internal/model"
	"lms_backend/internal/progress"
	"lms_backend/internal/util"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGrade(t *testing.T) {
	quiz := &model.Quiz{
		PassingScore: 70,
		Questions: []model.QuizQuestion{
			{CorrectOption: 1, Points: 2},
			{CorrectOption: 0, Points: 1},
		},
	}

	cases := []struct {
		answers    []int
		score      int
		percentage float64
		passed     bool
	}{
		{[]int{1, 0}, 3, 100, true},
		{[]int{1, 1}, 2, 66.67, false},
		{[]int{0, 0}, 1, 33.33, false},
		{[]int{0, 1}, 0, 0, false},
	}
	for _, tc := range cases {
		a := grade(quiz, tc.answers)
		assert.Equal(t, tc.score, a.Score)
		assert.Equal(t, 3, a.TotalPoints)
		assert.InDelta(t, tc.percentage, a.Percentage, 0.001)
		assert.Equal(t, tc.passed, a.Passed)
	}
}

func TestGetQuizHidesAnswersAndChecksCourse(t *testing.T) {
	f := newFixture(t)

	quiz, err := f.quizzes.GetQuiz(context.Background(), f.course.ID, f.quizID())
	require.NoError(t, err)
	require.Len(t, quiz.Questions, 2)
	assert.Equal(t, []string{"1", "2"}, quiz.Questions[0].OptionList())

	_, err = f.quizzes.GetQuiz(context.Background(), f.course.ID+1, f.quizID())
	assert.ErrorIs(t, err, util.ErrQuizNotFound)
}

func TestLatestAttemptAbsent(t *testing.T) {
	f := newFixture(t)

	_, err := f.quizzes.LatestAttempt(context.Background(), f.course.ID, f.quizID(), learnerID)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound)
}

func TestSubmitQuizLockedModule(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)

	_, err := f.quizzes.SubmitQuiz(context.Background(), learnerID, f.course.ID, f.quizID(), SubmitQuizRequest{Answers: []int{1, 0}})
	assert.True(t, progress.IsLocked(err))

	_, err = f.quizzes.LatestAttempt(context.Background(), f.course.ID, f.quizID(), learnerID)
	assert.ErrorIs(t, err, util.ErrAttemptNotFound, "locked submissions are not recorded")
}

func TestSubmitQuizAnswerCount(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)
	f.finishIntro(t)

	_, err := f.quizzes.SubmitQuiz(context.Background(), learnerID, f.course.ID, f.quizID(), SubmitQuizRequest{Answers: []int{1}})
	assert.ErrorIs(t, err, util.ErrInvalidAnswers)
}

func TestSubmitQuizPassBeforeContent(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)
	f.finishIntro(t)

	res, err := f.quizzes.SubmitQuiz(context.Background(), learnerID, f.course.ID, f.quizID(), SubmitQuizRequest{Answers: []int{1, 0}})
	require.NoError(t, err)
	assert.True(t, res.Attempt.Passed)
	// 内容未完成，模块不算完成，测验不计入进度
	assert.Equal(t, progress.StatusUnlocked, res.ModuleStatus)
	assert.Equal(t, 50, res.OverallProgress)

	w := f.set(t, learnerID, 1, 0, true)
	assert.Equal(t, 100, w.OverallProgress)

	enrollment, err := f.enrollments.Require(context.Background(), learnerID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, model.EnrollmentCompleted, enrollment.Status)
	assert.NotNil(t, enrollment.CompletedAt)

	types := f.notificationTypes(t, learnerID)
	assert.Contains(t, types, model.NotificationQuizResult)
	assert.Contains(t, types, model.NotificationCourseComplete)
	assert.Contains(t, f.mailer.subjects(), "Course completed")
}

func TestSubmitQuizFailureKeepsModuleOpen(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)
	f.finishIntro(t)
	f.set(t, learnerID, 1, 0, true)

	res, err := f.quizzes.SubmitQuiz(context.Background(), learnerID, f.course.ID, f.quizID(), SubmitQuizRequest{Answers: []int{0, 1}})
	require.NoError(t, err)
	assert.False(t, res.Attempt.Passed)
	assert.Equal(t, progress.StatusUnlocked, res.ModuleStatus)
	assert.Equal(t, 75, res.OverallProgress)

	res, err = f.quizzes.SubmitQuiz(context.Background(), learnerID, f.course.ID, f.quizID(), SubmitQuizRequest{Answers: []int{1, 1}})
	require.NoError(t, err)
	assert.True(t, res.Attempt.Passed)
	assert.Equal(t, progress.StatusComplete, res.ModuleStatus)
	assert.Equal(t, 100, res.OverallProgress)
}

func TestLatestAttemptGoverns(t *testing.T) {
	f := newFixture(t)
	f.enroll(t, learnerID)
	f.finishIntro(t)
	f.set(t, learnerID, 1, 0, true)

	_, err := f.quizzes.SubmitQuiz(context.Background(), learnerID, f.course.ID, f.quizID(), SubmitQuizRequest{Answers: []int{1, 0}})
	require.NoError(t, err)
	_, err = f.quizzes.SubmitQuiz(context.Background(), learnerID, f.course.ID, f.quizID(), SubmitQuizRequest{Answers: []int{0, 1}})
	require.NoError(t, err)

	latest, err := f.quizzes.LatestAttempt(context.Background(), f.course.ID, f.quizID(), learnerID)
	require.NoError(t, err)
	assert.False(t, latest.Passed)

	count, err := f.quizzes.QuizRepo.CountAttempts(context.Background(), learnerID, f.quizID())
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	state, err := f.progress.GetState(context.Background(), learnerID, f.course.ID)
	require.NoError(t, err)
	assert.Equal(t, progress.StatusUnlocked, state.Modules[1].Status)
	assert.Equal(t, 75, state.OverallProgress)
}
