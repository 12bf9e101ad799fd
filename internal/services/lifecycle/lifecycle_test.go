package services_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/rasbandhu/evaluation-service/internal/models"
	services "github.com/rasbandhu/evaluation-service/internal/services/lifecycle"
)

type LifecycleRepoMock struct {
	mock.Mock
}

func (m *LifecycleRepoMock) CreateEvaluationWithDebit(ctx context.Context, entry models.Evaluation) (*models.Evaluation, error) {
	args := m.Called(ctx, entry)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Evaluation), args.Error(1)
}

func (m *LifecycleRepoMock) GetEvaluation(ctx context.Context, id string) (*models.Evaluation, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Evaluation), args.Error(1)
}

func (m *LifecycleRepoMock) ListEvaluations(ctx context.Context, filter models.EvaluationFilter) ([]*models.Evaluation, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Evaluation), args.Error(1)
}

func (m *LifecycleRepoMock) AssignEvaluation(ctx context.Context, id, mentorUID string) (int, error) {
	args := m.Called(ctx, id, mentorUID)
	return args.Int(0), args.Error(1)
}

func (m *LifecycleRepoMock) SubmitEvaluationResult(ctx context.Context, id, mentorUID, evaluationURL, comments string) (int, error) {
	args := m.Called(ctx, id, mentorUID, evaluationURL, comments)
	return args.Int(0), args.Error(1)
}

func (m *LifecycleRepoMock) RejectEvaluation(ctx context.Context, id, reason string) (int, error) {
	args := m.Called(ctx, id, reason)
	return args.Int(0), args.Error(1)
}

func (m *LifecycleRepoMock) SetReview(ctx context.Context, id, userUID string, review models.Review) (int, error) {
	args := m.Called(ctx, id, userUID, review)
	return args.Int(0), args.Error(1)
}

func (m *LifecycleRepoMock) GetSubscription(ctx context.Context, userUID, program string) (*models.Subscription, error) {
	args := m.Called(ctx, userUID, program)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Subscription), args.Error(1)
}

func newService(repo *LifecycleRepoMock) *services.LifecycleService {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return services.NewLifecycleService(repo, services.SLAWindows{DailyHours: 24, TestHours: 48}, log)
}

func activeSub(medium string) *models.Subscription {
	return &models.Subscription{
		UserUID:  "student-1",
		Expiry:   time.Now().Add(48 * time.Hour),
		PlanInfo: models.PlanInfo{Medium: medium},
	}
}

func imageFile(name string) models.FileRef {
	return models.FileRef{Name: name, URL: "http://files/" + name, Type: "image/jpeg"}
}

func pdfFile(name string) models.FileRef {
	return models.FileRef{Name: name, URL: "http://files/" + name, Type: "application/pdf"}
}

func TestLifecycleService_Create(t *testing.T) {
	tests := []struct {
		name       string
		program    string
		req        models.DummyEvaluation
		setupMocks func(r *LifecycleRepoMock)
		wantErr    error
	}{
		{
			name:    "daily with images",
			program: models.ProgramDaily,
			req: models.DummyEvaluation{
				Paper:           "GS-2",
				NumberOfAnswers: 2,
				Files:           []models.FileRef{imageFile("a.jpg"), imageFile("b.jpg")},
			},
			setupMocks: func(r *LifecycleRepoMock) {
				r.On("GetSubscription", mock.Anything, "student-1", models.ProgramDaily).
					Return(activeSub("hindi"), nil).Once()
				r.On("CreateEvaluationWithDebit", mock.Anything, mock.MatchedBy(func(e models.Evaluation) bool {
					return e.Medium == "hindi" && e.NumberOfAnswers == 2
				})).Return(&models.Evaluation{ID: "ev-1", Program: models.ProgramDaily, NumberOfAnswers: 2}, nil).Once()
			},
		},
		{
			name:    "daily with single pdf",
			program: models.ProgramDaily,
			req: models.DummyEvaluation{
				Paper:           "GS-2",
				NumberOfAnswers: 1,
				Files:           []models.FileRef{pdfFile("a.pdf")},
			},
			setupMocks: func(r *LifecycleRepoMock) {
				r.On("GetSubscription", mock.Anything, "student-1", models.ProgramDaily).
					Return(activeSub("english"), nil).Once()
				r.On("CreateEvaluationWithDebit", mock.Anything, mock.Anything).
					Return(&models.Evaluation{ID: "ev-2"}, nil).Once()
			},
		},
		{
			name:    "daily mixing pdf and images rejected",
			program: models.ProgramDaily,
			req: models.DummyEvaluation{
				Paper:           "GS-2",
				NumberOfAnswers: 2,
				Files:           []models.FileRef{pdfFile("a.pdf"), imageFile("b.jpg")},
			},
			setupMocks: func(_ *LifecycleRepoMock) {},
			wantErr:    models.ErrInvalidAttachment,
		},
		{
			name:    "daily multiple pdfs rejected",
			program: models.ProgramDaily,
			req: models.DummyEvaluation{
				Paper:           "GS-2",
				NumberOfAnswers: 2,
				Files:           []models.FileRef{pdfFile("a.pdf"), pdfFile("b.pdf")},
			},
			setupMocks: func(_ *LifecycleRepoMock) {},
			wantErr:    models.ErrInvalidAttachment,
		},
		{
			name:    "daily without answer count rejected",
			program: models.ProgramDaily,
			req: models.DummyEvaluation{
				Paper: "GS-2",
				Files: []models.FileRef{imageFile("a.jpg")},
			},
			setupMocks: func(_ *LifecycleRepoMock) {},
			wantErr:    models.ErrMissingField,
		},
		{
			name:    "test with exactly one pdf",
			program: models.ProgramTest,
			req: models.DummyEvaluation{
				Paper:    "Mock Test 4",
				Subjects: []string{"Polity", "History"},
				Files:    []models.FileRef{pdfFile("test.pdf")},
			},
			setupMocks: func(r *LifecycleRepoMock) {
				r.On("GetSubscription", mock.Anything, "student-1", models.ProgramTest).
					Return(activeSub("hindi"), nil).Once()
				r.On("CreateEvaluationWithDebit", mock.Anything, mock.Anything).
					Return(&models.Evaluation{ID: "ev-3", Program: models.ProgramTest}, nil).Once()
			},
		},
		{
			name:    "test with images rejected",
			program: models.ProgramTest,
			req: models.DummyEvaluation{
				Paper:    "Mock Test 4",
				Subjects: []string{"Polity"},
				Files:    []models.FileRef{imageFile("a.jpg")},
			},
			setupMocks: func(_ *LifecycleRepoMock) {},
			wantErr:    models.ErrInvalidAttachment,
		},
		{
			name:    "no active subscription",
			program: models.ProgramDaily,
			req: models.DummyEvaluation{
				Paper:           "GS-2",
				NumberOfAnswers: 1,
				Files:           []models.FileRef{imageFile("a.jpg")},
			},
			setupMocks: func(r *LifecycleRepoMock) {
				r.On("GetSubscription", mock.Anything, "student-1", models.ProgramDaily).
					Return(nil, models.ErrNotFound).Once()
			},
			wantErr: models.ErrNoActiveSubscription,
		},
		{
			name:    "expired subscription",
			program: models.ProgramDaily,
			req: models.DummyEvaluation{
				Paper:           "GS-2",
				NumberOfAnswers: 1,
				Files:           []models.FileRef{imageFile("a.jpg")},
			},
			setupMocks: func(r *LifecycleRepoMock) {
				expired := activeSub("hindi")
				expired.Expiry = time.Now().Add(-time.Hour)
				r.On("GetSubscription", mock.Anything, "student-1", models.ProgramDaily).
					Return(expired, nil).Once()
			},
			wantErr: models.ErrNoActiveSubscription,
		},
		{
			name:    "insufficient credits from storage",
			program: models.ProgramDaily,
			req: models.DummyEvaluation{
				Paper:           "GS-2",
				NumberOfAnswers: 3,
				Files:           []models.FileRef{imageFile("a.jpg")},
			},
			setupMocks: func(r *LifecycleRepoMock) {
				r.On("GetSubscription", mock.Anything, "student-1", models.ProgramDaily).
					Return(activeSub("hindi"), nil).Once()
				r.On("CreateEvaluationWithDebit", mock.Anything, mock.Anything).
					Return(nil, models.ErrInsufficientCredits).Once()
			},
			wantErr: models.ErrInsufficientCredits,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := new(LifecycleRepoMock)
			tt.setupMocks(repo)
			svc := newService(repo)

			got, err := svc.Create(context.Background(), "student-1", tt.program, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
			} else {
				assert.NoError(t, err)
				assert.NotNil(t, got)
			}
			repo.AssertExpectations(t)
		})
	}
}

func TestLifecycleService_Read(t *testing.T) {
	entry := &models.Evaluation{ID: "ev-1", UserUID: "student-1", Status: models.StatusPending}

	repo := new(LifecycleRepoMock)
	repo.On("GetEvaluation", mock.Anything, "ev-1").Return(entry, nil)
	svc := newService(repo)

	got, err := svc.Read(context.Background(), "ev-1", "student-1", models.RoleStudent)
	assert.NoError(t, err)
	assert.Equal(t, entry, got)

	_, err = svc.Read(context.Background(), "ev-1", "student-2", models.RoleStudent)
	assert.ErrorIs(t, err, models.ErrForbidden)

	got, err = svc.Read(context.Background(), "ev-1", "mentor-1", models.RoleMentor)
	assert.NoError(t, err)
	assert.Equal(t, entry, got)
}

func TestLifecycleService_List_ScopesStudentToOwn(t *testing.T) {
	repo := new(LifecycleRepoMock)
	repo.On("ListEvaluations", mock.Anything, mock.MatchedBy(func(f models.EvaluationFilter) bool {
		return f.UserUID == "student-1"
	})).Return([]*models.Evaluation{}, nil).Once()
	svc := newService(repo)

	// Студент просит чужие заявки, фильтр принудительно сужается до своих.
	_, err := svc.List(context.Background(), "student-1", models.RoleStudent,
		models.EvaluationFilter{UserUID: "student-2"})
	assert.NoError(t, err)
	repo.AssertExpectations(t)
}

func TestLifecycleService_AssignToSelf(t *testing.T) {
	t.Run("wins the race", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("AssignEvaluation", mock.Anything, "ev-1", "mentor-1").Return(1, nil).Once()
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", Status: models.StatusAssigned, MentorAssigned: "mentor-1"}, nil).Once()
		svc := newService(repo)

		got, err := svc.AssignToSelf(context.Background(), "ev-1", "mentor-1")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusAssigned, got.Status)
		repo.AssertExpectations(t)
	})

	t.Run("loses the race", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("AssignEvaluation", mock.Anything, "ev-1", "mentor-2").Return(0, nil).Once()
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", Status: models.StatusAssigned, MentorAssigned: "mentor-1"}, nil).Once()
		svc := newService(repo)

		_, err := svc.AssignToSelf(context.Background(), "ev-1", "mentor-2")
		assert.ErrorIs(t, err, models.ErrConflict)
		repo.AssertExpectations(t)
	})

	t.Run("not found", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("AssignEvaluation", mock.Anything, "ev-404", "mentor-1").Return(0, nil).Once()
		repo.On("GetEvaluation", mock.Anything, "ev-404").Return(nil, models.ErrNotFound).Once()
		svc := newService(repo)

		_, err := svc.AssignToSelf(context.Background(), "ev-404", "mentor-1")
		assert.ErrorIs(t, err, models.ErrNotFound)
		repo.AssertExpectations(t)
	})
}

func TestLifecycleService_SubmitResult(t *testing.T) {
	t.Run("requires both comments and file", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		svc := newService(repo)

		_, err := svc.SubmitResult(context.Background(), "ev-1", "mentor-1", "", "")
		assert.ErrorIs(t, err, models.ErrMissingEvaluationInput)

		// Только файл без комментариев — недостаточно.
		_, err = svc.SubmitResult(context.Background(), "ev-1", "mentor-1", "http://files/checked.pdf", "")
		assert.ErrorIs(t, err, models.ErrMissingEvaluationInput)

		// Только комментарии без файла — тоже.
		_, err = svc.SubmitResult(context.Background(), "ev-1", "mentor-1", "", "good work")
		assert.ErrorIs(t, err, models.ErrMissingEvaluationInput)

		repo.AssertNotCalled(t, "SubmitEvaluationResult")
	})

	t.Run("successful completion", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("SubmitEvaluationResult", mock.Anything, "ev-1", "mentor-1", "http://files/checked.pdf", "good work").
			Return(1, nil).Once()
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", Status: models.StatusEvaluated}, nil).Once()
		svc := newService(repo)

		got, err := svc.SubmitResult(context.Background(), "ev-1", "mentor-1", "http://files/checked.pdf", "good work")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusEvaluated, got.Status)
		repo.AssertExpectations(t)
	})

	t.Run("wrong mentor forbidden", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("SubmitEvaluationResult", mock.Anything, "ev-1", "mentor-2", "http://f/c.pdf", "ok").
			Return(0, nil).Once()
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", Status: models.StatusAssigned, MentorAssigned: "mentor-1"}, nil).Once()
		svc := newService(repo)

		_, err := svc.SubmitResult(context.Background(), "ev-1", "mentor-2", "http://f/c.pdf", "ok")
		assert.ErrorIs(t, err, models.ErrForbidden)
		repo.AssertExpectations(t)
	})

	t.Run("terminal status conflicts", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("SubmitEvaluationResult", mock.Anything, "ev-1", "mentor-1", "http://f/c.pdf", "ok").
			Return(0, nil).Once()
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", Status: models.StatusRejected}, nil).Once()
		svc := newService(repo)

		_, err := svc.SubmitResult(context.Background(), "ev-1", "mentor-1", "http://f/c.pdf", "ok")
		assert.ErrorIs(t, err, models.ErrConflict)
		repo.AssertExpectations(t)
	})
}

func TestLifecycleService_Reject(t *testing.T) {
	t.Run("requires reason", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		svc := newService(repo)

		_, err := svc.Reject(context.Background(), "ev-1", "mentor-1", models.RoleMentor, "  ")
		assert.ErrorIs(t, err, models.ErrMissingReason)
	})

	t.Run("mentor rejects own assigned", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", Status: models.StatusAssigned, MentorAssigned: "mentor-1"}, nil).Once()
		repo.On("RejectEvaluation", mock.Anything, "ev-1", "illegible scan").Return(1, nil).Once()
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", Status: models.StatusRejected, RejectReason: "illegible scan"}, nil).Once()
		svc := newService(repo)

		got, err := svc.Reject(context.Background(), "ev-1", "mentor-1", models.RoleMentor, "illegible scan")
		assert.NoError(t, err)
		assert.Equal(t, models.StatusRejected, got.Status)
		repo.AssertExpectations(t)
	})

	t.Run("mentor cannot reject foreign assigned", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", Status: models.StatusAssigned, MentorAssigned: "mentor-1"}, nil).Once()
		svc := newService(repo)

		_, err := svc.Reject(context.Background(), "ev-1", "mentor-2", models.RoleMentor, "bad scan")
		assert.ErrorIs(t, err, models.ErrForbidden)
		repo.AssertExpectations(t)
	})

	t.Run("terminal status conflicts", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", Status: models.StatusEvaluated}, nil).Once()
		repo.On("RejectEvaluation", mock.Anything, "ev-1", "late").Return(0, nil).Once()
		svc := newService(repo)

		_, err := svc.Reject(context.Background(), "ev-1", "admin-1", models.RoleAdmin, "late")
		assert.ErrorIs(t, err, models.ErrConflict)
		repo.AssertExpectations(t)
	})
}

func TestLifecycleService_SubmitReview(t *testing.T) {
	review := models.DummyReview{Rating: 5, Feedback: "detailed checking"}

	t.Run("first review saved", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("SetReview", mock.Anything, "ev-1", "student-1", mock.Anything).Return(1, nil).Once()
		svc := newService(repo)

		err := svc.SubmitReview(context.Background(), "ev-1", "student-1", review)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("second review ignored", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		existing := &models.Review{Rating: 4}
		repo.On("SetReview", mock.Anything, "ev-1", "student-1", mock.Anything).Return(0, nil).Once()
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", UserUID: "student-1", Status: models.StatusEvaluated, Review: existing}, nil).Once()
		svc := newService(repo)

		err := svc.SubmitReview(context.Background(), "ev-1", "student-1", review)
		assert.NoError(t, err)
		repo.AssertExpectations(t)
	})

	t.Run("not owner forbidden", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("SetReview", mock.Anything, "ev-1", "student-2", mock.Anything).Return(0, nil).Once()
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", UserUID: "student-1", Status: models.StatusEvaluated}, nil).Once()
		svc := newService(repo)

		err := svc.SubmitReview(context.Background(), "ev-1", "student-2", review)
		assert.ErrorIs(t, err, models.ErrForbidden)
		repo.AssertExpectations(t)
	})

	t.Run("not evaluated yet conflicts", func(t *testing.T) {
		repo := new(LifecycleRepoMock)
		repo.On("SetReview", mock.Anything, "ev-1", "student-1", mock.Anything).Return(0, nil).Once()
		repo.On("GetEvaluation", mock.Anything, "ev-1").
			Return(&models.Evaluation{ID: "ev-1", UserUID: "student-1", Status: models.StatusPending}, nil).Once()
		svc := newService(repo)

		err := svc.SubmitReview(context.Background(), "ev-1", "student-1", review)
		assert.ErrorIs(t, err, models.ErrConflict)
		repo.AssertExpectations(t)
	})
}

func TestLifecycleService_TimeLeft(t *testing.T) {
	svc := newService(new(LifecycleRepoMock))
	now := time.Now()

	daily := &models.Evaluation{Program: models.ProgramDaily, CreatedAt: now.Add(-20 * time.Hour)}
	assert.InDelta(t, (4 * time.Hour).Hours(), svc.TimeLeft(daily, now).Hours(), 0.01)

	test := &models.Evaluation{Program: models.ProgramTest, CreatedAt: now.Add(-50 * time.Hour)}
	assert.Less(t, svc.TimeLeft(test, now), time.Duration(0))
}
