package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/angelos/kbsync/internal/angelos"
	"github.com/angelos/kbsync/internal/fingerprint"
	"github.com/angelos/kbsync/internal/models"
	"github.com/angelos/kbsync/internal/storage"
)

// SampleQuestionService synchronizes curated question/answer pairs with the
// remote index.
type SampleQuestionService struct {
	store  storage.Storage
	index  angelos.Client
	logger *zap.Logger
}

// NewSampleQuestionService creates a SampleQuestionService.
func NewSampleQuestionService(store storage.Storage, index angelos.Client, logger *zap.Logger) *SampleQuestionService {
	return &SampleQuestionService{store: store, index: index, logger: logger}
}

// questionContent is the canonical text a sample question's fingerprint
// covers.
func questionContent(topic, question, answer string) string {
	return topic + "\n" + question + "\n" + answer
}

// Add persists a sample question and pushes it to the remote index. The
// local row is removed again if the remote add fails.
func (s *SampleQuestionService) Add(ctx context.Context, tenant models.TenantContext, in models.SampleQuestionInput) (*models.SampleQuestion, error) {
	sps, err := resolveStudyPrograms(ctx, s.store, tenant, in.StudyProgramIDs)
	if err != nil {
		return nil, err
	}

	q := &models.SampleQuestion{
		ID:            uuid.NewString(),
		OrgID:         tenant.OrgID,
		Topic:         in.Topic,
		Question:      in.Question,
		Answer:        in.Answer,
		ContentHash:   fingerprint.Hash(questionContent(in.Topic, in.Question, in.Answer)),
		StudyPrograms: sps,
	}
	if err := s.store.CreateSampleQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to persist sample question: %w", err)
	}

	if err := s.index.AddSampleQuestion(ctx, angelos.AddSampleQuestionRequest{
		ID:            q.ID,
		OrgID:         q.OrgID,
		Topic:         q.Topic,
		Question:      q.Question,
		Answer:        q.Answer,
		StudyPrograms: spNames(sps),
	}); err != nil {
		s.rollback(ctx, q.ID)
		return nil, err
	}
	return q, nil
}

// AddBatch adds many sample questions, pushing them to the remote index in
// batches. A failed batch is rolled back locally and aborts the operation;
// earlier batches stay committed.
func (s *SampleQuestionService) AddBatch(ctx context.Context, tenant models.TenantContext, ins []models.SampleQuestionInput) ([]*models.SampleQuestion, error) {
	var added []*models.SampleQuestion
	for start := 0; start < len(ins); start += batchSize {
		end := start + batchSize
		if end > len(ins) {
			end = len(ins)
		}
		batch, err := s.addOneBatch(ctx, tenant, ins[start:end])
		if err != nil {
			return added, err
		}
		added = append(added, batch...)
	}
	return added, nil
}

func (s *SampleQuestionService) addOneBatch(ctx context.Context, tenant models.TenantContext, ins []models.SampleQuestionInput) ([]*models.SampleQuestion, error) {
	var (
		questions []*models.SampleQuestion
		reqs      []angelos.AddSampleQuestionRequest
	)
	fail := func(err error) ([]*models.SampleQuestion, error) {
		for _, q := range questions {
			s.rollback(ctx, q.ID)
		}
		return nil, err
	}

	for _, in := range ins {
		sps, err := resolveStudyPrograms(ctx, s.store, tenant, in.StudyProgramIDs)
		if err != nil {
			return fail(err)
		}
		q := &models.SampleQuestion{
			ID:            uuid.NewString(),
			OrgID:         tenant.OrgID,
			Topic:         in.Topic,
			Question:      in.Question,
			Answer:        in.Answer,
			ContentHash:   fingerprint.Hash(questionContent(in.Topic, in.Question, in.Answer)),
			StudyPrograms: sps,
		}
		if err := s.store.CreateSampleQuestion(ctx, q); err != nil {
			return fail(fmt.Errorf("failed to persist sample question: %w", err))
		}
		questions = append(questions, q)
		reqs = append(reqs, angelos.AddSampleQuestionRequest{
			ID:            q.ID,
			OrgID:         q.OrgID,
			Topic:         q.Topic,
			Question:      q.Question,
			Answer:        q.Answer,
			StudyPrograms: spNames(sps),
		})
	}

	if err := s.index.AddSampleQuestionBatch(ctx, reqs); err != nil {
		return fail(err)
	}
	return questions, nil
}

// Edit updates a sample question. The remote edit always goes out, before
// the local row changes.
func (s *SampleQuestionService) Edit(ctx context.Context, tenant models.TenantContext, id string, in models.SampleQuestionInput) (*models.SampleQuestion, error) {
	q, err := s.store.GetSampleQuestion(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "sample question", id)
	}
	if err := authorize(tenant, q.OrgID); err != nil {
		return nil, err
	}
	sps, err := resolveStudyPrograms(ctx, s.store, tenant, in.StudyProgramIDs)
	if err != nil {
		return nil, err
	}

	if err := s.index.EditSampleQuestion(ctx, q.ID, angelos.EditSampleQuestionRequest{
		Topic:         in.Topic,
		Question:      in.Question,
		Answer:        in.Answer,
		StudyPrograms: spNames(sps),
		OrgID:         q.OrgID,
	}); err != nil {
		return nil, err
	}
	q.Topic = in.Topic
	q.Question = in.Question
	q.Answer = in.Answer
	q.ContentHash = fingerprint.Hash(questionContent(in.Topic, in.Question, in.Answer))
	q.StudyPrograms = sps
	if err := s.store.UpdateSampleQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("failed to persist sample question: %w", err)
	}
	return q, nil
}

// Delete removes the sample question from the remote index, then locally.
// The local row is kept when the remote delete fails.
func (s *SampleQuestionService) Delete(ctx context.Context, tenant models.TenantContext, id string) error {
	q, err := s.store.GetSampleQuestion(ctx, id)
	if err != nil {
		return mapNotFound(err, "sample question", id)
	}
	if err := authorize(tenant, q.OrgID); err != nil {
		return err
	}
	if err := s.index.DeleteSampleQuestion(ctx, q.ID); err != nil {
		return err
	}
	return s.store.DeleteSampleQuestion(ctx, q.ID)
}

// Get returns one sample question owned by the tenant.
func (s *SampleQuestionService) Get(ctx context.Context, tenant models.TenantContext, id string) (*models.SampleQuestion, error) {
	q, err := s.store.GetSampleQuestion(ctx, id)
	if err != nil {
		return nil, mapNotFound(err, "sample question", id)
	}
	if err := authorize(tenant, q.OrgID); err != nil {
		return nil, err
	}
	return q, nil
}

// List returns the tenant organisation's sample questions.
func (s *SampleQuestionService) List(ctx context.Context, tenant models.TenantContext) ([]*models.SampleQuestion, error) {
	return s.store.ListSampleQuestionsByOrg(ctx, tenant.OrgID)
}

func (s *SampleQuestionService) rollback(ctx context.Context, id string) {
	if err := s.store.DeleteSampleQuestion(ctx, id); err != nil {
		s.logger.Error("failed to roll back sample question row", zap.String("id", id), zap.Error(err))
	}
}
