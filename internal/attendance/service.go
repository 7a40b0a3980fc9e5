// Package attendance mutates an event's roster and comment thread.
package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/comunidad-app/backend/internal/events"
	"github.com/comunidad-app/backend/internal/models"
)

// Service confirms attendance, updates attendance status and appends comments. It goes through
// the Repository's read-modify-write path and trusts its input; see policy.go for the checks
// handlers apply first.
type Service struct {
	repo   *events.Repository
	logger *zap.Logger
	newID  func() string
	now    func() time.Time
}

// NewService creates an attendance service.
func NewService(repo *events.Repository, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

// ConfirmAttendance records user as confirmed on the event. A user who already has a record gets
// it replaced, so confirming twice leaves exactly one record. Returns nil if the event is missing.
func (s *Service) ConfirmAttendance(ctx context.Context, eventID string, user models.User) (*models.Event, error) {
	e, err := s.repo.Mutate(ctx, eventID, func(e *models.Event) bool {
		rec := models.Attendance{UserID: user.ID, UserName: user.Name, Status: models.StatusConfirmed}
		if i := e.FindAttendee(user.ID); i >= 0 {
			e.Attendees[i] = rec
		} else {
			e.Attendees = append(e.Attendees, rec)
		}
		return true
	})
	if err != nil {
		return nil, err
	}
	if e != nil {
		s.logger.Info("attendance confirmed", zap.String("event_id", eventID), zap.String("user_id", user.ID))
	}
	return e, nil
}

// MarkAttendanceStatus sets the status of userID's record. Returns nil if the event or the record is missing.
func (s *Service) MarkAttendanceStatus(ctx context.Context, eventID, userID string, status models.AttendanceStatus) (*models.Event, error) {
	e, err := s.repo.Mutate(ctx, eventID, func(e *models.Event) bool {
		i := e.FindAttendee(userID)
		if i < 0 {
			return false
		}
		e.Attendees[i].Status = status
		return true
	})
	if err != nil {
		return nil, err
	}
	if e != nil {
		s.logger.Info("attendance status changed",
			zap.String("event_id", eventID),
			zap.String("user_id", userID),
			zap.String("status", string(status)),
		)
	}
	return e, nil
}

// AddComment appends a comment with a fresh id and the current UTC time. Returns nil if the event is missing.
func (s *Service) AddComment(ctx context.Context, eventID string, user models.User, rating int, text string) (*models.Event, error) {
	e, err := s.repo.Mutate(ctx, eventID, func(e *models.Event) bool {
		e.Comments = append(e.Comments, models.Comment{
			ID:        s.newID(),
			UserID:    user.ID,
			UserName:  user.Name,
			EventID:   eventID,
			Rating:    rating,
			Text:      text,
			CreatedAt: s.now().UTC(),
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	if e != nil {
		s.logger.Info("comment added", zap.String("event_id", eventID), zap.String("user_id", user.ID), zap.Int("rating", rating))
	}
	return e, nil
}
