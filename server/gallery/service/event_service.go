package service

import (
	"context"
	"errors"
	"regexp"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"eventgallery/server/common/auth"
	commonlog "eventgallery/server/common/log"
	"eventgallery/server/gallery/domain"
)

var eventIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)

type EventService struct {
	events     EventStore
	auth       *auth.Service
	bcryptCost int
}

func NewEventService(events EventStore, authSvc *auth.Service) *EventService {
	return &EventService{events: events, auth: authSvc, bcryptCost: bcrypt.DefaultCost}
}

func (s *EventService) Get(ctx context.Context, eventID string) (domain.Event, error) {
	return s.events.GetEvent(ctx, eventID)
}

func (s *EventService) Create(ctx context.Context, eventID, name, adminID, password string) (domain.Event, error) {
	eventID, name, adminID = strings.TrimSpace(eventID), strings.TrimSpace(name), strings.TrimSpace(adminID)
	if !eventIDPattern.MatchString(eventID) || name == "" || adminID == "" || len(password) < 8 {
		return domain.Event{}, ErrInvalidInput
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return domain.Event{}, err
	}
	ev, err := s.events.CreateEvent(ctx, domain.Event{
		ID:           eventID,
		Name:         name,
		AdminID:      adminID,
		PasswordHash: string(hash),
	})
	if err != nil {
		return domain.Event{}, err
	}
	commonlog.Infof("event=event_admin action=create status=ok event_id=%s", eventID)
	return ev, nil
}

// Login checks the event admin credentials and issues an admin token scoped
// to that event.
func (s *EventService) Login(ctx context.Context, eventID, adminID, password string) (string, error) {
	ev, err := s.events.GetEvent(ctx, eventID)
	if errors.Is(err, ErrNotFound) {
		return "", ErrInvalidCredentials
	}
	if err != nil {
		return "", err
	}
	if ev.AdminID != strings.TrimSpace(adminID) {
		commonlog.Warnf("event=event_admin action=login status=rejected event_id=%s", eventID)
		return "", ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(ev.PasswordHash), []byte(password)); err != nil {
		commonlog.Warnf("event=event_admin action=login status=rejected event_id=%s", eventID)
		return "", ErrInvalidCredentials
	}
	return s.auth.GenerateToken(ev.AdminID, ev.ID, auth.RoleAdmin)
}
