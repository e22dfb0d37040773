package triage

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	ingesterrors "github.com/djvirus9/secops-dashboard/internal/errors"
	"github.com/djvirus9/secops-dashboard/internal/models"
)

// SystemAuthor is the author recorded on auto-generated audit comments.
const SystemAuthor = "system"

// Store is the persistence surface triage needs.
type Store interface {
	GetFinding(ctx context.Context, id string) (*models.Finding, error)
	UpdateFindingTriage(ctx context.Context, id string, status models.Status, assignee string) error
	CreateComment(ctx context.Context, c models.Comment) error
	ListComments(ctx context.Context, findingID string) ([]models.Comment, error)
}

// UpdateRequest carries the mutable triage fields. Nil means "leave
// unchanged"; an explicit empty assignee unassigns.
type UpdateRequest struct {
	Status   *models.Status `json:"status"`
	Assignee *string        `json:"assignee"`
}

// Service applies triage transitions and keeps the audit trail. All
// writes for one finding are serialized through a per-finding lock so
// the audit comments always match the transition that happened.
type Service struct {
	store Store
	locks [64]sync.Mutex

	now   func() time.Time
	newID func() string
}

func NewService(store Store) *Service {
	return &Service{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

func (s *Service) lock(id string) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(id))
	mu := &s.locks[h.Sum32()%uint32(len(s.locks))]
	mu.Lock()
	return mu
}

// Update applies a status and/or assignee change. Every field that
// actually changed gets one system comment; a request that changes
// nothing is a strict no-op and leaves no trace.
func (s *Service) Update(ctx context.Context, id string, req UpdateRequest) (models.Finding, error) {
	if req.Status != nil && !req.Status.Valid() {
		return models.Finding{}, ingesterrors.Newf(ingesterrors.ErrorTypeValidation, "triage.update", "invalid status %q", *req.Status)
	}

	mu := s.lock(id)
	defer mu.Unlock()

	f, err := s.store.GetFinding(ctx, id)
	if err != nil {
		return models.Finding{}, ingesterrors.New(ingesterrors.ErrorTypeInternal, "triage.update", err)
	}
	if f == nil {
		return models.Finding{}, ingesterrors.Newf(ingesterrors.ErrorTypeNotFound, "triage.update", "finding %s not found", id)
	}

	var audit []string
	status := f.Status
	assignee := f.Assignee
	if req.Status != nil && *req.Status != f.Status {
		audit = append(audit, fmt.Sprintf("Status changed from '%s' to '%s'", f.Status, *req.Status))
		status = *req.Status
	}
	if req.Assignee != nil && strings.TrimSpace(*req.Assignee) != f.Assignee {
		next := strings.TrimSpace(*req.Assignee)
		audit = append(audit, fmt.Sprintf("Assignee changed from '%s' to '%s'", orUnassigned(f.Assignee), orUnassigned(next)))
		assignee = next
	}
	if len(audit) == 0 {
		return *f, nil
	}

	if err := s.store.UpdateFindingTriage(ctx, id, status, assignee); err != nil {
		return models.Finding{}, ingesterrors.New(ingesterrors.ErrorTypeInternal, "triage.update", err)
	}
	for _, msg := range audit {
		c := models.Comment{
			ID:         s.newID(),
			FindingID:  id,
			Author:     SystemAuthor,
			Content:    msg,
			ActionType: "update",
			CreatedAt:  s.now().UTC(),
		}
		if err := s.store.CreateComment(ctx, c); err != nil {
			// Transition already committed; the trail is best effort.
			log.Error().Err(err).Str("finding_id", id).Msg("Failed to record triage audit comment")
		}
	}

	f.Status = status
	f.Assignee = assignee
	return *f, nil
}

// AddComment appends a user comment to a finding's activity trail.
func (s *Service) AddComment(ctx context.Context, findingID, author, content string) (models.Comment, error) {
	author = strings.TrimSpace(author)
	content = strings.TrimSpace(content)
	if author == "" {
		return models.Comment{}, ingesterrors.Newf(ingesterrors.ErrorTypeValidation, "triage.comment", "author is required")
	}
	if content == "" {
		return models.Comment{}, ingesterrors.Newf(ingesterrors.ErrorTypeValidation, "triage.comment", "content is required")
	}

	f, err := s.store.GetFinding(ctx, findingID)
	if err != nil {
		return models.Comment{}, ingesterrors.New(ingesterrors.ErrorTypeInternal, "triage.comment", err)
	}
	if f == nil {
		return models.Comment{}, ingesterrors.Newf(ingesterrors.ErrorTypeNotFound, "triage.comment", "finding %s not found", findingID)
	}

	c := models.Comment{
		ID:        s.newID(),
		FindingID: findingID,
		Author:    author,
		Content:   content,
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.CreateComment(ctx, c); err != nil {
		return models.Comment{}, ingesterrors.New(ingesterrors.ErrorTypeInternal, "triage.comment", err)
	}
	return c, nil
}

// Comments returns the activity trail oldest first.
func (s *Service) Comments(ctx context.Context, findingID string) ([]models.Comment, error) {
	f, err := s.store.GetFinding(ctx, findingID)
	if err != nil {
		return nil, ingesterrors.New(ingesterrors.ErrorTypeInternal, "triage.comments", err)
	}
	if f == nil {
		return nil, ingesterrors.Newf(ingesterrors.ErrorTypeNotFound, "triage.comments", "finding %s not found", findingID)
	}
	return s.store.ListComments(ctx, findingID)
}

func orUnassigned(s string) string {
	if s == "" {
		return "unassigned"
	}
	return s
}
