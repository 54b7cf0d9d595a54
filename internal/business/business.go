package business

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"tiendita/backend/internal/domain"
	"tiendita/backend/internal/store"
)

var handlePattern = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// Service manages merchant onboarding. The handle is the public short
// name: 3-20 word characters, unique case-insensitively, immutable after
// creation.
type Service struct {
	repo store.Repository
}

func New(repo store.Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, req domain.BusinessCreateRequest) (domain.Business, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Business{}, fmt.Errorf("%w: business name is required", store.ErrValidation)
	}
	handle := strings.TrimSpace(req.Handle)
	if !handlePattern.MatchString(handle) {
		return domain.Business{}, fmt.Errorf("%w: handle must be 3-20 letters, digits or underscores", store.ErrValidation)
	}

	all, err := s.repo.LoadBusinesses(ctx)
	if err != nil {
		return domain.Business{}, err
	}
	for _, b := range all {
		if strings.EqualFold(b.Handle, handle) {
			return domain.Business{}, fmt.Errorf("%w: %s", store.ErrDuplicateHandle, handle)
		}
	}

	now := time.Now().UTC()
	biz := domain.Business{
		ID:        uuid.NewString(),
		Name:      name,
		Handle:    handle,
		Category:  strings.TrimSpace(req.Category),
		LogoURL:   strings.TrimSpace(req.LogoURL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	all = append(all, biz)
	if err := s.repo.SaveBusinesses(ctx, all); err != nil {
		return domain.Business{}, err
	}
	return biz, nil
}

func (s *Service) Get(ctx context.Context, businessID string) (domain.Business, error) {
	all, err := s.repo.LoadBusinesses(ctx)
	if err != nil {
		return domain.Business{}, err
	}
	for _, b := range all {
		if b.ID == businessID {
			return b, nil
		}
	}
	return domain.Business{}, store.ErrNotFound
}

// Delete removes a business record. Absent ids are a no-op; callers own
// any dependent user or catalog cleanup.
func (s *Service) Delete(ctx context.Context, businessID string) error {
	all, err := s.repo.LoadBusinesses(ctx)
	if err != nil {
		return err
	}
	kept := all[:0]
	removed := false
	for _, b := range all {
		if b.ID == businessID {
			removed = true
			continue
		}
		kept = append(kept, b)
	}
	if !removed {
		return nil
	}
	return s.repo.SaveBusinesses(ctx, kept)
}

// UpdateProfile changes the mutable fields. ID and handle never change.
func (s *Service) UpdateProfile(ctx context.Context, businessID string, req domain.BusinessUpdateRequest) (domain.Business, error) {
	all, err := s.repo.LoadBusinesses(ctx)
	if err != nil {
		return domain.Business{}, err
	}

	idx := -1
	for i, b := range all {
		if b.ID == businessID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return domain.Business{}, store.ErrNotFound
	}

	updated := all[idx]
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return domain.Business{}, fmt.Errorf("%w: business name is required", store.ErrValidation)
		}
		updated.Name = name
	}
	if req.Category != nil {
		updated.Category = strings.TrimSpace(*req.Category)
	}
	if req.LogoURL != nil {
		updated.LogoURL = strings.TrimSpace(*req.LogoURL)
	}
	updated.UpdatedAt = time.Now().UTC()

	all[idx] = updated
	if err := s.repo.SaveBusinesses(ctx, all); err != nil {
		return domain.Business{}, err
	}
	return updated, nil
}
