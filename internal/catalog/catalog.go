// Package catalog manages the expert and domain reference data.
package catalog

import (
	"context"
	"sort"
	"strings"
	"time"

	"expertcheck/internal/apperrors"
	"expertcheck/internal/logger"
	"expertcheck/internal/models"
	"expertcheck/internal/store"
)

// Service provides CRUD over experts and domains.
type Service struct {
	store *store.Store
	log   logger.Logger
	now   func() time.Time
}

// NewService creates a catalog service.
func NewService(s *store.Store, log logger.Logger) *Service {
	return &Service{store: s, log: log, now: time.Now}
}

// DomainInput holds the writable domain fields.
type DomainInput struct {
	Name        string
	Description string
}

func (in DomainInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.Validation("name is required")
	}
	return nil
}

// ExpertInput holds the writable expert fields.
type ExpertInput struct {
	Name               string
	ContactInformation string
	DomainID           string
}

func (in ExpertInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return apperrors.Validation("name is required")
	}
	return nil
}

func (s *Service) ListDomains(ctx context.Context) ([]models.Domain, error) {
	domains, err := s.store.Domains.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(domains, func(i, j int) bool { return domains[i].Name < domains[j].Name })
	return domains, nil
}

func (s *Service) GetDomain(ctx context.Context, id string) (models.Domain, error) {
	return s.store.Domains.Get(ctx, id)
}

func (s *Service) CreateDomain(ctx context.Context, in DomainInput) (models.Domain, error) {
	if err := in.validate(); err != nil {
		return models.Domain{}, err
	}
	d, err := s.store.Domains.Create(ctx, models.Domain{
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return models.Domain{}, err
	}
	s.log.Info("Domain created", logger.String("domain_id", d.ID))
	return d, nil
}

func (s *Service) UpdateDomain(ctx context.Context, id string, in DomainInput) (models.Domain, error) {
	if err := in.validate(); err != nil {
		return models.Domain{}, err
	}
	return s.store.Domains.Update(ctx, id, func(cur models.Domain) (models.Domain, error) {
		cur.Name = strings.TrimSpace(in.Name)
		cur.Description = in.Description
		return cur, nil
	})
}

// DeleteDomain removes a domain that no expert references.
func (s *Service) DeleteDomain(ctx context.Context, id string) error {
	members, err := s.store.Experts.List(ctx, store.Filter{"domainId": id})
	if err != nil {
		return err
	}
	if len(members) > 0 {
		return apperrors.Validation("domain still has experts assigned")
	}
	return s.deleteRecord(ctx, store.KindDomain, id, s.store.Domains.Delete)
}

func (s *Service) ListExperts(ctx context.Context) ([]models.Expert, error) {
	experts, err := s.store.Experts.List(ctx, nil)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(experts, func(i, j int) bool { return experts[i].Name < experts[j].Name })
	return experts, nil
}

func (s *Service) GetExpert(ctx context.Context, id string) (models.Expert, error) {
	return s.store.Experts.Get(ctx, id)
}

func (s *Service) CreateExpert(ctx context.Context, in ExpertInput) (models.Expert, error) {
	if err := in.validate(); err != nil {
		return models.Expert{}, err
	}
	if err := s.checkDomain(ctx, in.DomainID); err != nil {
		return models.Expert{}, err
	}
	e, err := s.store.Experts.Create(ctx, models.Expert{
		Name:               strings.TrimSpace(in.Name),
		ContactInformation: in.ContactInformation,
		DomainID:           in.DomainID,
		CreatedAt:          s.now().UTC(),
	})
	if err != nil {
		return models.Expert{}, err
	}
	s.log.Info("Expert created", logger.String("expert_id", e.ID))
	return e, nil
}

func (s *Service) UpdateExpert(ctx context.Context, id string, in ExpertInput) (models.Expert, error) {
	if err := in.validate(); err != nil {
		return models.Expert{}, err
	}
	if err := s.checkDomain(ctx, in.DomainID); err != nil {
		return models.Expert{}, err
	}
	return s.store.Experts.Update(ctx, id, func(cur models.Expert) (models.Expert, error) {
		cur.Name = strings.TrimSpace(in.Name)
		cur.ContactInformation = in.ContactInformation
		cur.DomainID = in.DomainID
		return cur, nil
	})
}

func (s *Service) DeleteExpert(ctx context.Context, id string) error {
	return s.deleteRecord(ctx, store.KindExpert, id, s.store.Experts.Delete)
}

// ExpertsByDomain lists the experts assigned to an existing domain.
func (s *Service) ExpertsByDomain(ctx context.Context, domainID string) ([]models.Expert, error) {
	if _, err := s.store.Domains.Get(ctx, domainID); err != nil {
		return nil, err
	}
	experts, err := s.store.Experts.List(ctx, store.Filter{"domainId": domainID})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(experts, func(i, j int) bool { return experts[i].Name < experts[j].Name })
	return experts, nil
}

func (s *Service) checkDomain(ctx context.Context, domainID string) error {
	if domainID == "" {
		return nil
	}
	if _, err := s.store.Domains.Get(ctx, domainID); err != nil {
		if apperrors.IsCode(err, apperrors.CodeNotFound) {
			return apperrors.Validation("unknown domain " + domainID)
		}
		return err
	}
	return nil
}

func (s *Service) deleteRecord(ctx context.Context, kind, id string, del func(context.Context, string) (bool, error)) error {
	ok, err := del(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return apperrors.NotFound(kind, id)
	}
	s.log.Info("Record deleted", logger.String("kind", kind), logger.String("id", id))
	return nil
}
