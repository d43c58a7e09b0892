package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"aparca/internal/apperr"
	"aparca/internal/auth"
	"aparca/internal/db"
	"aparca/internal/entities"
	"aparca/internal/repository"
)

// LotService manages parking lot registration and the public catalog.
// New lots start unapproved and invisible until an admin approves them.
type LotService struct {
	Repo  *repository.LotRepository
	Cache *repository.LotCache
}

func NewLotService(repo *repository.LotRepository, cache *repository.LotCache) *LotService {
	return &LotService{Repo: repo, Cache: cache}
}

func (s *LotService) Create(ctx context.Context, actor auth.Actor, in entities.CreateLotInput) (*entities.LotResponse, error) {
	if !actor.CanCreateLot() {
		return nil, apperr.Permission("only lot owners can register parking lots")
	}
	if in.Name == "" || in.Address == "" {
		return nil, apperr.Validation("lot name and address are required")
	}
	if in.HourlyRate <= 0 {
		return nil, apperr.Validation("hourly rate must be positive")
	}
	if in.DayRate != nil && *in.DayRate <= 0 {
		return nil, apperr.Validation("day rate must be positive")
	}
	if in.MonthRate != nil && *in.MonthRate <= 0 {
		return nil, apperr.Validation("month rate must be positive")
	}
	if in.TotalSpaces <= 0 {
		return nil, apperr.Validation("lot must have at least one space")
	}

	lot := &db.ParkingLot{
		OwnerID:         in.OwnerID,
		Name:            in.Name,
		Address:         in.Address,
		HourlyRate:      in.HourlyRate,
		DayRate:         in.DayRate,
		MonthRate:       in.MonthRate,
		TotalSpaces:     in.TotalSpaces,
		AvailableSpaces: in.TotalSpaces,
	}
	if err := s.Repo.Create(ctx, lot); err != nil {
		return nil, err
	}
	return lotResponse(lot), nil
}

// ListPublic returns the approved, active lots, served from the cache when
// the redis client is configured.
func (s *LotService) ListPublic(ctx context.Context) ([]entities.LotResponse, error) {
	if cached, ok := s.Cache.GetPublicLots(ctx); ok {
		return cached, nil
	}
	lots, err := s.Repo.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]entities.LotResponse, 0, len(lots))
	for i := range lots {
		out = append(out, *lotResponse(&lots[i]))
	}
	s.Cache.SetPublicLots(ctx, out)
	return out, nil
}

func (s *LotService) Get(ctx context.Context, id int) (*entities.LotResponse, error) {
	lot, err := s.getLot(ctx, id)
	if err != nil {
		return nil, err
	}
	return lotResponse(lot), nil
}

// Availability reports the live space counter for a lot.
func (s *LotService) Availability(ctx context.Context, id int) (*entities.AvailabilityResponse, error) {
	lot, err := s.getLot(ctx, id)
	if err != nil {
		return nil, err
	}
	return &entities.AvailabilityResponse{
		LotID:           lot.ID,
		TotalSpaces:     lot.TotalSpaces,
		AvailableSpaces: lot.AvailableSpaces,
		CheckedAt:       time.Now().UTC(),
	}, nil
}

func (s *LotService) Approve(ctx context.Context, id int) (*entities.LotResponse, error) {
	if err := s.Repo.Approve(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("parking lot %d not found", id)
		}
		return nil, err
	}
	s.Cache.Invalidate(ctx)
	return s.Get(ctx, id)
}

func (s *LotService) Delete(ctx context.Context, id int) error {
	if err := s.Repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("parking lot %d not found", id)
		}
		return err
	}
	s.Cache.Invalidate(ctx)
	return nil
}

func (s *LotService) getLot(ctx context.Context, id int) (*db.ParkingLot, error) {
	lot, err := s.Repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperr.NotFound("parking lot %d not found", id)
		}
		return nil, err
	}
	return lot, nil
}

func lotResponse(lot *db.ParkingLot) *entities.LotResponse {
	return &entities.LotResponse{
		ID:              lot.ID,
		Name:            lot.Name,
		Address:         lot.Address,
		HourlyRate:      lot.HourlyRate,
		DayRate:         lot.DayRate,
		MonthRate:       lot.MonthRate,
		TotalSpaces:     lot.TotalSpaces,
		AvailableSpaces: lot.AvailableSpaces,
		Approved:        lot.Approved,
		Active:          lot.Active,
	}
}
