package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"aparca/internal/apperr"
	"aparca/internal/db"
	"aparca/internal/entities"
	"aparca/internal/repository"
)

type VehicleService struct {
	Repo *repository.VehicleRepository
}

func NewVehicleService(repo *repository.VehicleRepository) *VehicleService {
	return &VehicleService{Repo: repo}
}

func (s *VehicleService) Create(ctx context.Context, in entities.CreateVehicleInput) (*entities.VehicleResponse, error) {
	plate := strings.ToUpper(strings.TrimSpace(in.Plate))
	if plate == "" {
		return nil, apperr.Validation("vehicle plate is required")
	}
	switch in.Class {
	case db.ClassCar, db.ClassMotorcycle, db.ClassTruck:
	default:
		return nil, apperr.Validation("unsupported vehicle class %q", in.Class)
	}

	v := &db.Vehicle{
		UserID: in.UserID,
		Plate:  plate,
		Make:   in.Make,
		Model:  in.Model,
		Class:  in.Class,
		Active: true,
	}
	if err := s.Repo.Create(ctx, v); err != nil {
		if repository.IsUniqueViolation(err) {
			return nil, apperr.Conflict("a vehicle with plate %s is already registered", plate)
		}
		return nil, err
	}
	return vehicleResponse(v), nil
}

func (s *VehicleService) ListMine(ctx context.Context, userID int) ([]entities.VehicleResponse, error) {
	vehicles, err := s.Repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]entities.VehicleResponse, 0, len(vehicles))
	for i := range vehicles {
		out = append(out, *vehicleResponse(&vehicles[i]))
	}
	return out, nil
}

// Remove soft-deletes a vehicle so its reservation history stays intact.
func (s *VehicleService) Remove(ctx context.Context, userID, vehicleID int) error {
	v, err := s.Repo.GetByID(ctx, vehicleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("vehicle %d not found", vehicleID)
		}
		return err
	}
	if v.UserID != userID {
		return apperr.Permission("vehicle does not belong to you")
	}
	if err := s.Repo.Deactivate(ctx, vehicleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return apperr.NotFound("vehicle %d is already removed", vehicleID)
		}
		return err
	}
	return nil
}

func vehicleResponse(v *db.Vehicle) *entities.VehicleResponse {
	return &entities.VehicleResponse{
		ID:        v.ID,
		Plate:     v.Plate,
		Make:      v.Make,
		Model:     v.Model,
		Class:     v.Class,
		CreatedAt: v.CreatedAt,
	}
}
