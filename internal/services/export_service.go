package services

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
)

// ExportApplications renders the pending collector applications as an xlsx
// sheet for offline review.
func (s *applicationService) ExportApplications(ctx context.Context) ([]byte, error) {
	profiles, _, err := s.repo.Profile().ListByRole(ctx, models.RoleLancheroPendiente, repositories.ProfileFilters{
		SortBy:    "created_at",
		SortOrder: "asc",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list applications: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Solicitudes"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Nombre", "Teléfono", "Email", "Barrio", "Mensaje", "Foto", "Registrado"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for row, profile := range profiles {
		var application models.CollectorApplication
		if len(profile.Application) > 0 {
			_ = json.Unmarshal(profile.Application, &application)
		}

		values := []interface{}{
			profile.Name,
			profile.Phone,
			profile.Email,
			profile.Neighborhood,
			application.Message,
			application.PhotoURL,
			profile.CreatedAt.Format("2006-01-02 15:04"),
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to build spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}

// ExportLeaderboard renders the recycling leaderboard as an xlsx sheet.
func (s *applicationService) ExportLeaderboard(ctx context.Context, limit int) ([]byte, error) {
	if limit <= 0 {
		limit = 100
	}

	entries, err := s.repo.Profile().Leaderboard(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("leaderboard lookup failed: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Ranking"
	f.SetSheetName("Sheet1", sheet)

	f.SetCellValue(sheet, "A1", "Puesto")
	f.SetCellValue(sheet, "B1", "Nombre")
	f.SetCellValue(sheet, "C1", "Kg reciclados")

	for i, entry := range entries {
		row := i + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), i+1)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), entry.Name)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), entry.RecycledKg)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to build spreadsheet: %w", err)
	}
	return buf.Bytes(), nil
}
