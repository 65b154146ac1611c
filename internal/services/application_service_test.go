package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"gorm.io/datatypes"

	"github.com/choco-limpio/recicla-service/internal/events"
	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

func newTestApplicationService(repo *mockRepository, publisher *events.MockEventPublisher) ApplicationService {
	return NewApplicationService(repo, nil, testLogger(), validator.New(), publisher)
}

func seedApplicant(t *testing.T, repo *mockRepository) *models.Profile {
	t.Helper()
	ctx := context.Background()

	photoURL, err := repo.blob.Upload(ctx, models.BucketBoatPhotos, "solicitud_300_1.png", "image/png", []byte("img"), false)
	if err != nil {
		t.Fatalf("photo upload failed: %v", err)
	}

	application, _ := json.Marshal(models.CollectorApplication{Message: "Tengo lancha", PhotoURL: photoURL})
	profile := &models.Profile{
		ID:          "app-1",
		Name:        "Pedro",
		Phone:       "300",
		Role:        models.RoleLancheroPendiente,
		Application: datatypes.JSON(application),
	}
	repo.profile.profiles[profile.ID] = profile

	account, err := repo.account.Create(ctx, "pedro@example.com", "clave123", map[string]string{models.MetaRole: string(models.RoleLancheroPendiente)})
	if err != nil {
		t.Fatalf("account create failed: %v", err)
	}
	// Align the account id with the profile id, as verification does.
	for _, a := range repo.account.accounts {
		if a.account.ID == account.ID {
			a.account.ID = profile.ID
		}
	}
	return profile
}

func TestApplicationService_ListApplications(t *testing.T) {
	repo := newMockRepository()
	seedApplicant(t, repo)
	repo.profile.profiles["u1"] = &models.Profile{ID: "u1", Name: "Ana", Phone: "1", Role: models.RoleUsuario}

	svc := newTestApplicationService(repo, events.NewMockEventPublisher(testLogger()))

	response, err := svc.ListApplications(context.Background())
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if response.Total != 1 || response.Applications[0].ID != "app-1" {
		t.Fatalf("expected only the pending applicant, got %+v", response)
	}
}

func TestApplicationService_Process_Approve(t *testing.T) {
	repo := newMockRepository()
	profile := seedApplicant(t, repo)
	publisher := events.NewMockEventPublisher(testLogger())
	svc := newTestApplicationService(repo, publisher)
	ctx := context.Background()

	req := &ProcessApplicationRequest{ApplicationID: profile.ID, Decision: "aprobar"}
	if err := svc.Process(ctx, "admin-1", req); err != nil {
		t.Fatalf("approve failed: %v", err)
	}

	updated, _ := repo.profile.GetByID(ctx, profile.ID)
	if updated.Role != models.RoleLanchero {
		t.Fatalf("expected role lanchero, got %q", updated.Role)
	}

	// Second approval changes nothing and still succeeds.
	if err := svc.Process(ctx, "admin-1", req); err != nil {
		t.Fatalf("repeated approve must be a no-op: %v", err)
	}
	updated, _ = repo.profile.GetByID(ctx, profile.ID)
	if updated.Role != models.RoleLanchero {
		t.Errorf("role changed on repeated approve: %q", updated.Role)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.TypeApplicationApproved {
		t.Errorf("expected one application.approved event, got %d", len(published))
	}
}

func TestApplicationService_Process_Reject(t *testing.T) {
	repo := newMockRepository()
	profile := seedApplicant(t, repo)
	publisher := events.NewMockEventPublisher(testLogger())
	svc := newTestApplicationService(repo, publisher)
	ctx := context.Background()

	if err := svc.Process(ctx, "admin-1", &ProcessApplicationRequest{ApplicationID: profile.ID, Decision: "rechazar"}); err != nil {
		t.Fatalf("reject failed: %v", err)
	}

	if _, err := repo.profile.GetByID(ctx, profile.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("profile must be removed on rejection")
	}
	if _, err := repo.account.GetByID(ctx, profile.ID); !errors.Is(err, repositories.ErrNotFound) {
		t.Errorf("account must be removed on rejection")
	}
	if len(repo.blob.deleted) != 1 {
		t.Errorf("boat photo must be cleaned up, deleted=%v", repo.blob.deleted)
	}

	published := publisher.GetPublishedEvents()
	if len(published) != 1 || published[0].Type != events.TypeApplicationRejected {
		t.Errorf("expected one application.rejected event, got %d", len(published))
	}
}

func TestApplicationService_Process_Invalid(t *testing.T) {
	repo := newMockRepository()
	profile := seedApplicant(t, repo)
	svc := newTestApplicationService(repo, events.NewMockEventPublisher(testLogger()))
	ctx := context.Background()

	t.Run("missing fields", func(t *testing.T) {
		err := svc.Process(ctx, "admin-1", &ProcessApplicationRequest{})
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) || validationErr.Message != "Faltan datos." {
			t.Fatalf("expected Faltan datos., got %v", err)
		}
	})

	t.Run("unknown decision", func(t *testing.T) {
		err := svc.Process(ctx, "admin-1", &ProcessApplicationRequest{ApplicationID: profile.ID, Decision: "tal vez"})
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) || validationErr.Message != "Acción no válida." {
			t.Fatalf("expected Acción no válida., got %v", err)
		}
	})

	t.Run("unknown applicant", func(t *testing.T) {
		err := svc.Process(ctx, "admin-1", &ProcessApplicationRequest{ApplicationID: "ghost", Decision: "aprobar"})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})
}

func TestApplicationService_Exports(t *testing.T) {
	repo := newMockRepository()
	seedApplicant(t, repo)
	repo.profile.profiles["u1"] = &models.Profile{ID: "u1", Name: "Ana", Phone: "1", Role: models.RoleUsuario, RecycledKg: 12.5}

	svc := newTestApplicationService(repo, events.NewMockEventPublisher(testLogger()))
	ctx := context.Background()

	applications, err := svc.ExportApplications(ctx)
	if err != nil {
		t.Fatalf("export applications failed: %v", err)
	}
	if len(applications) == 0 {
		t.Errorf("expected spreadsheet bytes")
	}

	leaderboard, err := svc.ExportLeaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("export leaderboard failed: %v", err)
	}
	if len(leaderboard) == 0 {
		t.Errorf("expected spreadsheet bytes")
	}
}
