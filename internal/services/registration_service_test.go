package services

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/choco-limpio/recicla-service/internal/events"
	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/validator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRegistrationService(repo *mockRepository, publisher *events.MockEventPublisher) RegistrationService {
	sessions := NewSessionManager("test-secret", time.Hour)
	return NewRegistrationService(repo, nil, testLogger(), validator.New(), sessions, publisher, 18)
}

func validRegisterRequest() *RegisterRequest {
	return &RegisterRequest{
		Name:         "Maria",
		Phone:        "3001234567",
		Email:        "maria@example.com",
		Neighborhood: "Centro",
		Password:     "secreta1",
		BirthDate:    "1990-05-20",
		Role:         "usuario",
	}
}

func testPhoto() *Upload {
	return &Upload{Filename: "lancha.png", ContentType: "image/png", Data: []byte("img")}
}

func TestRegistrationService_Register_ValidationOrder(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(*RegisterRequest)
		photo   *Upload
		wantMsg string
	}{
		{
			name:    "collector without message",
			mutate:  func(r *RegisterRequest) { r.Role = "lanchero"; r.Message = "" },
			photo:   testPhoto(),
			wantMsg: "Para registrarte como lanchero, el mensaje y la foto de la lancha son obligatorios.",
		},
		{
			name:    "collector without photo",
			mutate:  func(r *RegisterRequest) { r.Role = "lanchero"; r.Message = "Tengo lancha" },
			photo:   nil,
			wantMsg: "Para registrarte como lanchero, el mensaje y la foto de la lancha son obligatorios.",
		},
		{
			name: "collector completeness beats missing base fields",
			mutate: func(r *RegisterRequest) {
				r.Role = "lanchero"
				r.Message = ""
				r.Name = ""
			},
			photo:   nil,
			wantMsg: "Para registrarte como lanchero, el mensaje y la foto de la lancha son obligatorios.",
		},
		{
			name:    "missing field",
			mutate:  func(r *RegisterRequest) { r.Neighborhood = "" },
			wantMsg: "Todos los campos son obligatorios",
		},
		{
			name:    "malformed date",
			mutate:  func(r *RegisterRequest) { r.BirthDate = "20-05-1990" },
			wantMsg: "El formato de la fecha de nacimiento es inválido.",
		},
		{
			name:    "future date",
			mutate:  func(r *RegisterRequest) { r.BirthDate = now.AddDate(1, 0, 0).Format("2006-01-02") },
			wantMsg: "La fecha de nacimiento no puede ser en el futuro.",
		},
		{
			name:    "under age",
			mutate:  func(r *RegisterRequest) { r.BirthDate = now.AddDate(-18, 0, 1).Format("2006-01-02") },
			wantMsg: "Debes ser mayor de 18 años para registrarte.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMockRepository()
			svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))

			req := validRegisterRequest()
			tt.mutate(req)

			_, err := svc.Register(context.Background(), req, tt.photo)

			var validationErr *ValidationError
			if !errors.As(err, &validationErr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if validationErr.Message != tt.wantMsg {
				t.Errorf("expected %q, got %q", tt.wantMsg, validationErr.Message)
			}
			if repo.account.createCalls != 0 {
				t.Errorf("no account should be created on validation failure")
			}
		})
	}
}

func TestRegistrationService_Register_AgeBoundary(t *testing.T) {
	repo := newMockRepository()
	svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))

	// Turning exactly 18 today is allowed.
	req := validRegisterRequest()
	req.BirthDate = time.Now().AddDate(-18, 0, 0).Format("2006-01-02")

	result, err := svc.Register(context.Background(), req, nil)
	if err != nil {
		t.Fatalf("expected success at exactly 18, got %v", err)
	}
	if result.RedirectURL != "/verificar?email=maria@example.com" {
		t.Errorf("unexpected redirect %q", result.RedirectURL)
	}
}

func TestRegistrationService_Register_ConflictBeforeAccountCreation(t *testing.T) {
	repo := newMockRepository()
	repo.profile.profiles["existing"] = &models.Profile{
		ID: "existing", Name: "Maria", Phone: "3009999999", Role: models.RoleUsuario,
	}
	svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))

	_, err := svc.Register(context.Background(), validRegisterRequest(), nil)

	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflictErr.Message != "Este nombre de usuario ya está en uso. Por favor, elige otro." {
		t.Errorf("unexpected message %q", conflictErr.Message)
	}
	if repo.account.createCalls != 0 {
		t.Errorf("conflict must be detected before the provider account is created, got %d create calls", repo.account.createCalls)
	}
}

func TestRegistrationService_Register_PhoneConflict(t *testing.T) {
	repo := newMockRepository()
	repo.profile.profiles["existing"] = &models.Profile{
		ID: "existing", Name: "Otro", Phone: "3001234567", Role: models.RoleUsuario,
	}
	svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))

	_, err := svc.Register(context.Background(), validRegisterRequest(), nil)

	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflictErr.Message != "Este número de teléfono ya está registrado." {
		t.Errorf("unexpected message %q", conflictErr.Message)
	}
}

func TestRegistrationService_Register_DuplicateEmail(t *testing.T) {
	repo := newMockRepository()
	svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))

	if _, err := svc.Register(context.Background(), validRegisterRequest(), nil); err != nil {
		t.Fatalf("first registration failed: %v", err)
	}

	second := validRegisterRequest()
	second.Name = "Maria2"
	second.Phone = "3007654321"

	_, err := svc.Register(context.Background(), second, nil)

	var conflictErr *ConflictError
	if !errors.As(err, &conflictErr) {
		t.Fatalf("expected ConflictError, got %v", err)
	}
	if conflictErr.Message != "Este correo electrónico ya está registrado." {
		t.Errorf("unexpected message %q", conflictErr.Message)
	}
}

func TestRegistrationService_Register_CollectorStoresApplication(t *testing.T) {
	repo := newMockRepository()
	svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))

	req := validRegisterRequest()
	req.Role = "lanchero"
	req.Message = "Tengo una lancha con motor"

	if _, err := svc.Register(context.Background(), req, testPhoto()); err != nil {
		t.Fatalf("registration failed: %v", err)
	}

	account, err := repo.account.GetByEmail(context.Background(), req.Email)
	if err != nil {
		t.Fatalf("account not created: %v", err)
	}
	if account.Metadata[models.MetaRole] != string(models.RoleLancheroPendiente) {
		t.Errorf("expected role lanchero_pendiente, got %q", account.Metadata[models.MetaRole])
	}
	if account.Metadata[models.MetaMessage] != req.Message {
		t.Errorf("application message not stored")
	}
	if account.Metadata[models.MetaPhotoURL] == "" {
		t.Errorf("boat photo URL not stored")
	}
	if len(repo.blob.objects) != 1 {
		t.Errorf("expected one stored photo, got %d", len(repo.blob.objects))
	}
}

func TestRegistrationService_Verify(t *testing.T) {
	t.Run("regular member gets session and profile", func(t *testing.T) {
		repo := newMockRepository()
		publisher := events.NewMockEventPublisher(testLogger())
		svc := newTestRegistrationService(repo, publisher)

		if _, err := svc.Register(context.Background(), validRegisterRequest(), nil); err != nil {
			t.Fatalf("registration failed: %v", err)
		}

		result, err := svc.Verify(context.Background(), "maria@example.com", "123456")
		if err != nil {
			t.Fatalf("verification failed: %v", err)
		}
		if result.Pending {
			t.Errorf("regular member must not be pending")
		}
		if result.Token == "" {
			t.Errorf("expected a session token")
		}
		if result.RedirectURL != "/dashboard" {
			t.Errorf("unexpected redirect %q", result.RedirectURL)
		}

		profile, err := repo.profile.GetByName(context.Background(), "Maria")
		if err != nil {
			t.Fatalf("profile was not created at verification: %v", err)
		}
		if profile.Role != models.RoleUsuario {
			t.Errorf("expected role usuario, got %q", profile.Role)
		}

		published := publisher.GetPublishedEvents()
		if len(published) != 1 || published[0].Type != events.TypeProfileCreated {
			t.Errorf("expected one profile.created event, got %v", published)
		}
	})

	t.Run("pending collector gets no session", func(t *testing.T) {
		repo := newMockRepository()
		svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))

		req := validRegisterRequest()
		req.Role = "lanchero"
		req.Message = "Tengo lancha"
		if _, err := svc.Register(context.Background(), req, testPhoto()); err != nil {
			t.Fatalf("registration failed: %v", err)
		}

		result, err := svc.Verify(context.Background(), req.Email, "123456")
		if err != nil {
			t.Fatalf("verification failed: %v", err)
		}
		if !result.Pending {
			t.Errorf("collector must stay pending after verification")
		}
		if result.Token != "" {
			t.Errorf("pending collector must not receive a session token")
		}
	})

	t.Run("wrong code", func(t *testing.T) {
		repo := newMockRepository()
		svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))

		if _, err := svc.Register(context.Background(), validRegisterRequest(), nil); err != nil {
			t.Fatalf("registration failed: %v", err)
		}

		_, err := svc.Verify(context.Background(), "maria@example.com", "000000")
		var verificationErr *VerificationError
		if !errors.As(err, &verificationErr) {
			t.Fatalf("expected VerificationError, got %v", err)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		repo := newMockRepository()
		svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))

		_, err := svc.Verify(context.Background(), "maria@example.com", "")
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
	})
}

func registerAndVerify(t *testing.T, svc RegistrationService, req *RegisterRequest, photo *Upload) {
	t.Helper()
	if _, err := svc.Register(context.Background(), req, photo); err != nil {
		t.Fatalf("registration failed: %v", err)
	}
	if _, err := svc.Verify(context.Background(), req.Email, "123456"); err != nil {
		t.Fatalf("verification failed: %v", err)
	}
}

func TestRegistrationService_Login(t *testing.T) {
	t.Run("by email", func(t *testing.T) {
		repo := newMockRepository()
		svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))
		registerAndVerify(t, svc, validRegisterRequest(), nil)

		result, err := svc.Login(context.Background(), &LoginRequest{Identifier: "maria@example.com", Password: "secreta1"})
		if err != nil {
			t.Fatalf("login failed: %v", err)
		}
		if result.Token == "" || result.RedirectURL != "/dashboard" {
			t.Errorf("unexpected result %+v", result)
		}
	})

	t.Run("by phone and by name", func(t *testing.T) {
		repo := newMockRepository()
		svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))
		registerAndVerify(t, svc, validRegisterRequest(), nil)

		for _, identifier := range []string{"3001234567", "Maria"} {
			if _, err := svc.Login(context.Background(), &LoginRequest{Identifier: identifier, Password: "secreta1"}); err != nil {
				t.Errorf("login by %q failed: %v", identifier, err)
			}
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := newMockRepository()
		svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))
		registerAndVerify(t, svc, validRegisterRequest(), nil)

		_, err := svc.Login(context.Background(), &LoginRequest{Identifier: "maria@example.com", Password: "mala"})
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) || validationErr.Message != "Datos incorrectos" {
			t.Fatalf("expected Datos incorrectos, got %v", err)
		}
	})

	t.Run("unknown identifier", func(t *testing.T) {
		repo := newMockRepository()
		svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))

		_, err := svc.Login(context.Background(), &LoginRequest{Identifier: "nadie", Password: "x"})
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) || validationErr.Message != "Datos incorrectos" {
			t.Fatalf("expected Datos incorrectos, got %v", err)
		}
	})

	t.Run("pending collector refused", func(t *testing.T) {
		repo := newMockRepository()
		svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))

		req := validRegisterRequest()
		req.Role = "lanchero"
		req.Message = "Tengo lancha"
		registerAndVerify(t, svc, req, testPhoto())

		_, err := svc.Login(context.Background(), &LoginRequest{Identifier: req.Email, Password: req.Password})
		var validationErr *ValidationError
		if !errors.As(err, &validationErr) {
			t.Fatalf("expected ValidationError, got %v", err)
		}
		if validationErr.Message != "Tu solicitud para ser lanchero aún está en revisión. Serás notificado por correo." {
			t.Errorf("unexpected message %q", validationErr.Message)
		}
	})

	t.Run("role redirects", func(t *testing.T) {
		repo := newMockRepository()
		svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))
		registerAndVerify(t, svc, validRegisterRequest(), nil)

		account, _ := repo.account.GetByEmail(context.Background(), "maria@example.com")

		for role, want := range map[models.Role]string{
			models.RoleLanchero: "/lanchero",
			models.RoleAdmin:    "/admin/solicitudes",
			models.RoleUsuario:  "/dashboard",
		} {
			if err := repo.profile.UpdateRole(context.Background(), nil, account.ID, role); err != nil {
				t.Fatalf("role update failed: %v", err)
			}
			result, err := svc.Login(context.Background(), &LoginRequest{Identifier: "maria@example.com", Password: "secreta1"})
			if err != nil {
				t.Fatalf("login as %s failed: %v", role, err)
			}
			if result.RedirectURL != want {
				t.Errorf("role %s: expected redirect %q, got %q", role, want, result.RedirectURL)
			}
		}
	})
}

func TestRegistrationService_PasswordReset(t *testing.T) {
	repo := newMockRepository()
	svc := newTestRegistrationService(repo, events.NewMockEventPublisher(testLogger()))
	registerAndVerify(t, svc, validRegisterRequest(), nil)

	// Unknown addresses still report success.
	if err := svc.RequestPasswordReset(context.Background(), "nadie@example.com"); err != nil {
		t.Fatalf("reset request must not reveal unknown addresses: %v", err)
	}

	if err := svc.RequestPasswordReset(context.Background(), "maria@example.com"); err != nil {
		t.Fatalf("reset request failed: %v", err)
	}
	if err := svc.ResetPassword(context.Background(), "maria@example.com", "123456", "nueva123"); err != nil {
		t.Fatalf("reset failed: %v", err)
	}

	if _, err := svc.Login(context.Background(), &LoginRequest{Identifier: "maria@example.com", Password: "nueva123"}); err != nil {
		t.Errorf("login with new password failed: %v", err)
	}
	if _, err := svc.Login(context.Background(), &LoginRequest{Identifier: "maria@example.com", Password: "secreta1"}); err == nil {
		t.Errorf("old password still accepted")
	}
}
