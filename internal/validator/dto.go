package validator

// RegisterRequest carries the registration form. BirthDate stays a string
// until the business validator parses it, so a malformed date is reported as
// a validation failure rather than a bind error.
type RegisterRequest struct {
	Name         string `json:"nombre" form:"nombre" validate:"required,max=100"`
	Phone        string `json:"telefono" form:"telefono" validate:"required,max=30"`
	Email        string `json:"email" form:"email" validate:"required,email,max=255"`
	Neighborhood string `json:"barrio" form:"barrio" validate:"required,max=100"`
	Password     string `json:"contrasena" form:"contrasena" validate:"required,min=6"`
	BirthDate    string `json:"fecha_nac" form:"fecha_nac" validate:"required"`
	Role         string `json:"rol" form:"rol" validate:"omitempty,oneof=usuario lanchero"`

	// Collector application fields, required only when Role is lanchero.
	Message string `json:"mensaje_lanchero" form:"mensaje_lanchero"`
}

// LoginRequest accepts an email, phone number or member name as identifier.
type LoginRequest struct {
	Identifier string `json:"identificador" form:"identificador" validate:"required"`
	Password   string `json:"contrasena" form:"contrasena" validate:"required"`
}

type VerifyRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
	Code  string `json:"token" form:"token" validate:"required"`
}

type ResendCodeRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type PasswordResetRequest struct {
	Email string `json:"email" form:"email" validate:"required,email"`
}

type PasswordResetCompleteRequest struct {
	Email       string `json:"email" validate:"required,email"`
	Code        string `json:"token" validate:"required"`
	NewPassword string `json:"new_password" validate:"required,min=6"`
}

// ProfileUpdateRequest updates only the provided fields.
type ProfileUpdateRequest struct {
	Name         *string `json:"nombre" validate:"omitempty,min=1,max=100"`
	Neighborhood *string `json:"barrio" validate:"omitempty,min=1,max=100"`
	Email        *string `json:"email" validate:"omitempty,email,max=255"`
}

type ReportCreateRequest struct {
	Kg       float64 `json:"kg" form:"kg" validate:"required,gt=0"`
	Location string  `json:"ubicacion" form:"ubicacion" validate:"max=500"`
}

// ProcessApplicationRequest is the admin decision on a pending collector
// application.
type ProcessApplicationRequest struct {
	ApplicationID string `json:"solicitud_id" validate:"required"`
	Decision      string `json:"accion" validate:"required,oneof=aprobar rechazar"`
}
