package casdoor

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/choco-limpio/recicla-service/internal/cache"
	"github.com/choco-limpio/recicla-service/internal/models"
	"github.com/choco-limpio/recicla-service/internal/repositories"
)

// CasdoorConfig holds the configuration for the Casdoor connection
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

// Mailer delivers one-time codes out-of-band.
type Mailer interface {
	Send(to, subject, body string) error
}

// AccountCasdoor implements the identity provider boundary on top of
// Casdoor. Account records live in Casdoor; one-time codes live in Redis
// with a bounded lifetime and are delivered by mail.
type AccountCasdoor struct {
	client *casdoorsdk.Client
	redis  *redis.Client
	mailer Mailer
	config CasdoorConfig

	accountCache *cache.CacheHelper
	codeTTL      time.Duration
}

func NewAccountCasdoor(config CasdoorConfig, redisClient *redis.Client, mailer Mailer, codeTTL time.Duration) repositories.AccountRepository {
	client := casdoorsdk.NewClient(
		config.Endpoint,
		config.ClientID,
		config.ClientSecret,
		config.Certificate,
		config.OrganizationName,
		config.ApplicationName,
	)

	return &AccountCasdoor{
		client:       client,
		redis:        redisClient,
		mailer:       mailer,
		config:       config,
		accountCache: cache.NewCacheHelper(redisClient, cache.AccountCacheConfig.Prefix),
		codeTTL:      codeTTL,
	}
}

// ===== CONVERSION =====

func (a *AccountCasdoor) toModel(user *casdoorsdk.User) *models.Account {
	if user == nil {
		return nil
	}

	var createdAt, updatedAt time.Time
	if user.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, user.CreatedTime)
	}
	if user.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, user.UpdatedTime)
	}

	metadata := make(map[string]string, len(user.Properties))
	for k, v := range user.Properties {
		metadata[k] = v
	}

	return &models.Account{
		ID:            user.Id,
		Email:         user.Email,
		EmailVerified: user.EmailVerified,
		Metadata:      metadata,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// ===== ACCOUNT CRUD =====

func (a *AccountCasdoor) Create(ctx context.Context, email, password string, metadata map[string]string) (*models.Account, error) {
	existing, err := a.client.GetUserByEmail(email)
	if err == nil && existing != nil {
		return nil, repositories.ErrAlreadyRegistered
	}

	user := &casdoorsdk.User{
		Owner:             a.config.OrganizationName,
		Name:              uuid.New().String(),
		CreatedTime:       time.Now().Format(time.RFC3339),
		DisplayName:       metadata[models.MetaName],
		Email:             email,
		Phone:             metadata[models.MetaPhone],
		Password:          password,
		SignupApplication: a.config.ApplicationName,
		Properties:        metadata,
	}

	ok, err := a.client.AddUser(user)
	if err != nil {
		if strings.Contains(err.Error(), "already registered") || strings.Contains(err.Error(), "already exist") {
			return nil, repositories.ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("identity provider rejected account creation")
	}

	created, err := a.client.GetUserByEmail(email)
	if err != nil || created == nil {
		return nil, fmt.Errorf("failed to read back created account: %w", err)
	}

	account := a.toModel(created)
	a.cacheAccount(ctx, account)
	return account, nil
}

func (a *AccountCasdoor) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var cached models.Account
	if err := a.accountCache.Get(ctx, "id:"+id, &cached); err == nil {
		return &cached, nil
	}

	user, err := a.client.GetUserByUserId(id)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	if user == nil {
		return nil, repositories.ErrNotFound
	}

	account := a.toModel(user)
	a.cacheAccount(ctx, account)
	return account, nil
}

func (a *AccountCasdoor) GetByEmail(ctx context.Context, email string) (*models.Account, error) {
	var cached models.Account
	if err := a.accountCache.Get(ctx, "email:"+email, &cached); err == nil {
		return &cached, nil
	}

	user, err := a.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get account by email: %w", err)
	}
	if user == nil {
		return nil, repositories.ErrNotFound
	}

	account := a.toModel(user)
	a.cacheAccount(ctx, account)
	return account, nil
}

func (a *AccountCasdoor) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	user, err := a.client.GetUserByEmail(email)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return user != nil, nil
}

func (a *AccountCasdoor) List(ctx context.Context, limit, offset int) ([]*models.Account, int64, error) {
	if limit <= 0 {
		limit = 50
	}
	page := (offset / limit) + 1

	users, count, err := a.client.GetPaginationUsers(page, limit, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list accounts: %w", err)
	}

	accounts := make([]*models.Account, 0, len(users))
	for _, user := range users {
		if account := a.toModel(user); account != nil {
			accounts = append(accounts, account)
		}
	}
	return accounts, int64(count), nil
}

func (a *AccountCasdoor) VerifyPassword(ctx context.Context, email, password string) (*models.Account, error) {
	user, err := a.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}
	if user == nil {
		return nil, repositories.ErrBadCredentials
	}

	check := &casdoorsdk.User{
		Owner:    a.config.OrganizationName,
		Name:     user.Name,
		Password: password,
	}
	ok, err := a.client.CheckUserPassword(check)
	if err != nil || !ok {
		return nil, repositories.ErrBadCredentials
	}

	return a.toModel(user), nil
}

func (a *AccountCasdoor) UpdateEmail(ctx context.Context, id, email string) error {
	user, err := a.client.GetUserByUserId(id)
	if err != nil || user == nil {
		return fmt.Errorf("failed to get account for email update: %w", err)
	}

	a.invalidateAccount(ctx, user)
	user.Email = email

	ok, err := a.client.UpdateUser(user)
	if err != nil {
		return fmt.Errorf("failed to update account email: %w", err)
	}
	if !ok {
		return fmt.Errorf("identity provider rejected email update")
	}
	return nil
}

func (a *AccountCasdoor) UpdatePassword(ctx context.Context, email, newPassword string) error {
	user, err := a.client.GetUserByEmail(email)
	if err != nil || user == nil {
		return fmt.Errorf("failed to get account for password update: %w", err)
	}

	ok, err := a.client.SetPassword(user.Owner, user.Name, "", newPassword)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if !ok {
		return fmt.Errorf("identity provider rejected password update")
	}
	return nil
}

func (a *AccountCasdoor) Delete(ctx context.Context, id string) error {
	user, err := a.client.GetUserByUserId(id)
	if err != nil {
		return fmt.Errorf("failed to get account for deletion: %w", err)
	}
	if user == nil {
		return repositories.ErrNotFound
	}

	a.invalidateAccount(ctx, user)

	ok, err := a.client.DeleteUser(user)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if !ok {
		return fmt.Errorf("identity provider rejected account deletion")
	}
	return nil
}

// ===== ONE-TIME CODES =====

func (a *AccountCasdoor) codeKey(email string, purpose repositories.CodePurpose) string {
	return fmt.Sprintf("otp:%s:%s", purpose, email)
}

// IssueCode generates a fresh 6-digit code, stores it with a bounded
// lifetime and mails it. Reissuing replaces any previous code.
func (a *AccountCasdoor) IssueCode(ctx context.Context, email string, purpose repositories.CodePurpose) error {
	if a.redis == nil {
		return fmt.Errorf("code store not available")
	}

	code, err := generateCode()
	if err != nil {
		return fmt.Errorf("failed to generate code: %w", err)
	}

	if err := a.redis.Set(ctx, a.codeKey(email, purpose), code, a.codeTTL).Err(); err != nil {
		return fmt.Errorf("failed to store code: %w", err)
	}

	subject, body := codeMail(purpose, code)
	if err := a.mailer.Send(email, subject, body); err != nil {
		return fmt.Errorf("failed to deliver code: %w", err)
	}
	return nil
}

// VerifyCode consumes a previously issued code. A signup code additionally
// marks the account email as verified.
func (a *AccountCasdoor) VerifyCode(ctx context.Context, email, code string, purpose repositories.CodePurpose) (*models.Account, error) {
	if a.redis == nil {
		return nil, fmt.Errorf("code store not available")
	}

	stored, err := a.redis.Get(ctx, a.codeKey(email, purpose)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, repositories.ErrCodeInvalid
		}
		return nil, fmt.Errorf("failed to read code: %w", err)
	}
	if stored != code {
		return nil, repositories.ErrCodeInvalid
	}

	// Codes are single-use.
	a.redis.Del(ctx, a.codeKey(email, purpose))

	user, err := a.client.GetUserByEmail(email)
	if err != nil {
		return nil, fmt.Errorf("failed to get account after verification: %w", err)
	}
	if user == nil {
		return nil, repositories.ErrNotFound
	}

	if purpose == repositories.CodePurposeSignup && !user.EmailVerified {
		a.invalidateAccount(ctx, user)
		user.EmailVerified = true
		if ok, err := a.client.UpdateUser(user); err != nil || !ok {
			return nil, fmt.Errorf("failed to mark account verified: %w", err)
		}
	}

	return a.toModel(user), nil
}

// ===== CACHE =====

func (a *AccountCasdoor) cacheAccount(ctx context.Context, account *models.Account) {
	if account == nil {
		return
	}
	_ = a.accountCache.Set(ctx, "id:"+account.ID, account, cache.AccountCacheConfig.TTL)
	_ = a.accountCache.Set(ctx, "email:"+account.Email, account, cache.AccountCacheConfig.TTL)
}

func (a *AccountCasdoor) invalidateAccount(ctx context.Context, user *casdoorsdk.User) {
	cache.SafeDelete(ctx, a.accountCache, "id:"+user.Id, "email:"+user.Email)
}

func generateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

func codeMail(purpose repositories.CodePurpose, code string) (subject, body string) {
	switch purpose {
	case repositories.CodePurposePasswordReset:
		return "Chocó Limpio - Restablecer contraseña",
			fmt.Sprintf("Tu código para restablecer la contraseña es: %s", code)
	default:
		return "Chocó Limpio - Verifica tu correo",
			fmt.Sprintf("Tu código de verificación es: %s", code)
	}
}
