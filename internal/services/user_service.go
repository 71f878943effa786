package services

import (
	"context"
	"errors"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/example/kabirclub/internal/models"
	"github.com/example/kabirclub/internal/utils"
)

// ErrInvalidCredentials is returned by Authenticate for any login failure.
var ErrInvalidCredentials = errors.New("invalid credentials")

// UserService manages shopper and admin accounts.
type UserService struct {
	db      *gorm.DB
	log     *zap.Logger
	isAdmin func(email string) bool
}

// NewUserService constructs UserService. isAdmin decides which emails are
// promoted to admin at registration; nil means nobody.
func NewUserService(db *gorm.DB, log *zap.Logger, isAdmin func(email string) bool) *UserService {
	if isAdmin == nil {
		isAdmin = func(string) bool { return false }
	}
	return &UserService{db: db, log: log.Named("user"), isAdmin: isAdmin}
}

// RegisterInput is the sign-up payload.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	email := normalizeEmail(in.Email)
	if _, err := mail.ParseAddress(email); err != nil || email == "" {
		return nil, invalid("email", "please enter a valid email address")
	}
	if len(in.Password) < utils.MinPasswordLength {
		return nil, invalid("password", "password must be at least 6 characters")
	}
	if strings.TrimSpace(in.FullName) == "" {
		return nil, invalid("fullName", "please fill in full name")
	}

	db := s.db.WithContext(ctx)

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, storeErr("check email", err)
	}
	if count > 0 {
		return nil, invalid("email", "an account with this email already exists")
	}

	hash, err := utils.HashPassword(in.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        email,
		FullName:     strings.TrimSpace(in.FullName),
		Phone:        strings.TrimSpace(in.Phone),
		PasswordHash: hash,
		IsAdmin:      s.isAdmin(email),
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, storeErr("create user", err)
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()), zap.Bool("admin", user.IsAdmin))
	return &user, nil
}

// Authenticate checks an email and password pair.
func (s *UserService) Authenticate(ctx context.Context, email, password string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).First(&user, "email = ?", normalizeEmail(email)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, storeErr("find user", err)
	}

	if !utils.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	return &user, nil
}

// GetUser loads an account by id.
func (s *UserService) GetUser(ctx context.Context, id uuid.UUID) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Resource: "user"}
		}
		return nil, storeErr("get user", err)
	}
	return &user, nil
}

// UserSummary is an account with its order statistics.
type UserSummary struct {
	models.User
	OrderCount int64           `json:"order_count"`
	TotalSpent decimal.Decimal `json:"total_spent"`
}

// ListUsers returns accounts for the admin panel, newest first.
func (s *UserService) ListUsers(ctx context.Context, search string, pg utils.Pagination) ([]UserSummary, int64, error) {
	db := s.db.WithContext(ctx)
	query := db.Model(&models.User{})

	if search = strings.ToLower(strings.TrimSpace(search)); search != "" {
		like := "%" + search + "%"
		query = query.Where("LOWER(email) LIKE ? OR LOWER(full_name) LIKE ? OR phone LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, storeErr("count users", err)
	}

	var users []models.User
	if err := query.Order("created_at desc").
		Limit(pg.Limit).Offset(pg.Offset).
		Find(&users).Error; err != nil {
		return nil, 0, storeErr("list users", err)
	}

	result := make([]UserSummary, 0, len(users))
	if len(users) == 0 {
		return result, total, nil
	}

	ids := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		ids = append(ids, u.ID)
	}

	var orders []models.Order
	if err := db.Select("user_id", "total_amount", "order_status").
		Where("user_id IN ?", ids).
		Find(&orders).Error; err != nil {
		return nil, 0, storeErr("user order stats", err)
	}

	byUser := make(map[uuid.UUID]*UserSummary, len(users))
	for _, u := range users {
		result = append(result, UserSummary{User: u, TotalSpent: decimal.Zero})
	}
	for i := range result {
		byUser[result[i].ID] = &result[i]
	}
	for _, o := range orders {
		if o.UserID == nil {
			continue
		}
		if summary, ok := byUser[*o.UserID]; ok {
			summary.OrderCount++
			if o.OrderStatus != models.OrderStatusCancelled {
				summary.TotalSpent = summary.TotalSpent.Add(o.TotalAmount)
			}
		}
	}

	return result, total, nil
}

// ProfileUpdate carries the editable account fields. Nil fields are kept.
type ProfileUpdate struct {
	FullName *string
	Phone    *string
}

// UpdateProfile changes the name or phone of an account.
func (s *UserService) UpdateProfile(ctx context.Context, id uuid.UUID, update ProfileUpdate) (*models.User, error) {
	updates := map[string]any{}
	if update.FullName != nil {
		name := strings.TrimSpace(*update.FullName)
		if name == "" {
			return nil, invalid("fullName", "please fill in full name")
		}
		updates["full_name"] = name
	}
	if update.Phone != nil {
		updates["phone"] = strings.TrimSpace(*update.Phone)
	}
	if len(updates) == 0 {
		return nil, invalid("body", "nothing to update")
	}

	result := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return nil, storeErr("update profile", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, &NotFoundError{Resource: "user"}
	}
	return s.GetUser(ctx, id)
}

// ChangePassword replaces the password after checking the current one.
func (s *UserService) ChangePassword(ctx context.Context, id uuid.UUID, current, next string) error {
	user, err := s.GetUser(ctx, id)
	if err != nil {
		return err
	}
	if !utils.CheckPassword(user.PasswordHash, current) {
		return invalid("currentPassword", "current password is incorrect")
	}
	if len(next) < utils.MinPasswordLength {
		return invalid("newPassword", "password must be at least 6 characters")
	}

	hash, err := utils.HashPassword(next)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).
		Update("password_hash", hash).Error; err != nil {
		return storeErr("change password", err)
	}

	s.log.Info("password changed", zap.String("user_id", id.String()))
	return nil
}
