package service

import (
	"context"
	"database/sql"
	"strings"

	"github.com/rs/zerolog/log"

	"dtracker/apperrors"
	"dtracker/models"
	"dtracker/repository"
	"dtracker/utils"
	"dtracker/workflow"
)

// UserService handles registration, login and device tokens
type UserService struct {
	userRepo  *repository.UserRepository
	registry  *workflow.Registry
	jwtSecret []byte
}

// NewUserService creates a new user service
func NewUserService(userRepo *repository.UserRepository, registry *workflow.Registry, jwtSecret string) *UserService {
	return &UserService{
		userRepo:  userRepo,
		registry:  registry,
		jwtSecret: []byte(jwtSecret),
	}
}

// Register creates a user with a bcrypt password hash.
func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest) error {
	var missing []string
	for _, f := range []struct{ name, value string }{
		{"USERNAME", req.UserName},
		{"DEPT", req.Dept},
		{"USERID", req.UserID},
		{"PASSWORD", req.Password},
	} {
		if strings.TrimSpace(f.value) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return apperrors.NewValidationError("missing required fields: " + strings.Join(missing, ", "))
	}

	def, err := s.registry.Lookup(req.Dept)
	if err != nil {
		return err
	}
	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return apperrors.NewInternalError("failed to register user", err)
	}

	user := &models.User{
		UserID:       strings.TrimSpace(req.UserID),
		UserName:     strings.TrimSpace(req.UserName),
		Department:   string(def.Name),
		PasswordHash: hash,
	}
	if token := strings.TrimSpace(req.FCMToken); token != "" {
		user.FCMToken = sql.NullString{String: token, Valid: true}
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return internal("failed to register user", err)
	}
	log.Info().Str("component", "users").Str("userid", user.UserID).Str("department", user.Department).Msg("user registered")
	return nil
}

// Login checks credentials and issues a token. Unknown users and wrong
// passwords produce the same error.
func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.LoginResponse, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" || req.Password == "" {
		return nil, apperrors.NewValidationError("USERID and PASSWORD are required")
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, internal("failed to login", err)
	}
	if user == nil || utils.CheckPassword(req.Password, user.PasswordHash) != nil {
		return nil, apperrors.NewUnauthorizedError("invalid credentials")
	}

	token, err := utils.GenerateJWT(user.UserID, s.jwtSecret, utils.TokenTTL)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to issue token", err)
	}
	return &models.LoginResponse{
		Message:    "Login successful",
		UserID:     user.UserID,
		Name:       user.UserName,
		Department: user.Department,
		Token:      token,
	}, nil
}

// UpdateToken stores the device push token of a user.
func (s *UserService) UpdateToken(ctx context.Context, req *models.UpdateTokenRequest) error {
	userID := strings.TrimSpace(req.UserID)
	token := strings.TrimSpace(req.FCMToken)
	if userID == "" || token == "" {
		return apperrors.NewValidationError("USERID and FCM_TOKEN are required")
	}
	ok, err := s.userRepo.UpdateToken(ctx, userID, token)
	if err != nil {
		return internal("failed to update token", err)
	}
	if !ok {
		return apperrors.NewNotFoundError("user not found")
	}
	return nil
}
