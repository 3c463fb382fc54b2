package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"gasy-hub-backend/internal/models"
	"gasy-hub-backend/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	jwtExpDays        = 365
	minPasswordLength = 6
)

// UserService handles user-related business logic
type UserService struct {
	userRepo    UserStore
	jwtSecret   string
	adminPhones []string
}

// NewUserService creates a new user service. Accounts registered with one of
// adminPhones are created as admins.
func NewUserService(userRepo UserStore, jwtSecret string, adminPhones []string) *UserService {
	phones := make([]string, 0, len(adminPhones))
	for _, p := range adminPhones {
		phones = append(phones, normalizePhone(p))
	}
	return &UserService{
		userRepo:    userRepo,
		jwtSecret:   jwtSecret,
		adminPhones: phones,
	}
}

// RegisterRequest represents a request to create an account
type RegisterRequest struct {
	Name         string   `json:"name"`
	Phone        string   `json:"phone"`
	Password     string   `json:"password"`
	Neighborhood string   `json:"neighborhood"`
	Latitude     *float64 `json:"latitude,omitempty"`
	Longitude    *float64 `json:"longitude,omitempty"`
}

// AuthResponse is returned after registration or login
type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// GenerateJWT generates a JWT token for a user
func (s *UserService) GenerateJWT(userID string) (string, error) {
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     time.Now().AddDate(0, 0, jwtExpDays).Unix(),
		"iat":     time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}

// ValidateJWT validates a JWT token and returns the user ID
func (s *UserService) ValidateJWT(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtSecret), nil
	})

	if err != nil {
		return "", fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return "", fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", fmt.Errorf("invalid token claims")
	}

	userID, ok := claims["user_id"].(string)
	if !ok {
		return "", fmt.Errorf("user_id not found in token")
	}

	return userID, nil
}

// Register creates a new account and signs a token for it
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	name := strings.TrimSpace(req.Name)
	phone := normalizePhone(req.Phone)
	if name == "" {
		return nil, newError(ErrValidation, "name is required")
	}
	if phone == "" {
		return nil, newError(ErrValidation, "phone is required")
	}
	if len(req.Password) < minPasswordLength {
		return nil, newError(ErrValidation, "password must be at least %d characters", minPasswordLength)
	}
	if (req.Latitude == nil) != (req.Longitude == nil) {
		return nil, newError(ErrValidation, "latitude and longitude must be given together")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		Name:         name,
		Phone:        phone,
		PasswordHash: string(hash),
		IsAdmin:      slices.Contains(s.adminPhones, phone),
		Neighborhood: strings.TrimSpace(req.Neighborhood),
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		CreatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, newError(ErrConflict, "phone number is already registered")
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Token: token, User: user}, nil
}

// Login checks a phone/password pair and signs a token
func (s *UserService) Login(ctx context.Context, phone, password string) (*AuthResponse, error) {
	user, err := s.userRepo.GetByPhone(ctx, normalizePhone(phone))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, newError(ErrUnauthorized, "invalid phone or password")
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, newError(ErrUnauthorized, "invalid phone or password")
	}

	token, err := s.GenerateJWT(user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}
	return &AuthResponse{Token: token, User: user}, nil
}

// GetUser retrieves a user by ID
func (s *UserService) GetUser(ctx context.Context, userID string) (*models.User, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return nil, fromStore(err, "user")
	}
	return user, nil
}

// UpdatePushToken stores the device token used for push notifications.
// An empty token unregisters the device.
func (s *UserService) UpdatePushToken(ctx context.Context, userID, pushToken string) error {
	var token *string
	if t := strings.TrimSpace(pushToken); t != "" {
		token = &t
	}
	return fromStore(s.userRepo.UpdatePushToken(ctx, userID, token), "user")
}

// SetVerified marks a user's identity (CIN) as verified. Admin only.
func (s *UserService) SetVerified(ctx context.Context, actorID, userID string, hasCIN bool) (*models.User, error) {
	actor, err := s.GetUser(ctx, actorID)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin {
		return nil, newError(ErrForbidden, "admin rights required")
	}
	if err := s.userRepo.SetVerified(ctx, userID, hasCIN); err != nil {
		return nil, fromStore(err, "user")
	}
	return s.GetUser(ctx, userID)
}

// normalizePhone strips spaces so "+261 34 00 000 00" and "+26134000000" match
func normalizePhone(phone string) string {
	return strings.Join(strings.Fields(phone), "")
}
