package service

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
)

type AdminService interface {
	Login(ctx context.Context, user, pass string) error
}

type adminService struct {
	log      *slog.Logger
	user     string
	passHash []byte
}

// NewAdminService хэширует пароль администратора один раз при старте
func NewAdminService(log *slog.Logger, user, pass string) (AdminService, error) {
	if user == "" || pass == "" {
		return nil, errors.New("service.NewAdminService: admin user and password must be set")
	}
	passHash, err := bcrypt.GenerateFromPassword(prehash(pass), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("service.NewAdminService: failed to hash password: %w", err)
	}
	return &adminService{
		log:      log,
		user:     user,
		passHash: passHash,
	}, nil
}

// Login сверяет логин и пароль с настроенными. Какое именно поле не совпало - не сообщаем.
func (a *adminService) Login(ctx context.Context, user, pass string) error {
	const op = "service.AdminService.Login"
	logger := a.log.With(slog.String("op", op))

	userOK := subtle.ConstantTimeCompare([]byte(user), []byte(a.user)) == 1
	passErr := bcrypt.CompareHashAndPassword(a.passHash, prehash(pass))
	if !userOK || passErr != nil {
		logger.Warn("invalid admin credentials")
		return fmt.Errorf("%s: %w", op, ErrInvalidCredentials)
	}

	logger.Info("admin logged in")
	return nil
}

// prehash сводит пароль любой длины к 64 байтам hex(sha256), bcrypt учитывает только первые 72
func prehash(pass string) []byte {
	sum := sha256.Sum256([]byte(pass))
	dst := make([]byte, hex.EncodedLen(len(sum)))
	hex.Encode(dst, sum[:])
	return dst
}
