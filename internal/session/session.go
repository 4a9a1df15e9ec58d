package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrNoSession = errors.New("no valid session")

type Options struct {
	CookieName string
	TTL        time.Duration
	Secure     bool
}

// Manager выдаёт и проверяет cookie админской сессии.
// В cookie лежит подписанный HS256 токен с идентификатором сессии (sid), сама сессия живёт в Store.
type Manager struct {
	log    *slog.Logger
	store  Store
	secret []byte
	opts   Options
	now    func() time.Time
}

func NewManager(log *slog.Logger, store Store, secret string, opts Options) (*Manager, error) {
	if secret == "" {
		return nil, errors.New("session secret is empty")
	}
	if opts.CookieName == "" {
		opts.CookieName = "print_orders_session"
	}
	if opts.TTL <= 0 {
		opts.TTL = 12 * time.Hour
	}
	return &Manager{log: log, store: store, secret: []byte(secret), opts: opts, now: time.Now}, nil
}

// Login заводит новую сессию и ставит cookie
func (m *Manager) Login(ctx context.Context, w http.ResponseWriter) error {
	const op = "session.Manager.Login"

	sid, err := m.store.Create(ctx, m.opts.TTL)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	now := m.now()
	expires := now.Add(m.opts.TTL)
	claims := jwt.MapClaims{
		"sid": sid,
		"exp": expires.Unix(),
		"iat": now.Unix(),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return fmt.Errorf("%s: failed to sign token: %w", op, err)
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(m.opts.TTL.Seconds()),
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	m.log.Debug("session created", slog.String("op", op), slog.Time("expires", expires))
	return nil
}

// Authenticated возвращает nil, если запрос несёт действующую сессию
func (m *Manager) Authenticated(r *http.Request) error {
	const op = "session.Manager.Authenticated"

	sid, err := m.sessionID(r)
	if err != nil {
		return ErrNoSession
	}

	ok, err := m.store.Exists(r.Context(), sid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if !ok {
		return ErrNoSession
	}
	return nil
}

// Logout удаляет сессию из хранилища и сбрасывает cookie. Запрос без сессии не считается ошибкой.
func (m *Manager) Logout(w http.ResponseWriter, r *http.Request) error {
	const op = "session.Manager.Logout"

	if sid, err := m.sessionID(r); err == nil {
		if err := m.store.Delete(r.Context(), sid); err != nil {
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     m.opts.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   m.opts.Secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

func (m *Manager) sessionID(r *http.Request) (string, error) {
	cookie, err := r.Cookie(m.opts.CookieName)
	if err != nil {
		return "", err
	}

	token, err := jwt.Parse(cookie.Value, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		return "", errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", errors.New("invalid token claims")
	}
	sid, ok := claims["sid"].(string)
	if !ok || sid == "" {
		return "", errors.New("invalid token claims: sid not found")
	}
	return sid, nil
}
