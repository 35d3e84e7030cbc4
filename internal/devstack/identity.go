package devstack

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"golang.org/x/crypto/bcrypt"
)

type userRow struct {
	ID           string    `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	FirstName    string    `db:"first_name"`
	LastName     string    `db:"last_name"`
	CreatedAt    time.Time `db:"created_at"`
}

type userPayload struct {
	ID        string `json:"Id"`
	Name      string `json:"Name"`
	FirstName string `json:"FirstName"`
	LastName  string `json:"LastName"`
	Email     string `json:"Email"`
	AvatarURL string `json:"AvatarUrl"`
}

type sessionPayload struct {
	Token     string      `json:"token"`
	ExpiresAt time.Time   `json:"expires_at"`
	User      userPayload `json:"user"`
}

type signupRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (u userRow) payload() userPayload {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	return userPayload{
		ID:        u.ID,
		Name:      name,
		FirstName: u.FirstName,
		LastName:  u.LastName,
		Email:     u.Email,
	}
}

func (s *Server) handleSignup(c echo.Context) error {
	var req signupRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.Email == "" || len(req.Password) < 8 {
		return echo.NewHTTPError(http.StatusBadRequest, "Email and a password of at least 8 characters are required")
	}

	var exists int
	if err := s.db.Get(&exists, "SELECT COUNT(*) FROM users WHERE email = ?", req.Email); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to check email")
	}
	if exists > 0 {
		return echo.NewHTTPError(http.StatusConflict, "Email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to hash password")
	}

	user := userRow{
		ID:           uuid.New().String(),
		Email:        req.Email,
		PasswordHash: string(hash),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		CreatedAt:    time.Now().UTC(),
	}

	_, err = s.db.NamedExec(`
		INSERT INTO users (id, email, password_hash, first_name, last_name, created_at)
		VALUES (:id, :email, :password_hash, :first_name, :last_name, :created_at)`, user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create user")
	}

	s.logger.Infow("User registered", "user_id", user.ID, "email", user.Email)

	sess, err := s.issueSession(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue session")
	}

	return c.JSON(http.StatusCreated, sess)
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	var user userRow
	err := s.db.Get(&user, "SELECT * FROM users WHERE email = ?", req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to load user")
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "Invalid credentials")
	}

	sess, err := s.issueSession(user)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to issue session")
	}

	return c.JSON(http.StatusOK, sess)
}

func (s *Server) handleLogout(c echo.Context) error {
	token := bearerToken(c)
	_, err := s.db.Exec(
		"INSERT OR IGNORE INTO revoked_tokens (token, revoked_at) VALUES (?, ?)",
		token, time.Now().UTC(),
	)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to revoke token")
	}
	return c.NoContent(http.StatusOK)
}

func (s *Server) issueSession(user userRow) (*sessionPayload, error) {
	ttl := s.config.SessionTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	expiresAt := time.Now().UTC().Add(ttl)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID,
		Issuer:    s.config.Issuer,
		IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.config.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &sessionPayload{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      user.payload(),
	}, nil
}

// requireToken validates the bearer token and stores the subject as the
// record owner for downstream handlers. All record data is scoped per
// user; one user can never see another's rows.
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := bearerToken(c)
		if raw == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Missing bearer token")
		}

		var revoked int
		if err := s.db.Get(&revoked, "SELECT COUNT(*) FROM revoked_tokens WHERE token = ?", raw); err == nil && revoked > 0 {
			return echo.NewHTTPError(http.StatusUnauthorized, "Token revoked")
		}

		token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, errors.New("unexpected signing method")
			}
			return []byte(s.config.JWTSecret), nil
		})
		if err != nil || !token.Valid {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok || claims.Subject == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token claims")
		}

		c.Set("owner_id", claims.Subject)
		return next(c)
	}
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

func ownerID(c echo.Context) string {
	id, _ := c.Get("owner_id").(string)
	return id
}
