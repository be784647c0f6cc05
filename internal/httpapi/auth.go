package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/incridea-nmamit/incridea-server/internal/fest"
	"github.com/incridea-nmamit/incridea-server/internal/models"
)

const cookieName = "fest_token"

const bcryptCost = 10

type claims struct {
	Role models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Tokens signs and verifies session tokens.
type Tokens struct {
	Secret       []byte
	TTL          time.Duration
	CookieSecure bool
}

func (t Tokens) issue(u models.User) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		Role: u.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(u.ID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(t.TTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    "incridea",
		},
	})
	return tok.SignedString(t.Secret)
}

// verify returns the user id carried by a valid token.
func (t Tokens) verify(raw string) (int64, error) {
	tok, err := jwt.ParseWithClaims(raw, &claims{}, func(*jwt.Token) (any, error) {
		return t.Secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer("incridea"))
	if err != nil {
		return 0, err
	}
	cl, ok := tok.Claims.(*claims)
	if !ok || !tok.Valid {
		return 0, errors.New("bad claims")
	}
	return strconv.ParseInt(cl.Subject, 10, 64)
}

// tokenFrom reads the session cookie, falling back to a bearer header.
func tokenFrom(c *gin.Context) string {
	if v, err := c.Cookie(cookieName); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if after, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(after)
	}
	return ""
}

func (s *Server) register(c *gin.Context) {
	var req struct {
		Name      string `json:"name"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
		CollegeID *int64 `json:"college_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" || req.Password2 == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "fill all fields"})
		return
	}
	if req.Password != req.Password2 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "passwords do not match"})
		return
	}
	if len(req.Password) < 6 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "password too short"})
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcryptCost)
	if err != nil {
		s.fail(c, err)
		return
	}
	u, err := s.svc.Register(c.Request.Context(), fest.SignUp{
		Name:      req.Name,
		Email:     req.Email,
		PassHash:  string(hash),
		CollegeID: req.CollegeID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (s *Server) login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
		return
	}

	ctx := c.Request.Context()
	u, hash, err := s.svc.Credentials(ctx, req.Email)
	if err != nil {
		if fest.KindOf(err) != fest.KindNotFound {
			s.fail(c, err)
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "kind": fest.KindUnauthenticated})
		return
	}
	if hash == "" || bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials", "kind": fest.KindUnauthenticated})
		return
	}

	token, err := s.tokens.issue(u)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.SetCookie(cookieName, token, int(s.tokens.TTL.Seconds()), "/", "", s.tokens.CookieSecure, true)

	if err := s.svc.RecordLogin(ctx, &u); err != nil {
		s.logger.WarnContext(ctx, "record login failed", "user", u.ID, "err", err)
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "token": token, "user": u})
}

func (s *Server) logout(c *gin.Context) {
	c.SetCookie(cookieName, "", -1, "/", "", s.tokens.CookieSecure, true)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (s *Server) me(c *gin.Context) {
	c.JSON(http.StatusOK, actor(c))
}
