package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/data/repos"
	domainagg "github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/aggregates"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/domain/user"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/ctxutil"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/dbctx"
	"github.com/Zyedbelm/reservation-assignation-sub003/internal/platform/logger"
)

// JWTClaims are the claims issued by the identity provider. Subject carries the user id.
type JWTClaims struct {
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// AuthService turns a bearer token into request identity. Identity lives with the
// external provider; the role and GM link come from the local profile.
type AuthService interface {
	SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error)
	IssueToken(userID uuid.UUID, email string, ttl time.Duration) (string, error)
}

type authService struct {
	log      *logger.Logger
	secret   []byte
	issuer   string
	profiles repos.ProfileRepo
	gms      repos.GMRepo
}

func NewAuthService(baseLog *logger.Logger, secret, issuer string, profiles repos.ProfileRepo, gms repos.GMRepo) AuthService {
	return &authService{
		log:      baseLog.With("service", "AuthService"),
		secret:   []byte(secret),
		issuer:   strings.TrimSpace(issuer),
		profiles: profiles,
		gms:      gms,
	}
}

func (s *authService) SetContextFromToken(ctx context.Context, tokenString string) (context.Context, error) {
	if strings.TrimSpace(tokenString) == "" {
		return ctx, domainagg.Permission("auth.token", "missing token")
	}
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		return ctx, domainagg.NewError(domainagg.CodePermission, "auth.token", "invalid token", err)
	}
	claims, ok := parsed.Claims.(*JWTClaims)
	if !ok || !parsed.Valid {
		return ctx, domainagg.Permission("auth.token", "invalid or expired token")
	}
	userID, err := uuid.Parse(claims.Subject)
	if err != nil || userID == uuid.Nil {
		return ctx, domainagg.Permission("auth.token", "invalid user id in token")
	}

	rd := &ctxutil.RequestData{TokenString: tokenString, UserID: userID, Role: user.RoleUser}
	dbc := dbctx.Background(ctx)
	profile, err := s.profiles.GetByUserID(dbc, userID)
	if err != nil {
		return ctx, aggregates.MapError("auth.profile", err)
	}
	if profile != nil {
		rd.Role = profile.Role
		if profile.GMID != nil && *profile.GMID != uuid.Nil {
			id := *profile.GMID
			rd.GMID = &id
		}
	}
	if rd.GMID == nil && s.gms != nil {
		// Unreconciled GM users still see their own notifications.
		gm, err := s.gms.GetByUserID(dbc, userID)
		if err != nil {
			return ctx, aggregates.MapError("auth.gm", err)
		}
		if gm != nil {
			id := gm.ID
			rd.GMID = &id
		}
	}
	return ctxutil.WithRequestData(ctx, rd), nil
}

// IssueToken signs a token for local tooling and tests.
func (s *authService) IssueToken(userID uuid.UUID, email string, ttl time.Duration) (string, error) {
	if userID == uuid.Nil {
		return "", fmt.Errorf("issue token: user id is required")
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	now := time.Now()
	claims := JWTClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			Issuer:    s.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}
