package jwt

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"teamflow/config"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken 令牌缺失、过期或签名不符
var ErrInvalidToken = errors.New("invalid token")

// JWTService HS256 访问令牌
// Subject 为用户ID，用户名随令牌下发，WebSocket 接入时无需再查库

type JWTService struct {
	secretKey   []byte
	issuer      string
	expireAfter time.Duration
	now         func() time.Time
}

// Claims 访问令牌载荷
type Claims struct {
	Username string `json:"username"`
	jwtv5.RegisteredClaims
}

// NewJWTService 创建 JWT 服务
func NewJWTService(cfg config.JWTConfig) *JWTService {
	return &JWTService{
		secretKey:   []byte(cfg.Secret),
		issuer:      cfg.Issuer,
		expireAfter: cfg.ExpireTime,
		now:         time.Now,
	}
}

// IssueForUser 为用户签发访问令牌
func (s *JWTService) IssueForUser(userID uint, username string) (string, error) {
	if userID == 0 {
		return "", errors.New("user id is required")
	}

	now := s.now()
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwtv5.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatUint(uint64(userID), 10),
			IssuedAt:  jwtv5.NewNumericDate(now),
			NotBefore: jwtv5.NewNumericDate(now),
			ExpiresAt: jwtv5.NewNumericDate(now.Add(s.expireAfter)),
		},
	}

	signed, err := jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, claims).SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Identity 校验令牌并返回用户ID与用户名
func (s *JWTService) Identity(tokenString string) (uint, string, error) {
	if tokenString == "" {
		return 0, "", ErrInvalidToken
	}

	claims := &Claims{}
	_, err := jwtv5.ParseWithClaims(tokenString, claims,
		func(*jwtv5.Token) (interface{}, error) { return s.secretKey, nil },
		jwtv5.WithValidMethods([]string{jwtv5.SigningMethodHS256.Alg()}),
		jwtv5.WithIssuer(s.issuer),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(s.now),
	)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	id, err := strconv.ParseUint(claims.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, "", fmt.Errorf("%w: bad subject %q", ErrInvalidToken, claims.Subject)
	}
	return uint(id), claims.Username, nil
}

// TokenFromRequest 依次读取 Authorization: Bearer、token 查询参数、Sec-WebSocket-Protocol
// 浏览器的 WebSocket 与 <img> 请求无法设置 Authorization 头
func TokenFromRequest(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}
	return strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Sec-WebSocket-Protocol"), "Bearer "))
}
