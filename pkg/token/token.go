package token

import (
	"fmt"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/hertz-contrib/jwt"

	"Pointage/config"
	"Pointage/pkg/errors"
)

const (
	IdentityKey = "uid"
)

var (
	// 这个实例会被 middleware 和 token 包共同使用
	sharedGenerator *jwt.HertzJWTMiddleware
	secret          []byte
	accessTTL       time.Duration
	refreshTTL      time.Duration
)

func Init() error {
	return InitWith(
		config.Cfg.JWTSecret,
		time.Duration(config.Cfg.JWTExpireMinutes)*time.Minute,
		time.Duration(config.Cfg.JWTRefreshDays)*24*time.Hour,
	)
}

// InitWith 使用显式参数初始化，便于测试和命令行工具
func InitWith(key string, access, refresh time.Duration) error {
	if key == "" {
		return fmt.Errorf("jwt secret is empty")
	}

	gen, err := jwt.New(&jwt.HertzJWTMiddleware{
		Key:         []byte(key),
		Timeout:     access,
		MaxRefresh:  refresh,
		IdentityKey: IdentityKey,
		TimeFunc:    time.Now,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize token generator: %w", err)
	}

	sharedGenerator = gen
	secret = []byte(key)
	accessTTL = access
	refreshTTL = refresh
	return nil
}

// GetGenerator 获取共享的 token 生成器（供 middleware 使用）
func GetGenerator() *jwt.HertzJWTMiddleware {
	return sharedGenerator
}

// GenerateTokenPair 为员工生成 access token 和 refresh token
func GenerateTokenPair(workerID string) (accessToken, refreshToken string, expiresIn int, err error) {
	if sharedGenerator == nil {
		return "", "", 0, errors.ErrTokenGeneratorNotInitialized
	}

	now := time.Now()
	expiresAt := now.Add(accessTTL)

	accessClaims := jwtv5.MapClaims{
		IdentityKey: workerID,
		"iat":       now.Unix(),
		"orig_iat":  now.Unix(),
		"exp":       expiresAt.Unix(),
	}

	accessToken, err = jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, accessClaims).SignedString(secret)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to generate access token: %w", err)
	}

	expiresIn = int(time.Until(expiresAt).Seconds())
	if expiresIn < 0 {
		expiresIn = 0
	}

	refreshClaims := jwtv5.MapClaims{
		IdentityKey: workerID,
		"iat":       now.Unix(),
		"type":      "refresh",
		"exp":       now.Add(refreshTTL).Unix(),
	}

	refreshToken, err = jwtv5.NewWithClaims(jwtv5.SigningMethodHS256, refreshClaims).SignedString(secret)
	if err != nil {
		return "", "", 0, fmt.Errorf("failed to generate refresh token: %w", err)
	}

	return accessToken, refreshToken, expiresIn, nil
}

// ValidateRefreshToken 验证 refresh token 并返回员工 ID
func ValidateRefreshToken(tokenString string) (string, error) {
	claims, err := parse(tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := claims["type"].(string)
	if !ok || tokenType != "refresh" {
		return "", errors.ErrInvalidTokenClaims
	}

	return workerIDFromClaims(claims)
}

func parse(tokenString string) (jwtv5.MapClaims, error) {
	if len(secret) == 0 {
		return nil, errors.ErrTokenGeneratorNotInitialized
	}

	tok, err := jwtv5.ParseWithClaims(tokenString, jwtv5.MapClaims{}, func(t *jwtv5.Token) (interface{}, error) {
		if t.Method != jwtv5.SigningMethodHS256 {
			return nil, fmt.Errorf("%w: %v, expected HS256", errors.ErrUnexpectedSigningMethod, t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !tok.Valid {
		return nil, errors.ErrInvalidToken
	}

	claims, ok := tok.Claims.(jwtv5.MapClaims)
	if !ok {
		return nil, errors.ErrInvalidTokenClaims
	}
	return claims, nil
}

// WorkerIDFromClaims 兼容字符串和数字两种 uid
func WorkerIDFromClaims(claims map[string]interface{}) (string, error) {
	return workerIDFromClaims(claims)
}

func workerIDFromClaims(claims map[string]interface{}) (string, error) {
	switch v := claims[IdentityKey].(type) {
	case string:
		if v == "" {
			return "", errors.ErrUserIDNotFound
		}
		return v, nil
	case float64:
		return fmt.Sprintf("%.0f", v), nil
	default:
		return "", errors.ErrUserIDNotFound
	}
}
