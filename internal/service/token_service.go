package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ServiceClaims 服务端调用方令牌声明
type ServiceClaims struct {
	Caller string `json:"caller"`
	jwt.RegisteredClaims
}

// TokenService 服务令牌签发与校验
// 接口面向内部调用方（机器人、运营脚本），不承载终端用户身份。
type TokenService struct {
	secret      []byte
	expireHours int
}

// NewTokenService 创建令牌服务
func NewTokenService(secret string, expireHours int) *TokenService {
	if expireHours <= 0 {
		expireHours = 24
	}
	return &TokenService{secret: []byte(secret), expireHours: expireHours}
}

// IssueServiceToken 签发调用方令牌
func (s *TokenService) IssueServiceToken(caller string) (string, error) {
	if len(s.secret) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := ServiceClaims{
		Caller: caller,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(s.expireHours) * time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ParseServiceToken 校验并解析调用方令牌
func (s *TokenService) ParseServiceToken(tokenString string) (*ServiceClaims, error) {
	if len(s.secret) == 0 {
		return nil, errors.New("jwt secret not configured")
	}
	claims := &ServiceClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
