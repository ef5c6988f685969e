// Package token 提供了从任务 JWT 中提取用户身份的功能。
package token

import (
	"github.com/golang-jwt/jwt/v5"
)

// Identity 是从 JWT claims 中提取的用户身份信息。
type Identity struct {
	UserID string
	Email  string
}

// ExtractIdentity 在不验证签名的情况下解析 JWT 并提取用户身份。
// 任务中的 JWT 由上游服务签发并已经过网关验证，这里只用于在
// 消息负载缺失 user_id / user_email 时补全向量元数据。
func ExtractIdentity(tokenString string) (Identity, error) {
	claims := jwt.MapClaims{}
	parser := jwt.NewParser()
	if _, _, err := parser.ParseUnverified(tokenString, claims); err != nil {
		return Identity{}, err
	}

	var id Identity
	if v, ok := claims["sub"].(string); ok {
		id.UserID = v
	}
	// user_id 优先于标准的 sub
	if v, ok := claims["user_id"].(string); ok {
		id.UserID = v
	}
	if v, ok := claims["email"].(string); ok {
		id.Email = v
	}
	return id, nil
}
