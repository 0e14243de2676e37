package auth

import (
	"fmt"
	"os"
	"time"

	"quizserver/models"

	jwt "github.com/dgrijalva/jwt-go"
)

// !!！本番環境では環境変数 JWT_KEY で設定すること
var JwtKey = loadJwtKey()

func loadJwtKey() []byte {
	if key := os.Getenv("JWT_KEY"); key != "" {
		return []byte(key)
	}
	return []byte("your_secret_key")
}

// トークンの有効期限
const tokenLifetime = 24 * time.Hour

// GenerateToken はログイン済みユーザー用のJWTトークンを生成します。
func GenerateToken(user models.User) (string, time.Time, error) {
	expirationTime := time.Now().Add(tokenLifetime)

	// クレームの設定
	claims := &models.MyClaims{
		UserID:   user.ID,
		Username: user.Username,
		StandardClaims: jwt.StandardClaims{
			ExpiresAt: expirationTime.Unix(),
		},
	}

	// トークンの生成
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(JwtKey)

	return tokenString, expirationTime, err
}

// ValidateToken はトークンを検証し、クレームを返します。
func ValidateToken(tokenString string) (*models.MyClaims, error) {
	claims := &models.MyClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return JwtKey, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	return claims, nil
}

func IsValidToken(tokenString string) (bool, error) {
	_, err := ValidateToken(tokenString)
	if err != nil {
		return false, err
	}
	return true, nil
}
