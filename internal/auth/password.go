package auth

import "golang.org/x/crypto/bcrypt"

// bcryptCost はパスワードハッシュの計算コスト。
const bcryptCost = 12

// hashPassword はパスワードをbcryptでハッシュ化する。
func hashPassword(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	return string(b), err
}

// checkPassword はパスワードがハッシュと一致するかを検証する。
func checkPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
