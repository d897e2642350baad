package password

import (
	"errors"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinLength 密码最少字符数
const MinLength = 6

var (
	ErrTooShort = errors.New("password is too short")
	// ErrTooLong bcrypt 只接受 72 字节以内的输入
	ErrTooLong = bcrypt.ErrPasswordTooLong
)

// cost 测试中可调低
var cost = bcrypt.DefaultCost

// Validate 检查长度限制
func Validate(plain string) error {
	if utf8.RuneCountInString(plain) < MinLength {
		return ErrTooShort
	}
	if len(plain) > 72 {
		return ErrTooLong
	}
	return nil
}

// Hash 校验长度后生成 bcrypt 哈希
func Hash(plain string) (string, error) {
	if err := Validate(plain); err != nil {
		return "", err
	}
	b, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Verify 校验密码
func Verify(plain, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain)) == nil
}

// NeedsRehash 哈希的 cost 低于当前设置时返回 true，登录成功后据此升级
func NeedsRehash(hash string) bool {
	c, err := bcrypt.Cost([]byte(hash))
	return err != nil || c < cost
}
