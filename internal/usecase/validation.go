package usecase

import "regexp"

var (
	loginPattern            = regexp.MustCompile(`^[A-Za-z\d!@#$%^&*]{3,}$`)
	passwordPattern         = regexp.MustCompile(`^[A-Za-z\d!@#$%^&*_]{8,}$`)
	passwordRequiredPattern = regexp.MustCompile(`[\d!@#$%^&*_]`)
)

// IsValidLogin はログイン名が3文字以上で、ラテン文字・数字・!@#$%^&* のみから成る場合にtrueを返す。
func IsValidLogin(login string) bool {
	return loginPattern.MatchString(login)
}

// IsStrongPassword はパスワードが8文字以上で許可された文字のみから成り、
// 数字または記号を1文字以上含む場合にtrueを返す。
func IsStrongPassword(password string) bool {
	return passwordPattern.MatchString(password) && passwordRequiredPattern.MatchString(password)
}
