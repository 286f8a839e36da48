package usecase

import "github.com/ratmeow/weather-tracker/internal/model"

// RegisterUserInput はユーザー登録の入力。
type RegisterUserInput struct {
	Login    string
	Password string
}

// RegisterUserOutput はユーザー登録の結果。
type RegisterUserOutput struct {
	Login        string
	PasswordHash string
}

// LoginUserInput はログインの入力。
type LoginUserInput struct {
	Login    string
	Password string
}

// LocationInput は地点の追加・削除の入力。
// 地点の特定には座標のみを使い、名前は新規作成時にだけ使われる。
type LocationInput struct {
	Name        string
	Coordinates model.Coordinates
}
