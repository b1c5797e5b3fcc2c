package models

import "errors"

// Сигнальные ошибки доменного слоя.
var (
	ErrAdvertiserNotFound = errors.New("advertiser not found")
	ErrAlreadyRegistered  = errors.New("email already registered")
	ErrTrialAlreadyUsed   = errors.New("trial already used for this cpf")
	ErrUnderage           = errors.New("advertiser must be at least 18 years old")
	ErrInvalidCredentials = errors.New("invalid email or password")
)
