package domain

import "errors"

// Доменные ошибки леджера платежей.
var (
	// ErrRecordNotFound — запись с таким reference (или modificationRef) не найдена.
	ErrRecordNotFound = errors.New("запись о платеже не найдена")

	// ErrDuplicateReference — запись с таким reference уже существует.
	ErrDuplicateReference = errors.New("запись с таким reference уже существует")

	// ErrNotAuthorised — платёж ещё не авторизован, модификации недоступны.
	ErrNotAuthorised = errors.New("платёж не авторизован, модификация невозможна")

	// ErrUnknownModification — неизвестный тип модификации.
	ErrUnknownModification = errors.New("неизвестный тип модификации")

	// ErrInvalidAmount — некорректная сумма операции.
	ErrInvalidAmount = errors.New("сумма операции должна быть больше нуля")
)
