package services

import "errors"

// Общие ошибки, используемые в разных сервисах и маппинге HTTP.
var (
	ErrValidationFailed = errors.New("validation failed")

	// Ошибки, специфичные для сущностей
	ErrLeagueNotFound       = errors.New("league not found")
	ErrMatchNotFound        = errors.New("match not found")
	ErrMatchDetailsNotFound = errors.New("match details not found")
	ErrVideoNotFound        = errors.New("video not found")
	ErrVideoRefNotFound     = errors.New("video is not attached to this match")
	ErrAdminNotFound        = errors.New("admin not found")

	// Ошибки конфликтов
	ErrLeagueNameConflict = errors.New("league name already exists")
	ErrLeagueInUse        = errors.New("league cannot be deleted while it has matches")
	ErrMatchDetailsExist  = errors.New("details already exist, use PATCH to update")
	ErrAdminEmailConflict = errors.New("email address is already in use")

	// Ошибки аутентификации и авторизации
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrForbiddenOperation = errors.New("operation not allowed for the current admin")

	// Внешнее хранилище
	ErrStorageUploadFailed = errors.New("failed to upload video to storage")
)
