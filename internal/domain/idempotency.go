package domain

import "time"

// IdempotencyStatus описывает, на каком этапе находится оформление под ключом.
type IdempotencyStatus string

const (
	IdempotencyStatusProcessing IdempotencyStatus = "processing"
	IdempotencyStatusDone       IdempotencyStatus = "done"
	IdempotencyStatusFailed     IdempotencyStatus = "failed"
)

// DefaultIdempotencyTTL — сколько хранится ответ на оформление, если TTL не задан.
const DefaultIdempotencyTTL = 24 * time.Hour

// IdempotencyRecord запоминает ответ на оформление по ключу клиента.
// Повтор с тем же ключом и тем же запросом получает сохранённый ответ.
type IdempotencyRecord struct {
	Key          string
	RequestHash  string
	ResponseBody []byte
	HTTPStatus   int
	Status       IdempotencyStatus
	TTLAt        time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

func (s IdempotencyStatus) Valid() bool {
	switch s {
	case IdempotencyStatusProcessing, IdempotencyStatusDone, IdempotencyStatusFailed:
		return true
	default:
		return false
	}
}

// Expired сообщает, что запись можно забыть и занять ключ заново.
func (r IdempotencyRecord) Expired(now time.Time) bool {
	return !r.TTLAt.After(now)
}

// Finished возвращает true, когда ответ сохранён и его можно отдать повторно.
func (r IdempotencyRecord) Finished() bool {
	return r.Status == IdempotencyStatusDone || r.Status == IdempotencyStatusFailed
}

// ConflictWith объясняет, почему новый запрос с тем же ключом нельзя выполнить:
// ErrIdempotencyHashMismatch для другого тела, ErrIdempotencyKeyAlreadyExists для повтора.
func (r IdempotencyRecord) ConflictWith(requestHash string) error {
	if r.RequestHash != requestHash {
		return ErrIdempotencyHashMismatch
	}
	return ErrIdempotencyKeyAlreadyExists
}
