package domain

import "errors"

var (
	// ErrCartNotFound возвращается, если корзина с таким кодом не найдена.
	ErrCartNotFound = errors.New("cart not found")
	// ErrProductNotFound возвращается, если товар отсутствует в каталоге.
	ErrProductNotFound = errors.New("product not found")
	// ErrOrderNotFound возвращается, если заказ не найден в репозитории.
	ErrOrderNotFound = errors.New("order not found")
	// ErrUserNotFound возвращается, если пользователь не найден.
	ErrUserNotFound = errors.New("user not found")
	// ErrAddressNotFound возвращается, если адрес не найден или принадлежит другому пользователю.
	ErrAddressNotFound = errors.New("address not found")
	// ErrCacheMiss возвращается кэшем, если записи нет.
	ErrCacheMiss = errors.New("cache miss")

	// Ошибка пустой корзины при оформлении.
	ErrCartEmpty = &ValidationError{Field: "cart", Message: "cart is empty"}
	// Ошибка при некорректном количестве товара (<= 0).
	ErrQuantityInvalid = &ValidationError{Field: "quantity", Message: "quantity must be greater than zero"}
	// Ошибка неизвестного способа доставки.
	ErrShippingMethodUnknown = &ValidationError{Field: "shipping_method", Message: "invalid shipping method"}
	// Ошибка отсутствующего кода корзины (нет cookie).
	ErrCartCodeRequired = &ValidationError{Field: "cart_code", Message: "cart not found"}
	// Ошибка отсутствующего идентификатора платежа у процессора.
	ErrCheckoutIDRequired = &ValidationError{Field: "id", Message: "processor checkout id is required"}
	// Ошибка отсутствующего email покупателя в уведомлении.
	ErrCustomerEmailRequired = &ValidationError{Field: "customer.email", Message: "customer email is required"}
	// Ошибка отсутствующего кода валюты.
	ErrCurrencyRequired = &ValidationError{Field: "currency", Message: "currency is required"}
	// Ошибка отрицательной суммы платежа.
	ErrAmountNegative = &ValidationError{Field: "amount", Message: "amount must be non-negative"}

	// ErrSignatureInvalid возвращается, если подпись webhook не совпала.
	ErrSignatureInvalid = errors.New("invalid webhook signature")
	// ErrUnauthenticated возвращается для запросов без валидного токена.
	ErrUnauthenticated = errors.New("authentication required")
	// ErrInvalidCredentials возвращается при неверной паре email/пароль.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrEmailTaken сигнализирует о занятом email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrUsernameTaken сигнализирует о занятом имени пользователя.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrRegistrationMethodMismatch возвращается, если аккаунт зарегистрирован другим способом.
	ErrRegistrationMethodMismatch = errors.New("account registered with a different method")

	// ErrPaymentRejected — процессор ответил, но отказал в создании сессии.
	ErrPaymentRejected = errors.New("payment processor rejected request")
	// ErrPaymentUnavailable — процессор недоступен (сеть, таймаут, открытый breaker).
	ErrPaymentUnavailable = errors.New("payment processor unavailable")
	// ErrOutboxPublish возвращается при сбое публикации из outbox.
	ErrOutboxPublish = errors.New("outbox publish failed")

	// ErrIdempotencyKeyAlreadyExists: ключ уже зарегистрирован.
	ErrIdempotencyKeyAlreadyExists = errors.New("idempotency key already exists")
	// ErrIdempotencyHashMismatch — ключ переиспользован с другим телом запроса.
	ErrIdempotencyHashMismatch = errors.New("idempotency key reused with different request")
	// ErrIdempotencyKeyNotFound возвращается, если записи по ключу нет.
	ErrIdempotencyKeyNotFound         = errors.New("idempotency key not found")
	ErrIdempotencyKeyRequired         = errors.New("idempotency key is required")
	ErrIdempotencyRequestHashRequired = errors.New("idempotency request hash is required")
)

// ValidationError описывает ошибку входных данных с указанием поля.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// NewValidationError создаёт ошибку валидации для поля.
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// PaymentError оборачивает сбой платёжного процессора вместе с его сообщением.
type PaymentError struct {
	// Message — человекочитаемое описание, пригодное для клиента.
	Message string
	Err     error
}

func (e *PaymentError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *PaymentError) Unwrap() error { return e.Err }

// IsValidation проверяет, что ошибка вызвана некорректным вводом.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}

// IsUpstream проверяет, что ошибка пришла от платёжного процессора.
func IsUpstream(err error) bool {
	var p *PaymentError
	return errors.As(err, &p) || errors.Is(err, ErrPaymentRejected) || errors.Is(err, ErrPaymentUnavailable)
}

// IsNotFound объединяет все ошибки «не найдено».
func IsNotFound(err error) bool {
	switch {
	case errors.Is(err, ErrCartNotFound),
		errors.Is(err, ErrProductNotFound),
		errors.Is(err, ErrOrderNotFound),
		errors.Is(err, ErrUserNotFound),
		errors.Is(err, ErrAddressNotFound):
		return true
	default:
		return false
	}
}

// IsIdempotencyConflict проверяет конфликт по ключу идемпотентности.
func IsIdempotencyConflict(err error) bool {
	return errors.Is(err, ErrIdempotencyKeyAlreadyExists) || errors.Is(err, ErrIdempotencyHashMismatch)
}

// IsConflict объединяет ошибки уникальности учётных данных.
func IsConflict(err error) bool {
	return errors.Is(err, ErrEmailTaken) || errors.Is(err, ErrUsernameTaken)
}
