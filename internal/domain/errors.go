package domain

import "errors"

// Ожидаемые бизнес-исходы платёжного контура
var (
	ErrIntentNotFound    = errors.New("payment intent not found")
	ErrIntentNotPending  = errors.New("payment intent is not pending")
	ErrAmountTooLow      = errors.New("payment amount below minimum")
	ErrAlreadyProcessed  = errors.New("transaction signature already processed")
	ErrInsufficientFunds = errors.New("collection wallet balance insufficient to forward")
	ErrDustAmount        = errors.New("forward share below dust threshold")
	ErrOutOfStock        = errors.New("basket item out of stock")
)

// BusinessError ошибка бизнес-логики, которая уже залогирована в UseCase
type BusinessError struct {
	Err error
}

func (e *BusinessError) Error() string {
	return e.Err.Error()
}

func (e *BusinessError) Unwrap() error {
	return e.Err
}

func WrapBusinessError(err error) error {
	if err == nil {
		return nil
	}
	return &BusinessError{Err: err}
}

func IsBusinessError(err error) bool {
	var businessErr *BusinessError
	return errors.As(err, &businessErr)
}
