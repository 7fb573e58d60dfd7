package service

import (
	"context"

	"github.com/shopspring/decimal"
)

// IPriceOracle курс SOL/EUR.
// GetPrice не возвращает ошибку: при недоступности источника отдаётся
// последнее закэшированное значение (пусть и протухшее) либо консервативный
// дефолт. Точность "примерно" достаточна — матчинг идёт с допуском.
type IPriceOracle interface {
	GetPrice(ctx context.Context) decimal.Decimal
}
