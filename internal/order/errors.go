package order

import (
	"errors"
	"fmt"
)

// Code 下单失败的对外错误码。
type Code string

const (
	CodeInvalidQuantity    Code = "INVALID_QUANTITY"
	CodeProductNotFound    Code = "PRODUCT_NOT_FOUND"
	CodeInsufficientStock  Code = "INSUFFICIENT_STOCK"
	CodePersistenceFailure Code = "PERSISTENCE_FAILURE"
)

// Error 携带错误码与出错商品信息，供 HTTP 层映射响应。
// 所有失败对当次 CreateOrder 都是终态，核心不做自动重试。
type Error struct {
	Code        Code
	ProductID   string
	ProductName string
	cause       error
}

func (e *Error) Error() string {
	switch e.Code {
	case CodeInvalidQuantity:
		if e.ProductID != "" {
			return fmt.Sprintf("invalid quantity for product %s", e.ProductID)
		}
		return "order must contain at least one item with positive quantity"
	case CodeProductNotFound:
		return fmt.Sprintf("product %s not found", e.ProductID)
	case CodeInsufficientStock:
		if e.ProductName != "" {
			return fmt.Sprintf("insufficient stock for %s", e.ProductName)
		}
		return fmt.Sprintf("insufficient stock for product %s", e.ProductID)
	case CodePersistenceFailure:
		return "failed to create order"
	}
	return string(e.Code)
}

func (e *Error) Unwrap() error { return e.cause }

// AsError 提取类型化下单错误。
func AsError(err error) (*Error, bool) {
	var oe *Error
	if errors.As(err, &oe) {
		return oe, true
	}
	return nil, false
}

func errInvalidQuantity(productID string) *Error {
	return &Error{Code: CodeInvalidQuantity, ProductID: productID}
}

func errEmptyOrder() *Error {
	return &Error{Code: CodeInvalidQuantity}
}

func errProductNotFound(productID string, cause error) *Error {
	return &Error{Code: CodeProductNotFound, ProductID: productID, cause: cause}
}

func errInsufficientStock(productID, name string, cause error) *Error {
	return &Error{Code: CodeInsufficientStock, ProductID: productID, ProductName: name, cause: cause}
}

func errPersistence(cause error) *Error {
	return &Error{Code: CodePersistenceFailure, cause: cause}
}
