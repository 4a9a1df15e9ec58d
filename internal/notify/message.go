// Package notify отправляет оператору письма о новых заказах.
package notify

import (
	"fmt"

	"github.com/linemk/print-orders/internal/domain/models"
)

func Subject(n models.OrderNotification) string {
	return "New printing order: " + n.Code
}

// Body - текст письма. Имя и детали приходят уже экранированными.
func Body(n models.OrderNotification) string {
	return fmt.Sprintf("Order %s by %s (%s)\n\nDetails:\n%s\n\nView: %s", n.Code, n.Name, n.Email, n.Details, n.URL)
}
