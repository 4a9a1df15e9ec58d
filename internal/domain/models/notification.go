package models

// OrderNotification письмо оператору о новом заказе.
// Name и Details уже экранированы.
type OrderNotification struct {
	Code    string
	Name    string
	Email   string
	Details string
	URL     string
}
