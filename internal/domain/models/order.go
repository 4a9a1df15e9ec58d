package models

import "time"

// Order представляет заявку на печать. После создания не изменяется.
type Order struct {
	ID        int64      `json:"id"`
	Code      string     `json:"code"` // публичный код заказа, уникален
	Name      string     `json:"name"`
	Email     string     `json:"email"`
	Phone     string     `json:"phone"`
	Details   string     `json:"details"`
	File      *OrderFile `json:"file"` // nil, если файл не прикладывали
	CreatedAt time.Time  `json:"createdAt"`
}

// OrderFile ссылка на загруженный файл
type OrderFile struct {
	Filename     string `json:"filename"`     // имя на диске, генерируется сервером
	OriginalName string `json:"originalname"` // имя от пользователя, только для отображения
}

// URL возвращает ссылку на страницу заказа
func (o *Order) URL() string {
	return OrderURL(o.Code)
}

func OrderURL(code string) string {
	return "/o/" + code
}
