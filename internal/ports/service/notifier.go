package service

import "context"

// INotifierService уведомления покупателю. Ядро не знает про чат-фреймворк:
// только возможность доставить текст или медиафайл с подписью.
type INotifierService interface {
	Notify(ctx context.Context, userID int64, message string) error

	// NotifyMedia доставляет файл с типом из product_media (photo, video, gif)
	NotifyMedia(ctx context.Context, userID int64, mediaType string, data []byte, caption string) error
}
