package payment

import (
	"context"
	"errors"
	"fmt"

	"log/slog"

	"github.com/admin/tg-bots/shop-bot/internal/domain"
	"github.com/admin/tg-bots/shop-bot/internal/ports/repository"
	"github.com/admin/tg-bots/shop-bot/internal/ports/service"
	"github.com/admin/tg-bots/shop-bot/internal/ports/storage"
)

// Finalizer завершает подтверждённую оплату: списывает склад, доставляет
// покупателю медиа и адреса закладок, чистит проданное.
type Finalizer struct {
	InventoryRepo repository.IInventoryRepo
	S3            storage.IS3Client
	Notifier      service.INotifierService
	Alerter       service.IAlerterService
	Log           *slog.Logger
}

func NewFinalizer(
	inventoryRepo repository.IInventoryRepo,
	s3 storage.IS3Client,
	notifier service.INotifierService,
	alerter service.IAlerterService,
	log *slog.Logger,
) *Finalizer {
	return &Finalizer{
		InventoryRepo: inventoryRepo,
		S3:            s3,
		Notifier:      notifier,
		Alerter:       alerter,
		Log:           log,
	}
}

// Finalize завершает покупку по подтверждённому интенту.
// Возвращает delivered=true только когда покупатель получил все позиции;
// тогда и только тогда проданные товары удаляются из каталога. Деньги уже
// получены, поэтому любая ошибка здесь алертится, но оплату не отменяет.
func (f *Finalizer) Finalize(ctx context.Context, intent *domain.PaymentIntent, signature string) (bool, error) {
	result, err := f.InventoryRepo.Finalize(ctx, intent.UserID, intent.Basket, intent.DiscountCode)
	if err != nil {
		if errors.Is(err, domain.ErrOutOfStock) {
			// Оплачено, но товара нет: деньги у нас, позиция ушла другому
			f.alert(ctx, fmt.Sprintf(
				"ОПЛАЧЕНО БЕЗ ТОВАРА %s: пользователь %d оплатил позицию, которой больше нет. Нужен возврат.",
				intent.PaymentID, intent.UserID,
			))
			f.notify(ctx, intent.UserID,
				"Оплата получена, но товар закончился. Свяжитесь с поддержкой для возврата.")
			return false, err
		}
		return false, fmt.Errorf("failed to finalize inventory: %w", err)
	}

	media, err := f.InventoryRepo.ProductMedia(ctx, result.ProductIDs)
	if err != nil {
		f.Log.Error("failed to load product media",
			"error", err,
			"payment_id", intent.PaymentID,
		)
		// Медиа недоступны, но тексты закладок доставить ещё можно
		media = nil
	}

	mediaByProduct := make(map[int64][]repository.ProductMedia, len(media))
	for _, m := range media {
		mediaByProduct[m.ProductID] = append(mediaByProduct[m.ProductID], m)
	}

	delivered := true
	for _, item := range intent.Basket {
		if err := f.deliverItem(ctx, intent.UserID, item, mediaByProduct[item.ProductID]); err != nil {
			f.Log.Error("failed to deliver purchased item",
				"error", err,
				"payment_id", intent.PaymentID,
				"product_id", item.ProductID,
			)
			delivered = false
		}
	}

	summary := fmt.Sprintf("✅ Оплата подтверждена!\nТоваров: %d\nСумма: %s EUR",
		len(result.ProductIDs), result.TotalPaid)
	if err := f.Notifier.Notify(ctx, intent.UserID, summary); err != nil {
		f.Log.Warn("failed to send purchase summary",
			"error", err,
			"payment_id", intent.PaymentID,
		)
	}

	if !delivered {
		f.alert(ctx, fmt.Sprintf(
			"ДОСТАВКА НЕ ЗАВЕРШЕНА %s: оплата подтверждена (tx %s), но часть позиций не доставлена пользователю %d.",
			intent.PaymentID, signature, intent.UserID,
		))
		return false, nil
	}

	// Товар потреблён: из каталога и продаж он должен исчезнуть
	if err := f.InventoryRepo.DeleteProducts(ctx, result.ProductIDs); err != nil {
		f.Log.Error("failed to delete sold products",
			"error", err,
			"payment_id", intent.PaymentID,
		)
	}

	f.Log.Info("purchase finalized and delivered",
		"payment_id", intent.PaymentID,
		"user_id", intent.UserID,
		"products", len(result.ProductIDs),
		"total_paid", result.TotalPaid,
	)
	return true, nil
}

// deliverItem доставляет покупателю одну позицию: медиа закладки и текст
func (f *Finalizer) deliverItem(ctx context.Context, userID int64, item domain.BasketItem, media []repository.ProductMedia) error {
	caption := fmt.Sprintf("<b>%s</b> %s\n%s, %s", item.Name, item.Size, item.City, item.District)

	sent := false
	for _, m := range media {
		data, err := f.S3.GetFile(ctx, m.ObjectKey)
		if err != nil {
			f.Log.Error("failed to fetch media from storage",
				"error", err,
				"object_key", m.ObjectKey,
				"product_id", item.ProductID,
			)
			continue
		}

		mediaCaption := ""
		if !sent {
			mediaCaption = caption
		}
		if err := f.Notifier.NotifyMedia(ctx, userID, m.MediaType, data, mediaCaption); err != nil {
			return fmt.Errorf("failed to deliver media %s: %w", m.ObjectKey, err)
		}
		sent = true
	}

	message := caption
	if item.PickupText != "" {
		message = message + "\n\n" + item.PickupText
	}
	if err := f.Notifier.Notify(ctx, userID, message); err != nil {
		return fmt.Errorf("failed to deliver pickup text: %w", err)
	}

	return nil
}

func (f *Finalizer) alert(ctx context.Context, message string) {
	if f.Alerter == nil {
		return
	}
	if err := f.Alerter.SendAlert(ctx, message); err != nil {
		f.Log.Warn("failed to send alert", "error", err)
	}
}

func (f *Finalizer) notify(ctx context.Context, userID int64, message string) {
	if err := f.Notifier.Notify(ctx, userID, message); err != nil {
		f.Log.Warn("failed to notify user", "error", err, "user_id", userID)
	}
}
